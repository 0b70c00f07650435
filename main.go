package main

import (
	"fmt"
	"log"
	"os"

	"clutchtime/cache"
	"clutchtime/clutch"
	"clutchtime/collect"
	"clutchtime/config"
	"clutchtime/db"
	"clutchtime/nba"
	"clutchtime/sheets"

	"golang.org/x/time/rate"
)

func init() {
	if err := config.LoadConfig(); err != nil {
		panic(err)
	}
	if config.DatabaseFile != "" {
		if err := db.SetupDatabase(); err != nil {
			panic(err)
		}
		if err := db.RunMigrations(); err != nil {
			panic(err)
		}
		if err := db.ValidateMigrations(); err != nil {
			panic(err)
		}
	}
	go nba.CacheJanitor()
	fmt.Println("Hit your free throws and the clutch takes care of itself")
}

func main() {
	if err := run(); err != nil {
		log.Fatalln(err)
	}
}

func run() error {
	if config.HustleGameID != "" {
		return printHustleStats(config.HustleGameID)
	}
	if config.FranchiseHistory {
		return printFranchiseHistory()
	}

	ids, err := resolveGameIDs()
	if err != nil {
		return err
	}

	log.Printf("filtering %d games for clutch events", len(ids))
	filterClient := nba.NewClient(config.RequestTimeout, rate.NewLimiter(rate.Every(config.FilterDelay), 1))
	res, err := clutch.Run(filterClient, ids)
	if err != nil {
		return err
	}
	log.Printf("fetched %d games, skipped %d timeouts, discarded %d scoreless rows, kept %d clutch events",
		res.GamesFetched, res.GamesSkipped, res.RowsDiscarded, len(res.Events))
	printSample(res.Events)

	if config.DatabaseFile != "" {
		if err := archiveEvents(res.Events); err != nil {
			return err
		}
	}
	if config.WorkbookFile != "" {
		if err := printWorkbook(config.WorkbookFile); err != nil {
			return err
		}
	}
	return nil
}

func resolveGameIDs() ([]string, error) {
	if config.CacheFile != "" && !config.RefreshCache {
		if _, err := os.Stat(config.CacheFile); err == nil {
			ids, err := cache.LoadGameIDs(config.CacheFile)
			if err != nil {
				return nil, err
			}
			log.Printf("loaded %d game identifiers from %s", len(ids), config.CacheFile)
			return ids, nil
		}
	}

	log.Printf("collecting %s game identifiers", config.SeasonType)
	collectClient := nba.NewClient(config.RequestTimeout, rate.NewLimiter(rate.Every(config.CollectDelay), 1))
	res, err := collect.CollectGameIDs(collectClient, config.SeasonType, config.Season, config.CacheFile)
	if err != nil {
		return nil, err
	}
	log.Printf("collected %d unique game identifiers across %d teams", len(res.GameIDs), res.TeamsQueried)

	if config.DatabaseFile != "" {
		if err := db.InsertGames(res.Games); err != nil {
			return nil, err
		}
		if len(res.Games) > 0 {
			log.Printf("archived %d game summaries, e.g. %s", len(res.Games), res.Games[0].ToString())
		} else {
			log.Printf("archived 0 game summaries")
		}
	}
	return res.GameIDs, nil
}

func printSample(events []clutch.ClutchEvent) {
	n := len(events)
	if n > 10 {
		n = 10
	}
	for _, e := range events[:n] {
		description := e.HomeDescription
		if description == "" {
			description = e.VisitorDescription
		}
		if description == "" {
			description = e.NeutralDescription
		}
		fmt.Printf("[%d] game %s Q%d %d:%02d | %d - %d (margin %+d) winner=%s | %s\n",
			e.Row, e.GameID, e.Period, e.ClockMinutes, e.ClockSeconds,
			e.HomeScore, e.VisitorScore, e.Margin, e.Winner, description)
	}
	if len(events) > n {
		fmt.Printf("... and %d more rows\n", len(events)-n)
	}
}

func archiveEvents(events []clutch.ClutchEvent) error {
	rows := make([]db.ClutchEventRow, len(events))
	for i, e := range events {
		rows[i] = db.ClutchEventRow{
			RowNum:             e.Row,
			GameID:             e.GameID,
			EventNum:           e.EventNum,
			Period:             e.Period,
			ClockMinutes:       e.ClockMinutes,
			ClockSeconds:       e.ClockSeconds,
			HomeDescription:    e.HomeDescription,
			NeutralDescription: e.NeutralDescription,
			VisitorDescription: e.VisitorDescription,
			HomeScore:          e.HomeScore,
			VisitorScore:       e.VisitorScore,
			ScoreMargin:        e.Margin,
			Winner:             e.Winner,
		}
	}
	if err := db.InsertClutchEvents(rows); err != nil {
		return err
	}
	log.Printf("archived %d clutch events to %s", len(rows), config.DatabaseFile)
	return nil
}

func printWorkbook(path string) error {
	wb, err := sheets.Open(path)
	if err != nil {
		return err
	}
	fmt.Printf("reference workbook %s\n", path)
	for _, tab := range wb.Tabs() {
		s, err := wb.Sheet(tab)
		if err != nil {
			return err
		}
		fmt.Printf("  [%s] rows: %v\n", tab, s.RowLabels())
		for _, key := range s.Columns() {
			v, err := s.Value("4", key.Category, key.Stat)
			if err != nil {
				return err
			}
			fmt.Printf("    Q4 %s/%s = %s\n", key.Category, key.Stat, v)
		}
	}
	return nil
}

func printHustleStats(gameID string) error {
	client := nba.NewClient(config.RequestTimeout, rate.NewLimiter(rate.Every(config.FilterDelay), 1))
	box, err := client.HustleStats(gameID)
	if err != nil {
		return err
	}
	if !box.Available {
		fmt.Printf("hustle stats are not available for game %s\n", gameID)
		return nil
	}
	fmt.Printf("hustle stats for game %s\n", gameID)
	for _, t := range box.TeamStats {
		name := "unknown"
		if t.TeamName != nil {
			name = *t.TeamName
		}
		fmt.Printf("  %s: contested %s, deflections %s, charges %s, screens %s, loose balls %s, box outs %s\n",
			name,
			fmtStat(t.ContestedShots),
			fmtStat(t.Deflections),
			fmtStat(t.ChargesDrawn),
			fmtStat(t.ScreenAssists),
			fmtStat(t.LooseBallsRecovered),
			fmtStat(t.BoxOuts),
		)
	}
	fmt.Printf("  %d player lines\n", len(box.PlayerStats))
	return nil
}

func printFranchiseHistory() error {
	client := nba.NewClient(config.RequestTimeout, rate.NewLimiter(rate.Every(config.FilterDelay), 1))
	active, defunct, err := client.FranchiseHistory()
	if err != nil {
		return err
	}
	fmt.Println("franchise history")
	for _, rec := range nba.AggregateFranchiseHistory(active) {
		fmt.Printf("  %s %s: %s-%s, %d-%d (%.3f W/L), %d titles\n",
			rec.TeamCity, rec.TeamName,
			rec.StartYear, rec.EndYear,
			rec.Wins, rec.Losses, rec.WinPct,
			rec.LeagueTitles,
		)
	}
	fmt.Printf("  plus %d defunct franchise lines\n", len(defunct))
	return nil
}

func fmtStat(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f", *f)
}
