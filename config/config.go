package config

import (
	"fmt"
	"time"

	flag "github.com/spf13/pflag"
)

var SeasonType string
var Season string
var CacheFile string
var RefreshCache bool
var RequestTimeout time.Duration
var CollectDelay time.Duration
var FilterDelay time.Duration
var DatabaseFile string
var MigrationsDir = "db/migrations"
var WorkbookFile string
var HustleGameID string
var FranchiseHistory bool

var ValidSeasons = []string{
	"2025-26",
	"2024-25",
	"2023-24",
	"2022-23",
	"2021-22",
	"2020-21",
	"2019-20",
	"2018-19",
	"2017-18",
	"2016-17",
	"2015-16",
	"2014-15",
}

var SeasonTypes = []string{
	"Regular Season",
	// "Pre Season",
	"Playoffs",
	// "All Star",
}

var seasonTypeAliases = map[string]string{
	"regular":  "Regular Season",
	"playoffs": "Playoffs",
}

// ResolveSeasonType maps a flag value like "regular" onto the string the
// stats endpoints expect.
func ResolveSeasonType(alias string) (string, error) {
	resolved, ok := seasonTypeAliases[alias]
	if !ok {
		return "", fmt.Errorf("invalid season type %q: want one of regular, playoffs", alias)
	}
	return resolved, nil
}

func LoadConfig() error {
	seasonType := flag.StringP("season-type", "t", "regular", "season type to collect: regular or playoffs")
	season := flag.StringP("season", "s", "", "optional season filter, e.g. 2023-24 (default: every season)")
	cacheFile := flag.StringP("cache", "c", "game_ids.bin", "game identifier cache file; empty disables persistence")
	refresh := flag.BoolP("refresh", "r", false, "ignore an existing identifier cache and re-collect")
	timeout := flag.Duration("timeout", 10*time.Second, "stats request timeout")
	collectDelay := flag.Duration("collect-delay", 2*time.Second, "minimum interval between game-finder requests")
	filterDelay := flag.Duration("filter-delay", time.Second, "minimum interval between play-by-play requests")
	databaseFile := flag.String("db", "", "optional sqlite archive file; empty disables archiving")
	workbookFile := flag.String("workbook", "", "optional reference workbook (.xlsx) to cross-reference")
	hustleGameID := flag.String("hustle-game", "", "print the hustle-stat box score for a game id instead of running the pipeline")
	franchiseHistory := flag.Bool("franchise-history", false, "print the franchise history table instead of running the pipeline")
	flag.Parse()

	resolved, err := ResolveSeasonType(*seasonType)
	if err != nil {
		return err
	}
	if *season != "" && !isKnownSeason(*season) {
		return fmt.Errorf("invalid season %q: want one of %v", *season, ValidSeasons)
	}
	if *timeout <= 0 {
		return fmt.Errorf("invalid timeout %v: must be positive", *timeout)
	}
	if *collectDelay < 0 || *filterDelay < 0 {
		return fmt.Errorf("request delays must not be negative")
	}

	SeasonType = resolved
	Season = *season
	CacheFile = *cacheFile
	RefreshCache = *refresh
	RequestTimeout = *timeout
	CollectDelay = *collectDelay
	FilterDelay = *filterDelay
	DatabaseFile = *databaseFile
	WorkbookFile = *workbookFile
	HustleGameID = *hustleGameID
	FranchiseHistory = *franchiseHistory
	return nil
}

func isKnownSeason(season string) bool {
	for _, s := range ValidSeasons {
		if s == season {
			return true
		}
	}
	return false
}
