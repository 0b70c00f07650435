package collect

import (
	"fmt"
	"log"
	"sort"

	"clutchtime/cache"
	"clutchtime/db"
	"clutchtime/nba"
	"clutchtime/utils"
)

type Result struct {
	GameIDs      []string
	Games        []db.Game
	TeamsQueried int
}

// CollectGameIDs walks the franchise registry in table order, queries each
// team's games under the season type, and unions the identifiers into one
// deduplicated set. With a non-empty cachePath the set is persisted before
// returning. Any query failure is fatal to the run: there is no retry here.
func CollectGameIDs(client *nba.Client, seasonType, season, cachePath string) (*Result, error) {
	if utils.IsInvalidSeasonType(seasonType) {
		return nil, utils.ErrorWithTrace(fmt.Errorf("invalid season type provided: %s", seasonType))
	}
	if season != "" && utils.IsInvalidSeason(season) {
		return nil, utils.ErrorWithTrace(fmt.Errorf("invalid season provided: %s", season))
	}

	idSet := map[string]struct{}{}
	rowsByGame := map[string][]nba.FinderGame{}
	teams := nba.Teams()
	for _, t := range teams {
		games, err := client.FindTeamGames(t.ID, seasonType, season)
		if err != nil {
			return nil, utils.ErrorWithTrace(fmt.Errorf("finding games for %s: %w", t.FullName, err))
		}
		for _, g := range games {
			if g.GameID == nil {
				log.Printf("skipping finder row with nil game id for %s", t.FullName)
				continue
			}
			idSet[*g.GameID] = struct{}{}
			rowsByGame[*g.GameID] = append(rowsByGame[*g.GameID], g)
		}
		log.Printf("%s: %d finder rows, %d unique games so far", t.FullName, len(games), len(idSet))
	}

	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if cachePath != "" {
		if err := cache.SaveGameIDs(cachePath, ids); err != nil {
			return nil, utils.ErrorWithTrace(err)
		}
		log.Printf("persisted %d game identifiers to %s", len(ids), cachePath)
	}

	return &Result{
		GameIDs:      ids,
		Games:        pairGames(seasonType, rowsByGame),
		TeamsQueried: len(teams),
	}, nil
}

// pairGames folds the two per-team finder rows of each game into one archive
// row. Games without exactly two registry rows (preseason exhibitions against
// off-registry opponents, partial responses) are skipped, not errored.
func pairGames(seasonType string, rowsByGame map[string][]nba.FinderGame) []db.Game {
	dbGames := []db.Game{}
	for id, rows := range rowsByGame {
		if len(rows) != 2 {
			log.Printf("skipping archive row for game %s: found %d finder rows, want 2", id, len(rows))
			continue
		}
		a, b := rows[0], rows[1]
		if a.PTS == nil || b.PTS == nil {
			log.Printf("found matchup containing nil points field:\n\tGameID: %s", id)
			continue
		}
		if a.TeamID == nil || b.TeamID == nil || a.TeamName == nil || b.TeamName == nil {
			log.Printf("found matchup containing nil team field:\n\tGameID: %s", id)
			continue
		}
		if a.Matchup == nil || b.Matchup == nil || a.SeasonID == nil || a.GameDate == nil {
			log.Printf("found matchup containing nil metadata field:\n\tGameID: %s", id)
			continue
		}

		var winner, loser nba.FinderGame
		if a.WL != nil && *a.WL == "W" {
			winner, loser = a, b
		} else if b.WL != nil && *b.WL == "W" {
			winner, loser = b, a
		} else if *a.PTS > *b.PTS {
			winner, loser = a, b
		} else {
			winner, loser = b, a
		}

		var homeTeam, awayTeam nba.FinderGame
		if a.IsHomeGame() {
			homeTeam, awayTeam = a, b
		} else {
			homeTeam, awayTeam = b, a
		}

		dbGames = append(dbGames, db.Game{
			ID:          id,
			SeasonID:    *a.SeasonID,
			GameDate:    *a.GameDate,
			Matchup:     *winner.Matchup,
			SeasonType:  seasonType,
			WinnerName:  *winner.TeamName,
			WinnerID:    int(*winner.TeamID),
			WinnerScore: int(*winner.PTS),
			LoserName:   *loser.TeamName,
			LoserID:     int(*loser.TeamID),
			LoserScore:  int(*loser.PTS),
			HomeTeamId:  int(*homeTeam.TeamID),
			AwayTeamId:  int(*awayTeam.TeamID),
		})
	}
	return dbGames
}
