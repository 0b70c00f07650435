package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"clutchtime/config"
	"clutchtime/utils"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
)

type Game struct {
	ID          string `db:"id"`
	SeasonID    string `db:"season_id"`
	GameDate    string `db:"game_date"`
	Matchup     string `db:"matchup"`
	SeasonType  string `db:"season_type"`
	WinnerName  string `db:"winner_name"`
	WinnerID    int    `db:"winner_id"`
	WinnerScore int    `db:"winner_score"`
	LoserName   string `db:"loser_name"`
	LoserID     int    `db:"loser_id"`
	LoserScore  int    `db:"loser_score"`
	HomeTeamId  int    `db:"home_team_id"`
	AwayTeamId  int    `db:"away_team_id"`
}

func (g Game) ToString() string {
	dateTime, err := time.Parse("2006-01-02", g.GameDate)
	if err != nil {
		panic(err)
	}
	dateString := dateTime.Format("1/2/06")

	splitWinner := strings.Split(g.WinnerName, " ")
	winnerString := splitWinner[len(splitWinner)-1]
	splitLoser := strings.Split(g.LoserName, " ")
	loserString := splitLoser[len(splitLoser)-1]

	if g.WinnerID == g.HomeTeamId {
		return fmt.Sprintf("%s (%d) vs %s (%d) %s",
			winnerString,
			g.WinnerScore,
			loserString,
			g.LoserScore,
			dateString,
		)
	} else {
		return fmt.Sprintf("%s (%d) @ %s (%d) %s",
			winnerString,
			g.WinnerScore,
			loserString,
			g.LoserScore,
			dateString,
		)
	}
}

type ClutchEventRow struct {
	RowNum             int    `db:"row_num"`
	GameID             string `db:"game_id"`
	EventNum           int    `db:"event_num"`
	Period             int    `db:"period"`
	ClockMinutes       int    `db:"clock_minutes"`
	ClockSeconds       int    `db:"clock_seconds"`
	HomeDescription    string `db:"home_description"`
	NeutralDescription string `db:"neutral_description"`
	VisitorDescription string `db:"visitor_description"`
	HomeScore          int    `db:"home_score"`
	VisitorScore       int    `db:"visitor_score"`
	ScoreMargin        int    `db:"score_margin"`
	Winner             string `db:"winner"`
}

func SetupDatabase() error {
	_, err := os.Stat(config.DatabaseFile)
	if os.IsNotExist(err) {
		log.Println("Database file not found. Creating a new database.")
		file, err := os.Create(config.DatabaseFile)
		if err != nil {
			return utils.ErrorWithTrace(err)
		}
		file.Close()
	} else if err != nil {
		return utils.ErrorWithTrace(err)
	}
	return nil
}

func RunMigrations() error {
	m, err := migrate.New(
		"file://"+config.MigrationsDir,
		"sqlite3://"+config.DatabaseFile,
	)
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return utils.ErrorWithTrace(err)
	}
	return nil
}

func ValidateMigrations() error {
	db, err := sqlx.Open("sqlite3", config.DatabaseFile)
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM teams").Scan(&count); err != nil {
		return utils.ErrorWithTrace(err)
	}

	if count != 31 {
		return utils.ErrorWithTrace(fmt.Errorf("expected 31 teams, found %d", count))
	}

	var name string
	if err := db.QueryRow("SELECT name FROM teams WHERE id = 1610612752").Scan(&name); err != nil {
		return utils.ErrorWithTrace(fmt.Errorf("failed to find Knicks: %v", err))
	}
	if name != "New York Knicks" {
		return utils.ErrorWithTrace(fmt.Errorf("expected team.id 1610612752 to have name 'New York Knicks', got '%s'", name))
	}
	err = db.QueryRow("SELECT name FROM teams WHERE id = 0").Scan(&name)
	if err != nil {
		return utils.ErrorWithTrace(fmt.Errorf("failed to find NULL_TEAM: %v", err))
	}
	if name != "NULL_TEAM" {
		return utils.ErrorWithTrace(fmt.Errorf("expected team.id 0 to have name 'NULL_TEAM', got '%s'", name))
	}
	return nil
}

func InsertGames(games []Game) error {
	db, err := sqlx.Open("sqlite3", config.DatabaseFile)
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	defer db.Close()

	tx, err := db.Beginx()
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	defer tx.Rollback()

	query := `
		REPLACE INTO games (
			id, season_id, game_date, matchup, season_type, winner_name,
			winner_id, winner_score, loser_name, loser_id, loser_score,
			home_team_id, away_team_id
		) VALUES (
			:id, :season_id, :game_date, :matchup, :season_type, :winner_name,
			:winner_id, :winner_score, :loser_name, :loser_id, :loser_score,
			:home_team_id, :away_team_id
		)
	`
	for _, g := range games {
		_, err := tx.NamedExec(query, g)
		if err != nil {
			return utils.ErrorWithTrace(err)
		}
	}

	return tx.Commit()
}

func SelectGamesBySeasonType(seasonType string) ([]Game, error) {
	if utils.IsInvalidSeasonType(seasonType) {
		return nil, fmt.Errorf("invalid season type provided: %s", seasonType)
	}

	db, err := sqlx.Open("sqlite3", config.DatabaseFile)
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	defer db.Close()

	query := `
		SELECT * FROM games WHERE season_type = ? ORDER BY game_date DESC;
	`

	games := []Game{}
	if err := db.Select(&games, query, seasonType); err != nil {
		return nil, utils.ErrorWithTrace(err)
	}

	return games, nil
}

// InsertClutchEvents appends rows without any uniqueness constraint; the
// result table never deduplicates.
func InsertClutchEvents(events []ClutchEventRow) error {
	db, err := sqlx.Open("sqlite3", config.DatabaseFile)
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	defer db.Close()

	tx, err := db.Beginx()
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO clutch_events (
			row_num, game_id, event_num, period, clock_minutes, clock_seconds,
			home_description, neutral_description, visitor_description,
			home_score, visitor_score, score_margin, winner
		) VALUES (
			:row_num, :game_id, :event_num, :period, :clock_minutes, :clock_seconds,
			:home_description, :neutral_description, :visitor_description,
			:home_score, :visitor_score, :score_margin, :winner
		)
	`
	for _, e := range events {
		_, err := tx.NamedExec(query, e)
		if err != nil {
			return utils.ErrorWithTrace(err)
		}
	}

	return tx.Commit()
}

func SelectClutchEventsByGame(gameID string) ([]ClutchEventRow, error) {
	db, err := sqlx.Open("sqlite3", config.DatabaseFile)
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	defer db.Close()

	query := `
		SELECT * FROM clutch_events WHERE game_id = ? ORDER BY row_num ASC;
	`

	events := []ClutchEventRow{}
	if err := db.Select(&events, query, gameID); err != nil {
		return nil, utils.ErrorWithTrace(err)
	}

	return events, nil
}

func CountClutchEvents() (int, error) {
	db, err := sqlx.Open("sqlite3", config.DatabaseFile)
	if err != nil {
		return 0, utils.ErrorWithTrace(err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM clutch_events").Scan(&count); err != nil {
		return 0, utils.ErrorWithTrace(err)
	}
	return count, nil
}
