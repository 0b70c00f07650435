package clutch

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"clutchtime/nba"
	"clutchtime/utils"
)

const (
	WinnerHome    = "home"
	WinnerVisitor = "visitor"
)

// Event is one parsed, score-bearing row of a game's play-by-play log.
type Event struct {
	GameID             string
	EventNum           int
	Period             int
	ClockMinutes       int
	ClockSeconds       int
	HomeDescription    string
	NeutralDescription string
	VisitorDescription string
	HomeScore          int
	VisitorScore       int
	Margin             int
}

// ClutchEvent is an Event tagged with its game's final winner and the row
// number assigned when the result table is materialized.
type ClutchEvent struct {
	Row    int
	Winner string
	Event
}

type Result struct {
	Events        []ClutchEvent
	GamesFetched  int
	GamesSkipped  int
	RowsDiscarded int
}

// ParseClock splits a "MM:SS" game clock into whole minutes and seconds.
func ParseClock(clock string) (int, int, error) {
	minuteStr, secondStr, found := strings.Cut(clock, ":")
	if !found {
		return 0, 0, utils.ErrorWithTrace(fmt.Errorf("malformed clock string: %q", clock))
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(minuteStr))
	if err != nil {
		return 0, 0, utils.ErrorWithTrace(fmt.Errorf("malformed clock string %q: %w", clock, err))
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(secondStr))
	if err != nil {
		return 0, 0, utils.ErrorWithTrace(fmt.Errorf("malformed clock string %q: %w", clock, err))
	}
	return minutes, seconds, nil
}

// ParseScore splits an "A - B" running score into home and visitor points.
func ParseScore(score string) (int, int, error) {
	homeStr, visitorStr, found := strings.Cut(score, "-")
	if !found {
		return 0, 0, utils.ErrorWithTrace(fmt.Errorf("malformed score string: %q", score))
	}
	home, err := strconv.Atoi(strings.TrimSpace(homeStr))
	if err != nil {
		return 0, 0, utils.ErrorWithTrace(fmt.Errorf("malformed score string %q: %w", score, err))
	}
	visitor, err := strconv.Atoi(strings.TrimSpace(visitorStr))
	if err != nil {
		return 0, 0, utils.ErrorWithTrace(fmt.Errorf("malformed score string %q: %w", score, err))
	}
	return home, visitor, nil
}

// ParseMargin normalizes the score-margin column: the sentinel "TIE" is 0,
// anything else is a signed integer.
func ParseMargin(margin string) (int, error) {
	if margin == "TIE" {
		return 0, nil
	}
	m, err := strconv.Atoi(strings.TrimSpace(margin))
	if err != nil {
		return 0, utils.ErrorWithTrace(fmt.Errorf("malformed score margin %q: %w", margin, err))
	}
	return m, nil
}

// Winner applies a strict greater-than check on the visitor side of the
// final score-bearing row, so a tied final row falls to "home". That is the
// recorded policy, kept as-is rather than guessed around.
func Winner(last Event) string {
	if last.VisitorScore > last.HomeScore {
		return WinnerVisitor
	}
	return WinnerHome
}

// IsClutch reports whether an event sits inside the clutch window: the
// final 10 seconds of the fourth period with the margin within 5 points.
// Overtime periods (5+) never qualify.
func IsClutch(e Event) bool {
	if e.Period != 4 {
		return false
	}
	if e.ClockMinutes >= 1 || e.ClockSeconds > 10 {
		return false
	}
	margin := e.Margin
	if margin < 0 {
		margin = -margin
	}
	return margin <= 5
}

func hasScore(row nba.PlayByPlayRow) bool {
	return row.Score != nil && strings.TrimSpace(*row.Score) != ""
}

func parseEvent(row nba.PlayByPlayRow) (Event, error) {
	e := Event{}
	if row.GameID != nil {
		e.GameID = *row.GameID
	}
	if row.EventNum != nil {
		e.EventNum = int(*row.EventNum)
	}
	if row.Period == nil {
		return e, utils.ErrorWithTrace(fmt.Errorf("row missing period: game %q event %d", e.GameID, e.EventNum))
	}
	e.Period = int(*row.Period)

	if row.PCTimeString == nil {
		return e, utils.ErrorWithTrace(fmt.Errorf("row missing game clock: game %q event %d", e.GameID, e.EventNum))
	}
	minutes, seconds, err := ParseClock(*row.PCTimeString)
	if err != nil {
		return e, err
	}
	e.ClockMinutes, e.ClockSeconds = minutes, seconds

	home, visitor, err := ParseScore(*row.Score)
	if err != nil {
		return e, err
	}
	e.HomeScore, e.VisitorScore = home, visitor

	if row.ScoreMargin == nil {
		return e, utils.ErrorWithTrace(fmt.Errorf("row missing score margin: game %q event %d", e.GameID, e.EventNum))
	}
	margin, err := ParseMargin(*row.ScoreMargin)
	if err != nil {
		return e, err
	}
	e.Margin = margin

	if row.HomeDescription != nil {
		e.HomeDescription = *row.HomeDescription
	}
	if row.NeutralDescription != nil {
		e.NeutralDescription = *row.NeutralDescription
	}
	if row.VisitorDescription != nil {
		e.VisitorDescription = *row.VisitorDescription
	}
	return e, nil
}

// FilterGame parses the score-bearing rows of one game's log and returns the
// rows inside the clutch window plus the game's winner. The winner comes from
// the last score-bearing row of the full log, never the filtered subset. A
// log with no score-bearing rows yields no events and an empty winner.
func FilterGame(rows []nba.PlayByPlayRow) ([]Event, string, error) {
	scored := make([]Event, 0, len(rows))
	for _, row := range rows {
		if !hasScore(row) {
			continue
		}
		e, err := parseEvent(row)
		if err != nil {
			return nil, "", err
		}
		scored = append(scored, e)
	}
	if len(scored) == 0 {
		return nil, "", nil
	}

	winner := Winner(scored[len(scored)-1])
	kept := make([]Event, 0, len(scored))
	for _, e := range scored {
		if IsClutch(e) {
			kept = append(kept, e)
		}
	}
	return kept, winner, nil
}

// Run fetches every game's play-by-play log in order and materializes the
// flat table of winner-tagged clutch events. A read-timeout skips that game
// for the rest of the run; any other failure aborts. Row numbers are assigned
// once, at materialization, as a 0-based running index.
func Run(client *nba.Client, gameIDs []string) (*Result, error) {
	res := Result{}
	perGame := make([][]ClutchEvent, 0, len(gameIDs))
	for _, id := range gameIDs {
		rows, err := client.PlayByPlay(id)
		if err != nil {
			if nba.IsTimeout(err) {
				log.Printf("play-by-play request for game %s timed out, skipping", id)
				res.GamesSkipped++
				continue
			}
			return nil, utils.ErrorWithTrace(err)
		}
		res.GamesFetched++

		for _, row := range rows {
			if !hasScore(row) {
				res.RowsDiscarded++
			}
		}

		kept, winner, err := FilterGame(rows)
		if err != nil {
			return nil, err
		}
		if len(kept) == 0 {
			continue
		}
		tagged := make([]ClutchEvent, len(kept))
		for i, e := range kept {
			tagged[i] = ClutchEvent{Winner: winner, Event: e}
		}
		perGame = append(perGame, tagged)
	}

	total := 0
	for _, g := range perGame {
		total += len(g)
	}
	events := make([]ClutchEvent, 0, total)
	for _, g := range perGame {
		events = append(events, g...)
	}
	for i := range events {
		events[i].Row = i
	}
	res.Events = events
	return &res, nil
}
