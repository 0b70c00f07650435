package nba

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(5*time.Second, rate.NewLimiter(rate.Inf, 1))
	client.BaseURL = srv.URL
	return client
}

func resetFinderCache() {
	finderCacheMu.Lock()
	finderCache = map[string]finderCacheEntry{}
	finderCacheMu.Unlock()
}

const finderBody = `{
	"resultSets": [{
		"name": "LeagueGameFinderResults",
		"headers": ["SEASON_ID","TEAM_ID","TEAM_ABBREVIATION","TEAM_NAME","GAME_ID","GAME_DATE","MATCHUP","WL","MIN","PTS","FGM","FGA","FG_PCT","FG3M","FG3A","FG3_PCT","FTM","FTA","FT_PCT","OREB","DREB","REB","AST","STL","BLK","TOV","PF","PLUS_MINUS"],
		"rowSet": [
			["22023",1610612741,"CHI","Chicago Bulls","0022300001","2023-11-06","CHI vs. UTA","W",240,130,48,100,0.48,15,38,0.395,19,22,0.864,10,35,45,25,7,4,12,18,15],
			["22023",1610612741,"CHI","Chicago Bulls","0022300002","2023-11-08","CHI @ PHX",null,240,112,44,96,0.458,12,33,0.364,12,15,0.8,9,32,41,22,6,3,14,20,null]
		]
	}]
}`

func TestFindTeamGames(t *testing.T) {
	resetFinderCache()
	var gotPath string
	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"LeagueIDNullable":   r.URL.Query().Get("LeagueIDNullable"),
			"TeamIDNullable":     r.URL.Query().Get("TeamIDNullable"),
			"SeasonTypeNullable": r.URL.Query().Get("SeasonTypeNullable"),
			"SeasonNullable":     r.URL.Query().Get("SeasonNullable"),
		}
		if r.Header.Get("Referer") != "https://www.nba.com/" {
			t.Errorf("request missing Referer header")
		}
		fmt.Fprint(w, finderBody)
	})

	games, err := client.FindTeamGames(1610612741, "Regular Season", "")
	if err != nil {
		t.Fatalf("FindTeamGames: %v", err)
	}

	if gotPath != "/leaguegamefinder" {
		t.Errorf("request path = %q, want /leaguegamefinder", gotPath)
	}
	if gotQuery["LeagueIDNullable"] != "00" {
		t.Errorf("LeagueIDNullable = %q, want 00", gotQuery["LeagueIDNullable"])
	}
	if gotQuery["TeamIDNullable"] != "1610612741" {
		t.Errorf("TeamIDNullable = %q, want 1610612741", gotQuery["TeamIDNullable"])
	}
	if gotQuery["SeasonTypeNullable"] != "Regular Season" {
		t.Errorf("SeasonTypeNullable = %q, want Regular Season", gotQuery["SeasonTypeNullable"])
	}

	if len(games) != 2 {
		t.Fatalf("decoded %d games, want 2", len(games))
	}
	first, second := games[0], games[1]
	if first.GameID == nil || *first.GameID != "0022300001" {
		t.Errorf("first game id = %v, want 0022300001", first.GameID)
	}
	if first.WL == nil || *first.WL != "W" {
		t.Errorf("first WL = %v, want W", first.WL)
	}
	if first.PTS == nil || *first.PTS != 130 {
		t.Errorf("first PTS = %v, want 130", first.PTS)
	}
	if !first.IsHomeGame() {
		t.Errorf("matchup %q should be a home game", *first.Matchup)
	}
	if second.WL != nil {
		t.Errorf("second WL should be nil, got %v", *second.WL)
	}
	if second.PlusMinus != nil {
		t.Errorf("second PlusMinus should be nil")
	}
	if second.IsHomeGame() {
		t.Errorf("matchup %q should be a road game", *second.Matchup)
	}
}

func TestFindTeamGamesUsesCache(t *testing.T) {
	resetFinderCache()
	hits := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, finderBody)
	})

	for i := 0; i < 3; i++ {
		if _, err := client.FindTeamGames(1610612741, "Regular Season", "2023-24"); err != nil {
			t.Fatalf("FindTeamGames call %d: %v", i, err)
		}
	}
	if hits != 1 {
		t.Errorf("server saw %d requests, want 1 (cached)", hits)
	}

	if _, err := client.FindTeamGames(1610612741, "Playoffs", "2023-24"); err != nil {
		t.Fatalf("FindTeamGames with new season type: %v", err)
	}
	if hits != 2 {
		t.Errorf("server saw %d requests, want 2 (different key misses)", hits)
	}
}

func TestFindTeamGamesRejectsBadArgs(t *testing.T) {
	resetFinderCache()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("the server should never be hit on invalid arguments")
	})
	if _, err := client.FindTeamGames(1610612741, "Summer League", ""); err == nil {
		t.Errorf("expected an error for an invalid season type")
	}
	if _, err := client.FindTeamGames(1610612741, "Regular Season", "1946-47"); err == nil {
		t.Errorf("expected an error for an invalid season")
	}
}

func TestFindTeamGamesStatusError(t *testing.T) {
	resetFinderCache()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	_, err := client.FindTeamGames(1610612741, "Regular Season", "")
	if err == nil {
		t.Fatalf("expected an error on a non-200 response")
	}
	if IsTimeout(err) {
		t.Errorf("a status error must not classify as a timeout")
	}
}

const playByPlayBody = `{
	"resultSets": [{
		"name": "PlayByPlay",
		"headers": ["GAME_ID","EVENTNUM","EVENTMSGTYPE","EVENTMSGACTIONTYPE","PERIOD","WCTIMESTRING","PCTIMESTRING","HOMEDESCRIPTION","NEUTRALDESCRIPTION","VISITORDESCRIPTION","SCORE","SCOREMARGIN"],
		"rowSet": [
			["0022300001",2,12,0,1,"7:12 PM","12:00",null,"Start of 1st Period",null,null,null],
			["0022300001",7,1,1,1,"7:14 PM","11:21","Vucevic 7' Hook Shot (2 PTS)",null,null,"0 - 2","2"],
			["0022300001",554,1,2,4,"9:48 PM","0:08",null,null,"Markkanen 24' 3PT Jump Shot (30 PTS)","110 - 110","TIE"]
		]
	}]
}`

func TestPlayByPlay(t *testing.T) {
	var gotGameID string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/playbyplay" {
			t.Errorf("request path = %q, want /playbyplay", r.URL.Path)
		}
		gotGameID = r.URL.Query().Get("GameID")
		fmt.Fprint(w, playByPlayBody)
	})

	rows, err := client.PlayByPlay("0022300001")
	if err != nil {
		t.Fatalf("PlayByPlay: %v", err)
	}
	if gotGameID != "0022300001" {
		t.Errorf("GameID param = %q, want 0022300001", gotGameID)
	}
	if len(rows) != 3 {
		t.Fatalf("decoded %d rows, want 3", len(rows))
	}

	opening := rows[0]
	if opening.Score != nil {
		t.Errorf("opening row score should be nil")
	}
	if opening.NeutralDescription == nil || *opening.NeutralDescription != "Start of 1st Period" {
		t.Errorf("opening row neutral description = %v", opening.NeutralDescription)
	}

	tying := rows[2]
	if tying.Period == nil || *tying.Period != 4 {
		t.Errorf("third row period = %v, want 4", tying.Period)
	}
	if tying.PCTimeString == nil || *tying.PCTimeString != "0:08" {
		t.Errorf("third row clock = %v, want 0:08", tying.PCTimeString)
	}
	if tying.ScoreMargin == nil || *tying.ScoreMargin != "TIE" {
		t.Errorf("third row margin = %v, want TIE", tying.ScoreMargin)
	}
}

func TestPlayByPlayTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, playByPlayBody)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(20*time.Millisecond, rate.NewLimiter(rate.Inf, 1))
	client.BaseURL = srv.URL

	_, err := client.PlayByPlay("0022300001")
	if err == nil {
		t.Fatalf("expected a timeout error")
	}
	if !IsTimeout(err) {
		t.Errorf("expected IsTimeout to classify the wrapped error, got %v", err)
	}
}

func TestIsTimeout(t *testing.T) {
	if IsTimeout(errors.New("boom")) {
		t.Errorf("a plain error is not a timeout")
	}
	if !IsTimeout(context.DeadlineExceeded) {
		t.Errorf("context.DeadlineExceeded is a timeout")
	}
	if !IsTimeout(fmt.Errorf("fetching: %w", context.DeadlineExceeded)) {
		t.Errorf("a wrapped deadline error is a timeout")
	}
	if IsTimeout(nil) {
		t.Errorf("nil is not a timeout")
	}
}

const hustleBody = `{
	"resultSets": [
		{
			"name": "HustleStatsAvailable",
			"headers": ["GAME_ID","HUSTLE_STATUS"],
			"rowSet": [["0022300001",1]]
		},
		{
			"name": "PlayerStats",
			"headers": ["GAME_ID","TEAM_ID","TEAM_ABBREVIATION","TEAM_CITY","PLAYER_ID","PLAYER_NAME","START_POSITION","COMMENT","MINUTES","PTS","CONTESTED_SHOTS","CONTESTED_SHOTS_2PT","CONTESTED_SHOTS_3PT","DEFLECTIONS","CHARGES_DRAWN","SCREEN_ASSISTS","SCREEN_AST_PTS","OFF_LOOSE_BALLS_RECOVERED","DEF_LOOSE_BALLS_RECOVERED","LOOSE_BALLS_RECOVERED","OFF_BOXOUTS","DEF_BOXOUTS","BOX_OUT_PLAYER_TEAM_REBS","BOX_OUT_PLAYER_REBS","BOX_OUTS"],
			"rowSet": [["0022300001",1610612741,"CHI","Chicago",203897,"Zach LaVine","G","","34:12",24,5,3,2,2,0,1,2,1,1,2,0,1,1,1,1]]
		},
		{
			"name": "TeamStats",
			"headers": ["GAME_ID","TEAM_ID","TEAM_NAME","TEAM_ABBREVIATION","TEAM_CITY","MINUTES","PTS","CONTESTED_SHOTS","CONTESTED_SHOTS_2PT","CONTESTED_SHOTS_3PT","DEFLECTIONS","CHARGES_DRAWN","SCREEN_ASSISTS","SCREEN_AST_PTS","OFF_LOOSE_BALLS_RECOVERED","DEF_LOOSE_BALLS_RECOVERED","LOOSE_BALLS_RECOVERED","OFF_BOXOUTS","DEF_BOXOUTS","BOX_OUTS"],
			"rowSet": [
				["0022300001",1610612741,"Bulls","CHI","Chicago","240:00",130,41,25,16,14,1,9,21,3,5,8,2,24,26],
				["0022300001",1610612762,"Jazz","UTA","Utah","240:00",112,38,22,16,11,0,7,16,2,4,6,3,19,22]
			]
		}
	]
}`

func TestHustleStats(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/hustlestatsboxscore" {
			t.Errorf("request path = %q, want /hustlestatsboxscore", r.URL.Path)
		}
		fmt.Fprint(w, hustleBody)
	})

	box, err := client.HustleStats("0022300001")
	if err != nil {
		t.Fatalf("HustleStats: %v", err)
	}
	if !box.Available {
		t.Errorf("hustle stats should be flagged available")
	}
	if len(box.TeamStats) != 2 {
		t.Fatalf("decoded %d team rows, want 2", len(box.TeamStats))
	}
	bulls := box.TeamStats[0]
	if bulls.TeamName == nil || *bulls.TeamName != "Bulls" {
		t.Errorf("first team name = %v, want Bulls", bulls.TeamName)
	}
	if bulls.Deflections == nil || *bulls.Deflections != 14 {
		t.Errorf("Bulls deflections = %v, want 14", bulls.Deflections)
	}
	if bulls.BoxOuts == nil || *bulls.BoxOuts != 26 {
		t.Errorf("Bulls box outs = %v, want 26", bulls.BoxOuts)
	}
	if len(box.PlayerStats) != 1 {
		t.Fatalf("decoded %d player rows, want 1", len(box.PlayerStats))
	}
	if box.PlayerStats[0].PlayerName == nil || *box.PlayerStats[0].PlayerName != "Zach LaVine" {
		t.Errorf("player name = %v, want Zach LaVine", box.PlayerStats[0].PlayerName)
	}
}

const franchiseBody = `{
	"resultSets": [
		{
			"name": "FranchiseHistory",
			"headers": ["LEAGUE_ID","TEAM_ID","TEAM_CITY","TEAM_NAME","START_YEAR","END_YEAR","YEARS","GAMES","WINS","LOSSES","WIN_PCT","PO_APPEARANCES","DIV_TITLES","CONF_TITLES","LEAGUE_TITLES"],
			"rowSet": [
				["00",1610612741,"Chicago","Bulls","1966","2025",60,4800,2500,2300,0.521,36,9,6,6],
				["00",1610612752,"New York","Knicks","1946","2025",80,6200,2900,3300,0.468,44,8,8,2]
			]
		},
		{
			"name": "DefunctTeams",
			"headers": ["LEAGUE_ID","TEAM_ID","TEAM_CITY","TEAM_NAME","START_YEAR","END_YEAR","YEARS","GAMES","WINS","LOSSES","WIN_PCT","PO_APPEARANCES","DIV_TITLES","CONF_TITLES","LEAGUE_TITLES"],
			"rowSet": [
				["00",1610610023,"Anderson","Packers","1949","1950",1,64,37,27,0.578,1,1,0,0]
			]
		}
	]
}`

func TestFranchiseHistory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("LeagueID") != "00" {
			t.Errorf("LeagueID param = %q, want 00", r.URL.Query().Get("LeagueID"))
		}
		fmt.Fprint(w, franchiseBody)
	})

	active, defunct, err := client.FranchiseHistory()
	if err != nil {
		t.Fatalf("FranchiseHistory: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("decoded %d active rows, want 2", len(active))
	}
	if active[0].TeamName == nil || *active[0].TeamName != "Bulls" {
		t.Errorf("first active team = %v, want Bulls", active[0].TeamName)
	}
	if active[1].PlayoffAppearances == nil || *active[1].PlayoffAppearances != 44 {
		t.Errorf("Knicks playoff appearances = %v, want 44", active[1].PlayoffAppearances)
	}
	if len(defunct) != 1 {
		t.Fatalf("decoded %d defunct rows, want 1", len(defunct))
	}
	if defunct[0].TeamCity == nil || *defunct[0].TeamCity != "Anderson" {
		t.Errorf("defunct city = %v, want Anderson", defunct[0].TeamCity)
	}
}

func ptr[T any](v T) *T { return &v }

func franchiseRow(teamID *float64, city, name, start, end string, wins, losses, titles float64) FranchiseHistoryRow {
	return FranchiseHistoryRow{
		LeagueID:     ptr("00"),
		TeamID:       teamID,
		TeamCity:     ptr(city),
		TeamName:     ptr(name),
		StartYear:    ptr(start),
		EndYear:      ptr(end),
		Wins:         ptr(wins),
		Losses:       ptr(losses),
		LeagueTitles: ptr(titles),
	}
}

func TestAggregateFranchiseHistory(t *testing.T) {
	rows := []FranchiseHistoryRow{
		// Relocation splits one franchise across two rows with the same id.
		franchiseRow(ptr(1610612760.0), "Seattle", "SuperSonics", "1967", "2008", 1745, 1585, 1),
		franchiseRow(ptr(1610612760.0), "Oklahoma City", "Thunder", "2008", "2025", 700, 570, 1),
		franchiseRow(ptr(1610612741.0), "Chicago", "Bulls", "1966", "2025", 2400, 2300, 6),
		franchiseRow(nil, "Nowhere", "Ghosts", "1950", "1951", 10, 50, 0),
	}

	recs := AggregateFranchiseHistory(rows)
	if len(recs) != 2 {
		t.Fatalf("aggregated %d records, want 2", len(recs))
	}

	bulls, thunder := recs[0], recs[1]
	if bulls.TeamID != 1610612741 || thunder.TeamID != 1610612760 {
		t.Fatalf("record order = %d, %d, want Bulls then Thunder", bulls.TeamID, thunder.TeamID)
	}
	if bulls.Wins != 2400 || bulls.LeagueTitles != 6 {
		t.Errorf("Bulls fold = %d wins, %d titles", bulls.Wins, bulls.LeagueTitles)
	}

	if thunder.TeamCity != "Seattle" || thunder.TeamName != "SuperSonics" {
		t.Errorf("franchise label = %s %s, want the first row's Seattle SuperSonics", thunder.TeamCity, thunder.TeamName)
	}
	if thunder.StartYear != "1967" || thunder.EndYear != "2025" {
		t.Errorf("franchise span = %s-%s, want 1967-2025", thunder.StartYear, thunder.EndYear)
	}
	if thunder.Wins != 2445 || thunder.Losses != 2155 {
		t.Errorf("summed record = %d-%d, want 2445-2155", thunder.Wins, thunder.Losses)
	}
	if thunder.LeagueTitles != 2 {
		t.Errorf("summed titles = %d, want 2", thunder.LeagueTitles)
	}
	if want := 2445.0 / 2155.0; thunder.WinPct != want {
		t.Errorf("WinPct = %v, want wins over losses %v", thunder.WinPct, want)
	}
}

func TestTeamsRegistry(t *testing.T) {
	all := Teams()
	if len(all) != 30 {
		t.Fatalf("registry holds %d teams, want 30", len(all))
	}
	seen := map[int]bool{}
	for _, team := range all {
		if seen[team.ID] {
			t.Errorf("duplicate team id %d", team.ID)
		}
		seen[team.ID] = true
	}
	knicks, ok := TeamByID(1610612752)
	if !ok || knicks.FullName != "New York Knicks" {
		t.Errorf("TeamByID(1610612752) = %+v, %v", knicks, ok)
	}

	ids := TeamIDMap()
	if ids["Knicks"] != 1610612752 {
		t.Errorf(`ids["Knicks"] = %d, want 1610612752`, ids["Knicks"])
	}
	if ids["CHI"] != 1610612741 {
		t.Errorf(`ids["CHI"] = %d, want 1610612741`, ids["CHI"])
	}
	if ids["Los Angeles"] != 1610612747 {
		t.Errorf(`ids["Los Angeles"] = %d, want the Lakers (table order overwrite)`, ids["Los Angeles"])
	}

	nicknames := TeamNicknamesByID()
	if nicknames[1610612749] != "Bucks" {
		t.Errorf("nicknames[1610612749] = %q, want Bucks", nicknames[1610612749])
	}
}

func TestMaybe(t *testing.T) {
	if v := maybe[float64](float64(7)); v == nil || *v != 7 {
		t.Errorf("maybe[float64](7) = %v", v)
	}
	if v := maybe[string]("x"); v == nil || *v != "x" {
		t.Errorf(`maybe[string]("x") = %v`, v)
	}
	if v := maybe[string](nil); v != nil {
		t.Errorf("maybe[string](nil) = %v, want nil", v)
	}
	if v := maybe[float64]("not a number"); v != nil {
		t.Errorf("maybe[float64] on a string = %v, want nil", v)
	}
}
