package nba

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"clutchtime/utils"

	"golang.org/x/time/rate"
)

const statsBaseURL = "https://stats.nba.com/stats"

// Client queries the stats endpoints. Every request waits on the injected
// limiter first; a nil limiter means unpaced requests (tests).
type Client struct {
	BaseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(timeout time.Duration, limiter *rate.Limiter) *Client {
	return &Client{
		BaseURL:    statsBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

func initNBAReq(url string) *http.Request {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		panic(err)
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Referer", "https://www.nba.com/")
	req.Header.Add("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	return req
}

type statsResp struct {
	ResultSets []struct {
		Name    string          `json:"name"`
		Headers []string        `json:"headers"`
		RowSet  [][]interface{} `json:"rowSet"`
	} `json:"resultSets"`
}

func (r *statsResp) resultSetByName(name string) ([][]interface{}, bool) {
	for _, rs := range r.ResultSets {
		if rs.Name == name {
			return rs.RowSet, true
		}
	}
	return nil, false
}

func (c *Client) getStats(endpoint string, params url.Values) (*statsResp, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(context.Background()); err != nil {
			return nil, utils.ErrorWithTrace(err)
		}
	}
	req := initNBAReq(c.BaseURL + "/" + endpoint + "?" + params.Encode())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, utils.ErrorWithTrace(fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode))
	}

	unmarshalledBody := statsResp{}
	if err := json.Unmarshal(body, &unmarshalledBody); err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	return &unmarshalledBody, nil
}

// IsTimeout reports whether err is a request deadline expiring, as opposed
// to any other transport or decoding failure. The play-by-play loop skips
// timed-out games and aborts on everything else.
func IsTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded)
}

type FinderGame struct {
	SeasonID         *string
	TeamID           *float64
	TeamAbbreviation *string
	TeamName         *string
	GameID           *string
	GameDate         *string
	Matchup          *string
	WL               *string
	Min              *float64
	PTS              *float64
	FGM              *float64
	FGA              *float64
	FGPct            *float64
	FG3M             *float64
	FG3A             *float64
	FG3Pct           *float64
	FTM              *float64
	FTA              *float64
	FTPct            *float64
	OREB             *float64
	DREB             *float64
	REB              *float64
	AST              *float64
	STL              *float64
	BLK              *float64
	TOV              *float64
	PF               *float64
	PlusMinus        *float64
}

// IsHomeGame reports whether this team's finder line is the home side; the
// matchup string marks home games with "vs." and road games with "@".
func (g FinderGame) IsHomeGame() bool {
	return g.Matchup != nil && strings.Contains(*g.Matchup, "vs.")
}

// FindTeamGames queries every game a team played under a season type. An
// empty season means all seasons. Responses are held in a TTL cache so
// repeated in-process lookups do not re-hit the network.
func (c *Client) FindTeamGames(teamID int, seasonType, season string) ([]FinderGame, error) {
	if utils.IsInvalidSeasonType(seasonType) {
		return nil, utils.ErrorWithTrace(fmt.Errorf("invalid season type provided: %s", seasonType))
	}
	if season != "" && utils.IsInvalidSeason(season) {
		return nil, utils.ErrorWithTrace(fmt.Errorf("invalid season provided: %s", season))
	}
	cacheKey := fmt.Sprintf("%d|%s|%s", teamID, seasonType, season)
	if games, ok := finderCacheGet(cacheKey); ok {
		return games, nil
	}

	params := url.Values{}
	params.Set("LeagueIDNullable", "00")
	params.Set("PlayerOrTeam", "T")
	params.Set("TeamIDNullable", strconv.Itoa(teamID))
	params.Set("SeasonTypeNullable", seasonType)
	params.Set("SeasonNullable", season)
	resp, err := c.getStats("leaguegamefinder", params)
	if err != nil {
		return nil, err
	}
	if len(resp.ResultSets) == 0 {
		return nil, utils.ErrorWithTrace(fmt.Errorf("leaguegamefinder returned no result sets for team %d", teamID))
	}

	rowSet := resp.ResultSets[0].RowSet
	games := make([]FinderGame, len(rowSet))
	for i, raw := range rowSet {
		if len(raw) < 28 {
			return nil, utils.ErrorWithTrace(fmt.Errorf("leaguegamefinder row %d has %d columns, want 28", i, len(raw)))
		}
		games[i] = FinderGame{
			SeasonID:         maybe[string](raw[0]),
			TeamID:           maybe[float64](raw[1]),
			TeamAbbreviation: maybe[string](raw[2]),
			TeamName:         maybe[string](raw[3]),
			GameID:           maybe[string](raw[4]),
			GameDate:         maybe[string](raw[5]),
			Matchup:          maybe[string](raw[6]),
			WL:               maybe[string](raw[7]),
			Min:              maybe[float64](raw[8]),
			PTS:              maybe[float64](raw[9]),
			FGM:              maybe[float64](raw[10]),
			FGA:              maybe[float64](raw[11]),
			FGPct:            maybe[float64](raw[12]),
			FG3M:             maybe[float64](raw[13]),
			FG3A:             maybe[float64](raw[14]),
			FG3Pct:           maybe[float64](raw[15]),
			FTM:              maybe[float64](raw[16]),
			FTA:              maybe[float64](raw[17]),
			FTPct:            maybe[float64](raw[18]),
			OREB:             maybe[float64](raw[19]),
			DREB:             maybe[float64](raw[20]),
			REB:              maybe[float64](raw[21]),
			AST:              maybe[float64](raw[22]),
			STL:              maybe[float64](raw[23]),
			BLK:              maybe[float64](raw[24]),
			TOV:              maybe[float64](raw[25]),
			PF:               maybe[float64](raw[26]),
			PlusMinus:        maybe[float64](raw[27]),
		}
	}
	finderCachePut(cacheKey, games)
	return games, nil
}

type PlayByPlayRow struct {
	GameID             *string
	EventNum           *float64
	EventMsgType       *float64
	EventMsgActionType *float64
	Period             *float64
	WCTimeString       *string
	PCTimeString       *string
	HomeDescription    *string
	NeutralDescription *string
	VisitorDescription *string
	Score              *string
	ScoreMargin        *string
}

// PlayByPlay fetches a game's full event log in source order.
func (c *Client) PlayByPlay(gameID string) ([]PlayByPlayRow, error) {
	params := url.Values{}
	params.Set("GameID", gameID)
	params.Set("StartPeriod", "1")
	params.Set("EndPeriod", "10")
	resp, err := c.getStats("playbyplay", params)
	if err != nil {
		return nil, err
	}
	if len(resp.ResultSets) == 0 {
		return nil, utils.ErrorWithTrace(fmt.Errorf("playbyplay returned no result sets for game %s", gameID))
	}

	rowSet := resp.ResultSets[0].RowSet
	rows := make([]PlayByPlayRow, len(rowSet))
	for i, raw := range rowSet {
		if len(raw) < 12 {
			return nil, utils.ErrorWithTrace(fmt.Errorf("playbyplay row %d has %d columns, want 12", i, len(raw)))
		}
		rows[i] = PlayByPlayRow{
			GameID:             maybe[string](raw[0]),
			EventNum:           maybe[float64](raw[1]),
			EventMsgType:       maybe[float64](raw[2]),
			EventMsgActionType: maybe[float64](raw[3]),
			Period:             maybe[float64](raw[4]),
			WCTimeString:       maybe[string](raw[5]),
			PCTimeString:       maybe[string](raw[6]),
			HomeDescription:    maybe[string](raw[7]),
			NeutralDescription: maybe[string](raw[8]),
			VisitorDescription: maybe[string](raw[9]),
			Score:              maybe[string](raw[10]),
			ScoreMargin:        maybe[string](raw[11]),
		}
	}
	return rows, nil
}

type HustleTeamStats struct {
	GameID                 *string
	TeamID                 *float64
	TeamName               *string
	TeamAbbreviation       *string
	TeamCity               *string
	Minutes                *string
	PTS                    *float64
	ContestedShots         *float64
	ContestedShots2PT      *float64
	ContestedShots3PT      *float64
	Deflections            *float64
	ChargesDrawn           *float64
	ScreenAssists          *float64
	ScreenAssistPTS        *float64
	OffLooseBallsRecovered *float64
	DefLooseBallsRecovered *float64
	LooseBallsRecovered    *float64
	OffBoxOuts             *float64
	DefBoxOuts             *float64
	BoxOuts                *float64
}

type HustlePlayerStats struct {
	GameID                 *string
	TeamID                 *float64
	TeamAbbreviation       *string
	TeamCity               *string
	PlayerID               *float64
	PlayerName             *string
	StartPosition          *string
	Comment                *string
	Minutes                *string
	PTS                    *float64
	ContestedShots         *float64
	ContestedShots2PT      *float64
	ContestedShots3PT      *float64
	Deflections            *float64
	ChargesDrawn           *float64
	ScreenAssists          *float64
	ScreenAssistPTS        *float64
	OffLooseBallsRecovered *float64
	DefLooseBallsRecovered *float64
	LooseBallsRecovered    *float64
	OffBoxOuts             *float64
	DefBoxOuts             *float64
	BoxOutPlayerTeamRebs   *float64
	BoxOutPlayerRebs       *float64
	BoxOuts                *float64
}

type HustleStatsBoxScore struct {
	Available   bool
	TeamStats   []HustleTeamStats
	PlayerStats []HustlePlayerStats
}

// HustleStats fetches the hustle-stat box score for one game. Not part of
// the pipeline; surfaced for exploratory output only.
func (c *Client) HustleStats(gameID string) (*HustleStatsBoxScore, error) {
	params := url.Values{}
	params.Set("GameID", gameID)
	resp, err := c.getStats("hustlestatsboxscore", params)
	if err != nil {
		return nil, err
	}

	box := HustleStatsBoxScore{}
	if avail, ok := resp.resultSetByName("HustleStatsAvailable"); ok && len(avail) > 0 && len(avail[0]) >= 2 {
		if status := maybe[float64](avail[0][1]); status != nil {
			box.Available = *status == 1
		}
	}

	teamRows, ok := resp.resultSetByName("TeamStats")
	if !ok {
		return nil, utils.ErrorWithTrace(fmt.Errorf("hustlestatsboxscore missing TeamStats result set for game %s", gameID))
	}
	box.TeamStats = make([]HustleTeamStats, len(teamRows))
	for i, raw := range teamRows {
		if len(raw) < 20 {
			return nil, utils.ErrorWithTrace(fmt.Errorf("hustle TeamStats row %d has %d columns, want 20", i, len(raw)))
		}
		box.TeamStats[i] = HustleTeamStats{
			GameID:                 maybe[string](raw[0]),
			TeamID:                 maybe[float64](raw[1]),
			TeamName:               maybe[string](raw[2]),
			TeamAbbreviation:       maybe[string](raw[3]),
			TeamCity:               maybe[string](raw[4]),
			Minutes:                maybe[string](raw[5]),
			PTS:                    maybe[float64](raw[6]),
			ContestedShots:         maybe[float64](raw[7]),
			ContestedShots2PT:      maybe[float64](raw[8]),
			ContestedShots3PT:      maybe[float64](raw[9]),
			Deflections:            maybe[float64](raw[10]),
			ChargesDrawn:           maybe[float64](raw[11]),
			ScreenAssists:          maybe[float64](raw[12]),
			ScreenAssistPTS:        maybe[float64](raw[13]),
			OffLooseBallsRecovered: maybe[float64](raw[14]),
			DefLooseBallsRecovered: maybe[float64](raw[15]),
			LooseBallsRecovered:    maybe[float64](raw[16]),
			OffBoxOuts:             maybe[float64](raw[17]),
			DefBoxOuts:             maybe[float64](raw[18]),
			BoxOuts:                maybe[float64](raw[19]),
		}
	}

	playerRows, ok := resp.resultSetByName("PlayerStats")
	if !ok {
		return &box, nil
	}
	box.PlayerStats = make([]HustlePlayerStats, len(playerRows))
	for i, raw := range playerRows {
		if len(raw) < 25 {
			return nil, utils.ErrorWithTrace(fmt.Errorf("hustle PlayerStats row %d has %d columns, want 25", i, len(raw)))
		}
		box.PlayerStats[i] = HustlePlayerStats{
			GameID:                 maybe[string](raw[0]),
			TeamID:                 maybe[float64](raw[1]),
			TeamAbbreviation:       maybe[string](raw[2]),
			TeamCity:               maybe[string](raw[3]),
			PlayerID:               maybe[float64](raw[4]),
			PlayerName:             maybe[string](raw[5]),
			StartPosition:          maybe[string](raw[6]),
			Comment:                maybe[string](raw[7]),
			Minutes:                maybe[string](raw[8]),
			PTS:                    maybe[float64](raw[9]),
			ContestedShots:         maybe[float64](raw[10]),
			ContestedShots2PT:      maybe[float64](raw[11]),
			ContestedShots3PT:      maybe[float64](raw[12]),
			Deflections:            maybe[float64](raw[13]),
			ChargesDrawn:           maybe[float64](raw[14]),
			ScreenAssists:          maybe[float64](raw[15]),
			ScreenAssistPTS:        maybe[float64](raw[16]),
			OffLooseBallsRecovered: maybe[float64](raw[17]),
			DefLooseBallsRecovered: maybe[float64](raw[18]),
			LooseBallsRecovered:    maybe[float64](raw[19]),
			OffBoxOuts:             maybe[float64](raw[20]),
			DefBoxOuts:             maybe[float64](raw[21]),
			BoxOutPlayerTeamRebs:   maybe[float64](raw[22]),
			BoxOutPlayerRebs:       maybe[float64](raw[23]),
			BoxOuts:                maybe[float64](raw[24]),
		}
	}
	return &box, nil
}

type FranchiseHistoryRow struct {
	LeagueID           *string
	TeamID             *float64
	TeamCity           *string
	TeamName           *string
	StartYear          *string
	EndYear            *string
	Years              *float64
	Games              *float64
	Wins               *float64
	Losses             *float64
	WinPct             *float64
	PlayoffAppearances *float64
	DivTitles          *float64
	ConfTitles         *float64
	LeagueTitles       *float64
}

// FranchiseHistory returns the league's active and defunct franchise
// record lines.
func (c *Client) FranchiseHistory() ([]FranchiseHistoryRow, []FranchiseHistoryRow, error) {
	params := url.Values{}
	params.Set("LeagueID", "00")
	resp, err := c.getStats("franchisehistory", params)
	if err != nil {
		return nil, nil, err
	}

	active, ok := resp.resultSetByName("FranchiseHistory")
	if !ok {
		return nil, nil, utils.ErrorWithTrace(fmt.Errorf("franchisehistory missing FranchiseHistory result set"))
	}
	activeRows, err := decodeFranchiseRows(active)
	if err != nil {
		return nil, nil, err
	}
	defunctRows := []FranchiseHistoryRow{}
	if defunct, ok := resp.resultSetByName("DefunctTeams"); ok {
		defunctRows, err = decodeFranchiseRows(defunct)
		if err != nil {
			return nil, nil, err
		}
	}
	return activeRows, defunctRows, nil
}

func decodeFranchiseRows(rowSet [][]interface{}) ([]FranchiseHistoryRow, error) {
	rows := make([]FranchiseHistoryRow, len(rowSet))
	for i, raw := range rowSet {
		if len(raw) < 15 {
			return nil, utils.ErrorWithTrace(fmt.Errorf("franchisehistory row %d has %d columns, want 15", i, len(raw)))
		}
		rows[i] = FranchiseHistoryRow{
			LeagueID:           maybe[string](raw[0]),
			TeamID:             maybe[float64](raw[1]),
			TeamCity:           maybe[string](raw[2]),
			TeamName:           maybe[string](raw[3]),
			StartYear:          maybe[string](raw[4]),
			EndYear:            maybe[string](raw[5]),
			Years:              maybe[float64](raw[6]),
			Games:              maybe[float64](raw[7]),
			Wins:               maybe[float64](raw[8]),
			Losses:             maybe[float64](raw[9]),
			WinPct:             maybe[float64](raw[10]),
			PlayoffAppearances: maybe[float64](raw[11]),
			DivTitles:          maybe[float64](raw[12]),
			ConfTitles:         maybe[float64](raw[13]),
			LeagueTitles:       maybe[float64](raw[14]),
		}
	}
	return rows, nil
}

type FranchiseRecord struct {
	TeamID             int
	TeamCity           string
	TeamName           string
	StartYear          string
	EndYear            string
	Years              int
	Games              int
	Wins               int
	Losses             int
	WinPct             float64
	PlayoffAppearances int
	DivTitles          int
	ConfTitles         int
	LeagueTitles       int
}

// AggregateFranchiseHistory folds a franchise's relocation rows into one
// record per team id: earliest start year, latest end year, summed counting
// stats, city and name from the first row seen. WinPct is total wins over
// total losses, not over games played. Records come back sorted by team id.
// Rows without a team id are dropped.
func AggregateFranchiseHistory(rows []FranchiseHistoryRow) []FranchiseRecord {
	byID := map[int]*FranchiseRecord{}
	for _, r := range rows {
		if r.TeamID == nil {
			continue
		}
		id := int(*r.TeamID)
		rec, ok := byID[id]
		if !ok {
			rec = &FranchiseRecord{TeamID: id}
			if r.TeamCity != nil {
				rec.TeamCity = *r.TeamCity
			}
			if r.TeamName != nil {
				rec.TeamName = *r.TeamName
			}
			byID[id] = rec
		}
		if r.StartYear != nil && (rec.StartYear == "" || *r.StartYear < rec.StartYear) {
			rec.StartYear = *r.StartYear
		}
		if r.EndYear != nil && *r.EndYear > rec.EndYear {
			rec.EndYear = *r.EndYear
		}
		rec.Years += asInt(r.Years)
		rec.Games += asInt(r.Games)
		rec.Wins += asInt(r.Wins)
		rec.Losses += asInt(r.Losses)
		rec.PlayoffAppearances += asInt(r.PlayoffAppearances)
		rec.DivTitles += asInt(r.DivTitles)
		rec.ConfTitles += asInt(r.ConfTitles)
		rec.LeagueTitles += asInt(r.LeagueTitles)
	}

	out := make([]FranchiseRecord, 0, len(byID))
	for _, rec := range byID {
		rec.WinPct = float64(rec.Wins) / float64(rec.Losses)
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out
}

func asInt(f *float64) int {
	if f == nil {
		return 0
	}
	return int(*f)
}

func maybe[T any](x any) *T {
	if x, ok := x.(T); ok {
		return &x
	}
	return nil
}

const finderCacheTTL = 5 * time.Minute
const finderCacheLimit = 128

type finderCacheEntry struct {
	games     []FinderGame
	expiresAt time.Time
}

var finderCache = map[string]finderCacheEntry{}
var finderCacheMu = sync.RWMutex{}

func finderCacheGet(key string) ([]FinderGame, bool) {
	finderCacheMu.RLock()
	defer finderCacheMu.RUnlock()
	entry, ok := finderCache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	out := make([]FinderGame, len(entry.games))
	copy(out, entry.games)
	return out, true
}

func finderCachePut(key string, games []FinderGame) {
	finderCacheMu.Lock()
	defer finderCacheMu.Unlock()
	if len(finderCache) >= finderCacheLimit {
		evictFinderCacheLocked()
	}
	finderCache[key] = finderCacheEntry{games: games, expiresAt: time.Now().Add(finderCacheTTL)}
}

// Drop expired entries; if everything is still live, drop the entry closest
// to expiry so the cache never exceeds its limit.
func evictFinderCacheLocked() {
	now := time.Now()
	for k, v := range finderCache {
		if now.After(v.expiresAt) {
			delete(finderCache, k)
		}
	}
	if len(finderCache) < finderCacheLimit {
		return
	}
	oldestKey := ""
	oldest := time.Time{}
	for k, v := range finderCache {
		if oldestKey == "" || v.expiresAt.Before(oldest) {
			oldestKey = k
			oldest = v.expiresAt
		}
	}
	delete(finderCache, oldestKey)
}

func CacheJanitor() {
	ticker := time.NewTicker(time.Minute)
	for range ticker.C {
		finderCacheMu.Lock()
		now := time.Now()
		for k, v := range finderCache {
			if now.After(v.expiresAt) {
				delete(finderCache, k)
			}
		}
		finderCacheMu.Unlock()
	}
}
