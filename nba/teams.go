package nba

type Team struct {
	ID           int
	FullName     string
	Abbreviation string
	Nickname     string
	City         string
}

// The league's thirty franchises. Stable for the duration of a run; the
// sqlite seed migration mirrors this table.
var teams = []Team{
	{1610612737, "Atlanta Hawks", "ATL", "Hawks", "Atlanta"},
	{1610612738, "Boston Celtics", "BOS", "Celtics", "Boston"},
	{1610612739, "Cleveland Cavaliers", "CLE", "Cavaliers", "Cleveland"},
	{1610612740, "New Orleans Pelicans", "NOP", "Pelicans", "New Orleans"},
	{1610612741, "Chicago Bulls", "CHI", "Bulls", "Chicago"},
	{1610612742, "Dallas Mavericks", "DAL", "Mavericks", "Dallas"},
	{1610612743, "Denver Nuggets", "DEN", "Nuggets", "Denver"},
	{1610612744, "Golden State Warriors", "GSW", "Warriors", "Golden State"},
	{1610612745, "Houston Rockets", "HOU", "Rockets", "Houston"},
	{1610612746, "Los Angeles Clippers", "LAC", "Clippers", "Los Angeles"},
	{1610612747, "Los Angeles Lakers", "LAL", "Lakers", "Los Angeles"},
	{1610612748, "Miami Heat", "MIA", "Heat", "Miami"},
	{1610612749, "Milwaukee Bucks", "MIL", "Bucks", "Milwaukee"},
	{1610612750, "Minnesota Timberwolves", "MIN", "Timberwolves", "Minnesota"},
	{1610612751, "Brooklyn Nets", "BKN", "Nets", "Brooklyn"},
	{1610612752, "New York Knicks", "NYK", "Knicks", "New York"},
	{1610612753, "Orlando Magic", "ORL", "Magic", "Orlando"},
	{1610612754, "Indiana Pacers", "IND", "Pacers", "Indiana"},
	{1610612755, "Philadelphia 76ers", "PHI", "76ers", "Philadelphia"},
	{1610612756, "Phoenix Suns", "PHX", "Suns", "Phoenix"},
	{1610612757, "Portland Trail Blazers", "POR", "Trail Blazers", "Portland"},
	{1610612758, "Sacramento Kings", "SAC", "Kings", "Sacramento"},
	{1610612759, "San Antonio Spurs", "SAS", "Spurs", "San Antonio"},
	{1610612760, "Oklahoma City Thunder", "OKC", "Thunder", "Oklahoma City"},
	{1610612761, "Toronto Raptors", "TOR", "Raptors", "Toronto"},
	{1610612762, "Utah Jazz", "UTA", "Jazz", "Utah"},
	{1610612763, "Memphis Grizzlies", "MEM", "Grizzlies", "Memphis"},
	{1610612764, "Washington Wizards", "WAS", "Wizards", "Washington"},
	{1610612765, "Detroit Pistons", "DET", "Pistons", "Detroit"},
	{1610612766, "Charlotte Hornets", "CHA", "Hornets", "Charlotte"},
}

func Teams() []Team {
	out := make([]Team, len(teams))
	copy(out, teams)
	return out
}

// TeamIDMap keys every nickname, city, and abbreviation to its team id.
// Shared cities overwrite in table order, so "Los Angeles" lands on the
// Lakers.
func TeamIDMap() map[string]int {
	m := make(map[string]int, len(teams)*3)
	for _, t := range teams {
		m[t.Nickname] = t.ID
		m[t.City] = t.ID
		m[t.Abbreviation] = t.ID
	}
	return m
}

func TeamNicknamesByID() map[int]string {
	m := make(map[int]string, len(teams))
	for _, t := range teams {
		m[t.ID] = t.Nickname
	}
	return m
}

func TeamByID(id int) (Team, bool) {
	for _, t := range teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}
