package model

// TeamColor is a colour tag drawn from a fixed palette
type TeamColor string

const (
	ColorRed    TeamColor = "red"
	ColorBlue   TeamColor = "blue"
	ColorGreen  TeamColor = "green"
	ColorYellow TeamColor = "yellow"
	ColorOrange TeamColor = "orange"
	ColorPurple TeamColor = "purple"
	ColorWhite  TeamColor = "white"
	ColorBlack  TeamColor = "black"
)

// Palette returns the team colours in assignment order
func Palette() []TeamColor {
	return []TeamColor{ColorRed, ColorBlue, ColorGreen, ColorYellow, ColorOrange, ColorPurple, ColorWhite, ColorBlack}
}

// ColorForTeam returns the palette colour for a 1-based team number.
// Numbers past the end of the palette wrap around.
func ColorForTeam(number int) TeamColor {
	palette := Palette()
	if number < 1 {
		return palette[0]
	}
	return palette[(number-1)%len(palette)]
}

// IsValid returns true if the colour is in the palette
func (c TeamColor) IsValid() bool {
	for _, p := range Palette() {
		if c == p {
			return true
		}
	}
	return false
}

// TeamStats are the derived statistics for one team
type TeamStats struct {
	AverageSkill   float64
	PositionCounts map[Position]int
}

// Team is a transient group of signups; it only exists in memory until confirmed
type Team struct {
	Number  int
	Color   TeamColor
	Players []ConfirmedPlayer
	Stats   TeamStats
}

// Clone returns a deep copy of the team
func (t Team) Clone() Team {
	players := make([]ConfirmedPlayer, len(t.Players))
	copy(players, t.Players)
	counts := make(map[Position]int, len(t.Stats.PositionCounts))
	for pos, n := range t.Stats.PositionCounts {
		counts[pos] = n
	}
	return Team{
		Number:  t.Number,
		Color:   t.Color,
		Players: players,
		Stats: TeamStats{
			AverageSkill:   t.Stats.AverageSkill,
			PositionCounts: counts,
		},
	}
}

// CloneTeams deep-copies a slice of teams
func CloneTeams(teams []Team) []Team {
	if teams == nil {
		return nil
	}
	out := make([]Team, len(teams))
	for i, t := range teams {
		out[i] = t.Clone()
	}
	return out
}

// DrawResult is the output of one engine invocation. It is never stored;
// it only becomes assignments through an explicit confirmation.
type DrawResult struct {
	Success         bool
	BalanceAchieved bool
	Teams           []Team
	Score           float64
}
