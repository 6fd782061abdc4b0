package balance

import (
	"math"
	"slices"

	"github.com/mcoot/teamdraw/internal/model"
)

// Score is skillVariance + weight*positionVariance for a partition.
// Position variance sums, over every position seen in any team, the
// population variance of that position's per-team head count.
func Score(groups [][]model.ConfirmedPlayer, weight float64) float64 {
	averages := make([]float64, len(groups))
	counts := make([]map[model.Position]int, len(groups))
	seen := make(map[model.Position]struct{})

	for i, g := range groups {
		stats := Stats(g)
		averages[i] = stats.AverageSkill
		counts[i] = stats.PositionCounts
		for pos := range stats.PositionCounts {
			seen[pos] = struct{}{}
		}
	}

	positions := make([]model.Position, 0, len(seen))
	for pos := range seen {
		positions = append(positions, pos)
	}
	slices.Sort(positions)

	positionVariance := 0.0
	perTeam := make([]float64, len(groups))
	for _, pos := range positions {
		for i := range groups {
			perTeam[i] = float64(counts[i][pos])
		}
		positionVariance += variance(perTeam)
	}

	return variance(averages) + weight*positionVariance
}

// Stats computes average skill and position head counts for a team
func Stats(players []model.ConfirmedPlayer) model.TeamStats {
	stats := model.TeamStats{PositionCounts: make(map[model.Position]int)}
	if len(players) == 0 {
		return stats
	}
	total := 0.0
	for _, p := range players {
		total += p.SkillRating
		stats.PositionCounts[p.Position]++
	}
	stats.AverageSkill = total / float64(len(players))
	return stats
}

// BuildTeams numbers groups from 1 and attaches palette colours and stats
func BuildTeams(groups [][]model.ConfirmedPlayer) []model.Team {
	teams := make([]model.Team, len(groups))
	for i, g := range groups {
		players := make([]model.ConfirmedPlayer, len(g))
		copy(players, g)
		teams[i] = model.Team{
			Number:  i + 1,
			Color:   model.ColorForTeam(i + 1),
			Players: players,
			Stats:   Stats(players),
		}
	}
	return teams
}

// AbsoluteBalanced reports whether every team average lies within threshold
// skill points of the mean of team averages. This is the engine's metric.
func AbsoluteBalanced(teams []model.Team, threshold float64) bool {
	if len(teams) == 0 {
		return false
	}
	mean := 0.0
	for _, t := range teams {
		mean += t.Stats.AverageSkill
	}
	mean /= float64(len(teams))

	maxDeviation := 0.0
	for _, t := range teams {
		maxDeviation = math.Max(maxDeviation, math.Abs(t.Stats.AverageSkill-mean))
	}
	return maxDeviation <= threshold
}

// RelativeBalanced reports whether every team average is within percent of
// the highest team average. It is the metric applied after manual edits and
// deliberately differs from AbsoluteBalanced.
func RelativeBalanced(teams []model.Team, percent float64) bool {
	if len(teams) < 2 {
		return true
	}
	maxAverage := math.Inf(-1)
	for _, t := range teams {
		maxAverage = math.Max(maxAverage, t.Stats.AverageSkill)
	}
	if maxAverage <= 0 {
		return true
	}
	for _, t := range teams {
		if (maxAverage-t.Stats.AverageSkill)/maxAverage*100 > percent {
			return false
		}
	}
	return true
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}
