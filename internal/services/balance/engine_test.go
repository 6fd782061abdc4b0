package balance

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/teamdraw/internal/dependencies/mocks"
	"github.com/mcoot/teamdraw/internal/dependencies/random"
	"github.com/mcoot/teamdraw/internal/model"
)

type EngineSuite struct {
	suite.Suite
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func makePlayers(skills ...float64) []model.ConfirmedPlayer {
	positions := model.ValidPositions()
	players := make([]model.ConfirmedPlayer, len(skills))
	for i, skill := range skills {
		players[i] = model.ConfirmedPlayer{
			SignupID:    model.SignupID(fmt.Sprintf("signup-%d", i+1)),
			PlayerID:    model.PlayerID(fmt.Sprintf("player-%d", i+1)),
			PlayerName:  fmt.Sprintf("Player %d", i+1),
			Position:    positions[i%len(positions)],
			SkillRating: skill,
		}
	}
	return players
}

func samePosition(players []model.ConfirmedPlayer, pos model.Position) []model.ConfirmedPlayer {
	for i := range players {
		players[i].Position = pos
	}
	return players
}

func signupIDs(team model.Team) []model.SignupID {
	ids := make([]model.SignupID, len(team.Players))
	for i, p := range team.Players {
		ids[i] = p.SignupID
	}
	return ids
}

func teamSum(team model.Team) float64 {
	total := 0.0
	for _, p := range team.Players {
		total += p.SkillRating
	}
	return total
}

// Input validation

func (s *EngineSuite) TestFewerThanFourPlayers() {
	engine := New(random.NewSeeded(1))

	for n := 0; n < MinPlayers; n++ {
		skills := make([]float64, n)
		for i := range skills {
			skills[i] = 5
		}

		result := engine.ComputeBalancedTeams(makePlayers(skills...), Config{Iterations: 10, BalanceThreshold: 1})

		s.False(result.Success, "n=%d", n)
		s.False(result.BalanceAchieved)
		s.NotNil(result.Teams)
		s.Empty(result.Teams)
	}
}

func (s *EngineSuite) TestTeamCountOutOfRange() {
	engine := New(random.NewSeeded(1))
	players := makePlayers(1, 2, 3, 4, 5)

	s.False(engine.ComputeBalancedTeams(players, Config{Iterations: 1, TeamCount: 1}).Success)
	s.False(engine.ComputeBalancedTeams(players, Config{Iterations: 1, TeamCount: 6}).Success)
	s.True(engine.ComputeBalancedTeams(players, Config{Iterations: 1, TeamCount: 5}).Success)
}

func (s *EngineSuite) TestZeroIterationsRunsOnce() {
	rnd := mocks.NewMockRandom()
	engine := New(rnd)

	result := engine.ComputeBalancedTeams(makePlayers(1, 2, 3, 4), Config{Iterations: 0, BalanceThreshold: 10})

	s.True(result.Success)
	s.Equal(1, rnd.ShuffleCalls)
}

// Team shape

func (s *EngineSuite) TestDefaultTeamCount() {
	cases := map[int]int{4: 2, 8: 2, 9: 3, 12: 3, 13: 4, 16: 4, 17: 5, 20: 5, 21: 6, 24: 6, 25: 7, 40: 10}
	for n, expected := range cases {
		s.Equal(expected, DefaultTeamCount(n), "n=%d", n)
	}
}

func (s *EngineSuite) TestRoundRobinShape() {
	engine := New(random.NewSeeded(7))

	for n := MinPlayers; n <= 30; n++ {
		skills := make([]float64, n)
		for i := range skills {
			skills[i] = float64(i%10 + 1)
		}

		result := engine.ComputeBalancedTeams(makePlayers(skills...), Config{Iterations: 5, BalanceThreshold: 1})

		s.Require().True(result.Success, "n=%d", n)
		s.Len(result.Teams, DefaultTeamCount(n), "n=%d", n)

		minSize, maxSize, total := n, 0, 0
		for i, team := range result.Teams {
			s.Equal(i+1, team.Number)
			s.Equal(model.ColorForTeam(i+1), team.Color)
			s.NotEmpty(team.Players)
			minSize = min(minSize, len(team.Players))
			maxSize = max(maxSize, len(team.Players))
			total += len(team.Players)
		}
		s.LessOrEqual(maxSize-minSize, 1, "n=%d", n)
		s.Equal(n, total)
	}
}

func (s *EngineSuite) TestExplicitTeamCount() {
	engine := New(random.NewSeeded(3))

	result := engine.ComputeBalancedTeams(makePlayers(1, 2, 3, 4, 5, 6, 7, 8, 9), Config{Iterations: 10, TeamCount: 4})

	s.True(result.Success)
	s.Len(result.Teams, 4)
}

// Balance check

func (s *EngineSuite) TestBalanceAchievedBoundary() {
	// Any 2x2 split of {4,4,6,6} into [4,4]/[6,6] deviates by exactly 1;
	// the mixed split deviates by 0. A mock shuffle keeps input order.
	players := samePosition(makePlayers(4, 6, 4, 6), model.PositionForward)

	// Round-robin of [4,6,4,6] puts 4,4 on team 1 and 6,6 on team 2.
	atBoundary := New(mocks.NewMockRandom()).ComputeBalancedTeams(
		identityOrder(players), Config{Iterations: 1, BalanceThreshold: 1.0, TeamCount: 2})
	s.True(atBoundary.Success)
	s.InDelta(4.0, atBoundary.Teams[0].Stats.AverageSkill, 1e-9)
	s.InDelta(6.0, atBoundary.Teams[1].Stats.AverageSkill, 1e-9)
	s.True(atBoundary.BalanceAchieved)

	pastBoundary := New(mocks.NewMockRandom()).ComputeBalancedTeams(
		identityOrder(players), Config{Iterations: 1, BalanceThreshold: 0.99, TeamCount: 2})
	s.False(pastBoundary.BalanceAchieved)
}

// identityOrder pre-reverses the pairwise swaps a zero-valued mock shuffle
// performs, so that after shuffling the engine sees the original order.
func identityOrder(players []model.ConfirmedPlayer) []model.ConfirmedPlayer {
	order := make([]model.ConfirmedPlayer, len(players))
	copy(order, players)
	for i := 1; i < len(order); i++ {
		order[i], order[0] = order[0], order[i]
	}
	return order
}

func (s *EngineSuite) TestAbsoluteBalancedDirect() {
	teams := BuildTeams([][]model.ConfirmedPlayer{
		makePlayers(3, 5),
		makePlayers(6),
		makePlayers(7, 7),
	})
	// averages 4, 6, 7 -> mean 17/3, max deviation 5/3
	s.True(AbsoluteBalanced(teams, 5.0/3.0+1e-9))
	s.False(AbsoluteBalanced(teams, 5.0/3.0-1e-6))
	s.False(AbsoluteBalanced(nil, 1))
}

func (s *EngineSuite) TestRelativeBalanced() {
	teams := BuildTeams([][]model.ConfirmedPlayer{makePlayers(10), makePlayers(9)})

	s.True(RelativeBalanced(teams, 10.5))
	s.False(RelativeBalanced(teams, 9.5))
	s.True(RelativeBalanced(teams[:1], 0))
	s.True(RelativeBalanced(BuildTeams([][]model.ConfirmedPlayer{makePlayers(0), makePlayers(0)}), 0))
}

// Determinism

func (s *EngineSuite) TestSingleIterationMatchesSeededShuffle() {
	players := makePlayers(9, 8, 7, 6, 5, 4, 3, 2, 1, 10)

	result := New(random.NewSeeded(99)).ComputeBalancedTeams(players, Config{Iterations: 1, BalanceThreshold: 1, TeamCount: 3})

	order := make([]model.ConfirmedPlayer, len(players))
	copy(order, players)
	random.NewSeeded(99).Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	expected := BuildTeams(Distribute(order, 3))

	s.Require().Len(result.Teams, 3)
	for i := range expected {
		s.Equal(signupIDs(expected[i]), signupIDs(result.Teams[i]))
	}
	s.InDelta(Score(Distribute(order, 3), DefaultPositionWeight), result.Score, 1e-12)
}

func (s *EngineSuite) TestDoesNotMutateInput() {
	players := makePlayers(1, 2, 3, 4, 5, 6)
	before := make([]model.ConfirmedPlayer, len(players))
	copy(before, players)

	New(random.NewSeeded(5)).ComputeBalancedTeams(players, Config{Iterations: 20})

	s.Equal(before, players)
}

func (s *EngineSuite) TestMoreIterationsNeverWorse() {
	skills := []float64{9.5, 3, 7, 1, 8, 2.5, 6, 4, 5.5, 10, 2, 7.5}
	players := makePlayers(skills...)
	improvedOrEqual := 0
	trials := 100

	for seed := uint64(0); seed < uint64(trials); seed++ {
		one := New(random.NewSeeded(seed)).ComputeBalancedTeams(players, Config{Iterations: 1})
		fifty := New(random.NewSeeded(seed)).ComputeBalancedTeams(players, Config{Iterations: 50})
		if fifty.Score <= one.Score {
			improvedOrEqual++
		}
	}

	s.GreaterOrEqual(improvedOrEqual, 95)
}

func (s *EngineSuite) TestPositionWeightOption() {
	engine := New(random.NewSeeded(1), WithPositionWeight(2.5))
	s.Equal(2.5, engine.PositionWeight())
	s.Equal(DefaultPositionWeight, New(random.NewSeeded(1)).PositionWeight())
}

func (s *EngineSuite) TestScoreComponents() {
	groups := [][]model.ConfirmedPlayer{
		{{SkillRating: 4, Position: model.PositionForward}, {SkillRating: 4, Position: model.PositionForward}},
		{{SkillRating: 6, Position: model.PositionDefender}, {SkillRating: 6, Position: model.PositionForward}},
	}
	// skill variance: averages 4 and 6 -> 1
	// forward counts 2,1 -> 0.25; defender counts 0,1 -> 0.25
	s.InDelta(1.0+0.1*0.5, Score(groups, 0.1), 1e-12)
	s.InDelta(1.0, Score(groups, 0), 1e-12)
}

// Parallel workers

func (s *EngineSuite) TestParallelWorkersDeterministic() {
	players := makePlayers(9, 8, 7, 6, 5, 4, 3, 2, 1, 10, 4.5, 6.5, 3.5)

	a := New(random.NewSeeded(11), WithWorkers(4)).ComputeBalancedTeams(players, Config{Iterations: 101, BalanceThreshold: 1})
	b := New(random.NewSeeded(11), WithWorkers(4)).ComputeBalancedTeams(players, Config{Iterations: 101, BalanceThreshold: 1})

	s.True(a.Success)
	s.Len(a.Teams, DefaultTeamCount(len(players)))
	s.Equal(a.Score, b.Score)
	for i := range a.Teams {
		s.Equal(signupIDs(a.Teams[i]), signupIDs(b.Teams[i]))
	}
}

func (s *EngineSuite) TestMoreWorkersThanIterations() {
	result := New(random.NewSeeded(2), WithWorkers(16)).ComputeBalancedTeams(makePlayers(1, 2, 3, 4, 5), Config{Iterations: 3})

	s.True(result.Success)
	s.Len(result.Teams, 2)
}

// Scenario

func (s *EngineSuite) TestEightPlayerScenario() {
	players := samePosition(makePlayers(9, 8, 7, 6, 5, 4, 3, 2), model.PositionMidfielder)

	result := New(random.NewSeeded(2024)).ComputeBalancedTeams(players, Config{Iterations: 200, BalanceThreshold: 1.0, TeamCount: 2})

	s.Require().True(result.Success)
	s.Require().Len(result.Teams, 2)
	for _, team := range result.Teams {
		s.Len(team.Players, 4)
		s.InDelta(22.0, teamSum(team), 1.0)
		s.Equal(4, team.Stats.PositionCounts[model.PositionMidfielder])
	}
	s.True(result.BalanceAchieved)
}
