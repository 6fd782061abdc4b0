// Package balance partitions confirmed players into skill- and position-balanced teams.
package balance

import (
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/teamdraw/internal/dependencies/random"
	"github.com/mcoot/teamdraw/internal/model"
)

const (
	// MinPlayers is the smallest roster the engine will partition
	MinPlayers = 4

	// DefaultPositionWeight scales position variance relative to skill variance in the score
	DefaultPositionWeight = 0.1
)

// Config controls a single draw
type Config struct {
	Iterations       int
	BalanceThreshold float64 // absolute skill points
	TeamCount        int     // zero derives the count from the roster size
}

// Option configures an Engine
type Option func(*Engine)

// WithPositionWeight overrides the weight applied to position variance
func WithPositionWeight(w float64) Option {
	return func(e *Engine) {
		e.positionWeight = w
	}
}

// WithWorkers splits iterations across n goroutines
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// Engine runs randomized search for balanced partitions. It is safe for
// concurrent use; the random source is only touched under mu.
type Engine struct {
	mu             sync.Mutex
	rnd            random.Random
	positionWeight float64
	workers        int
}

// New creates an Engine drawing randomness from rnd
func New(rnd random.Random, opts ...Option) *Engine {
	e := &Engine{
		rnd:            rnd,
		positionWeight: DefaultPositionWeight,
		workers:        1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PositionWeight returns the configured position variance weight
func (e *Engine) PositionWeight() float64 {
	return e.positionWeight
}

// DefaultTeamCount picks a team count that keeps teams at roughly 4-6 players
func DefaultTeamCount(n int) int {
	switch {
	case n <= 8:
		return 2
	case n <= 12:
		return 3
	case n <= 16:
		return 4
	case n <= 20:
		return 5
	default:
		return int(math.Ceil(float64(n) / 4))
	}
}

// ComputeBalancedTeams searches cfg.Iterations random round-robin partitions
// and returns the lowest scoring one. Unusable input yields an unsuccessful
// result rather than an error.
func (e *Engine) ComputeBalancedTeams(players []model.ConfirmedPlayer, cfg Config) model.DrawResult {
	n := len(players)
	if n < MinPlayers {
		return failedResult()
	}

	teamCount := cfg.TeamCount
	if teamCount == 0 {
		teamCount = DefaultTeamCount(n)
	}
	if teamCount < 2 || teamCount > n {
		return failedResult()
	}

	iterations := cfg.Iterations
	if iterations < 1 {
		iterations = 1
	}

	var best candidate
	if e.workers <= 1 || iterations < 2 {
		e.mu.Lock()
		best = search(e.rnd, players, teamCount, iterations, e.positionWeight)
		e.mu.Unlock()
	} else {
		best = e.parallelSearch(players, teamCount, iterations)
	}

	teams := BuildTeams(best.groups)
	return model.DrawResult{
		Success:         true,
		BalanceAchieved: AbsoluteBalanced(teams, cfg.BalanceThreshold),
		Teams:           teams,
		Score:           best.score,
	}
}

// parallelSearch gives each worker its own seeded source and reduces the
// local winners in worker order.
func (e *Engine) parallelSearch(players []model.ConfirmedPlayer, teamCount, iterations int) candidate {
	workers := e.workers
	if workers > iterations {
		workers = iterations
	}

	seeds := make([]uint64, workers)
	e.mu.Lock()
	for i := range seeds {
		seeds[i] = uint64(e.rnd.Intn(math.MaxInt32))
	}
	e.mu.Unlock()

	results := make([]candidate, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		share := iterations / workers
		if i < iterations%workers {
			share++
		}
		g.Go(func() error {
			results[i] = search(random.NewSeeded(seeds[i]), players, teamCount, share, e.positionWeight)
			return nil
		})
	}
	_ = g.Wait()

	var best candidate
	for _, c := range results {
		best = better(best, c)
	}
	return best
}

type candidate struct {
	groups [][]model.ConfirmedPlayer
	score  float64
	found  bool
}

// better keeps a unless b scores strictly lower
func better(a, b candidate) candidate {
	if !b.found {
		return a
	}
	if !a.found || b.score < a.score {
		return b
	}
	return a
}

func search(rnd random.Random, players []model.ConfirmedPlayer, teamCount, iterations int, weight float64) candidate {
	order := make([]model.ConfirmedPlayer, len(players))
	copy(order, players)

	var best candidate
	for i := 0; i < iterations; i++ {
		rnd.Shuffle(len(order), func(a, b int) {
			order[a], order[b] = order[b], order[a]
		})
		groups := Distribute(order, teamCount)
		best = better(best, candidate{
			groups: groups,
			score:  Score(groups, weight),
			found:  true,
		})
	}
	return best
}

// Distribute deals players round-robin: index i goes to team i mod teamCount
func Distribute(players []model.ConfirmedPlayer, teamCount int) [][]model.ConfirmedPlayer {
	groups := make([][]model.ConfirmedPlayer, teamCount)
	for i, p := range players {
		groups[i%teamCount] = append(groups[i%teamCount], p)
	}
	return groups
}

func failedResult() model.DrawResult {
	return model.DrawResult{
		Success:         false,
		BalanceAchieved: false,
		Teams:           []model.Team{},
	}
}
