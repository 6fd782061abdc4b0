package teamview

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/services/balance"
	"github.com/mcoot/teamdraw/internal/services/teams"
)

// DefaultRelativeThresholdPercent is the balance tolerance applied after manual edits
const DefaultRelativeThresholdPercent = 10.0

// Backend is the server surface the board talks to
type Backend interface {
	ListAssignments(ctx context.Context, eventID model.EventID) ([]model.AssignmentDetail, error)
	RunDraw(ctx context.Context, eventID model.EventID, params teams.DrawParams) (model.DrawResult, error)
	SetAssignments(ctx context.Context, eventID model.EventID, inputs []model.AssignmentInput) ([]*model.Assignment, error)
}

// Config configures a Session
type Config struct {
	EventID model.EventID

	// RelativeThresholdPercent bounds how far a team average may sit below the
	// best team average before a locally edited board is flagged unbalanced.
	RelativeThresholdPercent float64

	// OnConfirmed runs NavigateDelay after a successful confirm.
	OnConfirmed   func()
	NavigateDelay time.Duration
}

// Session is one organizer's board for one event
type Session struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger

	mu      sync.Mutex
	state   State
	current view
	saving  bool
	lastErr error
	version uint64

	// saveDone is closed when the in-flight save finishes
	saveDone chan struct{}
	saveErr  error

	navigateTimer *time.Timer

	subscribers      *xsync.Map[uint64, *subscriber]
	nextSubscriberID atomic.Uint64
}

// NewSession creates an idle Session
func NewSession(backend Backend, cfg Config, logger *slog.Logger) *Session {
	if cfg.RelativeThresholdPercent <= 0 {
		cfg.RelativeThresholdPercent = DefaultRelativeThresholdPercent
	}
	return &Session{
		backend: backend,
		cfg:     cfg,
		logger: logger.With(
			slog.String("component", "teamview"),
			slog.String("event_id", string(cfg.EventID)),
		),
		state:       StateIdle,
		subscribers: xsync.NewMap[uint64, *subscriber](),
	}
}

// Snapshot returns a copy of the current board
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:             s.state,
		Teams:             model.CloneTeams(s.current.teams),
		BalanceAchieved:   s.current.balanceAchieved,
		HasUnsavedChanges: s.current.unsaved,
		IsConfirmed:       s.current.confirmed,
		IsSaving:          s.saving,
		LastError:         s.lastErr,
		Version:           s.version,
	}
}

// Subscribe returns a channel of board snapshots, starting with the current one
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	id := s.nextSubscriberID.Add(1)
	sub := &subscriber{ch: make(chan Snapshot, 8)}
	s.subscribers.Store(id, sub)
	sub.trySend(s.Snapshot())

	return sub.ch, func() {
		if sub, ok := s.subscribers.LoadAndDelete(id); ok {
			sub.close()
		}
	}
}

// publishLocked bumps the version and fans the snapshot out. Caller holds mu.
func (s *Session) publishLocked() {
	s.version++
	snap := s.snapshotLocked()
	s.subscribers.Range(func(_ uint64, sub *subscriber) bool {
		sub.trySend(snap)
		return true
	})
}

// beginLocked moves into a working state if nothing else is running
func (s *Session) beginLocked(next State) error {
	if s.saving {
		return ErrSaveInFlight
	}
	if s.state != StateIdle && s.state != StateReady {
		return ErrBusy
	}
	s.state = next
	s.lastErr = nil
	s.publishLocked()
	return nil
}

// settledState is where a finished operation lands
func (s *Session) settledState() State {
	if s.current.teams == nil {
		return StateIdle
	}
	return StateReady
}

// Fetch loads the persisted assignments and derives the board from them
func (s *Session) Fetch(ctx context.Context) error {
	s.mu.Lock()
	if err := s.beginLocked(StateLoading); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	details, err := s.backend.ListAssignments(ctx, s.cfg.EventID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Warn("fetch failed", slog.String("error", err.Error()))
		s.lastErr = err
		s.state = s.settledState()
		s.publishLocked()
		return err
	}

	built := TeamsFromAssignments(details)
	s.current = view{
		teams:           built,
		balanceAchieved: balance.RelativeBalanced(built, s.cfg.RelativeThresholdPercent),
		confirmed:       len(built) > 0,
	}
	s.state = StateReady
	s.publishLocked()
	return nil
}

// RunDraw asks the server for a fresh partition and displays it unsaved.
// A failed draw leaves the board as it was.
func (s *Session) RunDraw(ctx context.Context, params teams.DrawParams) (model.DrawResult, error) {
	s.mu.Lock()
	if err := s.beginLocked(StateDrawing); err != nil {
		s.mu.Unlock()
		return model.DrawResult{}, err
	}
	s.mu.Unlock()

	result, err := s.backend.RunDraw(ctx, s.cfg.EventID, params)
	if err == nil && !result.Success {
		err = ErrDrawFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Warn("draw failed", slog.String("error", err.Error()))
		s.lastErr = err
		s.state = s.settledState()
		s.publishLocked()
		return result, err
	}

	s.current = view{
		teams:           model.CloneTeams(result.Teams),
		balanceAchieved: result.BalanceAchieved,
		unsaved:         true,
	}
	s.state = StateReady
	s.publishLocked()
	return result, nil
}

// Confirm persists the whole board. With no teams on the board it fails
// without contacting the server.
func (s *Session) Confirm(ctx context.Context) ([]*model.Assignment, error) {
	s.mu.Lock()
	if len(s.current.teams) == 0 {
		s.mu.Unlock()
		return nil, ErrNoTeams
	}
	if err := s.beginLocked(StateConfirming); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	inputs := Flatten(s.current.teams)
	s.mu.Unlock()

	rows, err := s.backend.SetAssignments(ctx, s.cfg.EventID, inputs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateReady
	if err != nil {
		s.logger.Warn("confirm failed", slog.String("error", err.Error()))
		s.lastErr = err
		s.publishLocked()
		return nil, err
	}

	s.current.unsaved = false
	s.current.confirmed = true
	s.publishLocked()
	s.logger.Info("teams confirmed", slog.Int("assignments", len(rows)))

	if s.cfg.OnConfirmed != nil {
		if s.navigateTimer != nil {
			s.navigateTimer.Stop()
		}
		s.navigateTimer = time.AfterFunc(s.cfg.NavigateDelay, s.cfg.OnConfirmed)
	}
	return rows, nil
}

// MoveSignup moves one signup to another team on the board straight away and
// saves that single change in the background. If the save fails the board is
// restored exactly as it was before the move. Only one save runs at a time.
//
// On a drawn board that was never confirmed only the moved row is persisted.
// The other draw rows stay unsaved, and the board keeps reporting unsaved
// changes, until Confirm writes the whole line-up.
func (s *Session) MoveSignup(ctx context.Context, signupID model.SignupID, teamNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saving {
		return ErrSaveInFlight
	}
	if s.state != StateReady {
		return ErrBusy
	}

	from, idx := findSignup(s.current.teams, signupID)
	if from < 0 {
		return ErrUnknownSignup
	}
	to := findTeam(s.current.teams, teamNumber)
	if to < 0 {
		return ErrUnknownTeam
	}
	if from == to {
		return nil
	}

	committed := s.current.clone()

	edited := s.current.clone()
	src := &edited.teams[from]
	dst := &edited.teams[to]
	player := src.Players[idx]
	src.Players = append(src.Players[:idx], src.Players[idx+1:]...)
	dst.Players = append(dst.Players, player)
	src.Stats = balance.Stats(src.Players)
	dst.Stats = balance.Stats(dst.Players)
	edited.balanceAchieved = balance.RelativeBalanced(edited.teams, s.cfg.RelativeThresholdPercent)
	edited.unsaved = true
	edited.confirmed = false

	s.current = edited
	s.state = StateEditing
	s.saving = true
	s.lastErr = nil
	done := make(chan struct{})
	s.saveDone = done
	s.saveErr = nil
	s.publishLocked()

	input := model.AssignmentInput{SignupID: signupID, TeamNumber: dst.Number, TeamColor: dst.Color}
	go s.save(context.WithoutCancel(ctx), input, committed, done)
	return nil
}

func (s *Session) save(ctx context.Context, input model.AssignmentInput, committed view, done chan struct{}) {
	_, err := s.backend.SetAssignments(ctx, s.cfg.EventID, []model.AssignmentInput{input})

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(done)

	s.saving = false
	s.saveErr = err
	s.state = StateReady
	if err != nil {
		s.logger.Warn("move rolled back",
			slog.String("signup_id", string(input.SignupID)),
			slog.String("error", err.Error()),
		)
		s.current = committed
		s.lastErr = err
	}
	s.publishLocked()
}

// WaitForSave blocks until the in-flight save finishes and returns its error.
// With nothing in flight it returns the outcome of the last save.
func (s *Session) WaitForSave(ctx context.Context) error {
	s.mu.Lock()
	done := s.saveDone
	s.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveErr
}

// Close stops a pending navigation and releases subscribers
func (s *Session) Close() {
	s.mu.Lock()
	if s.navigateTimer != nil {
		s.navigateTimer.Stop()
	}
	s.mu.Unlock()

	s.subscribers.Range(func(id uint64, sub *subscriber) bool {
		s.subscribers.Delete(id)
		sub.close()
		return true
	})
}

// TeamsFromAssignments groups persisted assignments into a board ordered by team number
func TeamsFromAssignments(details []model.AssignmentDetail) []model.Team {
	byNumber := make(map[int]*model.Team)
	for _, d := range details {
		team, ok := byNumber[d.Assignment.TeamNumber]
		if !ok {
			team = &model.Team{Number: d.Assignment.TeamNumber, Color: d.Assignment.TeamColor}
			byNumber[d.Assignment.TeamNumber] = team
		}
		team.Players = append(team.Players, model.ConfirmedPlayer{
			SignupID:    d.Assignment.SignupID,
			PlayerID:    d.Player.ID,
			PlayerName:  d.Player.DisplayName,
			Position:    d.Player.Position,
			SkillRating: d.Player.SkillRating,
		})
	}

	out := make([]model.Team, 0, len(byNumber))
	for _, team := range byNumber {
		team.Stats = balance.Stats(team.Players)
		out = append(out, *team)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Flatten turns a board into one assignment input per signup
func Flatten(board []model.Team) []model.AssignmentInput {
	var inputs []model.AssignmentInput
	for _, team := range board {
		for _, p := range team.Players {
			inputs = append(inputs, model.AssignmentInput{
				SignupID:   p.SignupID,
				TeamNumber: team.Number,
				TeamColor:  team.Color,
			})
		}
	}
	return inputs
}

func findSignup(board []model.Team, id model.SignupID) (team, index int) {
	for ti, t := range board {
		for pi, p := range t.Players {
			if p.SignupID == id {
				return ti, pi
			}
		}
	}
	return -1, -1
}

func findTeam(board []model.Team, number int) int {
	for i, t := range board {
		if t.Number == number {
			return i
		}
	}
	return -1
}
