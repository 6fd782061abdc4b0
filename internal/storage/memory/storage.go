package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Values are copied on the way in and out so callers never share state.
type Storage struct {
	mu sync.RWMutex

	accounts      map[model.UserID]model.Account
	usernameIndex map[string]model.UserID
	events        map[model.EventID]model.Event
	players       map[model.PlayerID]model.Player
	signups       map[model.SignupID]model.Signup
	eventSignups  map[model.EventID][]model.SignupID
	assignments   map[model.EventID]map[model.SignupID]model.Assignment
	audit         map[model.EventID][]model.AuditEntry
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		accounts:      make(map[model.UserID]model.Account),
		usernameIndex: make(map[string]model.UserID),
		events:        make(map[model.EventID]model.Event),
		players:       make(map[model.PlayerID]model.Player),
		signups:       make(map[model.SignupID]model.Signup),
		eventSignups:  make(map[model.EventID][]model.SignupID),
		assignments:   make(map[model.EventID]map[model.SignupID]model.Assignment),
		audit:         make(map[model.EventID][]model.AuditEntry),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = *account
	s.usernameIndex[account.Username] = account.ID
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.UserID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return &account, nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return &account, nil
}

// Event operations

func (s *Storage) SaveEvent(ctx context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = *event
	return nil
}

func (s *Storage) GetEvent(ctx context.Context, id model.EventID) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	return &event, nil
}

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.ID] = *player
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return &player, nil
}

// Signup operations

func (s *Storage) SaveSignup(ctx context.Context, signup *model.Signup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.signups[signup.ID]; !exists {
		s.eventSignups[signup.EventID] = append(s.eventSignups[signup.EventID], signup.ID)
	}
	s.signups[signup.ID] = *signup
	return nil
}

func (s *Storage) GetSignup(ctx context.Context, id model.SignupID) (*model.Signup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	signup, ok := s.signups[id]
	if !ok {
		return nil, model.ErrSignupNotFound
	}
	return &signup, nil
}

func (s *Storage) GetSignups(ctx context.Context, ids []model.SignupID) ([]*model.Signup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*model.Signup, 0, len(ids))
	for _, id := range ids {
		if signup, ok := s.signups[id]; ok {
			result = append(result, &signup)
		}
	}
	return result, nil
}

func (s *Storage) ListSignupsForEvent(ctx context.Context, eventID model.EventID) ([]*model.Signup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.eventSignups[eventID]
	result := make([]*model.Signup, 0, len(ids))
	for _, id := range ids {
		signup := s.signups[id]
		result = append(result, &signup)
	}
	return result, nil
}

// Assignment operations

func (s *Storage) GetAssignmentsForEvent(ctx context.Context, eventID model.EventID) ([]*model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.assignments[eventID]
	result := make([]*model.Assignment, 0, len(rows))
	for _, a := range rows {
		result = append(result, &a)
	}
	sortAssignments(result)
	return result, nil
}

func (s *Storage) GetAssignmentsForSignups(ctx context.Context, eventID model.EventID, ids []model.SignupID) ([]*model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.assignments[eventID]
	result := make([]*model.Assignment, 0, len(ids))
	for _, id := range ids {
		if a, ok := rows[id]; ok {
			result = append(result, &a)
		}
	}
	return result, nil
}

// ReplaceAssignments swaps the rows under a single write lock, so the
// delete and insert are never observed separately.
func (s *Storage) ReplaceAssignments(ctx context.Context, eventID model.EventID, assignments []*model.Assignment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.assignments[eventID]
	if !ok {
		rows = make(map[model.SignupID]model.Assignment)
		s.assignments[eventID] = rows
	}
	for _, a := range assignments {
		delete(rows, a.SignupID)
	}
	for _, a := range assignments {
		rows[a.SignupID] = *a
	}
	return nil
}

// Audit operations

func (s *Storage) AppendAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *entry
	if entry.Diff.PreviousTeam != nil {
		prev := *entry.Diff.PreviousTeam
		e.Diff.PreviousTeam = &prev
	}
	s.audit[entry.EventID] = append(s.audit[entry.EventID], e)
	return nil
}

func (s *Storage) ListAuditEntries(ctx context.Context, eventID model.EventID) ([]*model.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.audit[eventID]
	result := make([]*model.AuditEntry, len(entries))
	for i := range entries {
		e := entries[i]
		if e.Diff.PreviousTeam != nil {
			prev := *e.Diff.PreviousTeam
			e.Diff.PreviousTeam = &prev
		}
		result[i] = &e
	}
	return result, nil
}

// sortAssignments orders by team number, then signup id
func sortAssignments(rows []*model.Assignment) {
	slices.SortFunc(rows, func(a, b *model.Assignment) int {
		if a.TeamNumber != b.TeamNumber {
			return a.TeamNumber - b.TeamNumber
		}
		switch {
		case a.SignupID < b.SignupID:
			return -1
		case a.SignupID > b.SignupID:
			return 1
		default:
			return 0
		}
	})
}
