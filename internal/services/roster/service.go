// Package roster manages events, players and signups.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/teamdraw/internal/dependencies/clock"
	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/services/access"
	"github.com/mcoot/teamdraw/internal/storage"
)

// Rating bounds for new players
const (
	MinSkillRating = 0
	MaxSkillRating = 10
)

// NewPlayer describes a player signing up for the first time
type NewPlayer struct {
	DisplayName string
	Position    model.Position
	SkillRating float64
}

// Service implements event and signup management
type Service struct {
	store  storage.RosterStore
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a new roster Service
func New(store storage.RosterStore, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		clock:  clock,
		logger: logger.With(slog.String("component", "roster")),
	}
}

// CreateEvent creates an event owned by the actor
func (s *Service) CreateEvent(ctx context.Context, actor *model.Actor, name string, startsAt time.Time) (*model.Event, error) {
	if !access.CanCreateEvents(actor) {
		return nil, model.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("event name is required")
	}

	now := s.clock.Now()
	event := &model.Event{
		ID:          model.EventID(uuid.NewString()),
		Name:        name,
		OrganizerID: actor.UserID,
		StartsAt:    startsAt.UTC(),
		CreatedAt:   now,
	}
	if err := s.store.SaveEvent(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info("event created",
		slog.String("event_id", string(event.ID)),
		slog.String("organizer_id", string(actor.UserID)),
	)
	return event, nil
}

// GetEvent returns an event by id
func (s *Service) GetEvent(ctx context.Context, id model.EventID) (*model.Event, error) {
	return s.store.GetEvent(ctx, id)
}

// AddSignup registers a new player for an event with a pending signup.
// Any authenticated actor may sign a player up.
func (s *Service) AddSignup(ctx context.Context, actor *model.Actor, eventID model.EventID, np NewPlayer) (*model.SignupDetail, error) {
	if actor == nil {
		return nil, model.ErrForbidden
	}
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	np.DisplayName = strings.TrimSpace(np.DisplayName)
	if np.DisplayName == "" {
		return nil, model.NewValidationError("display_name is required")
	}
	if !np.Position.IsValid() {
		return nil, model.NewValidationError(fmt.Sprintf("position must be one of %v", model.ValidPositions()))
	}
	if np.SkillRating < MinSkillRating || np.SkillRating > MaxSkillRating {
		return nil, model.NewValidationError(fmt.Sprintf("skill_rating must be between %d and %d", MinSkillRating, MaxSkillRating))
	}

	now := s.clock.Now()
	player := &model.Player{
		ID:          model.PlayerID(uuid.NewString()),
		DisplayName: np.DisplayName,
		Position:    np.Position,
		SkillRating: np.SkillRating,
		CreatedAt:   now,
	}
	signup := &model.Signup{
		ID:        model.SignupID(uuid.NewString()),
		EventID:   eventID,
		PlayerID:  player.ID,
		Status:    model.SignupPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SavePlayer(ctx, player); err != nil {
		return nil, err
	}
	if err := s.store.SaveSignup(ctx, signup); err != nil {
		return nil, err
	}

	s.logger.Info("signup added",
		slog.String("event_id", string(eventID)),
		slog.String("signup_id", string(signup.ID)),
	)
	return &model.SignupDetail{Signup: *signup, Player: *player}, nil
}

// SetSignupStatus moves a signup to confirmed or withdrawn
func (s *Service) SetSignupStatus(ctx context.Context, actor *model.Actor, eventID model.EventID, signupID model.SignupID, status model.SignupStatus) (*model.Signup, error) {
	if _, err := access.AuthorizeEventManager(ctx, s.store, eventID, actor); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, model.NewValidationError("unknown signup status")
	}

	signup, err := s.store.GetSignup(ctx, signupID)
	if err != nil {
		return nil, err
	}
	if signup.EventID != eventID {
		return nil, model.ErrSignupNotFound
	}

	signup.Status = status
	signup.UpdatedAt = s.clock.Now()
	if err := s.store.SaveSignup(ctx, signup); err != nil {
		return nil, err
	}

	s.logger.Info("signup status changed",
		slog.String("event_id", string(eventID)),
		slog.String("signup_id", string(signupID)),
		slog.String("status", string(status)),
	)
	return signup, nil
}

// ListSignups returns all signups for an event with their players
func (s *Service) ListSignups(ctx context.Context, actor *model.Actor, eventID model.EventID) ([]model.SignupDetail, error) {
	if _, err := access.AuthorizeEventManager(ctx, s.store, eventID, actor); err != nil {
		return nil, err
	}
	return s.ListSignupDetails(ctx, eventID)
}

// Directory methods consumed by the team workflow. They do not authorize.

// GetSignups returns the signups that exist among ids
func (s *Service) GetSignups(ctx context.Context, ids []model.SignupID) ([]*model.Signup, error) {
	return s.store.GetSignups(ctx, ids)
}

// ListSignupDetails joins every signup of an event with its player
func (s *Service) ListSignupDetails(ctx context.Context, eventID model.EventID) ([]model.SignupDetail, error) {
	signups, err := s.store.ListSignupsForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	details := make([]model.SignupDetail, 0, len(signups))
	for _, signup := range signups {
		player, err := s.store.GetPlayer(ctx, signup.PlayerID)
		if err != nil {
			if errors.Is(err, model.ErrPlayerNotFound) {
				s.logger.Warn("signup references missing player",
					slog.String("signup_id", string(signup.ID)),
					slog.String("player_id", string(signup.PlayerID)),
				)
				continue
			}
			return nil, err
		}
		details = append(details, model.SignupDetail{Signup: *signup, Player: *player})
	}
	return details, nil
}

// ListConfirmedPlayers returns the balancing input for an event
func (s *Service) ListConfirmedPlayers(ctx context.Context, eventID model.EventID) ([]model.ConfirmedPlayer, error) {
	details, err := s.ListSignupDetails(ctx, eventID)
	if err != nil {
		return nil, err
	}
	players := make([]model.ConfirmedPlayer, 0, len(details))
	for _, d := range details {
		if d.Signup.Status == model.SignupConfirmed {
			players = append(players, d.ConfirmedPlayer())
		}
	}
	return players, nil
}
