package storage

import (
	"context"

	"github.com/mcoot/teamdraw/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	AccountStore
	RosterStore
	AssignmentGateway
	AuditLog
}

// AccountStore persists login accounts
type AccountStore interface {
	SaveAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id model.UserID) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
}

// RosterStore persists events, players and signups
type RosterStore interface {
	// Event operations
	SaveEvent(ctx context.Context, event *model.Event) error
	GetEvent(ctx context.Context, id model.EventID) (*model.Event, error)

	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)

	// Signup operations
	SaveSignup(ctx context.Context, signup *model.Signup) error
	GetSignup(ctx context.Context, id model.SignupID) (*model.Signup, error)
	// GetSignups returns the signups that exist; unknown ids are omitted
	GetSignups(ctx context.Context, ids []model.SignupID) ([]*model.Signup, error)
	// ListSignupsForEvent returns an event's signups oldest first
	ListSignupsForEvent(ctx context.Context, eventID model.EventID) ([]*model.Signup, error)
}

// AssignmentGateway persists the current team layout of each event
type AssignmentGateway interface {
	GetAssignmentsForEvent(ctx context.Context, eventID model.EventID) ([]*model.Assignment, error)
	GetAssignmentsForSignups(ctx context.Context, eventID model.EventID, ids []model.SignupID) ([]*model.Assignment, error)

	// ReplaceAssignments removes any assignment for the signups referenced by
	// assignments and inserts the new rows as one atomic unit. Readers never
	// observe a referenced signup with zero or two assignments.
	ReplaceAssignments(ctx context.Context, eventID model.EventID, assignments []*model.Assignment) error
}

// AuditLog is the append-only history of assignment changes
type AuditLog interface {
	AppendAuditEntry(ctx context.Context, entry *model.AuditEntry) error
	// ListAuditEntries returns an event's entries in append order
	ListAuditEntries(ctx context.Context, eventID model.EventID) ([]*model.AuditEntry, error)
}
