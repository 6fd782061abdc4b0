package model

import "time"

// EventID uniquely identifies an event
type EventID string

// SignupID uniquely identifies a signup
type SignupID string

// Event is a scheduled game owned by an organizer
type Event struct {
	ID          EventID
	Name        string
	OrganizerID UserID
	StartsAt    time.Time
	CreatedAt   time.Time
}

// SignupStatus is the lifecycle state of a signup
type SignupStatus string

const (
	SignupPending   SignupStatus = "pending"
	SignupConfirmed SignupStatus = "confirmed"
	SignupWithdrawn SignupStatus = "withdrawn"
)

// IsValid returns true if the status is known
func (s SignupStatus) IsValid() bool {
	switch s {
	case SignupPending, SignupConfirmed, SignupWithdrawn:
		return true
	default:
		return false
	}
}

// Signup references one player's registration for one event.
// The rest of the team subsystem keys on the signup, not the player.
type Signup struct {
	ID        SignupID
	EventID   EventID
	PlayerID  PlayerID
	Status    SignupStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SignupDetail joins a signup with its player
type SignupDetail struct {
	Signup Signup
	Player Player
}

// ConfirmedPlayer projects a signup detail into balancing input
func (d SignupDetail) ConfirmedPlayer() ConfirmedPlayer {
	return ConfirmedPlayer{
		SignupID:    d.Signup.ID,
		PlayerID:    d.Player.ID,
		PlayerName:  d.Player.DisplayName,
		Position:    d.Player.Position,
		SkillRating: d.Player.SkillRating,
	}
}
