package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Position is the categorical playing role of a player
type Position string

const (
	PositionGoalkeeper Position = "goalkeeper"
	PositionDefender   Position = "defender"
	PositionMidfielder Position = "midfielder"
	PositionForward    Position = "forward"
)

// ValidPositions returns all known positions in display order
func ValidPositions() []Position {
	return []Position{PositionGoalkeeper, PositionDefender, PositionMidfielder, PositionForward}
}

// IsValid returns true if the position is one of the known positions
func (p Position) IsValid() bool {
	for _, v := range ValidPositions() {
		if p == v {
			return true
		}
	}
	return false
}

// Player represents a participant who can sign up for events.
// SkillRating is always present internally even when hidden from viewers.
type Player struct {
	ID          PlayerID
	DisplayName string
	Position    Position
	SkillRating float64
	CreatedAt   time.Time
}

// ConfirmedPlayer is the balancing input derived from a confirmed signup
type ConfirmedPlayer struct {
	SignupID    SignupID
	PlayerID    PlayerID
	PlayerName  string
	Position    Position
	SkillRating float64
}
