// Package teamview keeps an organizer's in-memory team board in step with the server.
//
// A Session moves through these states:
//   - Idle: nothing loaded yet
//   - Loading: fetching persisted assignments
//   - Ready: a team view is displayed
//   - Drawing: waiting on a server draw
//   - Confirming: persisting the whole view
//   - Editing: a moved signup is being saved in the background
package teamview

import (
	"errors"
	"fmt"

	"github.com/mcoot/teamdraw/internal/model"
)

// State is the session's current phase
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateDrawing
	StateConfirming
	StateEditing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateDrawing:
		return "drawing"
	case StateConfirming:
		return "confirming"
	case StateEditing:
		return "editing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Errors
var (
	ErrBusy          = errors.New("another operation is in progress")
	ErrSaveInFlight  = errors.New("a save is already in flight")
	ErrNoTeams       = errors.New("no teams to confirm")
	ErrDrawFailed    = errors.New("draw did not produce teams")
	ErrUnknownSignup = errors.New("signup is not on the board")
	ErrUnknownTeam   = errors.New("team is not on the board")
)

// Snapshot is an immutable copy of what the board displays
type Snapshot struct {
	State             State
	Teams             []model.Team
	BalanceAchieved   bool
	HasUnsavedChanges bool
	IsConfirmed       bool
	IsSaving          bool
	LastError         error
	Version           uint64
}

// view is the part of the session that a failed edit restores
type view struct {
	teams           []model.Team
	balanceAchieved bool
	unsaved         bool
	confirmed       bool
}

func (v view) clone() view {
	v.teams = model.CloneTeams(v.teams)
	return v
}
