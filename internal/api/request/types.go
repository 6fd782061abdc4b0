package request

import (
	"time"

	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/services/teams"
)

// RegisterRequest is the request body for registering an account
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role,omitempty"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateEventRequest is the request body for creating an event
type CreateEventRequest struct {
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
}

// AddSignupRequest is the request body for signing a player up
type AddSignupRequest struct {
	DisplayName string  `json:"display_name"`
	Position    string  `json:"position"`
	SkillRating float64 `json:"skill_rating"`
}

// DrawRequest is the optional request body for a team draw
type DrawRequest struct {
	Iterations       *int     `json:"iterations,omitempty"`
	BalanceThreshold *float64 `json:"balance_threshold,omitempty"`
	TeamCount        *int     `json:"team_count,omitempty"`
}

// Params converts the request to draw parameters
func (r DrawRequest) Params() teams.DrawParams {
	return teams.DrawParams{
		Iterations:       r.Iterations,
		BalanceThreshold: r.BalanceThreshold,
		TeamCount:        r.TeamCount,
	}
}

// AssignmentInput is one row of a manual assignment batch
type AssignmentInput struct {
	SignupID   string `json:"signup_id"`
	TeamNumber int    `json:"team_number"`
	TeamColor  string `json:"team_color,omitempty"`
}

// SetAssignmentsRequest is the request body for persisting assignments
type SetAssignmentsRequest struct {
	Assignments []AssignmentInput `json:"assignments"`
}

// Inputs converts the request rows to model inputs
func (r SetAssignmentsRequest) Inputs() []model.AssignmentInput {
	inputs := make([]model.AssignmentInput, len(r.Assignments))
	for i, a := range r.Assignments {
		inputs[i] = model.AssignmentInput{
			SignupID:   model.SignupID(a.SignupID),
			TeamNumber: a.TeamNumber,
			TeamColor:  model.TeamColor(a.TeamColor),
		}
	}
	return inputs
}

// FromInputs builds a request from model inputs
func FromInputs(inputs []model.AssignmentInput) SetAssignmentsRequest {
	rows := make([]AssignmentInput, len(inputs))
	for i, in := range inputs {
		rows[i] = AssignmentInput{
			SignupID:   string(in.SignupID),
			TeamNumber: in.TeamNumber,
			TeamColor:  string(in.TeamColor),
		}
	}
	return SetAssignmentsRequest{Assignments: rows}
}
