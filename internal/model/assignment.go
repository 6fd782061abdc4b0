package model

import "time"

// Assignment maps one signup to one team. At most one is active per signup;
// a later assignment supersedes the earlier one.
type Assignment struct {
	ID         string
	EventID    EventID
	SignupID   SignupID
	TeamNumber int
	TeamColor  TeamColor
	AssignedBy UserID
	AssignedAt time.Time
}

// AssignmentInput is one requested row of a manual assignment batch
type AssignmentInput struct {
	SignupID   SignupID
	TeamNumber int
	TeamColor  TeamColor
}

// AssignmentDetail joins an assignment with player display data
type AssignmentDetail struct {
	Assignment Assignment
	Player     Player
}

// AuditAction is the kind of audited change
type AuditAction string

const (
	AuditTeamAssigned   AuditAction = "team_assigned"
	AuditTeamReassigned AuditAction = "team_reassigned"
)

// AuditDiff describes a single team change
type AuditDiff struct {
	PreviousTeam *int // nil when the signup had no prior assignment
	NewTeam      int
	Timestamp    time.Time
}

// AuditEntry is an append-only record of who changed which signup's team
type AuditEntry struct {
	ID        string
	Action    AuditAction
	ActorID   UserID
	EventID   EventID
	SignupID  SignupID
	Diff      AuditDiff
	Origin    string // actor's network origin
	CreatedAt time.Time
}
