package response

import (
	"time"

	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/services/auth"
)

// Account represents an account in API responses
type Account struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// AccountFromModel converts a model.Account
func AccountFromModel(a *model.Account) Account {
	return Account{
		ID:          string(a.ID),
		Username:    a.Username,
		DisplayName: a.DisplayName,
		Role:        string(a.Role),
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Account      Account   `json:"account"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Account:      AccountFromModel(&s.Account),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// Event represents an event in API responses
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	OrganizerID string    `json:"organizer_id"`
	StartsAt    time.Time `json:"starts_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventFromModel converts a model.Event
func EventFromModel(e *model.Event) Event {
	return Event{
		ID:          string(e.ID),
		Name:        e.Name,
		OrganizerID: string(e.OrganizerID),
		StartsAt:    e.StartsAt,
		CreatedAt:   e.CreatedAt,
	}
}

// Player represents a player in API responses
type Player struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Position    string  `json:"position"`
	SkillRating float64 `json:"skill_rating"`
}

// PlayerFromModel converts a model.Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		Position:    string(p.Position),
		SkillRating: p.SkillRating,
	}
}

// ToModel converts back to a model.Player
func (p Player) ToModel() model.Player {
	return model.Player{
		ID:          model.PlayerID(p.ID),
		DisplayName: p.DisplayName,
		Position:    model.Position(p.Position),
		SkillRating: p.SkillRating,
	}
}

// Signup represents a signup with its player
type Signup struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Status    string    `json:"status"`
	Player    Player    `json:"player"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SignupFromModel converts a model.SignupDetail
func SignupFromModel(d *model.SignupDetail) Signup {
	return Signup{
		ID:        string(d.Signup.ID),
		EventID:   string(d.Signup.EventID),
		Status:    string(d.Signup.Status),
		Player:    PlayerFromModel(&d.Player),
		CreatedAt: d.Signup.CreatedAt,
		UpdatedAt: d.Signup.UpdatedAt,
	}
}

// SignupStatus is returned after a status change
type SignupStatus struct {
	ID      string `json:"id"`
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

// SignupList wraps the signups of an event
type SignupList struct {
	Signups []Signup `json:"signups"`
}

// TeamPlayer is one confirmed player on a team
type TeamPlayer struct {
	SignupID    string  `json:"signup_id"`
	PlayerID    string  `json:"player_id"`
	PlayerName  string  `json:"player_name"`
	Position    string  `json:"position"`
	SkillRating float64 `json:"skill_rating"`
}

// Team represents a drawn team
type Team struct {
	TeamNumber     int            `json:"team_number"`
	TeamColor      string         `json:"team_color"`
	Players        []TeamPlayer   `json:"players"`
	AverageSkill   float64        `json:"average_skill"`
	PositionCounts map[string]int `json:"position_counts"`
}

// TeamFromModel converts a model.Team
func TeamFromModel(t model.Team) Team {
	players := make([]TeamPlayer, len(t.Players))
	for i, p := range t.Players {
		players[i] = TeamPlayer{
			SignupID:    string(p.SignupID),
			PlayerID:    string(p.PlayerID),
			PlayerName:  p.PlayerName,
			Position:    string(p.Position),
			SkillRating: p.SkillRating,
		}
	}
	counts := make(map[string]int, len(t.Stats.PositionCounts))
	for pos, n := range t.Stats.PositionCounts {
		counts[string(pos)] = n
	}
	return Team{
		TeamNumber:     t.Number,
		TeamColor:      string(t.Color),
		Players:        players,
		AverageSkill:   t.Stats.AverageSkill,
		PositionCounts: counts,
	}
}

// ToModel converts back to a model.Team
func (t Team) ToModel() model.Team {
	players := make([]model.ConfirmedPlayer, len(t.Players))
	for i, p := range t.Players {
		players[i] = model.ConfirmedPlayer{
			SignupID:    model.SignupID(p.SignupID),
			PlayerID:    model.PlayerID(p.PlayerID),
			PlayerName:  p.PlayerName,
			Position:    model.Position(p.Position),
			SkillRating: p.SkillRating,
		}
	}
	counts := make(map[model.Position]int, len(t.PositionCounts))
	for pos, n := range t.PositionCounts {
		counts[model.Position(pos)] = n
	}
	return model.Team{
		Number:  t.TeamNumber,
		Color:   model.TeamColor(t.TeamColor),
		Players: players,
		Stats:   model.TeamStats{AverageSkill: t.AverageSkill, PositionCounts: counts},
	}
}

// DrawResult is the response for a draw. It is never persisted.
type DrawResult struct {
	Success         bool    `json:"success"`
	BalanceAchieved bool    `json:"balance_achieved"`
	Teams           []Team  `json:"teams"`
	Score           float64 `json:"score"`
}

// DrawResultFromModel converts a model.DrawResult
func DrawResultFromModel(r model.DrawResult) DrawResult {
	teams := make([]Team, len(r.Teams))
	for i, t := range r.Teams {
		teams[i] = TeamFromModel(t)
	}
	return DrawResult{
		Success:         r.Success,
		BalanceAchieved: r.BalanceAchieved,
		Teams:           teams,
		Score:           r.Score,
	}
}

// ToModel converts back to a model.DrawResult
func (r DrawResult) ToModel() model.DrawResult {
	teams := make([]model.Team, len(r.Teams))
	for i, t := range r.Teams {
		teams[i] = t.ToModel()
	}
	return model.DrawResult{
		Success:         r.Success,
		BalanceAchieved: r.BalanceAchieved,
		Teams:           teams,
		Score:           r.Score,
	}
}

// Assignment represents a persisted team assignment
type Assignment struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	SignupID   string    `json:"signup_id"`
	TeamNumber int       `json:"team_number"`
	TeamColor  string    `json:"team_color"`
	AssignedBy string    `json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`
	Player     *Player   `json:"player,omitempty"`
}

// AssignmentFromModel converts a model.Assignment
func AssignmentFromModel(a *model.Assignment) Assignment {
	return Assignment{
		ID:         a.ID,
		EventID:    string(a.EventID),
		SignupID:   string(a.SignupID),
		TeamNumber: a.TeamNumber,
		TeamColor:  string(a.TeamColor),
		AssignedBy: string(a.AssignedBy),
		AssignedAt: a.AssignedAt,
	}
}

// AssignmentDetailFromModel converts a model.AssignmentDetail
func AssignmentDetailFromModel(d *model.AssignmentDetail) Assignment {
	out := AssignmentFromModel(&d.Assignment)
	player := PlayerFromModel(&d.Player)
	out.Player = &player
	return out
}

// ToModel converts back to a model.Assignment
func (a Assignment) ToModel() model.Assignment {
	return model.Assignment{
		ID:         a.ID,
		EventID:    model.EventID(a.EventID),
		SignupID:   model.SignupID(a.SignupID),
		TeamNumber: a.TeamNumber,
		TeamColor:  model.TeamColor(a.TeamColor),
		AssignedBy: model.UserID(a.AssignedBy),
		AssignedAt: a.AssignedAt,
	}
}

// ToDetail converts back to a model.AssignmentDetail
func (a Assignment) ToDetail() model.AssignmentDetail {
	detail := model.AssignmentDetail{Assignment: a.ToModel()}
	if a.Player != nil {
		detail.Player = a.Player.ToModel()
	}
	return detail
}

// AssignmentList wraps a set of assignments
type AssignmentList struct {
	Assignments []Assignment `json:"assignments"`
}

// AuditEntry represents one audited team change
type AuditEntry struct {
	ID           string    `json:"id"`
	Action       string    `json:"action"`
	ActorID      string    `json:"actor_id"`
	EventID      string    `json:"event_id"`
	SignupID     string    `json:"signup_id"`
	PreviousTeam *int      `json:"previous_team"`
	NewTeam      int       `json:"new_team"`
	Origin       string    `json:"origin,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditEntryFromModel converts a model.AuditEntry
func AuditEntryFromModel(e *model.AuditEntry) AuditEntry {
	return AuditEntry{
		ID:           e.ID,
		Action:       string(e.Action),
		ActorID:      string(e.ActorID),
		EventID:      string(e.EventID),
		SignupID:     string(e.SignupID),
		PreviousTeam: e.Diff.PreviousTeam,
		NewTeam:      e.Diff.NewTeam,
		Origin:       e.Origin,
		CreatedAt:    e.CreatedAt,
	}
}

// AuditList wraps the audit trail of an event
type AuditList struct {
	Entries []AuditEntry `json:"entries"`
}

// Health is the health check response
type Health struct {
	Status string `json:"status"`
}
