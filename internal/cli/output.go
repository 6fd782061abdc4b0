package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mcoot/teamdraw/internal/api/response"
	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/teamview"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	if snap, ok := data.(teamview.Snapshot); ok {
		data = boardJSON(snap)
	}
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.AuthResponse:
		o.printAccount(v.Account)
		fmt.Fprintf(o.w, "Token: %s\n", v.SessionToken)
	case response.Account:
		o.printAccount(v)
	case response.Event:
		fmt.Fprintf(o.w, "Event: %s (%s)\n", v.Name, v.ID)
		fmt.Fprintf(o.w, "Organizer: %s\n", v.OrganizerID)
		fmt.Fprintf(o.w, "Starts: %s\n", v.StartsAt.Format("2006-01-02 15:04"))
	case response.Signup:
		o.printSignup(v)
	case []response.Signup:
		fmt.Fprintf(o.w, "Signups (%d):\n", len(v))
		for _, s := range v {
			o.printSignup(s)
		}
	case response.SignupStatus:
		fmt.Fprintf(o.w, "Signup %s is now %s\n", v.ID, v.Status)
	case response.DrawResult:
		o.printDraw(v)
	case []response.Assignment:
		o.printAssignments(v)
	case []response.AuditEntry:
		o.printAudit(v)
	case teamview.Snapshot:
		o.printBoard(v)
	case response.Health:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printAccount(a response.Account) {
	fmt.Fprintf(o.w, "Account: %s (%s)\n", a.Username, a.ID)
	fmt.Fprintf(o.w, "Role: %s\n", a.Role)
}

func (o *Output) printSignup(s response.Signup) {
	fmt.Fprintf(o.w, "  - %s [%s] %s skill %.1f (%s)\n",
		s.Player.DisplayName, s.Status, s.Player.Position, s.Player.SkillRating, s.ID)
}

func (o *Output) printDraw(d response.DrawResult) {
	if !d.Success {
		fmt.Fprintln(o.w, "Draw failed: not enough confirmed players for the requested teams")
		return
	}
	teams := make([]model.Team, len(d.Teams))
	for i, t := range d.Teams {
		teams[i] = t.ToModel()
	}
	o.printTeams(teams)
	fmt.Fprintf(o.w, "Balanced: %s (score %.3f)\n", yesNo(d.BalanceAchieved), d.Score)
}

func (o *Output) printAssignments(rows []response.Assignment) {
	if len(rows) == 0 {
		fmt.Fprintln(o.w, "No teams assigned")
		return
	}
	details := make([]model.AssignmentDetail, len(rows))
	for i, r := range rows {
		details[i] = r.ToDetail()
	}
	o.printTeams(teamview.TeamsFromAssignments(details))
}

func (o *Output) printAudit(entries []response.AuditEntry) {
	fmt.Fprintf(o.w, "Audit entries (%d):\n", len(entries))
	for _, e := range entries {
		prev := "-"
		if e.PreviousTeam != nil {
			prev = fmt.Sprintf("%d", *e.PreviousTeam)
		}
		fmt.Fprintf(o.w, "  %s %s signup %s: %s -> %d by %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.SignupID, prev, e.NewTeam, e.ActorID)
	}
}

func (o *Output) printBoard(s teamview.Snapshot) {
	if len(s.Teams) == 0 {
		fmt.Fprintln(o.w, "No teams on the board")
	} else {
		o.printTeams(s.Teams)
	}
	var flags []string
	if s.HasUnsavedChanges {
		flags = append(flags, "unsaved")
	}
	if s.IsConfirmed {
		flags = append(flags, "confirmed")
	}
	if s.IsSaving {
		flags = append(flags, "saving")
	}
	fmt.Fprintf(o.w, "Balanced: %s  State: %s %s\n", yesNo(s.BalanceAchieved), s.State, strings.Join(flags, " "))
	if s.LastError != nil {
		fmt.Fprintf(o.w, "Last error: %s\n", s.LastError)
	}
}

func (o *Output) printTeams(teams []model.Team) {
	for _, t := range teams {
		fmt.Fprintf(o.w, "Team %d (%s) avg %.2f %s\n", t.Number, t.Color, t.Stats.AverageSkill, positionSummary(t.Stats.PositionCounts))
		for _, p := range t.Players {
			fmt.Fprintf(o.w, "  - %s %s %.1f (%s)\n", p.PlayerName, p.Position, p.SkillRating, p.SignupID)
		}
	}
}

func positionSummary(counts map[model.Position]int) string {
	if len(counts) == 0 {
		return ""
	}
	parts := make([]string, 0, len(counts))
	for pos, n := range counts {
		parts = append(parts, fmt.Sprintf("%s=%d", pos, n))
	}
	sort.Strings(parts)
	return "[" + strings.Join(parts, " ") + "]"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// boardView is the JSON shape of a board snapshot
type boardView struct {
	State             string          `json:"state"`
	Teams             []response.Team `json:"teams"`
	BalanceAchieved   bool            `json:"balance_achieved"`
	HasUnsavedChanges bool            `json:"has_unsaved_changes"`
	IsConfirmed       bool            `json:"is_confirmed"`
	IsSaving          bool            `json:"is_saving"`
	LastError         string          `json:"last_error,omitempty"`
}

func boardJSON(s teamview.Snapshot) boardView {
	view := boardView{
		State:             s.State.String(),
		Teams:             make([]response.Team, len(s.Teams)),
		BalanceAchieved:   s.BalanceAchieved,
		HasUnsavedChanges: s.HasUnsavedChanges,
		IsConfirmed:       s.IsConfirmed,
		IsSaving:          s.IsSaving,
	}
	for i, t := range s.Teams {
		view.Teams[i] = response.TeamFromModel(t)
	}
	if s.LastError != nil {
		view.LastError = s.LastError.Error()
	}
	return view
}
