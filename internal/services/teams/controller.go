// Package teams orchestrates team draws and persists confirmed or manual assignments.
package teams

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/mcoot/teamdraw/internal/dependencies/clock"
	"github.com/mcoot/teamdraw/internal/metrics"
	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/services/access"
	"github.com/mcoot/teamdraw/internal/services/balance"
	"github.com/mcoot/teamdraw/internal/storage"
)

// Limits on draw parameters
const (
	MaxIterations = 10000
	MinTeamCount  = 2
)

// Roster supplies the event and signup data consumed by the team workflow
type Roster interface {
	GetEvent(ctx context.Context, id model.EventID) (*model.Event, error)
	GetSignups(ctx context.Context, ids []model.SignupID) ([]*model.Signup, error)
	ListConfirmedPlayers(ctx context.Context, eventID model.EventID) ([]model.ConfirmedPlayer, error)
	ListSignupDetails(ctx context.Context, eventID model.EventID) ([]model.SignupDetail, error)
}

// Balancer computes candidate partitions
type Balancer interface {
	ComputeBalancedTeams(players []model.ConfirmedPlayer, cfg balance.Config) model.DrawResult
}

// ControllerInterface is the team workflow used by the API layer
type ControllerInterface interface {
	RunDraw(ctx context.Context, eventID model.EventID, params DrawParams, actor *model.Actor) (model.DrawResult, error)
	SetManualAssignments(ctx context.Context, eventID model.EventID, inputs []model.AssignmentInput, actor *model.Actor) ([]*model.Assignment, error)
	ListAssignments(ctx context.Context, eventID model.EventID, actor *model.Actor) ([]model.AssignmentDetail, error)
	ListAuditEntries(ctx context.Context, eventID model.EventID, actor *model.Actor) ([]*model.AuditEntry, error)
}

// Ensure Controller implements ControllerInterface
var _ ControllerInterface = (*Controller)(nil)

// Config holds draw defaults applied when a request omits them
type Config struct {
	DefaultIterations       int
	DefaultBalanceThreshold float64
}

// DefaultConfig returns the standard draw defaults
func DefaultConfig() Config {
	return Config{
		DefaultIterations:       100,
		DefaultBalanceThreshold: 1.0,
	}
}

// DrawParams are the optional knobs of a draw request
type DrawParams struct {
	Iterations       *int
	BalanceThreshold *float64
	TeamCount        *int
}

// Controller runs draws and replaces assignments on behalf of authorized actors
type Controller struct {
	roster      Roster
	assignments storage.AssignmentGateway
	audit       storage.AuditLog
	engine      Balancer
	clock       clock.Clock
	metrics     *metrics.Manager
	logger      *slog.Logger
	cfg         Config

	// locks serializes writes per event and keeps draws off half-applied state
	locks *xsync.Map[model.EventID, *sync.RWMutex]
}

// NewController creates a new team Controller
func NewController(
	roster Roster,
	assignments storage.AssignmentGateway,
	audit storage.AuditLog,
	engine Balancer,
	clock clock.Clock,
	metrics *metrics.Manager,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	if cfg.DefaultIterations < 1 {
		cfg.DefaultIterations = DefaultConfig().DefaultIterations
	}
	return &Controller{
		roster:      roster,
		assignments: assignments,
		audit:       audit,
		engine:      engine,
		clock:       clock,
		metrics:     metrics,
		logger:      logger.With(slog.String("component", "teams")),
		cfg:         cfg,
		locks:       xsync.NewMap[model.EventID, *sync.RWMutex](),
	}
}

func (c *Controller) eventLock(eventID model.EventID) *sync.RWMutex {
	lock, _ := c.locks.LoadOrStore(eventID, &sync.RWMutex{})
	return lock
}

// RunDraw computes a transient partition of the event's confirmed players.
// It never writes. Too few players is reported through result.Success.
func (c *Controller) RunDraw(ctx context.Context, eventID model.EventID, params DrawParams, actor *model.Actor) (model.DrawResult, error) {
	if _, err := access.AuthorizeEventManager(ctx, c.roster, eventID, actor); err != nil {
		return model.DrawResult{}, err
	}

	cfg, err := c.resolveDrawConfig(params)
	if err != nil {
		return model.DrawResult{}, err
	}

	lock := c.eventLock(eventID)
	lock.RLock()
	players, err := c.roster.ListConfirmedPlayers(ctx, eventID)
	lock.RUnlock()
	if err != nil {
		return model.DrawResult{}, fmt.Errorf("load confirmed players: %w", err)
	}

	start := c.clock.Now()
	result := c.engine.ComputeBalancedTeams(players, cfg)
	elapsed := c.clock.Since(start)

	outcome := metrics.OutcomeRejected
	switch {
	case result.Success && result.BalanceAchieved:
		outcome = metrics.OutcomeBalanced
	case result.Success:
		outcome = metrics.OutcomeUnbalanced
	}
	c.metrics.ObserveDraw(outcome, elapsed)

	c.logger.Info("draw completed",
		slog.String("event_id", string(eventID)),
		slog.String("actor_id", string(actor.UserID)),
		slog.Int("players", len(players)),
		slog.Int("teams", len(result.Teams)),
		slog.Bool("success", result.Success),
		slog.Bool("balance_achieved", result.BalanceAchieved),
		slog.Float64("score", result.Score),
		slog.Duration("duration", elapsed),
	)

	return result, nil
}

func (c *Controller) resolveDrawConfig(params DrawParams) (balance.Config, error) {
	cfg := balance.Config{
		Iterations:       c.cfg.DefaultIterations,
		BalanceThreshold: c.cfg.DefaultBalanceThreshold,
	}
	if params.Iterations != nil {
		if *params.Iterations < 1 || *params.Iterations > MaxIterations {
			return cfg, model.NewValidationError(fmt.Sprintf("iterations must be between 1 and %d", MaxIterations))
		}
		cfg.Iterations = *params.Iterations
	}
	if params.BalanceThreshold != nil {
		if *params.BalanceThreshold < 0 {
			return cfg, model.NewValidationError("balance_threshold must not be negative")
		}
		cfg.BalanceThreshold = *params.BalanceThreshold
	}
	if params.TeamCount != nil {
		if *params.TeamCount < MinTeamCount {
			return cfg, model.NewValidationError(fmt.Sprintf("team_count must be at least %d", MinTeamCount))
		}
		cfg.TeamCount = *params.TeamCount
	}
	return cfg, nil
}

// SetManualAssignments replaces the assignments of the referenced signups as
// one batch and records an audit entry per row. The whole batch is rejected
// if any signup is foreign to the event or withdrawn.
func (c *Controller) SetManualAssignments(ctx context.Context, eventID model.EventID, inputs []model.AssignmentInput, actor *model.Actor) ([]*model.Assignment, error) {
	if _, err := access.AuthorizeEventManager(ctx, c.roster, eventID, actor); err != nil {
		return nil, err
	}

	inputs, err := normalizeInputs(inputs)
	if err != nil {
		return nil, err
	}
	ids := make([]model.SignupID, len(inputs))
	for i, in := range inputs {
		ids[i] = in.SignupID
	}

	lock := c.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	if err := c.validateSignups(ctx, eventID, ids); err != nil {
		return nil, err
	}

	existing, err := c.assignments.GetAssignmentsForSignups(ctx, eventID, ids)
	if err != nil {
		return nil, fmt.Errorf("load current assignments: %w", err)
	}
	previous := make(map[model.SignupID]int, len(existing))
	for _, a := range existing {
		previous[a.SignupID] = a.TeamNumber
	}

	now := c.clock.Now()
	rows := make([]*model.Assignment, len(inputs))
	for i, in := range inputs {
		rows[i] = &model.Assignment{
			ID:         uuid.NewString(),
			EventID:    eventID,
			SignupID:   in.SignupID,
			TeamNumber: in.TeamNumber,
			TeamColor:  in.TeamColor,
			AssignedBy: actor.UserID,
			AssignedAt: now,
		}
	}

	if err := c.assignments.ReplaceAssignments(ctx, eventID, rows); err != nil {
		c.logger.Error("failed to replace assignments",
			slog.String("event_id", string(eventID)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("replace assignments: %w", err)
	}

	c.appendAudit(ctx, eventID, rows, previous, actor, now)

	c.logger.Info("assignments replaced",
		slog.String("event_id", string(eventID)),
		slog.String("actor_id", string(actor.UserID)),
		slog.Int("count", len(rows)),
	)

	return rows, nil
}

// normalizeInputs checks the batch shape and fills in palette colours
func normalizeInputs(inputs []model.AssignmentInput) ([]model.AssignmentInput, error) {
	if len(inputs) == 0 {
		return nil, model.NewValidationError("at least one assignment is required")
	}

	var badTeam, badColor, duplicates []model.SignupID
	seen := make(map[model.SignupID]int, len(inputs))
	out := make([]model.AssignmentInput, len(inputs))
	for i, in := range inputs {
		if in.SignupID == "" {
			return nil, model.NewValidationError("signup_id is required")
		}
		seen[in.SignupID]++
		if seen[in.SignupID] == 2 {
			duplicates = append(duplicates, in.SignupID)
		}
		if in.TeamNumber < 1 {
			badTeam = append(badTeam, in.SignupID)
		}
		if in.TeamColor == "" {
			in.TeamColor = model.ColorForTeam(in.TeamNumber)
		} else if !in.TeamColor.IsValid() {
			badColor = append(badColor, in.SignupID)
		}
		out[i] = in
	}

	switch {
	case len(duplicates) > 0:
		return nil, model.NewValidationError("duplicate signup_id in request", duplicates...)
	case len(badTeam) > 0:
		return nil, model.NewValidationError("team_number must be at least 1", badTeam...)
	case len(badColor) > 0:
		return nil, model.NewValidationError("team_color is not in the palette", badColor...)
	}
	return out, nil
}

func (c *Controller) validateSignups(ctx context.Context, eventID model.EventID, ids []model.SignupID) error {
	signups, err := c.roster.GetSignups(ctx, ids)
	if err != nil {
		return fmt.Errorf("load signups: %w", err)
	}
	byID := make(map[model.SignupID]*model.Signup, len(signups))
	for _, s := range signups {
		byID[s.ID] = s
	}

	var offending []model.SignupID
	for _, id := range ids {
		s, ok := byID[id]
		if !ok || s.EventID != eventID || s.Status == model.SignupWithdrawn {
			offending = append(offending, id)
		}
	}
	if len(offending) > 0 {
		return model.NewValidationError("signups do not belong to this event or are withdrawn", offending...)
	}
	return nil
}

// appendAudit is best effort: failures are logged and counted, never returned.
// It runs detached from cancellation so a dropped client does not skip the trail.
func (c *Controller) appendAudit(ctx context.Context, eventID model.EventID, rows []*model.Assignment, previous map[model.SignupID]int, actor *model.Actor, now time.Time) {
	ctx = context.WithoutCancel(ctx)
	counts := make(map[model.AuditAction]int, 2)

	for _, row := range rows {
		entry := &model.AuditEntry{
			ID:       uuid.NewString(),
			Action:   model.AuditTeamAssigned,
			ActorID:  actor.UserID,
			EventID:  eventID,
			SignupID: row.SignupID,
			Diff: model.AuditDiff{
				NewTeam:   row.TeamNumber,
				Timestamp: now,
			},
			Origin:    actor.Origin,
			CreatedAt: now,
		}
		if prev, ok := previous[row.SignupID]; ok {
			entry.Action = model.AuditTeamReassigned
			entry.Diff.PreviousTeam = &prev
		}
		counts[entry.Action]++

		if err := c.audit.AppendAuditEntry(ctx, entry); err != nil {
			c.metrics.IncAuditFailures()
			c.logger.Error("failed to append audit entry",
				slog.String("event_id", string(eventID)),
				slog.String("signup_id", string(row.SignupID)),
				slog.String("error", err.Error()),
			)
		}
	}

	for action, n := range counts {
		c.metrics.AddAssignmentWrites(string(action), n)
	}
}

// ListAssignments returns the event's current assignments joined with player data.
// Assignments of withdrawn signups are left out.
func (c *Controller) ListAssignments(ctx context.Context, eventID model.EventID, actor *model.Actor) ([]model.AssignmentDetail, error) {
	if _, err := access.AuthorizeEventManager(ctx, c.roster, eventID, actor); err != nil {
		return nil, err
	}

	rows, err := c.assignments.GetAssignmentsForEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	details, err := c.roster.ListSignupDetails(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load signups: %w", err)
	}
	players := make(map[model.SignupID]model.Player, len(details))
	for _, d := range details {
		if d.Signup.Status == model.SignupWithdrawn {
			continue
		}
		players[d.Signup.ID] = d.Player
	}

	// Rows of withdrawn signups stay stored but are not part of the line-up
	result := make([]model.AssignmentDetail, 0, len(rows))
	for _, row := range rows {
		player, ok := players[row.SignupID]
		if !ok {
			continue
		}
		result = append(result, model.AssignmentDetail{
			Assignment: *row,
			Player:     player,
		})
	}
	return result, nil
}

// ListAuditEntries returns the event's audit trail oldest first
func (c *Controller) ListAuditEntries(ctx context.Context, eventID model.EventID, actor *model.Actor) ([]*model.AuditEntry, error) {
	if _, err := access.AuthorizeEventManager(ctx, c.roster, eventID, actor); err != nil {
		return nil, err
	}
	return c.audit.ListAuditEntries(ctx, eventID)
}
