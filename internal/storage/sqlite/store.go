// Package sqlite provides a SQLite-backed storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/storage"
	"github.com/mcoot/teamdraw/internal/storage/sqlite/migrations"
)

// Store persists team draw state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Ensure Store implements the interface
var _ storage.Storage = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations.
// Write transactions take the database lock up front (_txlock=immediate)
// so concurrent replaces queue on busy_timeout instead of failing on upgrade.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// Account operations

func (s *Store) SaveAccount(ctx context.Context, account *model.Account) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO accounts (id, username, display_name, role, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   display_name = excluded.display_name,
		   role = excluded.role,
		   password_hash = excluded.password_hash`,
		string(account.ID), account.Username, account.DisplayName, string(account.Role),
		account.PasswordHash, toMillis(account.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("save account %s: %w", account.Username, model.ErrConflict)
		}
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id model.UserID) (*model.Account, error) {
	return s.getAccount(ctx, "id", string(id))
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return s.getAccount(ctx, "username", username)
}

func (s *Store) getAccount(ctx context.Context, column, value string) (*model.Account, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var (
		account   model.Account
		id, role  string
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, username, display_name, role, password_hash, created_at
		 FROM accounts WHERE `+column+` = ?`, value,
	).Scan(&id, &account.Username, &account.DisplayName, &role, &account.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	account.ID = model.UserID(id)
	account.Role = model.Role(role)
	account.CreatedAt = fromMillis(createdAt)
	return &account, nil
}

// Event operations

func (s *Store) SaveEvent(ctx context.Context, event *model.Event) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO events (id, name, organizer_id, starts_at, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   organizer_id = excluded.organizer_id,
		   starts_at = excluded.starts_at`,
		string(event.ID), event.Name, string(event.OrganizerID), toMillis(event.StartsAt), toMillis(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id model.EventID) (*model.Event, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var (
		event                model.Event
		eventID, organizerID string
		startsAt, createdAt  int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, organizer_id, starts_at, created_at FROM events WHERE id = ?`, string(id),
	).Scan(&eventID, &event.Name, &organizerID, &startsAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	event.ID = model.EventID(eventID)
	event.OrganizerID = model.UserID(organizerID)
	event.StartsAt = fromMillis(startsAt)
	event.CreatedAt = fromMillis(createdAt)
	return &event, nil
}

// Player operations

func (s *Store) SavePlayer(ctx context.Context, player *model.Player) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO players (id, display_name, position, skill_rating, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   display_name = excluded.display_name,
		   position = excluded.position,
		   skill_rating = excluded.skill_rating`,
		string(player.ID), player.DisplayName, string(player.Position), player.SkillRating, toMillis(player.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	return nil
}

func (s *Store) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var (
		player             model.Player
		playerID, position string
		createdAt          int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, display_name, position, skill_rating, created_at FROM players WHERE id = ?`, string(id),
	).Scan(&playerID, &player.DisplayName, &position, &player.SkillRating, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	player.ID = model.PlayerID(playerID)
	player.Position = model.Position(position)
	player.CreatedAt = fromMillis(createdAt)
	return &player, nil
}

// Signup operations

const signupColumns = `id, event_id, player_id, status, created_at, updated_at`

func (s *Store) SaveSignup(ctx context.Context, signup *model.Signup) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO signups (`+signupColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status = excluded.status,
		   updated_at = excluded.updated_at`,
		string(signup.ID), string(signup.EventID), string(signup.PlayerID), string(signup.Status),
		toMillis(signup.CreatedAt), toMillis(signup.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save signup: %w", err)
	}
	return nil
}

func (s *Store) GetSignup(ctx context.Context, id model.SignupID) (*model.Signup, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+signupColumns+` FROM signups WHERE id = ?`, string(id))
	signup, err := scanSignup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSignupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get signup: %w", err)
	}
	return signup, nil
}

func (s *Store) GetSignups(ctx context.Context, ids []model.SignupID) ([]*model.Signup, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Signup{}, nil
	}
	placeholders, args := inClause(ids)
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+signupColumns+` FROM signups WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("get signups: %w", err)
	}
	defer rows.Close()

	byID := make(map[model.SignupID]*model.Signup, len(ids))
	for rows.Next() {
		signup, err := scanSignup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signup: %w", err)
		}
		byID[signup.ID] = signup
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signups: %w", err)
	}

	result := make([]*model.Signup, 0, len(byID))
	for _, id := range ids {
		if signup, ok := byID[id]; ok {
			result = append(result, signup)
		}
	}
	return result, nil
}

func (s *Store) ListSignupsForEvent(ctx context.Context, eventID model.EventID) ([]*model.Signup, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+signupColumns+` FROM signups WHERE event_id = ? ORDER BY created_at, rowid`, string(eventID))
	if err != nil {
		return nil, fmt.Errorf("list signups: %w", err)
	}
	defer rows.Close()

	result := []*model.Signup{}
	for rows.Next() {
		signup, err := scanSignup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signup: %w", err)
		}
		result = append(result, signup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signups: %w", err)
	}
	return result, nil
}

// Assignment operations

const assignmentColumns = `id, event_id, signup_id, team_number, team_color, assigned_by, assigned_at`

func (s *Store) GetAssignmentsForEvent(ctx context.Context, eventID model.EventID) ([]*model.Assignment, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+assignmentColumns+` FROM team_assignments
		 WHERE event_id = ? ORDER BY team_number, signup_id`, string(eventID))
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return collectAssignments(rows)
}

func (s *Store) GetAssignmentsForSignups(ctx context.Context, eventID model.EventID, ids []model.SignupID) ([]*model.Assignment, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Assignment{}, nil
	}
	placeholders, args := inClause(ids)
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+assignmentColumns+` FROM team_assignments
		 WHERE event_id = ? AND signup_id IN (`+placeholders+`)`,
		append([]any{string(eventID)}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("get assignments: %w", err)
	}
	found, err := collectAssignments(rows)
	if err != nil {
		return nil, err
	}

	bySignup := make(map[model.SignupID]*model.Assignment, len(found))
	for _, a := range found {
		bySignup[a.SignupID] = a
	}
	result := make([]*model.Assignment, 0, len(found))
	for _, id := range ids {
		if a, ok := bySignup[id]; ok {
			result = append(result, a)
		}
	}
	return result, nil
}

// ReplaceAssignments deletes the referenced signups' rows and inserts the
// new ones in one transaction. Any failure rolls back both halves.
func (s *Store) ReplaceAssignments(ctx context.Context, eventID model.EventID, assignments []*model.Assignment) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if len(assignments) == 0 {
		return nil
	}

	ids := make([]model.SignupID, len(assignments))
	for i, a := range assignments {
		ids[i] = a.SignupID
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders, args := inClause(ids)
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM team_assignments WHERE signup_id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO team_assignments (`+assignmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range assignments {
		if _, err := stmt.ExecContext(ctx,
			a.ID, string(eventID), string(a.SignupID), a.TeamNumber, string(a.TeamColor),
			string(a.AssignedBy), toMillis(a.AssignedAt),
		); err != nil {
			return fmt.Errorf("insert assignment %s: %w", a.SignupID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Audit operations

func (s *Store) AppendAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	var previous sql.NullInt64
	if entry.Diff.PreviousTeam != nil {
		previous = sql.NullInt64{Int64: int64(*entry.Diff.PreviousTeam), Valid: true}
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO team_audit_log (
		   id, action, actor_id, event_id, signup_id, previous_team, new_team, changed_at, origin, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.Action), string(entry.ActorID), string(entry.EventID), string(entry.SignupID),
		previous, entry.Diff.NewTeam, toMillis(entry.Diff.Timestamp), entry.Origin, toMillis(entry.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("append audit entry %s: %w", entry.ID, model.ErrConflict)
		}
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListAuditEntries(ctx context.Context, eventID model.EventID) ([]*model.AuditEntry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, action, actor_id, event_id, signup_id, previous_team, new_team, changed_at, origin, created_at
		 FROM team_audit_log WHERE event_id = ? ORDER BY seq`, string(eventID))
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	result := []*model.AuditEntry{}
	for rows.Next() {
		var (
			entry                           model.AuditEntry
			action, actorID, evID, signupID string
			previous                        sql.NullInt64
			changedAt, createdAt            int64
		)
		if err := rows.Scan(&entry.ID, &action, &actorID, &evID, &signupID, &previous,
			&entry.Diff.NewTeam, &changedAt, &entry.Origin, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Action = model.AuditAction(action)
		entry.ActorID = model.UserID(actorID)
		entry.EventID = model.EventID(evID)
		entry.SignupID = model.SignupID(signupID)
		if previous.Valid {
			prev := int(previous.Int64)
			entry.Diff.PreviousTeam = &prev
		}
		entry.Diff.Timestamp = fromMillis(changedAt)
		entry.CreatedAt = fromMillis(createdAt)
		result = append(result, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return result, nil
}

// Helpers

type scanner interface {
	Scan(dest ...any) error
}

func scanSignup(row scanner) (*model.Signup, error) {
	var (
		signup                model.Signup
		id, eventID, playerID string
		status                string
		createdAt, updatedAt  int64
	)
	if err := row.Scan(&id, &eventID, &playerID, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	signup.ID = model.SignupID(id)
	signup.EventID = model.EventID(eventID)
	signup.PlayerID = model.PlayerID(playerID)
	signup.Status = model.SignupStatus(status)
	signup.CreatedAt = fromMillis(createdAt)
	signup.UpdatedAt = fromMillis(updatedAt)
	return &signup, nil
}

func collectAssignments(rows *sql.Rows) ([]*model.Assignment, error) {
	defer rows.Close()
	result := []*model.Assignment{}
	for rows.Next() {
		var (
			a                                    model.Assignment
			eventID, signupID, color, assignedBy string
			assignedAt                           int64
		)
		if err := rows.Scan(&a.ID, &eventID, &signupID, &a.TeamNumber, &color, &assignedBy, &assignedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		a.EventID = model.EventID(eventID)
		a.SignupID = model.SignupID(signupID)
		a.TeamColor = model.TeamColor(color)
		a.AssignedBy = model.UserID(assignedBy)
		a.AssignedAt = fromMillis(assignedAt)
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return result, nil
}

func inClause(ids []model.SignupID) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = string(id)
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	default:
		return false
	}
}
