package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConfig().ConnectTimeout
	}
	opts.DialTimeout = cfg.ConnectTimeout

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	// Use a transaction so the account and its index land together
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, accountKey(account.ID), data, 0)
		pipe.Set(ctx, usernameIndexKey(account.Username), string(account.ID), 0)
		return nil
	})
	return err
}

func (s *Storage) GetAccount(ctx context.Context, id model.UserID) (*model.Account, error) {
	var account model.Account
	if err := s.getJSON(ctx, accountKey(id), &account, model.ErrAccountNotFound); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	id, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}
	return s.GetAccount(ctx, model.UserID(id))
}

// Event operations

func (s *Storage) SaveEvent(ctx context.Context, event *model.Event) error {
	return s.setJSON(ctx, eventKey(event.ID), event)
}

func (s *Storage) GetEvent(ctx context.Context, id model.EventID) (*model.Event, error) {
	var event model.Event
	if err := s.getJSON(ctx, eventKey(id), &event, model.ErrEventNotFound); err != nil {
		return nil, err
	}
	return &event, nil
}

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	return s.setJSON(ctx, playerKey(player.ID), player)
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var player model.Player
	if err := s.getJSON(ctx, playerKey(id), &player, model.ErrPlayerNotFound); err != nil {
		return nil, err
	}
	return &player, nil
}

// Signup operations

func (s *Storage) SaveSignup(ctx context.Context, signup *model.Signup) error {
	data, err := json.Marshal(signup)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, signupKey(signup.ID), data, 0)
		// NX keeps the original position when a signup is updated
		pipe.ZAddNX(ctx, eventSignupsIndexKey(signup.EventID), redis.Z{
			Score:  float64(signup.CreatedAt.UnixNano()),
			Member: string(signup.ID),
		})
		return nil
	})
	return err
}

func (s *Storage) GetSignup(ctx context.Context, id model.SignupID) (*model.Signup, error) {
	var signup model.Signup
	if err := s.getJSON(ctx, signupKey(id), &signup, model.ErrSignupNotFound); err != nil {
		return nil, err
	}
	return &signup, nil
}

func (s *Storage) GetSignups(ctx context.Context, ids []model.SignupID) ([]*model.Signup, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = signupKey(id)
	}
	return mgetJSON[model.Signup](ctx, s.client, keys)
}

func (s *Storage) ListSignupsForEvent(ctx context.Context, eventID model.EventID) ([]*model.Signup, error) {
	members, err := s.client.ZRange(ctx, eventSignupsIndexKey(eventID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = signupKey(model.SignupID(m))
	}
	return mgetJSON[model.Signup](ctx, s.client, keys)
}

// Assignment operations

func (s *Storage) GetAssignmentsForEvent(ctx context.Context, eventID model.EventID) ([]*model.Assignment, error) {
	members, err := s.client.SMembers(ctx, eventAssignmentsIndexKey(eventID)).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = assignmentKey(eventID, model.SignupID(m))
	}
	rows, err := mgetJSON[model.Assignment](ctx, s.client, keys)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(rows, func(a, b *model.Assignment) int {
		if a.TeamNumber != b.TeamNumber {
			return a.TeamNumber - b.TeamNumber
		}
		if a.SignupID < b.SignupID {
			return -1
		}
		if a.SignupID > b.SignupID {
			return 1
		}
		return 0
	})
	return rows, nil
}

func (s *Storage) GetAssignmentsForSignups(ctx context.Context, eventID model.EventID, ids []model.SignupID) ([]*model.Assignment, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = assignmentKey(eventID, id)
	}
	return mgetJSON[model.Assignment](ctx, s.client, keys)
}

// ReplaceAssignments overwrites each signup's assignment key inside MULTI/EXEC.
// Each signup keeps exactly one key, so no reader sees it missing or doubled.
func (s *Storage) ReplaceAssignments(ctx context.Context, eventID model.EventID, assignments []*model.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	payloads := make([][]byte, len(assignments))
	members := make([]any, len(assignments))
	for i, a := range assignments {
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		payloads[i] = data
		members[i] = string(a.SignupID)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, a := range assignments {
			pipe.Set(ctx, assignmentKey(eventID, a.SignupID), payloads[i], 0)
		}
		pipe.SAdd(ctx, eventAssignmentsIndexKey(eventID), members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace assignments: %w", err)
	}
	return nil
}

// Audit operations

func (s *Storage) AppendAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, auditKey(entry.EventID), data).Err()
}

func (s *Storage) ListAuditEntries(ctx context.Context, eventID model.EventID) ([]*model.AuditEntry, error) {
	values, err := s.client.LRange(ctx, auditKey(eventID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]*model.AuditEntry, 0, len(values))
	for _, v := range values {
		var entry model.AuditEntry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// Helpers

func (s *Storage) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, 0).Err()
}

func (s *Storage) getJSON(ctx context.Context, key string, v any, notFound error) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// mgetJSON fetches keys in one round-trip, skipping missing values
func mgetJSON[T any](ctx context.Context, client *redis.Client, keys []string) ([]*T, error) {
	result := make([]*T, 0, len(keys))
	if len(keys) == 0 {
		return result, nil
	}
	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var item T
		if err := json.Unmarshal([]byte(str), &item); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	return result, nil
}
