package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/teamdraw/internal/dependencies/clock"
	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidRole        = errors.New("role may not self-register")
)

// MinPasswordLength is enforced on registration
const MinPasswordLength = 8

// Session represents an authenticated session
type Session struct {
	Token     string
	Account   model.Account
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Actor returns the identity the session acts as
func (s *Session) Actor() model.Actor {
	return model.Actor{UserID: s.Account.ID, Role: s.Account.Role}
}

// Service handles authentication and session management
type Service struct {
	storage storage.AccountStore
	clock   clock.Clock
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	sessionDuration time.Duration
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
	}
}

// New creates a new AuthService
func New(storage storage.AccountStore, clock clock.Clock, logger *slog.Logger, cfg Config) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		storage:         storage,
		clock:           clock,
		logger:          logger.With(slog.String("component", "auth")),
		sessions:        make(map[string]*Session),
		sessionDuration: cfg.SessionDuration,
	}
}

// Register creates an organizer or player account and a session for it
func (s *Service) Register(ctx context.Context, username, password, displayName string, role model.Role) (*Session, error) {
	if role != model.RoleOrganizer && role != model.RolePlayer {
		return nil, ErrInvalidRole
	}
	account, err := s.createAccount(ctx, username, password, displayName, role)
	if err != nil {
		return nil, err
	}
	return s.createSession(account), nil
}

// EnsureAdmin creates the admin account if the username is free. It is used
// to seed the configured administrator at startup.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.createAccount(ctx, username, password, "Administrator", model.RoleAdmin)
	if errors.Is(err, ErrUsernameExists) {
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Info("admin account created", slog.String("username", username))
	return nil
}

func (s *Service) createAccount(ctx context.Context, username, password, displayName string, role model.Role) (*model.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, model.NewValidationError("username is required")
	}
	if len(password) < MinPasswordLength {
		return nil, model.NewValidationError("password is too short")
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = username
	}

	// Check if username exists
	_, err := s.storage.GetAccountByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrAccountNotFound) {
		return nil, err
	}

	// Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		ID:           model.UserID(uuid.NewString()),
		Username:     username,
		DisplayName:  strings.TrimSpace(displayName),
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.storage.SaveAccount(ctx, account); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, ErrUsernameExists
		}
		return nil, err
	}
	return account, nil
}

// Login authenticates an account and creates a session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	account, err := s.storage.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.createSession(account), nil
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrInvalidSession
	}

	return session, nil
}

// InvalidateSession removes a session
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// createSession creates a new session for an account
func (s *Service) createSession(account *model.Account) *Session {
	token := s.generateToken("sess_")
	now := s.clock.Now()

	session := &Session{
		Token:     token,
		Account:   *account,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}
	session.Account.PasswordHash = ""

	s.mu.Lock()
	s.sessions[token] = session
	s.mu.Unlock()

	return session
}

// generateToken generates a random token with a prefix
func (s *Service) generateToken(prefix string) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
}
