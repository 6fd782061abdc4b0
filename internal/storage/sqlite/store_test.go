package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/storage/storagetest"
)

type StoreSuite struct {
	storagetest.Suite
	store *Store
	path  string
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "teamdraw.db")
	store, err := Open(s.path)
	s.Require().NoError(err)
	s.store = store
	s.Storage = store
	s.Ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	_ = s.store.Close()
}

func (s *StoreSuite) TestDuplicateUsernameIsConflict() {
	s.Require().NoError(s.store.SaveAccount(s.Ctx, &model.Account{ID: "user-1", Username: "alice", Role: model.RolePlayer}))

	err := s.store.SaveAccount(s.Ctx, &model.Account{ID: "user-2", Username: "alice", Role: model.RolePlayer})
	s.ErrorIs(err, model.ErrConflict)
}

func (s *StoreSuite) TestFailedInsertRollsBackDelete() {
	s.Require().NoError(s.store.ReplaceAssignments(s.Ctx, "event-1", []*model.Assignment{
		{ID: "a-1", EventID: "event-1", SignupID: "signup-1", TeamNumber: 1, TeamColor: model.ColorRed},
		{ID: "a-2", EventID: "event-1", SignupID: "signup-2", TeamNumber: 2, TeamColor: model.ColorBlue},
	}))

	// team_number 0 violates the CHECK constraint on the second insert
	err := s.store.ReplaceAssignments(s.Ctx, "event-1", []*model.Assignment{
		{ID: "a-3", EventID: "event-1", SignupID: "signup-1", TeamNumber: 2, TeamColor: model.ColorBlue},
		{ID: "a-4", EventID: "event-1", SignupID: "signup-2", TeamNumber: 0, TeamColor: model.ColorRed},
	})
	s.Require().Error(err)

	rows, err := s.store.GetAssignmentsForEvent(s.Ctx, "event-1")
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal(model.SignupID("signup-1"), rows[0].SignupID)
	s.Equal(1, rows[0].TeamNumber)
	s.Equal(model.SignupID("signup-2"), rows[1].SignupID)
	s.Equal(2, rows[1].TeamNumber)
}

func (s *StoreSuite) TestReopenKeepsDataAndSkipsAppliedMigrations() {
	s.Require().NoError(s.store.SaveEvent(s.Ctx, &model.Event{ID: "event-1", Name: "Kickabout", CreatedAt: time.Now()}))
	s.Require().NoError(s.store.Close())

	reopened, err := Open(s.path)
	s.Require().NoError(err)
	s.store = reopened

	event, err := reopened.GetEvent(s.Ctx, "event-1")
	s.Require().NoError(err)
	s.Equal("Kickabout", event.Name)
}

func (s *StoreSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(s.Ctx)
	cancel()

	_, err := s.store.GetEvent(ctx, "event-1")
	s.ErrorIs(err, context.Canceled)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestNilStoreIsNotConfigured(t *testing.T) {
	var store *Store
	_, err := store.GetEvent(context.Background(), "event-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
	assert.NoError(t, store.Close())
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id TEXT);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (id TEXT);\n", extractUpMigration(content))
	assert.Equal(t, "SELECT 1;", extractUpMigration("SELECT 1;"))
}
