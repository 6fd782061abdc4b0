package factory

import (
	"time"

	"github.com/mcoot/teamdraw/internal/dependencies/mocks"
	"github.com/mcoot/teamdraw/internal/metrics"
	"github.com/mcoot/teamdraw/internal/services/auth"
	"github.com/mcoot/teamdraw/internal/services/teams"
	"github.com/mcoot/teamdraw/internal/storage/memory"
	"github.com/mcoot/teamdraw/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Memory     *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, mockClock, mockRandom, metrics.New(), auth.DefaultConfig(), teams.DefaultConfig(), testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Memory:     store,
	}
}
