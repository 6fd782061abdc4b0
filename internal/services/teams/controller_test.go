package teams

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/teamdraw/internal/dependencies/mocks"
	"github.com/mcoot/teamdraw/internal/dependencies/random"
	"github.com/mcoot/teamdraw/internal/metrics"
	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/services/balance"
	"github.com/mcoot/teamdraw/internal/services/roster"
	"github.com/mcoot/teamdraw/internal/storage"
	"github.com/mcoot/teamdraw/internal/storage/memory"
	"github.com/mcoot/teamdraw/internal/testutil"
)

var errInjected = errors.New("injected failure")

// failingAudit rejects every append
type failingAudit struct {
	storage.AuditLog
	attempts int
}

func (f *failingAudit) AppendAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	f.attempts++
	return errInjected
}

// failingGateway rejects every replace
type failingGateway struct {
	storage.AssignmentGateway
}

func (f *failingGateway) ReplaceAssignments(ctx context.Context, eventID model.EventID, assignments []*model.Assignment) error {
	return errInjected
}

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	roster     *roster.Service
	clock      *mocks.MockClock
	metrics    *metrics.Manager
	controller *Controller
	logs       *testutil.LogBuffer
	ctx        context.Context
	logger     *slog.Logger

	admin     *model.Actor
	organizer *model.Actor
	event     *model.Event
	signups   []model.SignupID
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC))
	s.metrics = metrics.New()
	logger, logs := testutil.CaptureLogger()
	s.logs = logs
	s.logger = logger
	s.roster = roster.New(s.storage, s.clock, testutil.NopLogger())
	s.controller = s.newController(s.storage, s.storage)
	s.ctx = context.Background()

	s.admin = &model.Actor{UserID: "admin-1", Role: model.RoleAdmin, Origin: "127.0.0.1"}
	s.organizer = &model.Actor{UserID: "org-1", Role: model.RoleOrganizer, Origin: "10.1.1.1"}

	event, err := s.roster.CreateEvent(s.ctx, s.organizer, "Five-a-side", s.clock.Now())
	s.Require().NoError(err)
	s.event = event
	s.signups = s.seedConfirmed(event.ID, 9, 8, 7, 6, 5, 4, 3, 2)
}

func (s *ControllerSuite) newController(gateway storage.AssignmentGateway, audit storage.AuditLog) *Controller {
	engine := balance.New(random.NewSeeded(1))
	return NewController(s.roster, gateway, audit, engine, s.clock, s.metrics, s.logger, DefaultConfig())
}

func (s *ControllerSuite) seedConfirmed(eventID model.EventID, skills ...float64) []model.SignupID {
	ids := make([]model.SignupID, len(skills))
	for i, skill := range skills {
		detail, err := s.roster.AddSignup(s.ctx, s.organizer, eventID, roster.NewPlayer{
			DisplayName: fmt.Sprintf("Player %d", i+1),
			Position:    model.PositionMidfielder,
			SkillRating: skill,
		})
		s.Require().NoError(err)
		_, err = s.roster.SetSignupStatus(s.ctx, s.admin, eventID, detail.Signup.ID, model.SignupConfirmed)
		s.Require().NoError(err)
		ids[i] = detail.Signup.ID
	}
	return ids
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

type row struct {
	signup model.SignupID
	team   int
	color  model.TeamColor
}

func (s *ControllerSuite) storedRows() []row {
	stored, err := s.storage.GetAssignmentsForEvent(s.ctx, s.event.ID)
	s.Require().NoError(err)
	rows := make([]row, len(stored))
	for i, a := range stored {
		rows[i] = row{a.SignupID, a.TeamNumber, a.TeamColor}
	}
	return rows
}

// RunDraw tests

func (s *ControllerSuite) TestRunDrawScenario() {
	result, err := s.controller.RunDraw(s.ctx, s.event.ID, DrawParams{
		Iterations: intPtr(200), BalanceThreshold: floatPtr(1.0), TeamCount: intPtr(2),
	}, s.organizer)
	s.Require().NoError(err)

	s.True(result.Success)
	s.True(result.BalanceAchieved)
	s.Require().Len(result.Teams, 2)
	for _, team := range result.Teams {
		total := 0.0
		for _, p := range team.Players {
			total += p.SkillRating
		}
		s.InDelta(22.0, total, 1.0)
	}
}

func (s *ControllerSuite) TestRunDrawNeverPersists() {
	_, err := s.controller.RunDraw(s.ctx, s.event.ID, DrawParams{}, s.admin)
	s.Require().NoError(err)

	s.Empty(s.storedRows())
	entries, err := s.storage.ListAuditEntries(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *ControllerSuite) TestRunDrawTooFewPlayersIsData() {
	small, err := s.roster.CreateEvent(s.ctx, s.organizer, "Tiny", s.clock.Now())
	s.Require().NoError(err)
	s.seedConfirmed(small.ID, 5, 6, 7)

	result, err := s.controller.RunDraw(s.ctx, small.ID, DrawParams{}, s.organizer)
	s.Require().NoError(err)
	s.False(result.Success)
	s.Empty(result.Teams)
}

func (s *ControllerSuite) TestRunDrawIgnoresUnconfirmed() {
	_, err := s.roster.SetSignupStatus(s.ctx, s.admin, s.event.ID, s.signups[0], model.SignupWithdrawn)
	s.Require().NoError(err)
	_, err = s.roster.SetSignupStatus(s.ctx, s.admin, s.event.ID, s.signups[1], model.SignupPending)
	s.Require().NoError(err)

	result, err := s.controller.RunDraw(s.ctx, s.event.ID, DrawParams{TeamCount: intPtr(2)}, s.admin)
	s.Require().NoError(err)

	count := 0
	for _, team := range result.Teams {
		for _, p := range team.Players {
			s.NotEqual(s.signups[0], p.SignupID)
			s.NotEqual(s.signups[1], p.SignupID)
			count++
		}
	}
	s.Equal(6, count)
}

func (s *ControllerSuite) TestRunDrawAuthorization() {
	_, err := s.controller.RunDraw(s.ctx, s.event.ID, DrawParams{}, &model.Actor{UserID: "org-2", Role: model.RoleOrganizer})
	s.ErrorIs(err, model.ErrForbidden)

	_, err = s.controller.RunDraw(s.ctx, s.event.ID, DrawParams{}, &model.Actor{UserID: "p-1", Role: model.RolePlayer})
	s.ErrorIs(err, model.ErrForbidden)

	_, err = s.controller.RunDraw(s.ctx, "missing", DrawParams{}, s.admin)
	s.ErrorIs(err, model.ErrEventNotFound)
}

func (s *ControllerSuite) TestRunDrawParameterValidation() {
	cases := []DrawParams{
		{Iterations: intPtr(0)},
		{Iterations: intPtr(MaxIterations + 1)},
		{BalanceThreshold: floatPtr(-0.5)},
		{TeamCount: intPtr(1)},
	}
	for _, params := range cases {
		_, err := s.controller.RunDraw(s.ctx, s.event.ID, params, s.admin)
		s.ErrorIs(err, model.ErrValidation)
	}
}

// SetManualAssignments tests

func (s *ControllerSuite) TestSetManualAssignmentsPersistsAndAudits() {
	inputs := []model.AssignmentInput{
		{SignupID: s.signups[0], TeamNumber: 1, TeamColor: model.ColorRed},
		{SignupID: s.signups[1], TeamNumber: 2},
	}

	rows, err := s.controller.SetManualAssignments(s.ctx, s.event.ID, inputs, s.organizer)
	s.Require().NoError(err)

	s.Require().Len(rows, 2)
	s.Equal(model.ColorBlue, rows[1].TeamColor)
	s.Equal(model.UserID("org-1"), rows[0].AssignedBy)
	s.Equal(s.clock.Now(), rows[0].AssignedAt)

	entries, err := s.storage.ListAuditEntries(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	for _, e := range entries {
		s.Equal(model.AuditTeamAssigned, e.Action)
		s.Nil(e.Diff.PreviousTeam)
		s.Equal("10.1.1.1", e.Origin)
		s.Equal(model.UserID("org-1"), e.ActorID)
	}
}

func (s *ControllerSuite) TestCrossEventSignupRejectsWholeBatch() {
	other, err := s.roster.CreateEvent(s.ctx, s.organizer, "Other", s.clock.Now())
	s.Require().NoError(err)
	foreign := s.seedConfirmed(other.ID, 5)[0]

	_, err = s.controller.SetManualAssignments(s.ctx, s.event.ID, []model.AssignmentInput{
		{SignupID: s.signups[0], TeamNumber: 1},
		{SignupID: foreign, TeamNumber: 2},
	}, s.organizer)

	s.Require().ErrorIs(err, model.ErrValidation)
	var verr *model.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal([]model.SignupID{foreign}, verr.SignupIDs)
	s.Contains(err.Error(), string(foreign))

	s.Empty(s.storedRows())
	entries, err := s.storage.ListAuditEntries(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *ControllerSuite) TestWithdrawnAndUnknownSignupsRejected() {
	_, err := s.roster.SetSignupStatus(s.ctx, s.admin, s.event.ID, s.signups[2], model.SignupWithdrawn)
	s.Require().NoError(err)

	_, err = s.controller.SetManualAssignments(s.ctx, s.event.ID, []model.AssignmentInput{
		{SignupID: "nope", TeamNumber: 1},
		{SignupID: s.signups[0], TeamNumber: 1},
		{SignupID: s.signups[2], TeamNumber: 2},
	}, s.admin)

	var verr *model.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal([]model.SignupID{"nope", s.signups[2]}, verr.SignupIDs)
	s.Empty(s.storedRows())
}

func (s *ControllerSuite) TestPendingSignupMayBeAssigned() {
	_, err := s.roster.SetSignupStatus(s.ctx, s.admin, s.event.ID, s.signups[3], model.SignupPending)
	s.Require().NoError(err)

	_, err = s.controller.SetManualAssignments(s.ctx, s.event.ID, []model.AssignmentInput{
		{SignupID: s.signups[3], TeamNumber: 1},
	}, s.admin)
	s.NoError(err)
}

func (s *ControllerSuite) TestBatchShapeValidation() {
	cases := map[string][]model.AssignmentInput{
		"empty":     {},
		"duplicate": {{SignupID: s.signups[0], TeamNumber: 1}, {SignupID: s.signups[0], TeamNumber: 2}},
		"team zero": {{SignupID: s.signups[0], TeamNumber: 0}},
		"bad color": {{SignupID: s.signups[0], TeamNumber: 1, TeamColor: "magenta"}},
		"no id":     {{TeamNumber: 1}},
	}
	for name, inputs := range cases {
		_, err := s.controller.SetManualAssignments(s.ctx, s.event.ID, inputs, s.admin)
		s.ErrorIs(err, model.ErrValidation, name)
	}

	_, err := s.controller.SetManualAssignments(s.ctx, s.event.ID, cases["duplicate"], s.admin)
	var verr *model.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal([]model.SignupID{s.signups[0]}, verr.SignupIDs)
}

func (s *ControllerSuite) TestSetManualAssignmentsAuthorizationBeforeValidation() {
	_, err := s.controller.SetManualAssignments(s.ctx, s.event.ID, nil, &model.Actor{UserID: "org-2", Role: model.RoleOrganizer})
	s.ErrorIs(err, model.ErrForbidden)

	_, err = s.controller.SetManualAssignments(s.ctx, "missing", nil, s.admin)
	s.ErrorIs(err, model.ErrEventNotFound)
}

func (s *ControllerSuite) TestIdenticalBatchTwiceIsIdempotentButAuditedTwice() {
	inputs := []model.AssignmentInput{{SignupID: s.signups[0], TeamNumber: 2, TeamColor: model.ColorBlue}}

	_, err := s.controller.SetManualAssignments(s.ctx, s.event.ID, inputs, s.organizer)
	s.Require().NoError(err)
	first := s.storedRows()

	s.clock.Advance(time.Minute)
	_, err = s.controller.SetManualAssignments(s.ctx, s.event.ID, inputs, s.organizer)
	s.Require().NoError(err)

	s.Equal(first, s.storedRows())

	entries, err := s.storage.ListAuditEntries(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(model.AuditTeamAssigned, entries[0].Action)
	s.Nil(entries[0].Diff.PreviousTeam)
	s.Equal(model.AuditTeamReassigned, entries[1].Action)
	s.Require().NotNil(entries[1].Diff.PreviousTeam)
	s.Equal(2, *entries[1].Diff.PreviousTeam)
	s.Equal(2, entries[1].Diff.NewTeam)
}

func (s *ControllerSuite) TestReassignmentRecordsPreviousTeam() {
	_, err := s.controller.SetManualAssignments(s.ctx, s.event.ID, []model.AssignmentInput{
		{SignupID: s.signups[0], TeamNumber: 1},
		{SignupID: s.signups[1], TeamNumber: 1},
	}, s.admin)
	s.Require().NoError(err)

	_, err = s.controller.SetManualAssignments(s.ctx, s.event.ID, []model.AssignmentInput{
		{SignupID: s.signups[1], TeamNumber: 3},
		{SignupID: s.signups[2], TeamNumber: 3},
	}, s.admin)
	s.Require().NoError(err)

	s.ElementsMatch([]row{
		{s.signups[0], 1, model.ColorRed},
		{s.signups[1], 3, model.ColorGreen},
		{s.signups[2], 3, model.ColorGreen},
	}, s.storedRows())

	entries, err := s.storage.ListAuditEntries(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 4)
	s.Equal(model.AuditTeamReassigned, entries[2].Action)
	s.Equal(1, *entries[2].Diff.PreviousTeam)
	s.Equal(model.AuditTeamAssigned, entries[3].Action)
}

func (s *ControllerSuite) TestAuditFailureDoesNotFailWrite() {
	audit := &failingAudit{AuditLog: s.storage}
	controller := s.newController(s.storage, audit)

	rows, err := controller.SetManualAssignments(s.ctx, s.event.ID, []model.AssignmentInput{
		{SignupID: s.signups[0], TeamNumber: 1},
		{SignupID: s.signups[1], TeamNumber: 2},
	}, s.admin)

	s.Require().NoError(err)
	s.Len(rows, 2)
	s.Equal(2, audit.attempts)
	s.Len(s.storedRows(), 2)
	s.Contains(s.logs.String(), "failed to append audit entry")
	s.Contains(s.logs.String(), string(s.signups[1]))
}

func (s *ControllerSuite) TestPersistenceFailureIsPropagated() {
	controller := s.newController(&failingGateway{AssignmentGateway: s.storage}, s.storage)

	_, err := controller.SetManualAssignments(s.ctx, s.event.ID, []model.AssignmentInput{
		{SignupID: s.signups[0], TeamNumber: 1},
	}, s.admin)

	s.ErrorIs(err, errInjected)
	entries, listErr := s.storage.ListAuditEntries(s.ctx, s.event.ID)
	s.Require().NoError(listErr)
	s.Empty(entries)
}

func (s *ControllerSuite) TestConcurrentWritesForOneEvent() {
	var wg sync.WaitGroup
	for team := 1; team <= 5; team++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inputs := make([]model.AssignmentInput, len(s.signups))
			for i, id := range s.signups {
				inputs[i] = model.AssignmentInput{SignupID: id, TeamNumber: team}
			}
			_, err := s.controller.SetManualAssignments(s.ctx, s.event.ID, inputs, s.admin)
			s.NoError(err)
		}()
	}
	wg.Wait()

	rows := s.storedRows()
	s.Len(rows, len(s.signups))
	for _, r := range rows {
		s.Equal(rows[0].team, r.team)
	}

	entries, err := s.storage.ListAuditEntries(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Len(entries, 5*len(s.signups))
	assigned := 0
	for _, e := range entries {
		if e.Action == model.AuditTeamAssigned {
			assigned++
		}
	}
	s.Equal(len(s.signups), assigned)
}

// Read path tests

func (s *ControllerSuite) TestListAssignmentsJoinsPlayers() {
	_, err := s.controller.SetManualAssignments(s.ctx, s.event.ID, []model.AssignmentInput{
		{SignupID: s.signups[0], TeamNumber: 2},
		{SignupID: s.signups[1], TeamNumber: 1},
	}, s.admin)
	s.Require().NoError(err)

	details, err := s.controller.ListAssignments(s.ctx, s.event.ID, s.organizer)
	s.Require().NoError(err)
	s.Require().Len(details, 2)
	s.Equal(1, details[0].Assignment.TeamNumber)
	s.Equal("Player 2", details[0].Player.DisplayName)
	s.Equal(8.0, details[0].Player.SkillRating)
	s.Equal("Player 1", details[1].Player.DisplayName)
}

func (s *ControllerSuite) TestListAssignmentsSkipsWithdrawnSignups() {
	inputs := make([]model.AssignmentInput, len(s.signups))
	for i, id := range s.signups {
		inputs[i] = model.AssignmentInput{SignupID: id, TeamNumber: i%2 + 1}
	}
	_, err := s.controller.SetManualAssignments(s.ctx, s.event.ID, inputs, s.admin)
	s.Require().NoError(err)

	_, err = s.roster.SetSignupStatus(s.ctx, s.admin, s.event.ID, s.signups[0], model.SignupWithdrawn)
	s.Require().NoError(err)

	details, err := s.controller.ListAssignments(s.ctx, s.event.ID, s.organizer)
	s.Require().NoError(err)
	s.Len(details, len(s.signups)-1)

	resubmit := make([]model.AssignmentInput, len(details))
	for i, d := range details {
		s.NotEqual(s.signups[0], d.Assignment.SignupID)
		resubmit[i] = model.AssignmentInput{SignupID: d.Assignment.SignupID, TeamNumber: d.Assignment.TeamNumber}
	}
	_, err = s.controller.SetManualAssignments(s.ctx, s.event.ID, resubmit, s.admin)
	s.NoError(err)
}

func (s *ControllerSuite) TestListAssignmentsForbidden() {
	_, err := s.controller.ListAssignments(s.ctx, s.event.ID, &model.Actor{UserID: "p", Role: model.RolePlayer})
	s.ErrorIs(err, model.ErrForbidden)
}

func (s *ControllerSuite) TestListAuditEntries() {
	_, err := s.controller.SetManualAssignments(s.ctx, s.event.ID, []model.AssignmentInput{{SignupID: s.signups[0], TeamNumber: 1}}, s.admin)
	s.Require().NoError(err)

	entries, err := s.controller.ListAuditEntries(s.ctx, s.event.ID, s.organizer)
	s.Require().NoError(err)
	s.Len(entries, 1)

	_, err = s.controller.ListAuditEntries(s.ctx, s.event.ID, &model.Actor{UserID: "org-9", Role: model.RoleOrganizer})
	s.ErrorIs(err, model.ErrForbidden)
}
