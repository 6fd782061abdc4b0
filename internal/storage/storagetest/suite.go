// Package storagetest holds the behavioural suite every storage backend must pass.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/storage"
)

// Suite runs backend-agnostic storage tests. Backends embed it and set
// Storage in their own SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

var baseTime = time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

// Account tests

func (s *Suite) TestSaveAndGetAccount() {
	account := &model.Account{
		ID:           "user-1",
		Username:     "alice",
		DisplayName:  "Alice",
		Role:         model.RoleOrganizer,
		PasswordHash: "hash",
		CreatedAt:    baseTime,
	}
	s.Require().NoError(s.Storage.SaveAccount(s.Ctx, account))

	byID, err := s.Storage.GetAccount(s.Ctx, "user-1")
	s.Require().NoError(err)
	s.Equal("alice", byID.Username)
	s.Equal(model.RoleOrganizer, byID.Role)
	s.True(baseTime.Equal(byID.CreatedAt))

	byName, err := s.Storage.GetAccountByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.UserID("user-1"), byName.ID)
}

func (s *Suite) TestGetAccountNotFound() {
	_, err := s.Storage.GetAccount(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrAccountNotFound)

	_, err = s.Storage.GetAccountByUsername(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

// Event and player tests

func (s *Suite) TestSaveAndGetEvent() {
	s.Require().NoError(s.Storage.SaveEvent(s.Ctx, &model.Event{
		ID: "event-1", Name: "Thursday five-a-side", OrganizerID: "user-1", StartsAt: baseTime, CreatedAt: baseTime,
	}))

	event, err := s.Storage.GetEvent(s.Ctx, "event-1")
	s.Require().NoError(err)
	s.Equal("Thursday five-a-side", event.Name)
	s.Equal(model.UserID("user-1"), event.OrganizerID)

	_, err = s.Storage.GetEvent(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrEventNotFound)
}

func (s *Suite) TestSaveAndGetPlayer() {
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, &model.Player{
		ID: "player-1", DisplayName: "Bo", Position: model.PositionDefender, SkillRating: 6.5, CreatedAt: baseTime,
	}))

	player, err := s.Storage.GetPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(model.PositionDefender, player.Position)
	s.Equal(6.5, player.SkillRating)

	_, err = s.Storage.GetPlayer(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Signup tests

func (s *Suite) seedSignups(eventID model.EventID, n int) []model.SignupID {
	ids := make([]model.SignupID, n)
	for i := 0; i < n; i++ {
		playerID := model.PlayerID(fmt.Sprintf("%s-player-%d", eventID, i+1))
		s.Require().NoError(s.Storage.SavePlayer(s.Ctx, &model.Player{
			ID: playerID, DisplayName: fmt.Sprintf("Player %d", i+1), Position: model.PositionForward, SkillRating: float64(i + 1), CreatedAt: baseTime,
		}))
		ids[i] = model.SignupID(fmt.Sprintf("%s-signup-%d", eventID, i+1))
		s.Require().NoError(s.Storage.SaveSignup(s.Ctx, &model.Signup{
			ID:        ids[i],
			EventID:   eventID,
			PlayerID:  playerID,
			Status:    model.SignupConfirmed,
			CreatedAt: baseTime.Add(time.Duration(i) * time.Minute),
			UpdatedAt: baseTime.Add(time.Duration(i) * time.Minute),
		}))
	}
	return ids
}

func (s *Suite) TestListSignupsForEventInCreationOrder() {
	ids := s.seedSignups("event-1", 3)
	s.seedSignups("event-2", 2)

	signups, err := s.Storage.ListSignupsForEvent(s.Ctx, "event-1")
	s.Require().NoError(err)
	s.Require().Len(signups, 3)
	for i, signup := range signups {
		s.Equal(ids[i], signup.ID)
		s.Equal(model.EventID("event-1"), signup.EventID)
	}
}

func (s *Suite) TestUpdateSignupKeepsSingleEntry() {
	ids := s.seedSignups("event-1", 2)

	signup, err := s.Storage.GetSignup(s.Ctx, ids[0])
	s.Require().NoError(err)
	signup.Status = model.SignupWithdrawn
	signup.UpdatedAt = baseTime.Add(time.Hour)
	s.Require().NoError(s.Storage.SaveSignup(s.Ctx, signup))

	signups, err := s.Storage.ListSignupsForEvent(s.Ctx, "event-1")
	s.Require().NoError(err)
	s.Require().Len(signups, 2)
	s.Equal(ids[0], signups[0].ID)
	s.Equal(model.SignupWithdrawn, signups[0].Status)
}

func (s *Suite) TestGetSignupsOmitsUnknown() {
	ids := s.seedSignups("event-1", 2)

	signups, err := s.Storage.GetSignups(s.Ctx, []model.SignupID{ids[1], "missing", ids[0]})
	s.Require().NoError(err)
	s.Require().Len(signups, 2)
	s.Equal(ids[1], signups[0].ID)
	s.Equal(ids[0], signups[1].ID)

	_, err = s.Storage.GetSignup(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrSignupNotFound)
}

// Assignment tests

func assignment(eventID model.EventID, signupID model.SignupID, team int) *model.Assignment {
	return &model.Assignment{
		ID:         fmt.Sprintf("a-%s-%d", signupID, team),
		EventID:    eventID,
		SignupID:   signupID,
		TeamNumber: team,
		TeamColor:  model.ColorForTeam(team),
		AssignedBy: "user-1",
		AssignedAt: baseTime,
	}
}

func (s *Suite) TestReplaceAssignmentsInsertsRows() {
	ids := s.seedSignups("event-1", 4)

	err := s.Storage.ReplaceAssignments(s.Ctx, "event-1", []*model.Assignment{
		assignment("event-1", ids[0], 1),
		assignment("event-1", ids[1], 2),
		assignment("event-1", ids[2], 1),
	})
	s.Require().NoError(err)

	rows, err := s.Storage.GetAssignmentsForEvent(s.Ctx, "event-1")
	s.Require().NoError(err)
	s.Require().Len(rows, 3)
	s.Equal(1, rows[0].TeamNumber)
	s.Equal(1, rows[1].TeamNumber)
	s.Equal(2, rows[2].TeamNumber)
	s.Equal(model.ColorBlue, rows[2].TeamColor)
}

func (s *Suite) TestReplaceAssignmentsSupersedesOnlyReferencedSignups() {
	ids := s.seedSignups("event-1", 3)
	s.Require().NoError(s.Storage.ReplaceAssignments(s.Ctx, "event-1", []*model.Assignment{
		assignment("event-1", ids[0], 1),
		assignment("event-1", ids[1], 1),
		assignment("event-1", ids[2], 2),
	}))

	s.Require().NoError(s.Storage.ReplaceAssignments(s.Ctx, "event-1", []*model.Assignment{
		assignment("event-1", ids[1], 2),
	}))

	rows, err := s.Storage.GetAssignmentsForEvent(s.Ctx, "event-1")
	s.Require().NoError(err)
	s.Require().Len(rows, 3)

	teams := make(map[model.SignupID]int)
	for _, row := range rows {
		_, dup := teams[row.SignupID]
		s.False(dup, "signup %s has two assignments", row.SignupID)
		teams[row.SignupID] = row.TeamNumber
	}
	s.Equal(map[model.SignupID]int{ids[0]: 1, ids[1]: 2, ids[2]: 2}, teams)
}

func (s *Suite) TestReplaceAssignmentsIsScopedToEvent() {
	a := s.seedSignups("event-1", 1)
	b := s.seedSignups("event-2", 1)
	s.Require().NoError(s.Storage.ReplaceAssignments(s.Ctx, "event-1", []*model.Assignment{assignment("event-1", a[0], 1)}))
	s.Require().NoError(s.Storage.ReplaceAssignments(s.Ctx, "event-2", []*model.Assignment{assignment("event-2", b[0], 2)}))

	rows, err := s.Storage.GetAssignmentsForEvent(s.Ctx, "event-1")
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(a[0], rows[0].SignupID)
}

func (s *Suite) TestReplaceAssignmentsEmptyIsNoop() {
	s.Require().NoError(s.Storage.ReplaceAssignments(s.Ctx, "event-1", nil))

	rows, err := s.Storage.GetAssignmentsForEvent(s.Ctx, "event-1")
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *Suite) TestGetAssignmentsForSignups() {
	ids := s.seedSignups("event-1", 3)
	s.Require().NoError(s.Storage.ReplaceAssignments(s.Ctx, "event-1", []*model.Assignment{
		assignment("event-1", ids[0], 1),
		assignment("event-1", ids[2], 2),
	}))

	rows, err := s.Storage.GetAssignmentsForSignups(s.Ctx, "event-1", []model.SignupID{ids[0], ids[1], ids[2]})
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal(ids[0], rows[0].SignupID)
	s.Equal(ids[2], rows[1].SignupID)
}

func (s *Suite) TestConcurrentReplacesLeaveOneAssignmentPerSignup() {
	ids := s.seedSignups("event-1", 6)

	var wg sync.WaitGroup
	for team := 1; team <= 4; team++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch := make([]*model.Assignment, len(ids))
			for i, id := range ids {
				batch[i] = assignment("event-1", id, team)
			}
			s.NoError(s.Storage.ReplaceAssignments(s.Ctx, "event-1", batch))
		}()
	}
	wg.Wait()

	rows, err := s.Storage.GetAssignmentsForEvent(s.Ctx, "event-1")
	s.Require().NoError(err)
	s.Len(rows, len(ids))
	seen := make(map[model.SignupID]bool)
	for _, row := range rows {
		s.False(seen[row.SignupID])
		seen[row.SignupID] = true
	}
}

// Audit tests

func (s *Suite) TestAuditEntriesAppendInOrder() {
	prev := 1
	entries := []*model.AuditEntry{
		{
			ID: "audit-1", Action: model.AuditTeamAssigned, ActorID: "user-1", EventID: "event-1", SignupID: "signup-1",
			Diff: model.AuditDiff{NewTeam: 1, Timestamp: baseTime}, Origin: "10.0.0.1", CreatedAt: baseTime,
		},
		{
			ID: "audit-2", Action: model.AuditTeamReassigned, ActorID: "user-1", EventID: "event-1", SignupID: "signup-1",
			Diff: model.AuditDiff{PreviousTeam: &prev, NewTeam: 2, Timestamp: baseTime.Add(time.Minute)}, Origin: "10.0.0.1", CreatedAt: baseTime.Add(time.Minute),
		},
		{
			ID: "audit-3", Action: model.AuditTeamAssigned, ActorID: "user-2", EventID: "event-2", SignupID: "signup-9",
			Diff: model.AuditDiff{NewTeam: 3, Timestamp: baseTime}, CreatedAt: baseTime,
		},
	}
	for _, e := range entries {
		s.Require().NoError(s.Storage.AppendAuditEntry(s.Ctx, e))
	}

	got, err := s.Storage.ListAuditEntries(s.Ctx, "event-1")
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("audit-1", got[0].ID)
	s.Nil(got[0].Diff.PreviousTeam)
	s.Equal(model.AuditTeamAssigned, got[0].Action)
	s.Equal("audit-2", got[1].ID)
	s.Require().NotNil(got[1].Diff.PreviousTeam)
	s.Equal(1, *got[1].Diff.PreviousTeam)
	s.Equal(2, got[1].Diff.NewTeam)
	s.Equal("10.0.0.1", got[1].Origin)
}

func (s *Suite) TestListAuditEntriesEmpty() {
	got, err := s.Storage.ListAuditEntries(s.Ctx, "event-1")
	s.Require().NoError(err)
	s.Empty(got)
}
