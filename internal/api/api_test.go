package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/teamdraw/internal/api"
	"github.com/mcoot/teamdraw/internal/api/apierr"
	"github.com/mcoot/teamdraw/internal/api/response"
	"github.com/mcoot/teamdraw/internal/factory"
	"github.com/mcoot/teamdraw/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	t       *testing.T
	handler http.Handler
	app     *factory.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	// API tests are integration tests - use production factory with real random/clock
	app, err := factory.New(factory.Config{Logger: testutil.NopLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:          testutil.NopLogger(),
		AuthService:     app.AuthService,
		RosterService:   app.RosterService,
		TeamsController: app.TeamsController,
		Metrics:         app.Metrics,
	})

	return &testServer{t: t, handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (ts *testServer) register(username string) string {
	rr := ts.request(http.MethodPost, "/api/v1/accounts/register", map[string]string{
		"username": username,
		"password": "password123",
		"role":     "organizer",
	}, "")
	require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.AuthResponse](ts.t, rr).SessionToken
}

func (ts *testServer) createEvent(token, name string) response.Event {
	rr := ts.request(http.MethodPost, "/api/v1/events", map[string]any{
		"name":      name,
		"starts_at": time.Date(2024, 5, 2, 19, 0, 0, 0, time.UTC),
	}, token)
	require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.Event](ts.t, rr)
}

func (ts *testServer) confirmedSignups(token, eventID string, skills ...float64) []string {
	positions := []string{"goalkeeper", "defender", "midfielder", "forward"}
	ids := make([]string, len(skills))
	for i, skill := range skills {
		rr := ts.request(http.MethodPost, "/api/v1/events/"+eventID+"/signups", map[string]any{
			"display_name": fmt.Sprintf("Player %d", i+1),
			"position":     positions[i%len(positions)],
			"skill_rating": skill,
		}, token)
		require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
		signup := decode[response.Signup](ts.t, rr)
		assert.Equal(ts.t, "pending", signup.Status)

		rr = ts.request(http.MethodPost, "/api/v1/events/"+eventID+"/signups/"+signup.ID+"/confirm", nil, token)
		require.Equal(ts.t, http.StatusOK, rr.Code, rr.Body.String())
		ids[i] = signup.ID
	}
	return ids
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[response.Health](t, rr).Status)
}

func TestRegisterLoginAndMe(t *testing.T) {
	ts := newTestServer(t)
	ts.register("alice")

	rr := ts.request(http.MethodPost, "/api/v1/accounts/login", map[string]string{
		"username": "alice",
		"password": "password123",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	login := decode[response.AuthResponse](t, rr)
	assert.Equal(t, "organizer", login.Account.Role)

	rr = ts.request(http.MethodGet, "/api/v1/accounts/me", nil, login.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "alice", decode[response.Account](t, rr).Username)

	rr = ts.request(http.MethodPost, "/api/v1/accounts/logout", nil, login.SessionToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.request(http.MethodGet, "/api/v1/accounts/me", nil, login.SessionToken)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAccountErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.register("alice")

	rr := ts.request(http.MethodPost, "/api/v1/accounts/register", map[string]string{
		"username": "alice", "password": "password123",
	}, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeConflict, decode[apierr.ErrorResponse](t, rr).Error.Code)

	rr = ts.request(http.MethodPost, "/api/v1/accounts/register", map[string]string{
		"username": "root", "password": "password123", "role": "admin",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/accounts/login", map[string]string{
		"username": "alice", "password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/accounts/register", "not an object", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEventsRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/events", map[string]string{"name": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeUnauthorized, decode[apierr.ErrorResponse](t, rr).Error.Code)
}

func TestDrawConfirmAndList(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("organizer")
	event := ts.createEvent(token, "Five-a-side")
	ts.confirmedSignups(token, event.ID, 9, 8, 7, 6, 5, 4, 3, 2)

	rr := ts.request(http.MethodPost, "/api/v1/events/"+event.ID+"/teams/draw", map[string]any{
		"iterations": 200, "balance_threshold": 1.0, "team_count": 2,
	}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	draw := decode[response.DrawResult](t, rr)
	require.True(t, draw.Success)
	assert.True(t, draw.BalanceAchieved)
	require.Len(t, draw.Teams, 2)

	// a draw stores nothing
	rr = ts.request(http.MethodGet, "/api/v1/events/"+event.ID+"/teams", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[response.AssignmentList](t, rr).Assignments)

	var rows []map[string]any
	for _, team := range draw.Teams {
		total := 0.0
		for _, p := range team.Players {
			total += p.SkillRating
			rows = append(rows, map[string]any{"signup_id": p.SignupID, "team_number": team.TeamNumber, "team_color": team.TeamColor})
		}
		assert.InDelta(t, 22.0, total, 1.0)
	}

	rr = ts.request(http.MethodPost, "/api/v1/events/"+event.ID+"/teams", map[string]any{"assignments": rows}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, decode[response.AssignmentList](t, rr).Assignments, 8)

	rr = ts.request(http.MethodGet, "/api/v1/events/"+event.ID+"/teams", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	listed := decode[response.AssignmentList](t, rr).Assignments
	require.Len(t, listed, 8)
	require.NotNil(t, listed[0].Player)
	assert.NotEmpty(t, listed[0].Player.DisplayName)
	assert.Equal(t, 1, listed[0].TeamNumber)

	rr = ts.request(http.MethodGet, "/api/v1/events/"+event.ID+"/teams/audit", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	entries := decode[response.AuditList](t, rr).Entries
	require.Len(t, entries, 8)
	assert.Equal(t, "team_assigned", entries[0].Action)
	assert.Nil(t, entries[0].PreviousTeam)
	assert.NotEmpty(t, entries[0].Origin)
}

func TestDrawWithEmptyBody(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("organizer")
	event := ts.createEvent(token, "Defaults")
	ts.confirmedSignups(token, event.ID, 5, 6, 7, 8)

	rr := ts.request(http.MethodPost, "/api/v1/events/"+event.ID+"/teams/draw", nil, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	draw := decode[response.DrawResult](t, rr)
	assert.True(t, draw.Success)
	assert.Len(t, draw.Teams, 2)
}

func TestDrawTooFewPlayersIsNotAnError(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("organizer")
	event := ts.createEvent(token, "Tiny")
	ts.confirmedSignups(token, event.ID, 5, 6, 7)

	rr := ts.request(http.MethodPost, "/api/v1/events/"+event.ID+"/teams/draw", map[string]any{}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	draw := decode[response.DrawResult](t, rr)
	assert.False(t, draw.Success)
	assert.NotNil(t, draw.Teams)
	assert.Empty(t, draw.Teams)
	assert.JSONEq(t, `[]`, string(mustJSON(t, draw.Teams)))
}

func TestDrawParameterValidation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("organizer")
	event := ts.createEvent(token, "Params")

	rr := ts.request(http.MethodPost, "/api/v1/events/"+event.ID+"/teams/draw", map[string]any{"iterations": 0}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeValidation, decode[apierr.ErrorResponse](t, rr).Error.Code)
}

func TestAssignmentFromOtherEventNamesSignup(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("organizer")
	event := ts.createEvent(token, "Home")
	other := ts.createEvent(token, "Away")
	home := ts.confirmedSignups(token, event.ID, 5, 6)
	away := ts.confirmedSignups(token, other.ID, 7)

	rr := ts.request(http.MethodPost, "/api/v1/events/"+event.ID+"/teams", map[string]any{
		"assignments": []map[string]any{
			{"signup_id": home[0], "team_number": 1},
			{"signup_id": away[0], "team_number": 2},
			{"signup_id": home[1], "team_number": 2},
		},
	}, token)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	apiErr := decode[apierr.ErrorResponse](t, rr).Error
	assert.Equal(t, apierr.CodeValidation, apiErr.Code)
	assert.Equal(t, []string{away[0]}, apiErr.SignupIDs)

	rr = ts.request(http.MethodGet, "/api/v1/events/"+event.ID+"/teams", nil, token)
	assert.Empty(t, decode[response.AssignmentList](t, rr).Assignments)
}

func TestTeamEndpointsAuthorization(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.register("owner")
	intruder := ts.register("intruder")
	event := ts.createEvent(owner, "Owned")

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, "/teams/draw", nil},
		{http.MethodGet, "/teams", nil},
		{http.MethodPost, "/teams", map[string]any{"assignments": []map[string]any{{"signup_id": "x", "team_number": 1}}}},
		{http.MethodGet, "/teams/audit", nil},
		{http.MethodGet, "/signups", nil},
	} {
		rr := ts.request(tc.method, "/api/v1/events/"+event.ID+tc.path, tc.body, intruder)
		assert.Equal(t, http.StatusForbidden, rr.Code, tc.method+" "+tc.path)
	}

	rr := ts.request(http.MethodPost, "/api/v1/events/missing/teams/draw", nil, owner)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeNotFound, decode[apierr.ErrorResponse](t, rr).Error.Code)
}

func TestSignupLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("organizer")
	event := ts.createEvent(token, "Roster")
	ids := ts.confirmedSignups(token, event.ID, 5, 6)

	rr := ts.request(http.MethodPost, "/api/v1/events/"+event.ID+"/signups/"+ids[1]+"/withdraw", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/events/"+event.ID+"/signups", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	signups := decode[response.SignupList](t, rr).Signups
	require.Len(t, signups, 2)
	assert.Equal(t, "confirmed", signups[0].Status)
	assert.Equal(t, "withdrawn", signups[1].Status)

	rr = ts.request(http.MethodPost, "/api/v1/events/"+event.ID+"/signups", map[string]any{
		"display_name": "Bad", "position": "striker", "skill_rating": 5,
	}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/events/"+event.ID, nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Roster", decode[response.Event](t, rr).Name)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.request(http.MethodGet, "/api/v1/health", nil, "")

	rr := ts.request(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `teamdraw_http_requests_total{method="GET",route="/api/v1/health",status="200"} 1`)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
