package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mcoot/teamdraw/internal/api/apierr"
	"github.com/mcoot/teamdraw/internal/api/request"
	"github.com/mcoot/teamdraw/internal/api/response"
	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/services/teams"
	"github.com/mcoot/teamdraw/internal/teamview"
)

// Client is an HTTP client for the API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Ensure Client can drive a team board
var _ teamview.Backend = (*Client)(nil)

// NewClient creates a new API client
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken updates the client's token
func (c *Client) SetToken(token string) {
	c.token = token
}

// APIError is an error response from the API
type APIError struct {
	Status int
	apierr.APIError
}

func (e *APIError) Error() string {
	if len(e.SignupIDs) > 0 {
		return fmt.Sprintf("%s (%s): %s", e.Message, e.Code, strings.Join(e.SignupIDs, ", "))
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Do performs an HTTP request
func (c *Client) Do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp apierr.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Code != "" {
			return &APIError{Status: resp.StatusCode, APIError: errResp.Error}
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.Do(ctx, http.MethodGet, path, nil, result)
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.Do(ctx, http.MethodPost, path, body, result)
}

func eventPath(eventID model.EventID, suffix string) string {
	return "/api/v1/events/" + url.PathEscape(string(eventID)) + suffix
}

// Register creates an account and returns its session
func (c *Client) Register(ctx context.Context, req request.RegisterRequest) (response.AuthResponse, error) {
	var result response.AuthResponse
	err := c.Post(ctx, "/api/v1/accounts/register", req, &result)
	return result, err
}

// Login opens a session
func (c *Client) Login(ctx context.Context, username, password string) (response.AuthResponse, error) {
	var result response.AuthResponse
	err := c.Post(ctx, "/api/v1/accounts/login", request.LoginRequest{Username: username, Password: password}, &result)
	return result, err
}

// Me returns the account behind the current token
func (c *Client) Me(ctx context.Context) (response.Account, error) {
	var result response.Account
	err := c.Get(ctx, "/api/v1/accounts/me", &result)
	return result, err
}

// CreateEvent creates an event owned by the caller
func (c *Client) CreateEvent(ctx context.Context, name string, startsAt time.Time) (response.Event, error) {
	var result response.Event
	err := c.Post(ctx, "/api/v1/events", request.CreateEventRequest{Name: name, StartsAt: startsAt}, &result)
	return result, err
}

// GetEvent fetches an event
func (c *Client) GetEvent(ctx context.Context, eventID model.EventID) (response.Event, error) {
	var result response.Event
	err := c.Get(ctx, eventPath(eventID, ""), &result)
	return result, err
}

// AddSignup signs a new player up for an event
func (c *Client) AddSignup(ctx context.Context, eventID model.EventID, req request.AddSignupRequest) (response.Signup, error) {
	var result response.Signup
	err := c.Post(ctx, eventPath(eventID, "/signups"), req, &result)
	return result, err
}

// ListSignups lists an event's signups
func (c *Client) ListSignups(ctx context.Context, eventID model.EventID) ([]response.Signup, error) {
	var result response.SignupList
	err := c.Get(ctx, eventPath(eventID, "/signups"), &result)
	return result.Signups, err
}

// SetSignupStatus confirms or withdraws a signup
func (c *Client) SetSignupStatus(ctx context.Context, eventID model.EventID, signupID model.SignupID, status model.SignupStatus) (response.SignupStatus, error) {
	action := "confirm"
	if status == model.SignupWithdrawn {
		action = "withdraw"
	}
	var result response.SignupStatus
	err := c.Post(ctx, eventPath(eventID, "/signups/"+url.PathEscape(string(signupID))+"/"+action), nil, &result)
	return result, err
}

// ListAssignments returns the persisted assignments with player data
func (c *Client) ListAssignments(ctx context.Context, eventID model.EventID) ([]model.AssignmentDetail, error) {
	var result response.AssignmentList
	if err := c.Get(ctx, eventPath(eventID, "/teams"), &result); err != nil {
		return nil, err
	}
	details := make([]model.AssignmentDetail, len(result.Assignments))
	for i, a := range result.Assignments {
		details[i] = a.ToDetail()
	}
	return details, nil
}

// RunDraw asks the server for a transient partition
func (c *Client) RunDraw(ctx context.Context, eventID model.EventID, params teams.DrawParams) (model.DrawResult, error) {
	req := request.DrawRequest{
		Iterations:       params.Iterations,
		BalanceThreshold: params.BalanceThreshold,
		TeamCount:        params.TeamCount,
	}
	var result response.DrawResult
	if err := c.Post(ctx, eventPath(eventID, "/teams/draw"), req, &result); err != nil {
		return model.DrawResult{}, err
	}
	return result.ToModel(), nil
}

// SetAssignments persists a batch of assignments
func (c *Client) SetAssignments(ctx context.Context, eventID model.EventID, inputs []model.AssignmentInput) ([]*model.Assignment, error) {
	var result response.AssignmentList
	if err := c.Post(ctx, eventPath(eventID, "/teams"), request.FromInputs(inputs), &result); err != nil {
		return nil, err
	}
	rows := make([]*model.Assignment, len(result.Assignments))
	for i, a := range result.Assignments {
		row := a.ToModel()
		rows[i] = &row
	}
	return rows, nil
}

// ListAudit returns the team change audit trail
func (c *Client) ListAudit(ctx context.Context, eventID model.EventID) ([]response.AuditEntry, error) {
	var result response.AuditList
	err := c.Get(ctx, eventPath(eventID, "/teams/audit"), &result)
	return result.Entries, err
}

// Health checks the server
func (c *Client) Health(ctx context.Context) (response.Health, error) {
	var result response.Health
	err := c.Get(ctx, "/api/v1/health", &result)
	return result, err
}
