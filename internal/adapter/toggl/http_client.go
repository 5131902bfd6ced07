package toggl

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"toggl-billing/internal/domain"
	"toggl-billing/internal/errs"
	"toggl-billing/internal/reconcile"
)

// Client implements ports.TogglClient using the Toggl Track API v9.
type Client struct {
	baseURL   string
	apiToken  string
	http      *http.Client
	workspace int64
	log       *slog.Logger
}

func NewClient(baseURL, apiToken string, workspaceID int64, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.track.toggl.com"
	}
	return &Client{
		baseURL:   baseURL,
		apiToken:  apiToken,
		workspace: workspaceID,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// Me verifies the token. Any non-200 answer is an *errs.AuthenticationError.
// Toggl v9: GET /api/v9/me
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v9/me", nil, nil)
	if err != nil {
		return domain.User{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.User{}, &errs.AuthenticationError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.User{}, &errs.AuthenticationError{StatusCode: resp.StatusCode}
	}
	var raw rawMe
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:                 raw.ID,
		Email:              raw.Email,
		Fullname:           raw.Fullname,
		DefaultWorkspaceID: raw.DefaultWorkspaceID,
	}, nil
}

// ListClients fetches the clients of a workspace.
// Toggl v9: GET /api/v9/workspaces/{wid}/clients
func (c *Client) ListClients(ctx context.Context, workspaceID int64) ([]domain.Client, error) {
	var raw []rawClient
	if err := c.getJSON(ctx, fmt.Sprintf("/api/v9/workspaces/%d/clients", c.workspaceOr(workspaceID)), nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Client, 0, len(raw))
	for _, r := range raw {
		out = append(out, domain.Client{ID: r.ID, WorkspaceID: r.WorkspaceID, Name: r.Name})
	}
	return out, nil
}

// ListProjects fetches projects accessible to the configured token.
// If a workspace ID is known, it scopes the request to that workspace.
func (c *Client) ListProjects(ctx context.Context, workspaceID int64) ([]domain.Project, error) {
	path := "/api/v9/me/projects"
	if ws := c.workspaceOr(workspaceID); ws != 0 {
		path = fmt.Sprintf("/api/v9/workspaces/%d/projects", ws)
	}
	var raw []rawProject
	if err := c.getJSON(ctx, path, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Project, 0, len(raw))
	for _, p := range raw {
		var clientID *int64
		if p.ClientID != nil {
			id := *p.ClientID
			clientID = &id
		}
		out = append(out, domain.Project{
			ID:          p.ID,
			WorkspaceID: p.WorkspaceID,
			Name:        p.Name,
			Active:      p.Active,
			ClientID:    clientID,
			At:          p.At,
		})
	}
	return out, nil
}

// ListTimeEntries fetches entries in [from, to).
// Toggl v9: GET /api/v9/me/time_entries?start_date=...&end_date=...
func (c *Client) ListTimeEntries(ctx context.Context, from, to time.Time) ([]domain.TimeEntry, error) {
	q := url.Values{}
	q.Set("start_date", from.Format(time.RFC3339))
	q.Set("end_date", to.Format(time.RFC3339))
	var raw []rawTimeEntry
	if err := c.getJSON(ctx, "/api/v9/me/time_entries", q, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.TimeEntry, 0, len(raw))
	for _, r := range raw {
		var stopPtr *time.Time
		if r.Stop != nil {
			stop := *r.Stop
			stopPtr = &stop
		}
		var projectPtr *int64
		if r.ProjectID != nil {
			p := *r.ProjectID
			projectPtr = &p
		}
		out = append(out, domain.TimeEntry{
			ID:          r.ID,
			WorkspaceID: r.WorkspaceID,
			ProjectID:   projectPtr,
			UserID:      r.UserID,
			Description: r.Description,
			Billable:    r.Billable,
			Tags:        r.Tags,
			Start:       r.Start,
			Stop:        stopPtr,
			DurationSec: r.Duration,
		})
	}
	return out, nil
}

// UpdateTimeEntry sends patch as the body of
// PUT /api/v9/workspaces/{wid}/time_entries/{id}.
func (c *Client) UpdateTimeEntry(ctx context.Context, workspaceID, id int64, patch reconcile.Patch) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/api/v9/workspaces/%d/time_entries/%d", c.workspaceOr(workspaceID), id)
	return c.send(ctx, http.MethodPut, path, body)
}

// CreateTimeEntry creates entry in its workspace.
// Toggl v9: POST /api/v9/workspaces/{wid}/time_entries
func (c *Client) CreateTimeEntry(ctx context.Context, entry reconcile.NewEntry) error {
	ws := c.workspaceOr(entry.WorkspaceID)
	body, err := json.Marshal(rawNewTimeEntry{
		WorkspaceID: ws,
		ProjectID:   entry.ProjectID,
		UserID:      entry.UserID,
		Billable:    entry.Billable,
		Description: entry.Description,
		Tags:        entry.Tags,
		CreatedWith: entry.CreatedWith,
		Start:       entry.Start.UTC().Format(time.RFC3339),
		Duration:    entry.Duration,
	})
	if err != nil {
		return err
	}
	return c.send(ctx, http.MethodPost, fmt.Sprintf("/api/v9/workspaces/%d/time_entries", ws), body)
}

func (c *Client) workspaceOr(id int64) int64 {
	if id != 0 {
		return id
	}
	return c.workspace
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body []byte) (*http.Request, error) {
	if c.apiToken == "" {
		return nil, errors.New("missing api token")
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path = path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, err
	}
	// Basic auth: token:api_token
	auth := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", c.apiToken, "api_token")))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) error {
	req, err := c.newRequest(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	c.log.Debug("toggl request", slog.String("method", method), slog.String("path", path))
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("toggl: unexpected status %d: %s", resp.StatusCode, string(body))
}

type rawMe struct {
	ID                 int64  `json:"id"`
	Email              string `json:"email"`
	Fullname           string `json:"fullname"`
	DefaultWorkspaceID int64  `json:"default_workspace_id"`
}

type rawClient struct {
	ID          int64  `json:"id"`
	WorkspaceID int64  `json:"wid"`
	Name        string `json:"name"`
}

// rawTimeEntry mirrors the JSON from Toggl v9.
type rawTimeEntry struct {
	ID          int64      `json:"id"`
	WorkspaceID int64      `json:"workspace_id"`
	ProjectID   *int64     `json:"project_id"`
	UserID      int64      `json:"user_id"`
	Description string     `json:"description"`
	Billable    bool       `json:"billable"`
	Tags        []string   `json:"tags"`
	Start       time.Time  `json:"start"`
	Stop        *time.Time `json:"stop"`
	Duration    int64      `json:"duration"`
}

type rawNewTimeEntry struct {
	WorkspaceID int64    `json:"workspace_id"`
	ProjectID   *int64   `json:"project_id,omitempty"`
	UserID      int64    `json:"user_id,omitempty"`
	Billable    bool     `json:"billable"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	CreatedWith string   `json:"created_with"`
	Start       string   `json:"start"`
	Duration    int64    `json:"duration"`
}

type rawProject struct {
	ID          int64     `json:"id"`
	WorkspaceID int64     `json:"workspace_id"`
	Name        string    `json:"name"`
	Active      bool      `json:"active"`
	ClientID    *int64    `json:"client_id"`
	At          time.Time `json:"at"`
}
