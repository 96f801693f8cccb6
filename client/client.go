// Package client talks to a Round server over its JSON API.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rpupo63/round/models"
	"github.com/rpupo63/round/services"
)

// Error is a failed API call.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// New returns a client for the server at baseURL that authenticates with a
// session token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetIssue(ctx context.Context, issueID string) (*models.Issue, error) {
	var issue models.Issue
	if err := c.call(ctx, http.MethodGet, "/issues/"+url.PathEscape(issueID), nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (c *Client) ListIssues(ctx context.Context, projectID string) ([]services.IssueGroup, error) {
	var board struct {
		Groups []services.IssueGroup `json:"groups"`
	}
	if err := c.call(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/issues", nil, &board); err != nil {
		return nil, err
	}
	return board.Groups, nil
}

func (c *Client) UpdateStatus(ctx context.Context, issueID string, status models.IssueStatus) error {
	return c.update(ctx, issueID, "status", map[string]any{"status": status})
}

func (c *Client) UpdatePriority(ctx context.Context, issueID string, priority models.IssuePriority) error {
	return c.update(ctx, issueID, "priority", map[string]any{"priority": priority})
}

// UpdateAssignee sets the assignee; nil unassigns.
func (c *Client) UpdateAssignee(ctx context.Context, issueID string, userID *string) error {
	return c.update(ctx, issueID, "assignee", map[string]any{"assignedUserId": userID})
}

// UpdateTargetDate sets the target date; nil clears it.
func (c *Client) UpdateTargetDate(ctx context.Context, issueID string, date *time.Time) error {
	var value *string
	if date != nil {
		s := date.Format(time.RFC3339)
		value = &s
	}
	return c.update(ctx, issueID, "target-date", map[string]any{"targetDate": value})
}

func (c *Client) UpdateLabels(ctx context.Context, issueID string, labels []string) error {
	if labels == nil {
		labels = []string{}
	}
	return c.update(ctx, issueID, "labels", map[string]any{"labels": labels})
}

type result struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (c *Client) update(ctx context.Context, issueID, field string, body any) error {
	var res result
	err := c.call(ctx, http.MethodPatch, "/issues/"+url.PathEscape(issueID)+"/"+field, body, &res)
	if err != nil {
		return err
	}
	if !res.Success {
		return &Error{StatusCode: http.StatusOK, Message: res.Error}
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &Error{StatusCode: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage pulls the message out of either error body the server writes.
func errorMessage(data []byte, fallback string) string {
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := sonic.Unmarshal(data, &body); err != nil || body.Error == "" {
		return fallback
	}
	return body.Error
}
