package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rpupo63/round/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func fakeServer(t *testing.T, status int, response string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.auth = r.Header.Get("Authorization")
		rec.body = nil
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = sonic.Unmarshal(data, &rec.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestGetIssue(t *testing.T) {
	srv, rec := fakeServer(t, http.StatusOK, `{"id":"ACM-1","number":1,"title":"Fix bug","status":"todo","priority":"high","labels":["bug"]}`)
	c := New(srv.URL+"/", "tok")

	issue, err := c.GetIssue(context.Background(), "ACM-1")
	require.NoError(t, err)
	assert.Equal(t, "/issues/ACM-1", rec.path)
	assert.Equal(t, "Bearer tok", rec.auth)
	assert.Equal(t, models.StatusTodo, issue.Status)
	assert.Equal(t, []string{"bug"}, []string(issue.Labels))
}

func TestListIssues(t *testing.T) {
	srv, rec := fakeServer(t, http.StatusOK, `{"groups":[{"status":"backlog","issues":[]},{"status":"todo","issues":[{"id":"ACM-2"}]}]}`)
	groups, err := New(srv.URL, "tok").ListIssues(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "/projects/acme/issues", rec.path)
	require.Len(t, groups, 2)
	assert.Equal(t, "ACM-2", groups[1].Issues[0].ID)
}

func TestUpdates(t *testing.T) {
	srv, rec := fakeServer(t, http.StatusOK, `{"success":true}`)
	c := New(srv.URL, "tok")
	ctx := context.Background()

	require.NoError(t, c.UpdateStatus(ctx, "ACM-1", models.StatusDone))
	assert.Equal(t, http.MethodPatch, rec.method)
	assert.Equal(t, "/issues/ACM-1/status", rec.path)
	assert.Equal(t, "done", rec.body["status"])

	require.NoError(t, c.UpdatePriority(ctx, "ACM-1", models.PriorityUrgent))
	assert.Equal(t, "urgent", rec.body["priority"])

	require.NoError(t, c.UpdateAssignee(ctx, "ACM-1", nil))
	assert.Equal(t, "/issues/ACM-1/assignee", rec.path)
	assert.Contains(t, rec.body, "assignedUserId")
	assert.Nil(t, rec.body["assignedUserId"])

	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.UpdateTargetDate(ctx, "ACM-1", &due))
	assert.Equal(t, "/issues/ACM-1/target-date", rec.path)
	assert.Equal(t, "2025-03-01T00:00:00Z", rec.body["targetDate"])

	require.NoError(t, c.UpdateLabels(ctx, "ACM-1", nil))
	assert.Equal(t, []any{}, rec.body["labels"])
}

func TestUpdateFailure(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusNotFound, `{"success":false,"error":"issue not found"}`)
	err := New(srv.URL, "tok").UpdateStatus(context.Background(), "ACM-1", models.StatusDone)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "issue not found", apiErr.Message)
}

func TestErrorBodies(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusForbidden, `{"error":"operation not allowed: not a project member","status":"error"}`)
	_, err := New(srv.URL, "tok").GetIssue(context.Background(), "ACM-1")
	assert.EqualError(t, err, "operation not allowed: not a project member (HTTP 403)")

	srv, _ = fakeServer(t, http.StatusBadGateway, `<html>`)
	_, err = New(srv.URL, "tok").GetIssue(context.Background(), "ACM-1")
	assert.EqualError(t, err, "502 Bad Gateway (HTTP 502)")
}
