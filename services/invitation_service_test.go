package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rpupo63/round/database/dbtest"
	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent [][]string
	err  error
}

func (m *recordingMailer) Send(_ context.Context, _, _ string, recipients []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, recipients)
	return m.err
}

func TestInvitationToken(t *testing.T) {
	a := InvitationToken("bob@example.com", "secret", "acme")
	assert.Len(t, a, 64)
	assert.Equal(t, a, InvitationToken("bob@example.com", "secret", "acme"))
	assert.NotEqual(t, a, InvitationToken("bob@example.com", "secret", "zeta"))
	assert.Equal(t, "83e6ca4d86c5aac67b8489482c3becdd46fbcc1172d1d581a42922a805955ba4", a)
}

func TestCreateInvitations(t *testing.T) {
	f := newFixture(t)
	ada := dbtest.User(t, f.gdb, "ada")
	dbtest.Project(t, f.gdb, "acme", "ACM", ada)
	mailer := &recordingMailer{err: errors.New("smtp down")}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewInvitationService(f.db, "secret", mailer, "https://round.example.com/").
		WithClock(func() time.Time { return now })

	invitations, err := svc.Create(f.ctx, ada.ID, "acme", []string{"Bob@Example.com", "bob@example.com", " carol@example.com "})
	require.NoError(t, err, "mail failures must not fail the request")
	require.Len(t, invitations, 2)
	assert.Equal(t, "bob@example.com", invitations[0].Email)
	assert.Equal(t, "carol@example.com", invitations[1].Email)
	assert.Equal(t, InvitationToken("bob@example.com", "secret", "acme"), invitations[0].Token)
	assert.True(t, invitations[0].ExpiresAt.Equal(now.Add(7*24*time.Hour)))
	assert.Equal(t, models.InvitationPending, invitations[0].Status)
	assert.Len(t, mailer.sent, 2)

	stored, err := f.db.InvitationRepo().ListByProject(f.ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// Inviting again renews the stored invitation instead of failing on the
	// token index.
	later := now.Add(48 * time.Hour)
	svc.WithClock(func() time.Time { return later })
	again, err := svc.Create(f.ctx, ada.ID, "acme", []string{"bob@example.com"})
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, invitations[0].ID, again[0].ID)
	assert.True(t, again[0].CreatedAt.Equal(now))
	assert.True(t, again[0].ExpiresAt.Equal(later.Add(models.InvitationTTL)))

	listed, err := svc.List(f.ctx, ada.ID, "acme")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	ids := []string{listed[0].ID, listed[1].ID}
	assert.Contains(t, ids, again[0].ID)
}

func TestCreateInvitationsValidation(t *testing.T) {
	f := newFixture(t)
	ada := dbtest.User(t, f.gdb, "ada")
	eve := dbtest.User(t, f.gdb, "eve")
	dbtest.Project(t, f.gdb, "acme", "ACM", ada)
	svc := NewInvitationService(f.db, "secret", nil, "")

	_, err := svc.Create(f.ctx, ada.ID, "acme", nil)
	assert.True(t, errs.IsMissingRequiredFieldError(err))
	_, err = svc.Create(f.ctx, ada.ID, "acme", []string{"not-an-email"})
	assert.True(t, errs.IsInvalidFieldError(err))
	_, err = svc.Create(f.ctx, ada.ID, "acme", []string{"Bob <bob@example.com>"})
	assert.True(t, errs.IsInvalidFieldError(err))
	_, err = svc.Create(f.ctx, eve.ID, "acme", []string{"bob@example.com"})
	assert.True(t, errs.IsForbidden(err))
	_, err = svc.Create(f.ctx, ada.ID, "missing", []string{"bob@example.com"})
	assert.True(t, errs.IsNotFound(err))
}

func TestResendMailerSend(t *testing.T) {
	var got ResendEmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"id":"email_1"}`))
	}))
	defer srv.Close()

	m := &ResendMailer{APIKey: "re_test", FromEmail: "Round <round@example.com>", Endpoint: srv.URL}
	require.NoError(t, m.Send(context.Background(), "Hi", "<p>hi</p>", []string{"bob@example.com"}))
	assert.Equal(t, []string{"bob@example.com"}, got.To)
	assert.Equal(t, "Hi", got.Subject)

	assert.Error(t, m.Send(context.Background(), "Hi", "", nil))
}

func TestResendMailerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	m := &ResendMailer{APIKey: "re_test", FromEmail: "x", Endpoint: srv.URL}
	err := m.Send(context.Background(), "Hi", "", []string{"bob@example.com"})
	assert.ErrorContains(t, err, "invalid from")
}

func TestNewResendMailerNeedsConfig(t *testing.T) {
	assert.Nil(t, NewResendMailer(map[string]string{"RESEND_API_KEY": "k"}))
	assert.NotNil(t, NewResendMailer(map[string]string{"RESEND_API_KEY": "k", "RESEND_FROM_EMAIL": "a@b.c"}))
}
