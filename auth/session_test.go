package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpupo63/round/database"
	"github.com/rpupo63/round/database/dbtest"
	"github.com/rpupo63/round/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManagerIssueResolveRevoke(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.User(t, db, "ada")
	mgr := NewSessionManager("secret", time.Hour, database.NewSessionRepo(db))
	ctx := context.Background()

	token, session, err := mgr.Issue(ctx, user.ID, RequestMeta{IPAddress: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotNil(t, session.IPAddress)
	assert.Equal(t, "10.0.0.1", *session.IPAddress)

	resolved, err := mgr.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.UserID)
	require.NotNil(t, resolved.User)
	assert.Equal(t, user.Email, resolved.User.Email)

	require.NoError(t, mgr.Revoke(ctx, token))
	_, err = mgr.Resolve(ctx, token)
	assert.True(t, errs.IsInvalidTokenError(err))
}

func TestSessionManagerRejectsBadTokens(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.User(t, db, "ada")
	repo := database.NewSessionRepo(db)
	ctx := context.Background()

	_, err := NewSessionManager("secret", time.Hour, repo).Resolve(ctx, "")
	assert.True(t, errs.IsMissingTokenError(err))

	_, err = NewSessionManager("secret", time.Hour, repo).Resolve(ctx, "not-a-jwt")
	assert.True(t, errs.IsInvalidTokenError(err))

	token, _, err := NewSessionManager("other-secret", time.Hour, repo).Issue(ctx, user.ID, RequestMeta{})
	require.NoError(t, err)
	_, err = NewSessionManager("secret", time.Hour, repo).Resolve(ctx, token)
	assert.True(t, errs.IsInvalidTokenError(err))
}

func TestSessionManagerExpiry(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.User(t, db, "ada")
	now := time.Now()
	mgr := NewSessionManager("secret", time.Hour, database.NewSessionRepo(db)).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	token, _, err := mgr.Issue(ctx, user.ID, RequestMeta{})
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = mgr.Resolve(ctx, token)
	assert.True(t, errs.IsExpiredTokenError(err))
}

func TestTokenFromRequest(t *testing.T) {
	mgr := NewSessionManager("secret", time.Hour, nil)

	r := httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, TokenFromRequest(r))

	r.AddCookie(mgr.Cookie("from-cookie", time.Now().Add(time.Hour), false))
	assert.Equal(t, "from-cookie", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", TokenFromRequest(r))
}
