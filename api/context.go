package api

import (
	"context"

	"github.com/rpupo63/round/models"
)

type keyType string

const (
	userIDKey  keyType = "userID"
	sessionKey keyType = "session"
)

// ctxWithSession stores the resolved session and its user ID.
func ctxWithSession(ctx context.Context, session *models.Session) context.Context {
	ctx = context.WithValue(ctx, sessionKey, session)
	return context.WithValue(ctx, userIDKey, session.UserID)
}

// ctxGetUserID returns the authenticated user's ID, or "" outside authenticated routes.
func ctxGetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

func ctxGetSession(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionKey).(*models.Session)
	return session
}
