package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"gorm.io/gorm"
)

type SessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db}
}

// Add stores a new session
func (r *SessionRepo) Add(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return errs.NewDatabaseError("create", "session", err)
	}
	return nil
}

// FindActive returns the unexpired session with the given token ID and its user.
func (r *SessionRepo) FindActive(ctx context.Context, tokenID string, now time.Time) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("token_id = ? AND expires_at > ?", tokenID, now).
		First(&session).Error
	if err != nil {
		return nil, errs.NewDatabaseError("find", "session", err)
	}
	return &session, nil
}

// Revoke deletes the session with the given token ID. Revoking an unknown
// token is not an error.
func (r *SessionRepo) Revoke(ctx context.Context, tokenID string) error {
	if err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).Delete(&models.Session{}).Error; err != nil {
		return errs.NewDatabaseError("delete", "session", err)
	}
	return nil
}

// DeleteExpired removes every session that expired before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.Session{})
	if res.Error != nil {
		return 0, errs.NewDatabaseError("delete", "session", res.Error)
	}
	return res.RowsAffected, nil
}
