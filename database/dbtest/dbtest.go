// Package dbtest opens throwaway SQLite databases with the full schema for
// tests.
package dbtest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rpupo63/round/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory database private to the test. It holds a
// single connection, so concurrent transactions queue instead of failing
// with SQLITE_BUSY.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

// User inserts a user with a unique email.
func User(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// Project inserts a project owned by owner and makes the owner a member.
func Project(t testing.TB, db *gorm.DB, id, shortName string, owner *models.User) *models.Project {
	t.Helper()
	p := &models.Project{
		ID:        id,
		Name:      id,
		ShortName: shortName,
		OwnerID:   owner.ID,
	}
	require.NoError(t, db.Create(p).Error)
	Member(t, db, p, owner)
	return p
}

// Member adds user to project.
func Member(t testing.TB, db *gorm.DB, project *models.Project, user *models.User) {
	t.Helper()
	require.NoError(t, db.Create(&models.ProjectMember{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		UserID:    user.ID,
	}).Error)
}

// Clock returns a deterministic clock that advances by step on each call.
func Clock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}
