package services

import (
	"context"
	"testing"
	"time"

	"github.com/rpupo63/round/cache"
	"github.com/rpupo63/round/database"
	"github.com/rpupo63/round/database/dbtest"
	"gorm.io/gorm"
)

type fixture struct {
	gdb       *gorm.DB
	db        database.Database
	readModel *cache.ReadModel
	projects  *ProjectService
	issues    *IssueService
	ctx       context.Context
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gdb := dbtest.Open(t)
	db := database.New(gdb)
	rm := cache.NewReadModel(cache.NewDBSource(db), cache.NewMemoryStore(), time.Hour)
	clock := dbtest.Clock(time.Now(), time.Minute)
	return fixture{
		gdb:       gdb,
		db:        db,
		readModel: rm,
		projects:  NewProjectService(db, rm),
		issues:    NewIssueService(db, rm).WithClock(clock),
		ctx:       context.Background(),
	}
}

func ptr[T any](v T) *T {
	return &v
}
