package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rpupo63/round/api"
	"github.com/rpupo63/round/auth"
	"github.com/rpupo63/round/cache"
	"github.com/rpupo63/round/database"
	"github.com/rpupo63/round/database/dbtest"
	"github.com/rpupo63/round/models"
	"github.com/rpupo63/round/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCacheStore(t *testing.T) {
	ctx := context.Background()

	store, closeStore, err := newCacheStore(ctx, map[string]string{})
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryStore{}, store)
	closeStore()

	mr := miniredis.RunT(t)
	store, closeStore, err = newCacheStore(ctx, map[string]string{"CACHE_DRIVER": "redis", "REDIS_ADDR": mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &cache.RedisStore{}, store)
	closeStore()

	_, _, err = newCacheStore(ctx, map[string]string{"CACHE_DRIVER": "memcached"})
	assert.Error(t, err)
}

func TestOpenDatabase(t *testing.T) {
	db, err := openDatabase(map[string]string{
		"DB_TYPE":     "sqlite",
		"SQLITE_PATH": filepath.Join(t.TempDir(), "round.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.New(db).Migrate(context.Background()))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = openDatabase(map[string]string{"DB_TYPE": "oracle"})
	assert.Error(t, err)
	_, err = openDatabase(map[string]string{"DB_TYPE": "postgres"})
	assert.Error(t, err)
}

func TestIssueCommands(t *testing.T) {
	gdb := dbtest.Open(t)
	db := database.New(gdb)
	readModel := cache.NewReadModel(cache.NewDBSource(db), cache.NewMemoryStore(), time.Hour)
	sessions := auth.NewSessionManager("test-secret", time.Hour, db.SessionRepo())
	server, err := api.NewServer(map[string]string{"LOG_FORMAT": "json"}, api.Deps{
		DB:        db,
		ReadModel: readModel,
		Sessions:  sessions,
	})
	require.NoError(t, err)
	srv := httptest.NewServer(server.Handler)
	defer srv.Close()

	ctx := context.Background()
	ada := dbtest.User(t, gdb, "ada")
	bob := dbtest.User(t, gdb, "bob")
	project := dbtest.Project(t, gdb, "acme", "ACM", ada)
	dbtest.Member(t, gdb, project, bob)
	_, err = services.NewIssueService(db, readModel).Create(ctx, ada.ID, "acme", services.CreateIssueInput{Title: "Fix bug"})
	require.NoError(t, err)

	adaToken, _, err := sessions.Issue(ctx, ada.ID, auth.RequestMeta{})
	require.NoError(t, err)
	bobToken, _, err := sessions.Issue(ctx, bob.ID, auth.RequestMeta{})
	require.NoError(t, err)

	run := func(token string, args ...string) (string, error) {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(io.Discard)
		rootCmd.SetArgs(append(args, "--server", srv.URL, "--token", token))
		err := rootCmd.ExecuteContext(ctx)
		return out.String(), err
	}

	out, err := run(adaToken, "issue", "status", "ACM-1", "done")
	require.NoError(t, err)
	assert.Contains(t, out, "Status updated")
	assert.Contains(t, out, "status:   done")

	out, err = run(adaToken, "issue", "labels", "ACM-1", "bug", "feature")
	require.NoError(t, err)
	assert.Contains(t, out, "Labels updated")

	out, err = run(adaToken, "issue", "target-date", "ACM-1", "2025-03-01")
	require.NoError(t, err)
	assert.Contains(t, out, "target:   2025-03-01")

	out, err = run(bobToken, "issue", "priority", "ACM-1", "urgent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issue not found")
	assert.Contains(t, out, "Failed to update priority")

	out, err = run(bobToken, "issue", "show", "ACM-1")
	require.NoError(t, err)
	assert.Contains(t, out, "priority: no_priority")
	assert.Contains(t, out, "labels:   bug, feature")

	out, err = run(adaToken, "issue", "list", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "ACM-1 Fix bug")

	_, err = run(adaToken, "issue", "status", "ACM-1", "blocked")
	assert.ErrorContains(t, err, "unknown status")

	_, err = run(adaToken, "issue", "show", "acme-1")
	assert.ErrorContains(t, err, "invalid issue id")

	issue, err := db.IssueRepo().FindByID(ctx, "ACM-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, issue.Status)
	assert.Equal(t, models.PriorityNone, issue.Priority)
}
