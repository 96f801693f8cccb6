package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rpupo63/round/database"
	"github.com/rpupo63/round/database/dbtest"
	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls  atomic.Int64
	counts database.IssueCounts
	gate   chan struct{}
}

func (s *countingSource) ProjectMembers(context.Context, string) ([]models.User, error) {
	s.calls.Add(1)
	return []models.User{{ID: "u1", Name: "Ada"}}, nil
}

func (s *countingSource) UserProjects(context.Context, string) ([]models.Project, error) {
	s.calls.Add(1)
	return []models.Project{{ID: "acme", ShortName: "ACM"}}, nil
}

func (s *countingSource) Project(_ context.Context, id string) (*models.Project, error) {
	s.calls.Add(1)
	if id != "acme" {
		return nil, errs.NewNotFound("project")
	}
	return &models.Project{ID: "acme", Name: "Acme", ShortName: "ACM"}, nil
}

func (s *countingSource) UserProjectsWithOwner(context.Context, string) ([]models.Project, error) {
	s.calls.Add(1)
	return []models.Project{{ID: "acme", Owner: &models.User{ID: "u1"}}}, nil
}

func (s *countingSource) ProjectMembersCount(context.Context, string) (int64, error) {
	s.calls.Add(1)
	return 3, nil
}

func (s *countingSource) ProjectIssueCounts(ctx context.Context, _ string) (database.IssueCounts, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if err := ctx.Err(); err != nil {
		return database.IssueCounts{}, err
	}
	return s.counts, nil
}

func TestReadModelServesFromCache(t *testing.T) {
	src := &countingSource{}
	rm := NewReadModel(src, NewMemoryStore(), time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := rm.Project(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, "Acme", p.Name)
	}
	assert.EqualValues(t, 1, src.calls.Load())

	members, err := rm.ProjectMembers(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Ada", members[0].Name)

	n, err := rm.ProjectMembersCount(ctx, "acme")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	withOwner, err := rm.UserProjectsWithOwner(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, withOwner[0].Owner)
	assert.Equal(t, "u1", withOwner[0].Owner.ID)
}

func TestReadModelDoesNotCacheNotFound(t *testing.T) {
	src := &countingSource{}
	rm := NewReadModel(src, NewMemoryStore(), time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := rm.Project(ctx, "missing")
		assert.True(t, errs.IsNotFound(err))
	}
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestReadModelInvalidation(t *testing.T) {
	src := &countingSource{counts: database.IssueCounts{Total: 1, Open: 1}}
	rm := NewReadModel(src, NewMemoryStore(), time.Hour)
	ctx := context.Background()

	_, err := rm.ProjectIssueCounts(ctx, "acme")
	require.NoError(t, err)
	_, err = rm.UserProjects(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 2, src.calls.Load())

	src.counts = database.IssueCounts{Total: 2, Open: 1}
	require.NoError(t, rm.InvalidateProjectIssues(ctx, "acme"))

	counts, err := rm.ProjectIssueCounts(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, database.IssueCounts{Total: 2, Open: 1}, counts)

	_, err = rm.UserProjects(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, src.calls.Load(), "user projects must stay cached")

	require.NoError(t, rm.InvalidateUserProjects(ctx, "u1"))
	_, err = rm.UserProjects(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, src.calls.Load())
}

func TestReadModelCollapsesConcurrentMisses(t *testing.T) {
	src := &countingSource{gate: make(chan struct{}), counts: database.IssueCounts{Total: 5}}
	rm := NewReadModel(src, NewMemoryStore(), time.Hour)
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]database.IssueCounts, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := rm.ProjectIssueCounts(ctx, "acme")
			assert.NoError(t, err)
			results[i] = c
		}(i)
	}

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the remaining callers time to join the in-flight load.
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.EqualValues(t, 1, src.calls.Load())
	for _, c := range results {
		assert.EqualValues(t, 5, c.Total)
	}
}

func TestReadModelSharedLoadOutlivesCancelledCaller(t *testing.T) {
	src := &countingSource{gate: make(chan struct{}), counts: database.IssueCounts{Total: 2}}
	rm := NewReadModel(src, NewMemoryStore(), time.Hour)
	first, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	var firstErr, secondErr error
	var second database.IssueCounts
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, firstErr = rm.ProjectIssueCounts(first, "acme")
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	go func() {
		defer wg.Done()
		second, secondErr = rm.ProjectIssueCounts(context.Background(), "acme")
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(src.gate)
	wg.Wait()

	require.NoError(t, firstErr)
	require.NoError(t, secondErr)
	assert.EqualValues(t, 2, second.Total)
	assert.EqualValues(t, 1, src.calls.Load())

	// The shared result was cached even though the first caller left.
	_, err := rm.ProjectIssueCounts(context.Background(), "acme")
	require.NoError(t, err)
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestReadModelOverDatabase(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.User(t, db, "ada")
	dbtest.Project(t, db, "acme", "ACM", owner)
	store, _ := newRedisStore(t)
	rm := NewReadModel(NewDBSource(database.New(db)), store, time.Hour)
	ctx := context.Background()

	projects, err := rm.UserProjectsWithOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.NotNil(t, projects[0].Owner)
	assert.Equal(t, owner.Name, projects[0].Owner.Name)

	members, err := rm.ProjectMembers(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, owner.ID, members[0].ID)

	counts, err := rm.ProjectIssueCounts(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, database.IssueCounts{}, counts)
}
