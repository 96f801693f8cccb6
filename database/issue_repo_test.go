package database

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rpupo63/round/database/dbtest"
	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newIssue(projectID, creatorID, title string) *models.Issue {
	return &models.Issue{
		Title:       title,
		ProjectID:   projectID,
		CreatedByID: creatorID,
		Status:      models.StatusBacklog,
		Priority:    models.PriorityNone,
	}
}

func TestIssueRepoAddNumbersSequentially(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.User(t, db, "ada")
	dbtest.Project(t, db, "acme", "ACM", owner)
	repo := NewIssueRepo(db)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		issue := newIssue("acme", owner.ID, fmt.Sprintf("issue %d", i))
		require.NoError(t, repo.Add(ctx, issue))
		assert.Equal(t, i, issue.Number)
		assert.Equal(t, fmt.Sprintf("ACM-%d", i), issue.ID)
	}
}

func TestIssueRepoAddNumbersPerProject(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.User(t, db, "ada")
	dbtest.Project(t, db, "acme", "ACM", owner)
	dbtest.Project(t, db, "zeta", "ZET", owner)
	repo := NewIssueRepo(db)
	ctx := context.Background()

	a := newIssue("acme", owner.ID, "a")
	require.NoError(t, repo.Add(ctx, a))
	z := newIssue("zeta", owner.ID, "z")
	require.NoError(t, repo.Add(ctx, z))

	assert.Equal(t, "ACM-1", a.ID)
	assert.Equal(t, "ZET-1", z.ID)
}

func TestIssueRepoAddSkipsSoftDeletedNumbers(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.User(t, db, "ada")
	dbtest.Project(t, db, "acme", "ACM", owner)
	repo := NewIssueRepo(db)
	ctx := context.Background()

	first := newIssue("acme", owner.ID, "first")
	require.NoError(t, repo.Add(ctx, first))
	require.NoError(t, db.Delete(&models.Issue{}, "id = ?", first.ID).Error)

	second := newIssue("acme", owner.ID, "second")
	require.NoError(t, repo.Add(ctx, second))
	assert.Equal(t, "ACM-2", second.ID)
}

func TestIssueRepoAddUnknownProject(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.User(t, db, "ada")
	repo := NewIssueRepo(db)

	err := repo.Add(context.Background(), newIssue("nope", owner.ID, "x"))
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestIssueRepoAddConcurrent(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.User(t, db, "ada")
	dbtest.Project(t, db, "acme", "ACM", owner)
	repo := NewIssueRepo(db)
	ctx := context.Background()

	const n = 12
	var wg sync.WaitGroup
	ids := make([]string, n)
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			issue := newIssue("acme", owner.ID, fmt.Sprintf("issue %d", i))
			if err := repo.Add(ctx, issue); err != nil {
				errCh <- err
				return
			}
			ids[i] = issue.ID
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[fmt.Sprintf("ACM-%d", i)], "missing ACM-%d", i)
	}
}

// takeNumberFirst makes the next `times` issue inserts lose their number: a
// competing row with the same project and number is written just before each
// insert, inside the same transaction. It returns the insert attempt counter.
func takeNumberFirst(t *testing.T, db *gorm.DB, times int) *atomic.Int64 {
	t.Helper()
	var attempts atomic.Int64
	err := db.Callback().Create().Before("gorm:create").Register("round:take_number", func(tx *gorm.DB) {
		issue, ok := tx.Statement.Dest.(*models.Issue)
		if !ok {
			return
		}
		n := attempts.Add(1)
		if n > int64(times) {
			return
		}
		now := time.Now()
		err := tx.Session(&gorm.Session{NewDB: true}).Exec(
			`INSERT INTO issues (id, number, title, labels, status, priority, project_id, created_by_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fmt.Sprintf("RACE-%d", n), issue.Number, "competing", "[]", models.StatusBacklog, models.PriorityNone,
			issue.ProjectID, issue.CreatedByID, now, now,
		).Error
		if err != nil {
			_ = tx.AddError(err)
		}
	})
	require.NoError(t, err)
	return &attempts
}

func TestIssueRepoAddRetriesLostNumber(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.User(t, db, "ada")
	dbtest.Project(t, db, "acme", "ACM", owner)
	repo := NewIssueRepo(db)
	attempts := takeNumberFirst(t, db, 1)

	issue := newIssue("acme", owner.ID, "first")
	require.NoError(t, repo.Add(context.Background(), issue))
	assert.EqualValues(t, 2, attempts.Load())
	assert.Equal(t, "ACM-1", issue.ID)

	var count int64
	require.NoError(t, db.Model(&models.Issue{}).Where("project_id = ?", "acme").Count(&count).Error)
	assert.EqualValues(t, 1, count, "the failed attempt is rolled back")
}

func TestIssueRepoAddGivesUpAfterMaxAttempts(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.User(t, db, "ada")
	dbtest.Project(t, db, "acme", "ACM", owner)
	repo := NewIssueRepo(db)
	attempts := takeNumberFirst(t, db, MaxAllocationAttempts)

	err := repo.Add(context.Background(), newIssue("acme", owner.ID, "never"))
	require.Error(t, err)
	assert.True(t, errs.IsConflict(err))
	assert.Equal(t, http.StatusConflict, errs.StatusOf(err))
	assert.EqualValues(t, MaxAllocationAttempts, attempts.Load())

	var count int64
	require.NoError(t, db.Model(&models.Issue{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestIssueRepoUpdateColumnOnlyByCreator(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.User(t, db, "ada")
	other := dbtest.User(t, db, "bob")
	project := dbtest.Project(t, db, "acme", "ACM", owner)
	dbtest.Member(t, db, project, other)
	repo := NewIssueRepo(db)
	ctx := context.Background()

	issue := newIssue("acme", owner.ID, "Fix bug")
	require.NoError(t, repo.Add(ctx, issue))
	before, err := repo.FindByID(ctx, issue.ID)
	require.NoError(t, err)

	later := before.UpdatedAt.Add(time.Hour)
	n, err := repo.UpdateColumn(ctx, issue.ID, other.ID, "status", models.StatusDone, later)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.UpdateColumn(ctx, issue.ID, owner.ID, "status", models.StatusDone, later)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	after, err := repo.FindByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, after.Status)
	assert.Equal(t, before.Priority, after.Priority)
	assert.Equal(t, before.Title, after.Title)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestIssueRepoUpdateColumnLabelsAndNulls(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.User(t, db, "ada")
	dbtest.Project(t, db, "acme", "ACM", owner)
	repo := NewIssueRepo(db)
	ctx := context.Background()

	issue := newIssue("acme", owner.ID, "labels")
	require.NoError(t, repo.Add(ctx, issue))

	_, err := repo.UpdateColumn(ctx, issue.ID, owner.ID, "labels", datatypes.JSONSlice[string]{"bug", "security"}, time.Now())
	require.NoError(t, err)
	_, err = repo.UpdateColumn(ctx, issue.ID, owner.ID, "assigned_user_id", owner.ID, time.Now())
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bug", "security"}, []string(got.Labels))
	require.NotNil(t, got.AssignedUser)
	assert.Equal(t, owner.ID, got.AssignedUser.ID)

	_, err = repo.UpdateColumn(ctx, issue.ID, owner.ID, "assigned_user_id", nil, time.Now())
	require.NoError(t, err)
	got, err = repo.FindByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedUserID)
}

func TestIssueRepoCounts(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.User(t, db, "ada")
	dbtest.Project(t, db, "acme", "ACM", owner)
	repo := NewIssueRepo(db)
	ctx := context.Background()

	counts, err := repo.Counts(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, IssueCounts{}, counts)

	var ids []string
	for i := 0; i < 4; i++ {
		issue := newIssue("acme", owner.ID, fmt.Sprintf("issue %d", i))
		require.NoError(t, repo.Add(ctx, issue))
		ids = append(ids, issue.ID)
	}
	_, err = repo.UpdateColumn(ctx, ids[0], owner.ID, "status", models.StatusDone, time.Now())
	require.NoError(t, err)
	require.NoError(t, db.Delete(&models.Issue{}, "id = ?", ids[1]).Error)

	counts, err = repo.Counts(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, IssueCounts{Total: 3, Open: 2}, counts)
}
