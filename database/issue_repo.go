package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxAllocationAttempts bounds how often Add retries after losing a race for
// the next issue number.
const MaxAllocationAttempts = 5

// IssueCounts is the total and not-done number of live issues in a project.
type IssueCounts struct {
	Total int64 `json:"total"`
	Open  int64 `json:"open"`
}

type IssueRepo struct {
	db *gorm.DB
}

func NewIssueRepo(db *gorm.DB) *IssueRepo {
	return &IssueRepo{db}
}

// Add allocates the next number in issue.ProjectID, derives the public ID
// from the project's short name and inserts the issue. Allocation and insert
// share one transaction holding a lock on the project row; a unique
// violation on (project_id, number) restarts the allocation.
func (r *IssueRepo) Add(ctx context.Context, issue *models.Issue) error {
	if issue.Labels == nil {
		issue.Labels = datatypes.JSONSlice[string]{}
	}

	var lastErr error
	for attempt := 0; attempt < MaxAllocationAttempts; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return allocateAndInsert(tx, issue)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NewNotFoundError("project not found")
		}
		if !errs.IsUniqueViolation(err) {
			return errs.NewDatabaseError("create", "issue", err)
		}
		lastErr = err
	}
	return errs.NewUniqueConstraintViolationError("issue", "number",
		fmt.Errorf("gave up after %d attempts: %w", MaxAllocationAttempts, lastErr))
}

func allocateAndInsert(tx *gorm.DB, issue *models.Issue) error {
	var project models.Project
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "short_name").
		First(&project, "id = ?", issue.ProjectID).Error
	if err != nil {
		return err
	}

	// Soft-deleted issues keep their numbers.
	var highest int
	err = tx.Unscoped().
		Model(&models.Issue{}).
		Where("project_id = ?", issue.ProjectID).
		Select("COALESCE(MAX(number), 0)").
		Scan(&highest).Error
	if err != nil {
		return err
	}

	issue.Number = highest + 1
	issue.ID = models.FormatIssueID(project.ShortName, issue.Number)
	return tx.Create(issue).Error
}

// FindByID returns a live issue with its assignee
func (r *IssueRepo) FindByID(ctx context.Context, id string) (*models.Issue, error) {
	var issue models.Issue
	if err := r.db.WithContext(ctx).Preload("AssignedUser").First(&issue, "id = ?", id).Error; err != nil {
		return nil, errs.NewDatabaseError("find", "issue", err)
	}
	return &issue, nil
}

// ListByProject returns the live issues of a project with their assignees,
// in creation order.
func (r *IssueRepo) ListByProject(ctx context.Context, projectID string) ([]models.Issue, error) {
	issues := []models.Issue{}
	err := r.db.WithContext(ctx).
		Preload("AssignedUser").
		Where("project_id = ?", projectID).
		Order("number ASC").
		Find(&issues).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "issues", err)
	}
	return issues, nil
}

// UpdateColumn sets one column and updated_at on the issue, but only when
// creatorID created it and it is not deleted. It returns the affected row
// count; zero means the issue is missing or belongs to someone else.
func (r *IssueRepo) UpdateColumn(ctx context.Context, issueID, creatorID, column string, value any, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Issue{}).
		Where("id = ? AND created_by_id = ?", issueID, creatorID).
		Updates(map[string]any{
			column:       value,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, errs.NewDatabaseError("update", "issue", res.Error)
	}
	return res.RowsAffected, nil
}

// Counts returns the number of live issues in a project and how many of them
// are not done.
func (r *IssueRepo) Counts(ctx context.Context, projectID string) (IssueCounts, error) {
	var row struct {
		Total     int64
		OpenCount int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Issue{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN status <> ? THEN 1 ELSE 0 END), 0) AS open_count", models.StatusDone).
		Where("project_id = ?", projectID).
		Scan(&row).Error
	if err != nil {
		return IssueCounts{}, errs.NewDatabaseError("count", "issues", err)
	}
	return IssueCounts{Total: row.Total, Open: row.OpenCount}, nil
}
