package services

import (
	"context"
	"time"

	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"gorm.io/datatypes"
)

// FieldUpdate is a change to one mutable issue field. The set of
// implementations is closed: StatusUpdate, PriorityUpdate, AssigneeUpdate,
// TargetDateUpdate and LabelsUpdate.
type FieldUpdate interface {
	// Field names the field for logs and error messages.
	Field() string
	// resolve validates the new value for issue and returns the column and
	// value to store.
	resolve(ctx context.Context, s *IssueService, issue *models.Issue) (column string, value any, err error)
}

type StatusUpdate struct {
	Status models.IssueStatus
}

func (StatusUpdate) Field() string { return "status" }

func (u StatusUpdate) resolve(context.Context, *IssueService, *models.Issue) (string, any, error) {
	if !u.Status.Valid() {
		return "", nil, errs.NewInvalidFieldError("status", "unknown status "+string(u.Status))
	}
	return "status", string(u.Status), nil
}

type PriorityUpdate struct {
	Priority models.IssuePriority
}

func (PriorityUpdate) Field() string { return "priority" }

func (u PriorityUpdate) resolve(context.Context, *IssueService, *models.Issue) (string, any, error) {
	if !u.Priority.Valid() {
		return "", nil, errs.NewInvalidFieldError("priority", "unknown priority "+string(u.Priority))
	}
	return "priority", string(u.Priority), nil
}

// AssigneeUpdate assigns the issue to UserID, or unassigns it when UserID is
// nil.
type AssigneeUpdate struct {
	UserID *string
}

func (AssigneeUpdate) Field() string { return "assignedUserId" }

func (u AssigneeUpdate) resolve(ctx context.Context, s *IssueService, issue *models.Issue) (string, any, error) {
	if u.UserID == nil || *u.UserID == "" {
		return "assigned_user_id", nil, nil
	}
	if err := s.requireAssignable(ctx, issue.ProjectID, *u.UserID); err != nil {
		return "", nil, err
	}
	return "assigned_user_id", *u.UserID, nil
}

// TargetDateUpdate sets the target date, or clears it when Date is nil.
type TargetDateUpdate struct {
	Date *time.Time
}

func (TargetDateUpdate) Field() string { return "targetDate" }

func (u TargetDateUpdate) resolve(context.Context, *IssueService, *models.Issue) (string, any, error) {
	if u.Date == nil {
		return "target_date", nil, nil
	}
	return "target_date", *u.Date, nil
}

// LabelsUpdate replaces the label set.
type LabelsUpdate struct {
	Labels []string
}

func (LabelsUpdate) Field() string { return "labels" }

func (u LabelsUpdate) resolve(context.Context, *IssueService, *models.Issue) (string, any, error) {
	labels, err := models.NormalizeLabels(u.Labels)
	if err != nil {
		return "", nil, errs.NewInvalidFieldError("labels", err.Error())
	}
	return "labels", datatypes.JSONSlice[string](labels), nil
}
