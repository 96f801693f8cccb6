package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IssueStatus is the workflow state of an issue.
type IssueStatus string

const (
	StatusBacklog    IssueStatus = "backlog"
	StatusTodo       IssueStatus = "todo"
	StatusInProgress IssueStatus = "in_progress"
	StatusReview     IssueStatus = "review"
	StatusDone       IssueStatus = "done"
	StatusCanceled   IssueStatus = "canceled"
	StatusDuplicate  IssueStatus = "duplicate"
)

// Statuses lists every status in board order.
var Statuses = []IssueStatus{
	StatusBacklog,
	StatusTodo,
	StatusInProgress,
	StatusReview,
	StatusDone,
	StatusCanceled,
	StatusDuplicate,
}

func (s IssueStatus) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// IssuePriority is the urgency of an issue.
type IssuePriority string

const (
	PriorityNone   IssuePriority = "no_priority"
	PriorityLow    IssuePriority = "low"
	PriorityMedium IssuePriority = "medium"
	PriorityHigh   IssuePriority = "high"
	PriorityUrgent IssuePriority = "urgent"
)

// Priorities lists every priority from least to most urgent.
var Priorities = []IssuePriority{
	PriorityNone,
	PriorityLow,
	PriorityMedium,
	PriorityHigh,
	PriorityUrgent,
}

func (p IssuePriority) Valid() bool {
	return p.Rank() >= 0
}

// Rank orders priorities; it is -1 for unknown values.
func (p IssuePriority) Rank() int {
	for i, v := range Priorities {
		if p == v {
			return i
		}
	}
	return -1
}

// Issue is a unit of work scoped to one project. ID is "{ShortName}-{Number}"
// and is fixed at creation.
type Issue struct {
	ID             string                      `json:"id" db:"id" gorm:"type:text;primaryKey;not null"`
	Number         int                         `json:"number" db:"number" gorm:"not null;uniqueIndex:idx_issue_project_number"`
	Title          string                      `json:"title" db:"title" gorm:"type:text;not null"`
	Description    *string                     `json:"description,omitempty" db:"description" gorm:"type:text"`
	Labels         datatypes.JSONSlice[string] `json:"labels" db:"labels" gorm:"not null"`
	Status         IssueStatus                 `json:"status" db:"status" gorm:"type:text;not null;default:backlog;index:idx_issue_status"`
	Priority       IssuePriority               `json:"priority" db:"priority" gorm:"type:text;not null;default:no_priority"`
	ProjectID      string                      `json:"projectId" db:"project_id" gorm:"type:text;not null;uniqueIndex:idx_issue_project_number"`
	CreatedByID    string                      `json:"createdById" db:"created_by_id" gorm:"type:text;not null;index:idx_issue_created_by_id"`
	AssignedUserID *string                     `json:"assignedUserId" db:"assigned_user_id" gorm:"type:text;index:idx_issue_assigned_user_id"`
	TargetDate     *time.Time                  `json:"targetDate" db:"target_date"`
	CreatedAt      time.Time                   `json:"createdAt" db:"created_at" gorm:"not null"`
	UpdatedAt      time.Time                   `json:"updatedAt" db:"updated_at" gorm:"not null"`
	DeletedAt      gorm.DeletedAt              `json:"deletedAt,omitempty" db:"deleted_at" gorm:"index"`

	Project      *Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
	CreatedBy    *User    `json:"-" gorm:"foreignKey:CreatedByID;references:ID;constraint:OnDelete:CASCADE"`
	AssignedUser *User    `json:"assignedUser,omitempty" gorm:"foreignKey:AssignedUserID;references:ID;constraint:OnDelete:SET NULL"`
}

// FormatIssueID builds the public issue ID, e.g. "ACM-12".
func FormatIssueID(shortName string, number int) string {
	return fmt.Sprintf("%s-%d", shortName, number)
}

// ParseIssueID splits a public issue ID into its short name and number.
func ParseIssueID(id string) (shortName string, number int, err error) {
	prefix, num, ok := strings.Cut(id, "-")
	if !ok || !ValidShortName(prefix) {
		return "", 0, fmt.Errorf("invalid issue id %q", id)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return "", 0, fmt.Errorf("invalid issue id %q", id)
	}
	return prefix, n, nil
}
