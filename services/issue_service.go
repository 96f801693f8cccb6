package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rpupo63/round/cache"
	"github.com/rpupo63/round/database"
	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// IssueNotFoundMessage is the only failure text an issue field update reports
// for a missing issue or one the caller did not create.
const IssueNotFoundMessage = "issue not found"

type CreateIssueInput struct {
	Title          string               `json:"title"`
	Description    *string              `json:"description"`
	Status         models.IssueStatus   `json:"status"`
	Priority       models.IssuePriority `json:"priority"`
	TargetDate     *time.Time           `json:"targetDate"`
	AssignedUserID *string              `json:"assignedUserId"`
	Labels         []string             `json:"labels"`
}

// IssueGroup is one board column.
type IssueGroup struct {
	Status models.IssueStatus `json:"status"`
	Issues []models.Issue     `json:"issues"`
}

type IssueService struct {
	db        database.Database
	readModel *cache.ReadModel
	logger    zerolog.Logger
	now       func() time.Time
}

func NewIssueService(db database.Database, readModel *cache.ReadModel) *IssueService {
	return &IssueService{
		db:        db,
		readModel: readModel,
		logger:    log.With().Str("service", "issues").Logger(),
		now:       time.Now,
	}
}

// WithClock replaces the time source used for updated_at.
func (s *IssueService) WithClock(now func() time.Time) *IssueService {
	s.now = now
	return s
}

// Create adds an issue to projectID on behalf of a member and assigns it the
// project's next number.
func (s *IssueService) Create(ctx context.Context, userID, projectID string, in CreateIssueInput) (*models.Issue, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, errs.NewMissingRequiredFieldError("title")
	}
	status := in.Status
	if status == "" {
		status = models.StatusBacklog
	}
	if !status.Valid() {
		return nil, errs.NewInvalidFieldError("status", "unknown status "+string(status))
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityNone
	}
	if !priority.Valid() {
		return nil, errs.NewInvalidFieldError("priority", "unknown priority "+string(priority))
	}
	labels, err := models.NormalizeLabels(in.Labels)
	if err != nil {
		return nil, errs.NewInvalidFieldError("labels", err.Error())
	}

	if _, err := s.db.ProjectRepo().FindByID(ctx, projectID); err != nil {
		return nil, err
	}
	if err := requireMember(ctx, s.db, projectID, userID); err != nil {
		return nil, err
	}
	assignee := in.AssignedUserID
	if assignee != nil && *assignee == "" {
		assignee = nil
	}
	if assignee != nil {
		if err := s.requireAssignable(ctx, projectID, *assignee); err != nil {
			return nil, err
		}
	}

	issue := &models.Issue{
		Title:          title,
		Description:    in.Description,
		Labels:         datatypes.JSONSlice[string](labels),
		Status:         status,
		Priority:       priority,
		ProjectID:      projectID,
		CreatedByID:    userID,
		AssignedUserID: assignee,
		TargetDate:     in.TargetDate,
	}
	if err := s.db.IssueRepo().Add(ctx, issue); err != nil {
		return nil, err
	}

	s.invalidateCounts(ctx, projectID)
	s.logger.Info().Str("issueId", issue.ID).Str("userId", userID).Msg("Issue created")
	return issue, nil
}

// Get returns one issue from a project the user may read.
func (s *IssueService) Get(ctx context.Context, userID, issueID string) (*models.Issue, error) {
	issue, err := s.db.IssueRepo().FindByID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	project, err := s.readModel.Project(ctx, issue.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := requireReadable(ctx, s.db, project, userID); err != nil {
		return nil, err
	}
	return issue, nil
}

// ListGrouped returns every status column in board order. Each column holds
// its issues most urgent first, then by number.
func (s *IssueService) ListGrouped(ctx context.Context, userID, projectID string) ([]IssueGroup, error) {
	project, err := s.readModel.Project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := requireReadable(ctx, s.db, project, userID); err != nil {
		return nil, err
	}
	issues, err := s.db.IssueRepo().ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return GroupByStatus(issues), nil
}

// GroupByStatus buckets issues into one group per known status.
func GroupByStatus(issues []models.Issue) []IssueGroup {
	groups := make([]IssueGroup, len(models.Statuses))
	index := make(map[models.IssueStatus]int, len(models.Statuses))
	for i, st := range models.Statuses {
		groups[i] = IssueGroup{Status: st, Issues: []models.Issue{}}
		index[st] = i
	}
	for _, issue := range issues {
		i, ok := index[issue.Status]
		if !ok {
			continue
		}
		groups[i].Issues = append(groups[i].Issues, issue)
	}
	for _, g := range groups {
		sort.SliceStable(g.Issues, func(a, b int) bool {
			ra, rb := g.Issues[a].Priority.Rank(), g.Issues[b].Priority.Rank()
			if ra != rb {
				return ra > rb
			}
			return g.Issues[a].Number < g.Issues[b].Number
		})
	}
	return groups
}

// UpdateField applies one field change. Only the issue's creator may change
// it; any other caller gets the same not-found error as for a missing issue.
func (s *IssueService) UpdateField(ctx context.Context, userID, issueID string, update FieldUpdate) error {
	logger := s.logger.With().Str("issueId", issueID).Str("field", update.Field()).Logger()

	issue, err := s.db.IssueRepo().FindByID(ctx, issueID)
	if err != nil {
		if errs.IsNotFound(err) {
			return errs.NewNotFoundError(IssueNotFoundMessage)
		}
		return err
	}
	if issue.CreatedByID != userID {
		return errs.NewNotFoundError(IssueNotFoundMessage)
	}

	column, value, err := update.resolve(ctx, s, issue)
	if err != nil {
		return err
	}

	n, err := s.db.IssueRepo().UpdateColumn(ctx, issueID, userID, column, value, s.now())
	if err != nil {
		logger.Error().Err(err).Msg("Issue update failed")
		return err
	}
	if n == 0 {
		return errs.NewNotFoundError(IssueNotFoundMessage)
	}

	s.invalidateCounts(ctx, issue.ProjectID)
	logger.Debug().Msg("Issue updated")
	return nil
}

func (s *IssueService) requireAssignable(ctx context.Context, projectID, userID string) error {
	ok, err := s.db.MemberRepo().IsMember(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.NewInvalidFieldError("assignedUserId", "assignee is not a project member")
	}
	return nil
}

func (s *IssueService) invalidateCounts(ctx context.Context, projectID string) {
	if err := s.readModel.InvalidateProjectIssues(ctx, projectID); err != nil {
		s.logger.Warn().Err(err).Str("projectId", projectID).Msg("Failed to invalidate issue counts")
	}
}
