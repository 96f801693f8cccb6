package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rpupo63/round/cache"
	"github.com/rpupo63/round/database"
	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type CreateProjectInput struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	ShortName   string     `json:"shortName"`
	Description *string    `json:"description"`
	IsPublic    bool       `json:"isPublic"`
	TargetDate  *time.Time `json:"targetDate"`
	Icon        *string    `json:"icon"`
}

// ProjectSummary is a dashboard row: the project, its owner and progress.
type ProjectSummary struct {
	models.Project
	IssueCount        int64 `json:"issueCount"`
	OpenIssueCount    int64 `json:"openIssueCount"`
	MemberCount       int64 `json:"memberCount"`
	CompletionPercent int   `json:"completionPercent"`
}

type ProjectService struct {
	db        database.Database
	readModel *cache.ReadModel
	logger    zerolog.Logger
}

func NewProjectService(db database.Database, readModel *cache.ReadModel) *ProjectService {
	return &ProjectService{
		db:        db,
		readModel: readModel,
		logger:    log.With().Str("service", "projects").Logger(),
	}
}

// Create validates the input, stores the project with userID as owner and
// first member, and drops the owner's cached project lists.
func (s *ProjectService) Create(ctx context.Context, userID string, in CreateProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errs.NewMissingRequiredFieldError("name")
	}
	id := models.Slugify(in.ID)
	if !models.ValidProjectID(id) {
		return nil, errs.NewInvalidFieldError("id", "must be 3 to 20 lowercase letters or dashes")
	}
	if !models.ValidShortName(in.ShortName) {
		return nil, errs.NewInvalidFieldError("shortName", "must be exactly three uppercase letters")
	}

	project := &models.Project{
		ID:          id,
		Name:        name,
		ShortName:   in.ShortName,
		Description: in.Description,
		OwnerID:     userID,
		Icon:        in.Icon,
		IsPublic:    in.IsPublic,
		TargetDate:  in.TargetDate,
	}
	if err := s.db.ProjectRepo().Add(ctx, project); err != nil {
		return nil, err
	}

	if err := s.readModel.InvalidateUserProjects(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Str("userId", userID).Msg("Failed to invalidate project lists")
	}
	s.logger.Info().Str("projectId", project.ID).Str("ownerId", userID).Msg("Project created")
	return project, nil
}

// Get returns a project the user may read.
func (s *ProjectService) Get(ctx context.Context, userID, projectID string) (*models.Project, error) {
	project, err := s.readModel.Project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := requireReadable(ctx, s.db, project, userID); err != nil {
		return nil, err
	}
	return project, nil
}

// Members returns the users of a project the user may read.
func (s *ProjectService) Members(ctx context.Context, userID, projectID string) ([]models.User, error) {
	if _, err := s.Get(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.readModel.ProjectMembers(ctx, projectID)
}

// Dashboard lists the user's projects with owner, counts and completion.
func (s *ProjectService) Dashboard(ctx context.Context, userID string) ([]ProjectSummary, error) {
	projects, err := s.readModel.UserProjectsWithOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		counts, err := s.readModel.ProjectIssueCounts(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		members, err := s.readModel.ProjectMembersCount(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, ProjectSummary{
			Project:           p,
			IssueCount:        counts.Total,
			OpenIssueCount:    counts.Open,
			MemberCount:       members,
			CompletionPercent: completionPercent(counts),
		})
	}
	return summaries, nil
}

func completionPercent(c database.IssueCounts) int {
	if c.Total == 0 {
		return 0
	}
	return int(math.Round(float64(c.Total-c.Open) / float64(c.Total) * 100))
}
