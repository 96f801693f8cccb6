package cache

import (
	"context"

	"github.com/rpupo63/round/database"
	"github.com/rpupo63/round/models"
)

// DBSource answers read-model queries from the repositories.
type DBSource struct {
	db database.Database
}

func NewDBSource(db database.Database) DBSource {
	return DBSource{db: db}
}

func (s DBSource) ProjectMembers(ctx context.Context, projectID string) ([]models.User, error) {
	return s.db.MemberRepo().ListUsers(ctx, projectID)
}

func (s DBSource) UserProjects(ctx context.Context, userID string) ([]models.Project, error) {
	return s.db.ProjectRepo().ListForUser(ctx, userID)
}

func (s DBSource) Project(ctx context.Context, projectID string) (*models.Project, error) {
	return s.db.ProjectRepo().FindByID(ctx, projectID)
}

func (s DBSource) UserProjectsWithOwner(ctx context.Context, userID string) ([]models.Project, error) {
	return s.db.ProjectRepo().ListForUserWithOwner(ctx, userID)
}

func (s DBSource) ProjectMembersCount(ctx context.Context, projectID string) (int64, error) {
	return s.db.MemberRepo().Count(ctx, projectID)
}

func (s DBSource) ProjectIssueCounts(ctx context.Context, projectID string) (database.IssueCounts, error) {
	return s.db.IssueRepo().Counts(ctx, projectID)
}
