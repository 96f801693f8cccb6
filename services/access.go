package services

import (
	"context"

	"github.com/rpupo63/round/database"
	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
)

// requireMember fails with 403 unless userID belongs to projectID.
func requireMember(ctx context.Context, db database.Database, projectID, userID string) error {
	ok, err := db.MemberRepo().IsMember(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.NewNotAMemberError(projectID)
	}
	return nil
}

// requireReadable lets anyone read public projects and members read the rest.
func requireReadable(ctx context.Context, db database.Database, project *models.Project, userID string) error {
	if project.IsPublic {
		return nil
	}
	return requireMember(ctx, db, project.ID, userID)
}
