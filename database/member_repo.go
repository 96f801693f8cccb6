package database

import (
	"context"

	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

type MemberRepo struct {
	db *gorm.DB
}

func NewMemberRepo(db *gorm.DB) *MemberRepo {
	return &MemberRepo{db}
}

// ListUsers returns the users that belong to a project, in join order
func (r *MemberRepo) ListUsers(ctx context.Context, projectID string) ([]models.User, error) {
	users := []models.User{}
	err := r.db.WithContext(ctx).
		Joins("JOIN project_members ON project_members.user_id = users.id").
		Where("project_members.project_id = ?", projectID).
		Order("project_members.created_at ASC, users.id ASC").
		Find(&users).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "project members", err)
	}
	return users, nil
}

// Count returns how many members a project has
func (r *MemberRepo) Count(ctx context.Context, projectID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.ProjectMember{}).Where("project_id = ?", projectID).Count(&n).Error; err != nil {
		return 0, errs.NewDatabaseError("count", "project members", err)
	}
	return n, nil
}

// IsMember reports whether userID belongs to projectID. It always reads from
// the primary so a membership granted a moment ago is visible.
func (r *MemberRepo) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&n).Error
	if err != nil {
		return false, errs.NewDatabaseError("check", "project membership", err)
	}
	return n > 0, nil
}

