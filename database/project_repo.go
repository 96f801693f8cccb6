package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"gorm.io/gorm"
)

type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db}
}

// FindByID returns a live project by its slug
func (r *ProjectRepo) FindByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, errs.NewDatabaseError("find", "project", err)
	}
	return &project, nil
}

// FindByIDWithOwner is FindByID with the owner preloaded
func (r *ProjectRepo) FindByIDWithOwner(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Preload("Owner").First(&project, "id = ?", id).Error; err != nil {
		return nil, errs.NewDatabaseError("find", "project", err)
	}
	return &project, nil
}

// ListForUser returns the projects userID is a member of, oldest first
func (r *ProjectRepo) ListForUser(ctx context.Context, userID string) ([]models.Project, error) {
	return r.listForUser(r.db.WithContext(ctx), userID)
}

// ListForUserWithOwner is ListForUser with each owner preloaded
func (r *ProjectRepo) ListForUserWithOwner(ctx context.Context, userID string) ([]models.Project, error) {
	return r.listForUser(r.db.WithContext(ctx).Preload("Owner"), userID)
}

func (r *ProjectRepo) listForUser(db *gorm.DB, userID string) ([]models.Project, error) {
	projects := []models.Project{}
	err := db.
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("project_members.user_id = ?", userID).
		Order("projects.created_at ASC, projects.id ASC").
		Find(&projects).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "projects", err)
	}
	return projects, nil
}

// Add inserts the project and makes its owner the first member in one transaction
func (r *ProjectRepo) Add(ctx context.Context, project *models.Project) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		return tx.Create(&models.ProjectMember{
			ID:        uuid.NewString(),
			ProjectID: project.ID,
			UserID:    project.OwnerID,
		}).Error
	})
	if err != nil {
		return errs.NewDatabaseError("create", "project", err)
	}
	return nil
}
