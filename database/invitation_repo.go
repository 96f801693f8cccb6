package database

import (
	"context"

	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvitationRepo struct {
	db *gorm.DB
}

func NewInvitationRepo(db *gorm.DB) *InvitationRepo {
	return &InvitationRepo{db}
}

// Upsert stores the invitations and returns the stored rows in input order.
// Tokens are deterministic per (email, project), so inviting an address again
// renews the existing row, which keeps its ID and creation time.
func (r *InvitationRepo) Upsert(ctx context.Context, invitations []models.ProjectInvitation) ([]models.ProjectInvitation, error) {
	if len(invitations) == 0 {
		return []models.ProjectInvitation{}, nil
	}
	tokens := make([]string, len(invitations))
	for i, inv := range invitations {
		tokens[i] = inv.Token
	}

	var stored []models.ProjectInvitation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"invited_by_id", "status", "expires_at", "updated_at"}),
		}).Create(&invitations).Error
		if err != nil {
			return err
		}
		return tx.Where("token IN ?", tokens).Find(&stored).Error
	})
	if err != nil {
		return nil, errs.NewDatabaseError("create", "invitations", err)
	}

	byToken := make(map[string]models.ProjectInvitation, len(stored))
	for _, inv := range stored {
		byToken[inv.Token] = inv
	}
	out := make([]models.ProjectInvitation, 0, len(tokens))
	for _, token := range tokens {
		if inv, ok := byToken[token]; ok {
			out = append(out, inv)
		}
	}
	return out, nil
}

// ListByProject returns a project's invitations, newest first
func (r *InvitationRepo) ListByProject(ctx context.Context, projectID string) ([]models.ProjectInvitation, error) {
	invitations := []models.ProjectInvitation{}
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "invitations", err)
	}
	return invitations, nil
}
