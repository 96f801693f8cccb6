package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"gorm.io/gorm"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db}
}

// FindByID returns a user by its ID
func (r *UserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, errs.NewDatabaseError("find", "user", err)
	}
	return &user, nil
}

// FindByEmail returns a user by its email address
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, errs.NewDatabaseError("find", "user", err)
	}
	return &user, nil
}

// UpsertFromProvider links a provider account to a user. An existing account
// refreshes its user's profile; otherwise the user is matched by email or
// created, and the account is attached to it.
func (r *UserRepo) UpsertFromProvider(ctx context.Context, profile models.User, account models.Account) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Account
		err := tx.Where("provider_id = ? AND account_id = ?", account.ProviderID, account.AccountID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.First(&user, "id = ?", existing.UserID).Error; err != nil {
				return err
			}
			if err := tx.Model(&user).Updates(map[string]any{
				"name":  profile.Name,
				"image": profile.Image,
			}).Error; err != nil {
				return err
			}
			return tx.Model(&existing).Updates(map[string]any{
				"access_token": account.AccessToken,
				"scope":        account.Scope,
			}).Error
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		err = tx.First(&user, "email = ?", profile.Email).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = profile
			if user.ID == "" {
				user.ID = uuid.NewString()
			}
			err = tx.Create(&user).Error
		}
		if err != nil {
			return err
		}

		account.UserID = user.ID
		if account.ID == "" {
			account.ID = uuid.NewString()
		}
		return tx.Create(&account).Error
	})
	if err != nil {
		return nil, errs.NewDatabaseError("upsert", "user", err)
	}
	return &user, nil
}
