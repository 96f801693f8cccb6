package database

import (
	"context"

	"github.com/rpupo63/round/errs"
	"github.com/rpupo63/round/models"
	"gorm.io/gorm"
)

type Database struct {
	db             *gorm.DB
	userRepo       *UserRepo
	sessionRepo    *SessionRepo
	projectRepo    *ProjectRepo
	memberRepo     *MemberRepo
	issueRepo      *IssueRepo
	invitationRepo *InvitationRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		db:             db,
		userRepo:       NewUserRepo(db),
		sessionRepo:    NewSessionRepo(db),
		projectRepo:    NewProjectRepo(db),
		memberRepo:     NewMemberRepo(db),
		issueRepo:      NewIssueRepo(db),
		invitationRepo: NewInvitationRepo(db),
	}
}

// Accessor methods for each repository

func (d Database) UserRepo() *UserRepo {
	return d.userRepo
}

func (d Database) SessionRepo() *SessionRepo {
	return d.sessionRepo
}

func (d Database) ProjectRepo() *ProjectRepo {
	return d.projectRepo
}

func (d Database) MemberRepo() *MemberRepo {
	return d.memberRepo
}

func (d Database) IssueRepo() *IssueRepo {
	return d.issueRepo
}

func (d Database) InvitationRepo() *InvitationRepo {
	return d.invitationRepo
}

// Ping checks that the primary connection is usable.
func (d Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return errs.NewDatabaseError("open", "connection", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errs.NewDatabaseError("ping", "connection", err)
	}
	return nil
}

// Migrate creates or updates every table.
func (d Database) Migrate(ctx context.Context) error {
	if err := models.Migrate(d.db.WithContext(ctx)); err != nil {
		return errs.NewTransactionFailedError("migration", err)
	}
	return nil
}
