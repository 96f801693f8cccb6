package models

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
	InvitationExpired  InvitationStatus = "expired"
)

// InvitationTTL is how long an invitation token stays usable.
const InvitationTTL = 7 * 24 * time.Hour

// ProjectInvitation is a single-use invitation for an email address to join a
// project.
type ProjectInvitation struct {
	ID          string           `json:"id" db:"id" gorm:"type:text;primaryKey;not null"`
	Email       string           `json:"email" db:"email" gorm:"type:text;not null;index:idx_invitation_email"`
	Token       string           `json:"-" db:"token" gorm:"type:text;not null;uniqueIndex:idx_invitation_token"`
	ProjectID   string           `json:"projectId" db:"project_id" gorm:"type:text;not null;index:idx_invitation_project_id"`
	InvitedByID string           `json:"invitedById" db:"invited_by_id" gorm:"type:text;not null"`
	Status      InvitationStatus `json:"status" db:"status" gorm:"type:text;not null;default:pending"`
	ExpiresAt   time.Time        `json:"expiresAt" db:"expires_at" gorm:"not null"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at" gorm:"not null"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at" gorm:"not null"`

	Project   *Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
	InvitedBy *User    `json:"-" gorm:"foreignKey:InvitedByID;references:ID;constraint:OnDelete:CASCADE"`
}

// Expired reports whether the invitation can no longer be used at now.
func (i ProjectInvitation) Expired(now time.Time) bool {
	return i.Status == InvitationExpired || !now.Before(i.ExpiresAt)
}
