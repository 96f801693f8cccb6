package models

import "time"

// ProjectMember grants a user read and write access to a project.
type ProjectMember struct {
	ID        string    `json:"id" db:"id" gorm:"type:text;primaryKey;not null"`
	ProjectID string    `json:"projectId" db:"project_id" gorm:"type:text;not null;uniqueIndex:idx_project_member_unique"`
	UserID    string    `json:"userId" db:"user_id" gorm:"type:text;not null;uniqueIndex:idx_project_member_unique;index:idx_project_member_user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at" gorm:"not null"`

	Project *Project `json:"project,omitempty" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
	User    *User    `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}
