package models

import (
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	ProjectIDMinLength = 3
	ProjectIDMaxLength = 20
)

var (
	shortNamePattern   = regexp.MustCompile(`^[A-Z]{3}$`)
	slugInvalidChars   = regexp.MustCompile(`[^a-z\s-]`)
	slugWhitespaceRuns = regexp.MustCompile(`\s+`)
)

// Project is a workspace of issues and members. Its ID is a human-chosen slug
// used in URLs and its ShortName prefixes every issue ID.
type Project struct {
	ID          string         `json:"id" db:"id" gorm:"type:text;primaryKey;not null"`
	Name        string         `json:"name" db:"name" gorm:"type:text;not null"`
	ShortName   string         `json:"shortName" db:"short_name" gorm:"type:text;not null;uniqueIndex:idx_project_short_name"`
	Description *string        `json:"description,omitempty" db:"description" gorm:"type:text"`
	OwnerID     string         `json:"ownerId" db:"owner_id" gorm:"type:text;not null;index:idx_project_owner_id"`
	Icon        *string        `json:"icon,omitempty" db:"icon" gorm:"type:text"`
	IsPublic    bool           `json:"isPublic" db:"is_public" gorm:"not null;default:false"`
	TargetDate  *time.Time     `json:"targetDate,omitempty" db:"target_date"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at" gorm:"not null"`
	UpdatedAt   time.Time      `json:"updatedAt" db:"updated_at" gorm:"not null"`
	DeletedAt   gorm.DeletedAt `json:"deletedAt,omitempty" db:"deleted_at" gorm:"index"`

	Owner *User `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID;constraint:OnDelete:CASCADE"`
}

// Slugify turns free-form input into a project ID candidate: lowercase
// letters, spaces and dashes survive, whitespace runs become a dash and the
// result is cut to ProjectIDMaxLength.
func Slugify(input string) string {
	s := strings.ToLower(input)
	s = slugInvalidChars.ReplaceAllString(s, "")
	s = slugWhitespaceRuns.ReplaceAllString(s, "-")
	if len(s) > ProjectIDMaxLength {
		s = s[:ProjectIDMaxLength]
	}
	return s
}

// ValidProjectID reports whether id is an already-slugified project ID of
// acceptable length.
func ValidProjectID(id string) bool {
	if len(id) < ProjectIDMinLength || len(id) > ProjectIDMaxLength {
		return false
	}
	return Slugify(id) == id
}

// ValidShortName reports whether s is exactly three uppercase ASCII letters.
func ValidShortName(s string) bool {
	return shortNamePattern.MatchString(s)
}
