package models

import "time"

// User is an identity created by the login flow on first sign-in.
type User struct {
	ID            string    `json:"id" db:"id" gorm:"type:text;primaryKey;not null"`
	Name          string    `json:"name" db:"name" gorm:"type:text;not null"`
	Email         string    `json:"email" db:"email" gorm:"type:text;not null;uniqueIndex:idx_user_email"`
	EmailVerified bool      `json:"emailVerified" db:"email_verified" gorm:"not null;default:false"`
	Image         *string   `json:"image,omitempty" db:"image" gorm:"type:text"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at" gorm:"not null"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at" gorm:"not null"`
}

// Session is a server-side login record. The cookie handed to the browser is
// a signed token naming TokenID; deleting the row revokes it.
type Session struct {
	ID        string    `json:"id" db:"id" gorm:"type:text;primaryKey;not null"`
	TokenID   string    `json:"-" db:"token_id" gorm:"type:text;not null;uniqueIndex:idx_session_token_id"`
	UserID    string    `json:"userId" db:"user_id" gorm:"type:text;not null;index:idx_session_user_id"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at" gorm:"not null"`
	IPAddress *string   `json:"ipAddress,omitempty" db:"ip_address" gorm:"type:text"`
	UserAgent *string   `json:"userAgent,omitempty" db:"user_agent" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at" gorm:"not null"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// Account links a User to an identity at an OAuth provider.
type Account struct {
	ID          string    `json:"id" db:"id" gorm:"type:text;primaryKey;not null"`
	ProviderID  string    `json:"providerId" db:"provider_id" gorm:"type:text;not null;uniqueIndex:idx_account_provider"`
	AccountID   string    `json:"accountId" db:"account_id" gorm:"type:text;not null;uniqueIndex:idx_account_provider"`
	UserID      string    `json:"userId" db:"user_id" gorm:"type:text;not null;index:idx_account_user_id"`
	AccessToken *string   `json:"-" db:"access_token" gorm:"type:text"`
	Scope       *string   `json:"scope,omitempty" db:"scope" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at" gorm:"not null"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at" gorm:"not null"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}
