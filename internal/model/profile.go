package model

import (
	"time"
)

// Profile is the seller-facing profile row. The id matches the auth
// provider's user id.
type Profile struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(100)"`
	Email     string    `json:"email" gorm:"type:varchar(100);index"`
	Phone     string    `json:"phone,omitempty" gorm:"type:varchar(30)"`
	AvatarURL string    `json:"avatar_url,omitempty" gorm:"type:varchar(500)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// AuthUser is the read-only fallback when no profile row exists; it shadows
// the auth provider's user table.
type AuthUser struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	Email string `json:"email" gorm:"type:varchar(100)"`
}

func (AuthUser) TableName() string {
	return "auth_users"
}

// Owner is the assembled owner view attached to a business detail response
type Owner struct {
	ID    uint   `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}
