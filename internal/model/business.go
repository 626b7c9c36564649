package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BusinessStatus is the listing approval state. Transitions out of pending
// happen only through admin action.
type BusinessStatus string

const (
	BusinessStatusPending  BusinessStatus = "pending"
	BusinessStatusApproved BusinessStatus = "approved"
	BusinessStatusRejected BusinessStatus = "rejected"
)

// Business represents a business listed for sale
type Business struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"type:varchar(200);not null"`
	Category    string `json:"category" gorm:"type:varchar(100);index"`
	Description string `json:"description" gorm:"type:text"`
	Location    string `json:"location" gorm:"type:varchar(200);index"`

	// Core financials are flat columns so they can be filtered and sorted.
	// Pointers keep "unset" distinct from zero and negative values.
	AskingPrice *float64 `json:"asking_price,omitempty" gorm:"type:numeric(14,2)"`
	Revenue     *float64 `json:"revenue,omitempty" gorm:"type:numeric(14,2)"`
	Profit      *float64 `json:"profit,omitempty" gorm:"type:numeric(14,2)"`

	// Details carries the secondary listing fields (established year,
	// employees, reason for selling, ...) as a JSONB container. The field
	// mapping table in internal/mapping is the only writer.
	Details datatypes.JSON `json:"details,omitempty" gorm:"type:jsonb"`

	PrivacyLevel Visibility     `json:"privacy_level" gorm:"type:varchar(20);not null;default:'public'"`
	Status       BusinessStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	OwnerID      uint           `json:"owner_id" gorm:"index;not null"` // immutable after creation

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Business) TableName() string {
	return "businesses"
}

// IsApproved reports whether the listing is publicly visible
func (b *Business) IsApproved() bool {
	return b.Status == BusinessStatusApproved
}
