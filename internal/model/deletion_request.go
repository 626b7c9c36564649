package model

import (
	"time"
)

// DeletionRequestStatus mirrors the listing approval states
type DeletionRequestStatus string

const (
	DeletionStatusPending  DeletionRequestStatus = "pending"
	DeletionStatusApproved DeletionRequestStatus = "approved"
	DeletionStatusRejected DeletionRequestStatus = "rejected"
)

// DeletionRequest is a seller's request to take a listing down, resolved by
// an admin.
type DeletionRequest struct {
	ID         uint                  `json:"id" gorm:"primaryKey"`
	BusinessID uint                  `json:"business_id" gorm:"not null;index"`
	Reason     string                `json:"reason" gorm:"type:text"`
	Status     DeletionRequestStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DeletionRequest) TableName() string {
	return "deletion_requests"
}
