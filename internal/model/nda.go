package model

import (
	"time"
)

// NDAStatus is the signing state. pending moves to approved or rejected,
// both terminal.
type NDAStatus string

const (
	NDAStatusPending  NDAStatus = "pending"
	NDAStatusApproved NDAStatus = "approved"
	NDAStatusRejected NDAStatus = "rejected"
)

// NDA records a buyer's non-disclosure agreement for one business. At most
// one active NDA exists per (business, user) pair.
type NDA struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	BusinessID uint      `json:"business_id" gorm:"not null;uniqueIndex:idx_nda_pair"`
	UserID     uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_nda_pair"`
	Status     NDAStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`

	Terms        string     `json:"terms" gorm:"type:text"`
	SignedAt     time.Time  `json:"signed_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	ValidityDays int        `json:"validity_period"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (NDA) TableName() string {
	return "ndas"
}

// IsTerminal reports whether the status can no longer change
func (n *NDA) IsTerminal() bool {
	return n.Status == NDAStatusApproved || n.Status == NDAStatusRejected
}

// IsActiveAt reports whether the NDA grants access at the given time
func (n *NDA) IsActiveAt(t time.Time) bool {
	if n.Status != NDAStatusApproved {
		return false
	}
	if n.ExpiresAt != nil && n.ExpiresAt.Before(t) {
		return false
	}
	return true
}
