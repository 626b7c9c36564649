// Package nda tracks non-disclosure agreements between buyers and business
// listings. Approval state feeds the file visibility policy.
package nda

import (
	"errors"
	"time"

	"github.com/Talalkassab/manfaa-api/internal/model"
	"gorm.io/gorm"
)

var (
	// ErrTerminal is returned when a transition is attempted on an NDA
	// that is already approved or rejected.
	ErrTerminal = errors.New("nda status is final")

	// ErrRejected is returned when signing is attempted on a pair whose
	// NDA was rejected.
	ErrRejected = errors.New("nda was rejected for this business")
)

// DefaultValidityDays applies when a signing request does not specify one
const DefaultValidityDays = 365

// Accessor reads and writes NDA state
type Accessor struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAccessor(db *gorm.DB) *Accessor {
	return &Accessor{db: db, now: time.Now}
}

// HasApproved reports whether the user holds an approved, unexpired NDA
// for the business.
func (a *Accessor) HasApproved(businessID, userID uint) (bool, error) {
	var nda model.NDA
	err := a.db.Where("business_id = ? AND user_id = ? AND status = ?",
		businessID, userID, model.NDAStatusApproved).First(&nda).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	return nda.IsActiveAt(a.now()), nil
}

// Find returns the NDA for a (business, user) pair, or nil
func (a *Accessor) Find(businessID, userID uint) (*model.NDA, error) {
	var nda model.NDA
	err := a.db.Where("business_id = ? AND user_id = ?", businessID, userID).First(&nda).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &nda, nil
}

// FindByID returns an NDA by primary key
func (a *Accessor) FindByID(id uint) (*model.NDA, error) {
	var nda model.NDA
	if err := a.db.First(&nda, id).Error; err != nil {
		return nil, err
	}
	return &nda, nil
}

// ListForUser returns the user's NDAs, optionally scoped to one business
func (a *Accessor) ListForUser(userID uint, businessID *uint) ([]model.NDA, error) {
	q := a.db.Where("user_id = ?", userID)
	if businessID != nil {
		q = q.Where("business_id = ?", *businessID)
	}
	var ndas []model.NDA
	err := q.Order("id desc").Find(&ndas).Error
	return ndas, err
}

// Sign creates or refreshes the single NDA for a (business, user) pair.
// When the signer owns the business the NDA short-circuits straight to
// approved; otherwise it stays pending for seller-side approval. An
// already approved NDA is returned as-is; a rejected one cannot be
// re-signed.
func (a *Accessor) Sign(businessID, userID, ownerID uint, terms string, validityDays int) (*model.NDA, error) {
	if validityDays <= 0 {
		validityDays = DefaultValidityDays
	}

	existing, err := a.Find(businessID, userID)
	if err != nil {
		return nil, err
	}

	switch {
	case existing != nil && existing.Status == model.NDAStatusApproved:
		return existing, nil
	case existing != nil && existing.Status == model.NDAStatusRejected:
		return nil, ErrRejected
	}

	now := a.now()
	nda := existing
	if nda == nil {
		nda = &model.NDA{
			BusinessID: businessID,
			UserID:     userID,
		}
	}
	nda.Terms = terms
	nda.SignedAt = now
	nda.ValidityDays = validityDays
	nda.Status = model.NDAStatusPending

	if userID == ownerID {
		nda.Status = model.NDAStatusApproved
		expires := now.AddDate(0, 0, validityDays)
		nda.ExpiresAt = &expires
	}

	if err := a.db.Save(nda).Error; err != nil {
		return nil, err
	}
	return nda, nil
}

// Resolve transitions a pending NDA to approved or rejected. Both outcomes
// are terminal.
func (a *Accessor) Resolve(id uint, approve bool) (*model.NDA, error) {
	nda, err := a.FindByID(id)
	if err != nil {
		return nil, err
	}
	if nda.IsTerminal() {
		return nil, ErrTerminal
	}

	if approve {
		nda.Status = model.NDAStatusApproved
		expires := a.now().AddDate(0, 0, nda.ValidityDays)
		nda.ExpiresAt = &expires
	} else {
		nda.Status = model.NDAStatusRejected
	}

	if err := a.db.Save(nda).Error; err != nil {
		return nil, err
	}
	return nda, nil
}
