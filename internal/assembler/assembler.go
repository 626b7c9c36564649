// Package assembler composes the business detail view: the listing row,
// its owner, and its files partitioned by what the requester may see.
package assembler

import (
	"context"
	"fmt"

	"github.com/Talalkassab/manfaa-api/internal/filemeta"
	"github.com/Talalkassab/manfaa-api/internal/model"
	"github.com/Talalkassab/manfaa-api/internal/nda"
	"github.com/Talalkassab/manfaa-api/internal/storage"
	"github.com/Talalkassab/manfaa-api/internal/visibility"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileView is a file the requester is allowed to fetch
type FileView struct {
	ID          uint               `json:"id,omitempty"`
	Name        string             `json:"name"`
	URL         string             `json:"url"`
	ContentType string             `json:"content_type,omitempty"`
	Size        int64              `json:"size,omitempty"`
	Category    model.FileCategory `json:"category"`
	Visibility  model.Visibility   `json:"visibility"`
	Description string             `json:"description,omitempty"`
}

// LockedFile is a file the requester may not fetch. Only the name and the
// denial reason are exposed.
type LockedFile struct {
	Name     string             `json:"name"`
	Category model.FileCategory `json:"category"`
	Reason   string             `json:"reason"`
}

// BusinessView is the assembled detail response
type BusinessView struct {
	model.Business
	Owner          *model.Owner `json:"owner,omitempty"`
	Images         []FileView   `json:"images"`
	Documents      []FileView   `json:"documents"`
	ProtectedFiles []LockedFile `json:"protected_files"`
	HasApprovedNDA bool         `json:"has_approved_nda"`
}

// Assembler builds business views
type Assembler struct {
	db       *gorm.DB
	resolver *storage.Resolver
	meta     *filemeta.Store
	ndas     *nda.Accessor
	log      *zap.Logger
}

func New(db *gorm.DB, resolver *storage.Resolver, meta *filemeta.Store, ndas *nda.Accessor, log *zap.Logger) *Assembler {
	return &Assembler{db: db, resolver: resolver, meta: meta, ndas: ndas, log: log}
}

// Assemble builds the detail view for one business. Failures resolving the
// owner or the files degrade to partial data (nil owner, empty lists); only
// a missing business row fails the call.
func (a *Assembler) Assemble(ctx context.Context, businessID uint, requesterID *uint) (*BusinessView, error) {
	var biz model.Business
	if err := a.db.First(&biz, businessID).Error; err != nil {
		return nil, err
	}

	view := &BusinessView{
		Business:       biz,
		Images:         []FileView{},
		Documents:      []FileView{},
		ProtectedFiles: []LockedFile{},
	}

	view.Owner = a.fetchOwner(biz.OwnerID)

	hasNDA := false
	if requesterID != nil {
		ok, err := a.ndas.HasApproved(businessID, *requesterID)
		if err != nil {
			a.log.Warn("NDA lookup failed, treating as unsigned",
				zap.Uint("business_id", businessID), zap.Error(err))
		}
		hasNDA = ok
	}
	view.HasApprovedNDA = hasNDA

	a.attachFiles(ctx, view, requesterID, hasNDA)
	return view, nil
}

// fetchOwner reads the owner profile, falling back to the auth users table
// when no profile row exists. Errors leave the owner empty; a listing page
// without seller info beats a failed fetch.
func (a *Assembler) fetchOwner(ownerID uint) *model.Owner {
	var profile model.Profile
	err := a.db.First(&profile, ownerID).Error
	if err == nil {
		return &model.Owner{ID: profile.ID, Name: profile.Name, Email: profile.Email}
	}
	if err != gorm.ErrRecordNotFound {
		a.log.Warn("Owner profile fetch failed",
			zap.Uint("owner_id", ownerID), zap.String("table", "profiles"), zap.Error(err))
	}

	var user model.AuthUser
	if err := a.db.First(&user, ownerID).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			a.log.Warn("Owner fallback fetch failed",
				zap.Uint("owner_id", ownerID), zap.String("table", "auth_users"), zap.Error(err))
		}
		return nil
	}
	return &model.Owner{ID: user.ID, Email: user.Email}
}

func (a *Assembler) attachFiles(ctx context.Context, view *BusinessView, requesterID *uint, hasNDA bool) {
	listed, err := a.resolver.ListForBusiness(ctx, view.ID)
	if err != nil {
		a.log.Warn("Storage listing failed, returning listing without files",
			zap.Uint("business_id", view.ID), zap.Error(err))
		return
	}

	files, err := a.meta.Reconcile(view.ID, listed)
	if err != nil {
		a.log.Warn("Metadata reconciliation failed, returning listing without files",
			zap.Uint("business_id", view.ID), zap.Error(err))
		return
	}

	for _, f := range files {
		decision := visibility.CanAccess(requesterID, f.Visibility, view.OwnerID, hasNDA)
		if !decision.Allowed {
			view.ProtectedFiles = append(view.ProtectedFiles, LockedFile{
				Name:     f.FileName,
				Category: f.Category,
				Reason:   decision.Reason,
			})
			continue
		}

		fv := FileView{
			ID:          f.ID,
			Name:        f.FileName,
			URL:         fmt.Sprintf("/api/storage/%s/%s", f.Bucket, f.FilePath),
			ContentType: f.FileType,
			Size:        f.FileSize,
			Category:    f.Category,
			Visibility:  f.Visibility,
			Description: f.Description,
		}
		if f.Category == model.CategoryImages {
			view.Images = append(view.Images, fv)
		} else {
			view.Documents = append(view.Documents, fv)
		}
	}
}
