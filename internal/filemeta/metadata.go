// Package filemeta reads and writes the business_files side table and
// reconciles it against what is actually present in object storage.
//
// Storage is the source of truth for whether a file exists; the metadata
// row is the source of truth for its visibility, category and description.
// Uploads write both, but the two can drift apart (interrupted uploads,
// out-of-band bucket edits), so reads merge them instead of trusting
// either side alone.
package filemeta

import (
	"path"

	"github.com/Talalkassab/manfaa-api/internal/model"
	"github.com/Talalkassab/manfaa-api/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the file metadata accessor
type Store struct {
	db                *gorm.DB
	defaultVisibility model.Visibility
}

func NewStore(db *gorm.DB, defaultVisibility model.Visibility) *Store {
	if !defaultVisibility.Known() {
		// Fail restrictive on a misconfigured default
		defaultVisibility = model.VisibilityPrivate
	}
	return &Store{db: db, defaultVisibility: defaultVisibility}
}

// Upsert inserts or updates the metadata row keyed by file path
func (s *Store) Upsert(meta *model.BusinessFile) error {
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "file_path"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"bucket", "file_name", "file_type", "file_size",
			"visibility", "category", "description", "updated_at",
		}),
	}).Create(meta).Error
}

// FindByPath returns the metadata row for an object path, or nil when no
// row exists
func (s *Store) FindByPath(filePath string) (*model.BusinessFile, error) {
	var meta model.BusinessFile
	err := s.db.Where("file_path = ?", filePath).First(&meta).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &meta, nil
}

// FindByID returns the metadata row by primary key
func (s *Store) FindByID(id uint) (*model.BusinessFile, error) {
	var meta model.BusinessFile
	if err := s.db.First(&meta, id).Error; err != nil {
		return nil, err
	}
	return &meta, nil
}

// ListForBusiness returns all metadata rows for a business
func (s *Store) ListForBusiness(businessID uint) ([]model.BusinessFile, error) {
	var rows []model.BusinessFile
	err := s.db.Where("business_id = ?", businessID).Order("id").Find(&rows).Error
	return rows, err
}

// Delete removes a metadata row
func (s *Store) Delete(id uint) error {
	return s.db.Delete(&model.BusinessFile{}, id).Error
}

// Reconcile merges the storage listing with the metadata rows for a
// business. Objects with a row keep the row's visibility and category;
// objects without one get an inferred category and the configured default
// visibility. Rows whose object has vanished from storage are dropped from
// the result, since storage decides existence. Synthesized entries are not
// persisted.
func (s *Store) Reconcile(businessID uint, listed []storage.Resolved) ([]model.BusinessFile, error) {
	rows, err := s.ListForBusiness(businessID)
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]model.BusinessFile, len(rows))
	for _, row := range rows {
		byPath[row.FilePath] = row
	}

	out := make([]model.BusinessFile, 0, len(listed))
	for _, obj := range listed {
		if row, ok := byPath[obj.Path]; ok {
			out = append(out, row)
			continue
		}
		name := path.Base(obj.Path)
		out = append(out, model.BusinessFile{
			BusinessID: businessID,
			Bucket:     obj.Bucket,
			FilePath:   obj.Path,
			FileName:   name,
			FileType:   obj.ContentType,
			Visibility: s.defaultVisibility,
			Category:   InferCategory(name, obj.ContentType),
		})
	}
	return out, nil
}
