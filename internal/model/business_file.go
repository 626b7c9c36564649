package model

import (
	"time"
)

// Visibility is the per-file access tier
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityNDA     Visibility = "nda"
	VisibilityPrivate Visibility = "private"
)

// Known reports whether the value is one of the recognized tiers. Access
// checks fail closed on anything else.
func (v Visibility) Known() bool {
	switch v {
	case VisibilityPublic, VisibilityNDA, VisibilityPrivate:
		return true
	}
	return false
}

// FileCategory groups files for display
type FileCategory string

const (
	CategoryImages    FileCategory = "images"
	CategoryFinancial FileCategory = "financial"
	CategoryLegal     FileCategory = "legal"
	CategoryOther     FileCategory = "other"
)

// BusinessFile is the metadata row for an object in storage. Storage is the
// source of truth for existence; this row is the source of truth for
// visibility, category and description. The two can drift apart and are
// reconciled at read time.
type BusinessFile struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	BusinessID uint         `json:"business_id" gorm:"index;not null"`
	Bucket     string       `json:"bucket" gorm:"type:varchar(63);not null"` // bucket that actually took the upload
	FilePath   string       `json:"file_path" gorm:"type:varchar(500);not null;uniqueIndex"`
	FileName   string       `json:"file_name" gorm:"type:varchar(255);not null"`
	FileType   string       `json:"file_type" gorm:"type:varchar(100)"`
	FileSize   int64        `json:"file_size"`
	Visibility Visibility   `json:"visibility" gorm:"type:varchar(20);not null;default:'private'"`
	Category   FileCategory `json:"category" gorm:"type:varchar(20);not null;default:'other'"`

	Description string `json:"description" gorm:"type:text"`
	UploadedBy  uint   `json:"uploaded_by" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BusinessFile) TableName() string {
	return "business_files"
}
