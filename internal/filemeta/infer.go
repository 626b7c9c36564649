package filemeta

import (
	"path/filepath"
	"strings"

	"github.com/Talalkassab/manfaa-api/internal/model"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".bmp":  true,
}

var legalKeywords = []string{"legal", "contract", "agreement"}

// InferCategory guesses a display category for a file with no metadata row.
// Precedence: file extension, then MIME type, then filename keywords. This
// is best effort and only affects default grouping in the UI, never access
// control.
func InferCategory(fileName, contentType string) model.FileCategory {
	ext := strings.ToLower(filepath.Ext(fileName))
	if imageExtensions[ext] {
		return model.CategoryImages
	}

	if strings.HasPrefix(contentType, "image/") {
		return model.CategoryImages
	}

	lower := strings.ToLower(fileName)
	if strings.Contains(lower, "financ") {
		return model.CategoryFinancial
	}
	for _, kw := range legalKeywords {
		if strings.Contains(lower, kw) {
			return model.CategoryLegal
		}
	}

	return model.CategoryOther
}
