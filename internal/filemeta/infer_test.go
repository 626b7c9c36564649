package filemeta

import (
	"testing"

	"github.com/Talalkassab/manfaa-api/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestInferCategory(t *testing.T) {
	tests := []struct {
		name        string
		fileName    string
		contentType string
		want        model.FileCategory
	}{
		{"image extension", "storefront.JPG", "", model.CategoryImages},
		{"image mime without extension", "photo", "image/png", model.CategoryImages},
		{"financial keyword", "financial-statement-2025.pdf", "application/pdf", model.CategoryFinancial},
		{"financials variant", "Financials.xlsx", "", model.CategoryFinancial},
		{"legal keyword", "lease-agreement.pdf", "application/pdf", model.CategoryLegal},
		{"contract keyword", "supplier_contract.docx", "", model.CategoryLegal},
		{"fallback", "notes.txt", "text/plain", model.CategoryOther},
		{"empty", "", "", model.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferCategory(tt.fileName, tt.contentType))
		})
	}
}

func TestInferCategoryExtensionBeatsKeyword(t *testing.T) {
	// A scan of a contract is still grouped with images
	assert.Equal(t, model.CategoryImages, InferCategory("contract-scan.png", ""))
}
