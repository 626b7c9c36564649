package mapping

import (
	"encoding/json"
	"testing"

	"github.com/Talalkassab/manfaa-api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBusinessFlatAndNested(t *testing.T) {
	biz, err := ToBusiness(map[string]interface{}{
		"title":            "Corner Bakery",
		"category":         "food",
		"location":         "Riyadh",
		"privacyLevel":     "nda",
		"askingPrice":      "1,500,000",
		"establishedYear":  float64(2015),
		"reasonForSelling": "relocation",
	})
	require.NoError(t, err)

	assert.Equal(t, "Corner Bakery", biz.Title)
	assert.Equal(t, "food", biz.Category)
	assert.Equal(t, model.VisibilityNDA, biz.PrivacyLevel)
	require.NotNil(t, biz.AskingPrice)
	assert.Equal(t, 1500000.0, *biz.AskingPrice)

	details := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(biz.Details, &details))
	assert.Equal(t, float64(2015), details["established_year"])
	assert.Equal(t, "relocation", details["reason_for_selling"])
}

func TestToBusinessLegacyNameAlias(t *testing.T) {
	biz, err := ToBusiness(map[string]interface{}{"name": "Old Form Listing"})
	require.NoError(t, err)
	assert.Equal(t, "Old Form Listing", biz.Title)
}

func TestToBusinessMissingTitle(t *testing.T) {
	_, err := ToBusiness(map[string]interface{}{"category": "retail"})
	assert.ErrorIs(t, err, ErrMissingTitle)
}

func TestToBusinessUnknownPrivacyLevel(t *testing.T) {
	_, err := ToBusiness(map[string]interface{}{
		"title":        "X",
		"privacyLevel": "everyone",
	})
	assert.Error(t, err)
}

func TestUnknownFieldsLandInDetails(t *testing.T) {
	biz, err := ToBusiness(map[string]interface{}{
		"title":       "X",
		"websiteUrl":  "https://example.com",
		"socialMedia": map[string]interface{}{"twitter": "@x"},
	})
	require.NoError(t, err)

	details := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(biz.Details, &details))
	assert.Equal(t, "https://example.com", details["websiteUrl"])
	assert.Contains(t, details, "socialMedia")
}

func TestApplyMergesDetails(t *testing.T) {
	biz, err := ToBusiness(map[string]interface{}{
		"title":   "X",
		"address": "12 Main St",
	})
	require.NoError(t, err)

	// A later update touching other fields keeps earlier detail keys
	require.NoError(t, Apply(biz, map[string]interface{}{
		"employees": float64(8),
	}))

	details := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(biz.Details, &details))
	assert.Equal(t, "12 Main St", details["address"])
	assert.Equal(t, float64(8), details["employees"])
}

func TestToFormRoundTrip(t *testing.T) {
	form := map[string]interface{}{
		"title":        "Corner Bakery",
		"category":     "food",
		"location":     "Riyadh",
		"privacyLevel": "public",
		"revenue":      float64(250000),
		"address":      "12 Main St",
		"customField":  "kept",
	}
	biz, err := ToBusiness(form)
	require.NoError(t, err)

	back := ToForm(biz)
	assert.Equal(t, "Corner Bakery", back["title"])
	assert.Equal(t, "public", back["privacyLevel"])
	assert.Equal(t, float64(250000), back["revenue"])
	assert.Equal(t, "12 Main St", back["address"])
	assert.Equal(t, "kept", back["customField"])
	// Unset amounts stay absent rather than becoming zero
	assert.NotContains(t, back, "askingPrice")
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name  string
		in    interface{}
		want  *float64
		isErr bool
	}{
		{"nil is unset", nil, nil, false},
		{"empty string is unset", "   ", nil, false},
		{"plain number", float64(5000), f(5000), false},
		{"integer", 5000, f(5000), false},
		{"thousands separators", "1,500,000", f(1500000), false},
		{"dollar prefix", "$2,000", f(2000), false},
		{"currency suffix", "750000 SAR", f(750000), false},
		{"zero is a value", float64(0), f(0), false},
		{"negative is a value", "-100", f(-100), false},
		{"garbage", "a lot", nil, true},
		{"unsupported type", []string{"x"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			if tt.isErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}

func f(v float64) *float64 { return &v }
