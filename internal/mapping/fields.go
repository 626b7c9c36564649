// Package mapping translates camelCase form fields to the business table's
// mix of flat and JSONB-nested columns. The translation is an explicit
// bidirectional table, not guesswork: every known form field names either a
// flat column on the Business model or a key inside the JSONB details
// container, and unknown fields land in the container rather than failing
// the write.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Talalkassab/manfaa-api/internal/model"
	"gorm.io/datatypes"
)

// target names where one form field is stored
type target struct {
	flat    string // flat column; empty means the details container
	jsonKey string // key inside the details container
	money   bool   // parse as a money amount
}

// businessFields is the field mapping table. Core, filterable attributes
// are flat columns; secondary listing details live in the JSONB container.
var businessFields = map[string]target{
	"title":            {flat: "title"},
	"name":             {flat: "title"}, // legacy alias
	"category":         {flat: "category"},
	"description":      {flat: "description"},
	"location":         {flat: "location"},
	"privacyLevel":     {flat: "privacy_level"},
	"askingPrice":      {flat: "asking_price", money: true},
	"revenue":          {flat: "revenue", money: true},
	"profit":           {flat: "profit", money: true},
	"address":          {jsonKey: "address"},
	"establishedYear":  {jsonKey: "established_year"},
	"employees":        {jsonKey: "employees"},
	"reasonForSelling": {jsonKey: "reason_for_selling"},
}

// ErrMissingTitle is returned when the one required field is absent
var ErrMissingTitle = errors.New("title is required")

// ToBusiness maps a camelCase form payload onto a Business record. Fields
// not in the mapping table are preserved in the details container so a
// form that is ahead of the schema degrades without data loss.
func ToBusiness(form map[string]interface{}) (*model.Business, error) {
	biz := &model.Business{}
	if err := Apply(biz, form); err != nil {
		return nil, err
	}
	if biz.Title == "" {
		return nil, ErrMissingTitle
	}
	return biz, nil
}

// Apply maps form fields onto an existing Business record, merging into
// its details container. Used by both create and update flows.
func Apply(biz *model.Business, form map[string]interface{}) error {
	details := map[string]interface{}{}
	if len(biz.Details) > 0 {
		if err := json.Unmarshal(biz.Details, &details); err != nil {
			return fmt.Errorf("invalid details container: %w", err)
		}
	}

	for field, value := range form {
		t, known := businessFields[field]
		if !known {
			details[field] = value
			continue
		}

		if t.money {
			amount, err := ParseMoney(value)
			if err != nil {
				return fmt.Errorf("field %s: %w", field, err)
			}
			switch t.flat {
			case "asking_price":
				biz.AskingPrice = amount
			case "revenue":
				biz.Revenue = amount
			case "profit":
				biz.Profit = amount
			}
			continue
		}

		if t.jsonKey != "" {
			details[t.jsonKey] = value
			continue
		}

		str, _ := value.(string)
		switch t.flat {
		case "title":
			if str != "" {
				biz.Title = str
			}
		case "category":
			biz.Category = str
		case "description":
			biz.Description = str
		case "location":
			biz.Location = str
		case "privacy_level":
			vis := model.Visibility(str)
			if !vis.Known() {
				return fmt.Errorf("unknown privacy level %q", str)
			}
			biz.PrivacyLevel = vis
		}
	}

	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return err
		}
		biz.Details = datatypes.JSON(raw)
	}
	return nil
}

// ToForm is the inverse mapping: a Business record back to the camelCase
// form shape.
func ToForm(biz *model.Business) map[string]interface{} {
	form := map[string]interface{}{
		"title":        biz.Title,
		"category":     biz.Category,
		"description":  biz.Description,
		"location":     biz.Location,
		"privacyLevel": string(biz.PrivacyLevel),
	}
	if biz.AskingPrice != nil {
		form["askingPrice"] = *biz.AskingPrice
	}
	if biz.Revenue != nil {
		form["revenue"] = *biz.Revenue
	}
	if biz.Profit != nil {
		form["profit"] = *biz.Profit
	}

	if len(biz.Details) > 0 {
		details := map[string]interface{}{}
		if err := json.Unmarshal(biz.Details, &details); err == nil {
			for formField, t := range businessFields {
				if t.jsonKey == "" {
					continue
				}
				if v, ok := details[t.jsonKey]; ok {
					form[formField] = v
					delete(details, t.jsonKey)
				}
			}
			// Whatever remains was stored under its original name
			for k, v := range details {
				form[k] = v
			}
		}
	}
	return form
}

// ParseMoney normalizes a money amount from form input. Accepts numbers
// and strings with thousands separators or a currency prefix. Returns nil
// for unset (nil or empty string) input; zero and negative amounts parse
// as themselves, distinct from unset.
func ParseMoney(value interface{}) (*float64, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		return &v, nil
	case int:
		f := float64(v)
		return &f, nil
	case int64:
		f := float64(v)
		return &f, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return &f, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimPrefix(s, "$")
		s = strings.TrimSpace(strings.TrimSuffix(s, "SAR"))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q", v)
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("unsupported amount type %T", value)
	}
}
