package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ToolConditionLikeNew    = "Like New"
	ToolConditionGood       = "Good"
	ToolConditionFair       = "Fair"
	ToolConditionWellUsed   = "Well Used but Functional"
	DefaultToolImagePattern = "images/tool_%d.jpg"
)

type Tool struct {
	ID            int64           `json:"id"`
	OwnerUsername string          `json:"owner_username"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	ToolType      string          `json:"tool_type"`
	Brand         string          `json:"brand"`
	Condition     string          `json:"condition"`
	HourlyRate    decimal.Decimal `json:"hourly_rate"`
	DailyRate     decimal.Decimal `json:"daily_rate"`
	Deposit       decimal.Decimal `json:"deposit"`
	Available     bool            `json:"available"`
	Neighborhood  string          `json:"neighborhood"`
	Latitude      float64         `json:"latitude"`
	Longitude     float64         `json:"longitude"`
	Rating        float64         `json:"rating"`
	ReviewCount   int             `json:"review_count"`
	ImagePath     string          `json:"image_path"`
	CreatedAt     time.Time       `json:"created_at"`
	Version       int64           `json:"version"`
}

// Validate checks the fields a listing must carry before it is stored.
func (t *Tool) Validate() error {
	if strings.TrimSpace(t.OwnerUsername) == "" {
		return NewValidationError("owner_username is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title is required")
	}
	if strings.TrimSpace(t.ToolType) == "" {
		return NewValidationError("tool_type is required")
	}
	if !t.DailyRate.IsPositive() {
		return NewValidationError("daily_rate must be greater than zero")
	}
	if t.HourlyRate.IsNegative() {
		return NewValidationError("hourly_rate must not be negative")
	}
	if t.Deposit.IsNegative() {
		return NewValidationError("deposit must not be negative")
	}
	return nil
}

type ToolFilter struct {
	IDs           []int64
	OwnerUsername string
	ToolType      string
	Neighborhood  string
	MaxDailyRate  *decimal.Decimal
	Query         string
	AvailableOnly bool
}

func (f ToolFilter) Matches(t Tool) bool {
	if len(f.IDs) > 0 && !containsID(f.IDs, t.ID) {
		return false
	}
	if f.OwnerUsername != "" && t.OwnerUsername != f.OwnerUsername {
		return false
	}
	if f.ToolType != "" && !strings.EqualFold(t.ToolType, f.ToolType) {
		return false
	}
	if f.Neighborhood != "" && !strings.EqualFold(t.Neighborhood, f.Neighborhood) {
		return false
	}
	if f.MaxDailyRate != nil && t.DailyRate.GreaterThan(*f.MaxDailyRate) {
		return false
	}
	if f.AvailableOnly && !t.Available {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		haystack := strings.ToLower(t.Title + " " + t.Description + " " + t.Brand)
		if !strings.Contains(haystack, q) {
			return false
		}
	}
	return true
}

type ToolPatch struct {
	Available       *bool
	ExpectedVersion int64
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// ToolFacets are the distinct values offered by the browse filters.
type ToolFacets struct {
	ToolTypes     []string `json:"tool_types"`
	Neighborhoods []string `json:"neighborhoods"`
}
