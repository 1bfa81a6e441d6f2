package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTool_Validate(t *testing.T) {
	valid := func() Tool {
		return Tool{
			OwnerUsername: "alice",
			Title:         "DeWalt Drill",
			ToolType:      "Drill",
			DailyRate:     decimal.NewFromInt(25),
			HourlyRate:    decimal.NewFromInt(5),
			Deposit:       decimal.Zero,
		}
	}

	tool := valid()
	assert.NoError(t, tool.Validate())

	tool = valid()
	tool.DailyRate = decimal.Zero
	assert.True(t, errors.Is(tool.Validate(), ErrValidation))

	tool = valid()
	tool.Deposit = decimal.NewFromInt(-1)
	assert.True(t, errors.Is(tool.Validate(), ErrValidation))

	tool = valid()
	tool.Title = "  "
	assert.True(t, errors.Is(tool.Validate(), ErrValidation))
}

func TestToolFilter_Matches(t *testing.T) {
	tool := Tool{
		ID:            7,
		OwnerUsername: "alice",
		Title:         "Makita Circular Saw",
		Brand:         "Makita",
		ToolType:      "Circular Saw",
		Neighborhood:  "Astoria",
		DailyRate:     decimal.NewFromInt(40),
		Available:     true,
	}
	cheap := decimal.NewFromInt(30)
	dear := decimal.NewFromInt(40)

	assert.True(t, ToolFilter{}.Matches(tool))
	assert.True(t, ToolFilter{ToolType: "circular saw", Neighborhood: "astoria"}.Matches(tool))
	assert.True(t, ToolFilter{MaxDailyRate: &dear}.Matches(tool))
	assert.False(t, ToolFilter{MaxDailyRate: &cheap}.Matches(tool))
	assert.True(t, ToolFilter{Query: "makita"}.Matches(tool))
	assert.False(t, ToolFilter{Query: "ladder"}.Matches(tool))
	assert.True(t, ToolFilter{IDs: []int64{1, 7}}.Matches(tool))
	assert.False(t, ToolFilter{OwnerUsername: "bob"}.Matches(tool))

	tool.Available = false
	assert.False(t, ToolFilter{AvailableOnly: true}.Matches(tool))
}
