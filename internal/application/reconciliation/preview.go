package reconciliation

import (
	"github.com/hungrytum/franchise-billing/internal/domain/period"
	"github.com/hungrytum/franchise-billing/internal/domain/statement"
)

// StatementPreview is what the operator reviews before a statement is saved
type StatementPreview struct {
	Filename      string                 `json:"filename"`
	Result        *statement.ParseResult `json:"result"`
	SuggestedWeek *period.Week           `json:"suggested_week,omitempty"`
	// Allocations shows the per-brand split for statements with a breakdown
	Allocations []statement.Allocation `json:"allocations,omitempty"`
}
