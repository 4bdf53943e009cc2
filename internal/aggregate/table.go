package aggregate

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/mikey/inbox-data-requests/internal/core"
)

// CompanyTable is the deduplicated, selectable view of a scan
type CompanyTable struct {
	rows []*core.CompanyRow
}

// BuildCompanyTable projects records into rows and keeps the first row per
// company name, in record order.
func BuildCompanyTable(records []*core.ScanRecord) *CompanyTable {
	rows := lo.Map(records, func(rec *core.ScanRecord, _ int) *core.CompanyRow {
		return &core.CompanyRow{
			CompanyName:         rec.Classification.CompanyName,
			InteractionCategory: string(rec.Classification.InteractionType),
			Website:             rec.Classification.Website,
			RequestType:         core.RequestUnset,
		}
	})
	rows = lo.UniqBy(rows, func(row *core.CompanyRow) string {
		return row.CompanyName
	})
	return &CompanyTable{rows: rows}
}

// Rows returns copies of all rows
func (t *CompanyTable) Rows() []core.CompanyRow {
	return lo.Map(t.rows, func(row *core.CompanyRow, _ int) core.CompanyRow {
		return *row
	})
}

// Len returns the number of companies
func (t *CompanyTable) Len() int {
	return len(t.rows)
}

// Find returns the row for a company
func (t *CompanyTable) Find(company string) (core.CompanyRow, bool) {
	row, ok := lo.Find(t.rows, func(row *core.CompanyRow) bool {
		return row.CompanyName == company
	})
	if !ok {
		return core.CompanyRow{}, false
	}
	return *row, true
}

// Select marks a company for a request of the given type
func (t *CompanyTable) Select(company string, requestType core.RequestType) error {
	row, ok := lo.Find(t.rows, func(row *core.CompanyRow) bool {
		return row.CompanyName == company
	})
	if !ok {
		return fmt.Errorf("%w: unknown company %q", core.ErrInvalidSelection, company)
	}
	row.Selected = true
	row.RequestType = requestType
	return nil
}

// Deselect clears a company's selection
func (t *CompanyTable) Deselect(company string) {
	for _, row := range t.rows {
		if row.CompanyName == company {
			row.Selected = false
			row.RequestType = core.RequestUnset
		}
	}
}

// Selected returns the selected rows in table order
func (t *CompanyTable) Selected() []core.CompanyRow {
	selected := lo.Filter(t.rows, func(row *core.CompanyRow, _ int) bool {
		return row.Selected
	})
	return lo.Map(selected, func(row *core.CompanyRow, _ int) core.CompanyRow {
		return *row
	})
}

// ValidateSelection checks the selection before a preview (single) or a mass
// send. Every selected row needs a request type.
func (t *CompanyTable) ValidateSelection(single bool) error {
	selected := t.Selected()
	switch {
	case len(selected) == 0:
		return fmt.Errorf("%w: no company selected", core.ErrInvalidSelection)
	case single && len(selected) != 1:
		return fmt.Errorf("%w: select exactly one company to preview, got %d", core.ErrInvalidSelection, len(selected))
	}
	for _, row := range selected {
		if !row.RequestType.Valid() {
			return fmt.Errorf("%w: choose a request type for %s", core.ErrInvalidSelection, row.CompanyName)
		}
	}
	return nil
}
