package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/trialdash/trialdash/pkg/types"
)

// Workbook sheet names.
const (
	SheetBottlenecks = "Bottlenecks"
	SheetSummary     = "Summary"
)

// WriteXLSX writes a workbook with a Bottlenecks sheet (one row per record)
// and a Summary sheet.
func WriteXLSX(w io.Writer, summary types.Summary, records []types.BottleneckRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetBottlenecks); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}
	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetBottlenecks, cell, h); err != nil {
			return fmt.Errorf("report: write header: %w", err)
		}
	}
	last, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetColWidth(SheetBottlenecks, "A", last, 16); err != nil {
		return fmt.Errorf("report: set column width: %w", err)
	}

	for i, r := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{r.Area, r.Quarter, r.Supply, r.Demand, r.NTSA, r.Net, r.Status}
		if err := f.SetSheetRow(SheetBottlenecks, cell, &values); err != nil {
			return fmt.Errorf("report: write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("report: add summary sheet: %w", err)
	}
	rows := [][]any{
		{"total_resources", summary.TotalResources},
		{"total_trials", summary.TotalTrials},
		{"therapeutic_areas", strings.Join(summary.TherapeuticAreas, ", ")},
		{"quarters", strings.Join(summary.Quarters, ", ")},
		{"overall_utilization", summary.OverallUtilization},
	}
	for i, values := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		values := values
		if err := f.SetSheetRow(SheetSummary, cell, &values); err != nil {
			return fmt.Errorf("report: write summary: %w", err)
		}
	}
	if err := f.SetColWidth(SheetSummary, "A", "B", 22); err != nil {
		return fmt.Errorf("report: set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("report: write xlsx: %w", err)
	}
	return nil
}
