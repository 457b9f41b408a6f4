package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/trialdash/trialdash/server/internal/compute"
)

// Workbook sheet names, matched case-insensitively.
const (
	SheetResources = "Resources"
	SheetTrials    = "Trials"
)

// DecodeXLSX reads a workbook with Resources and Trials sheets into the same
// document shape as the JSON upload. The first row of each sheet is the
// header. Quarter headers are kept verbatim; other headers become snake_case
// keys ("Start Date" -> "start_date"). Cells are read unformatted, so number
// formats never hide a numeric value, and date cells arrive as serials. A
// missing sheet leaves its key out of the document so validation reports it.
func DecodeXLSX(r io.Reader) (map[string]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ingest: open xlsx: %w: %v", ErrMalformed, err)
	}
	defer f.Close()

	doc := make(map[string]any)
	for _, sheet := range f.GetSheetList() {
		var key string
		switch {
		case strings.EqualFold(sheet, SheetResources):
			key = "resources"
		case strings.EqualFold(sheet, SheetTrials):
			key = "trials"
		default:
			continue
		}
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("ingest: read sheet %q: %w", sheet, err)
		}
		doc[key] = sheetRecords(rows)
	}
	return doc, nil
}

// sheetRecords converts sheet rows into one object per non-blank data row.
func sheetRecords(rows [][]string) []any {
	records := []any{}
	if len(rows) == 0 {
		return records
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = headerKey(h)
	}

	for _, row := range rows[1:] {
		rec := make(map[string]any)
		for i, cell := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			rec[header[i]] = cellValue(header[i], cell)
		}
		if len(rec) > 0 {
			records = append(records, rec)
		}
	}
	return records
}

// headerKey normalises a header cell into a document key.
func headerKey(h string) string {
	h = strings.TrimSpace(h)
	if compute.IsQuarter(h) {
		return h
	}
	return strings.ToLower(strings.Join(strings.Fields(h), "_"))
}

// cellValue keeps numeric columns numeric, turns date serials into
// YYYY-MM-DD and leaves everything else as text.
func cellValue(key, cell string) any {
	if key == "start_date" || key == "end_date" {
		return dateCell(cell)
	}
	if key != "subjects" && !compute.IsQuarter(key) {
		return cell
	}
	if _, err := strconv.ParseFloat(cell, 64); err != nil {
		return cell
	}
	return json.Number(cell)
}

func dateCell(cell string) string {
	serial, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return cell
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return cell
	}
	return t.Format("2006-01-02")
}
