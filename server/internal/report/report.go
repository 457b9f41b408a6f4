package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/trialdash/trialdash/pkg/types"
)

// Format is an output format understood by Write.
type Format string

// Supported report formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("report: unknown format %q (want table, json, csv or xlsx)", s)
	}
}

// ContentType returns the MIME type used when serving f over HTTP.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Columns is the header row shared by the CSV and XLSX writers.
var Columns = []string{"therapeutic_area", "quarter", "supply", "demand", "ntsa", "bottleneck", "status"}

// Write renders the summary and records in format f.
func Write(w io.Writer, f Format, summary types.Summary, records []types.BottleneckRecord) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatXLSX:
		return WriteXLSX(w, summary, records)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Summary     types.Summary            `json:"summary"`
			Bottlenecks []types.BottleneckRecord `json:"bottlenecks"`
		}{summary, records})
	default:
		return WriteTable(w, summary, records)
	}
}

// WriteCSV writes one row per record with a header row.
func WriteCSV(w io.Writer, records []types.BottleneckRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("report: write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("report: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable writes an aligned plain-text report for terminals.
func WriteTable(w io.Writer, summary types.Summary, records []types.BottleneckRecord) error {
	fmt.Fprintf(w, "Resources: %d   Trials: %d   Utilization: %.1f%%\n",
		summary.TotalResources, summary.TotalTrials, summary.OverallUtilization)
	fmt.Fprintf(w, "Quarters: %s\n\n", strings.Join(summary.Quarters, ", "))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AREA\tQUARTER\tSUPPLY\tDEMAND\tNTSA\tNET\tSTATUS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.2f\t%+.2f\t%s\n",
			r.Area, r.Quarter, r.Supply, r.Demand, r.NTSA, r.Net, r.Status)
	}
	return tw.Flush()
}

func row(r types.BottleneckRecord) []string {
	return []string{
		r.Area,
		r.Quarter,
		formatFloat(r.Supply),
		formatFloat(r.Demand),
		formatFloat(r.NTSA),
		formatFloat(r.Net),
		r.Status,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
