package api

import (
	"fmt"
	"sort"

	"github.com/trialdash/trialdash/pkg/types"
)

// DiagnosticHint is one human-readable insight about an area's capacity.
// The UI displays these as chips on the area card; clicking one shows Detail.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint (e.g. worst net FTE).
	Value *float64 `json:"value,omitempty"`
}

var levelRank = map[string]int{"critical": 0, "warning": 1, "info": 2, "ok": 3}

// computeDiagnostics derives hints for one area from its aggregate and its
// bottleneck records. Hints are ordered critical first, then warnings, then info.
func computeDiagnostics(a types.AreaAggregate, records []types.BottleneckRecord) []DiagnosticHint {
	var hints []DiagnosticHint

	// ── Unassigned records ──────────────────────────────────────────────────
	if a.Area == types.AreaUnknown {
		hints = append(hints, DiagnosticHint{
			Key:   "unknown_area",
			Level: "warning",
			Title: "Unassigned records",
			Detail: fmt.Sprintf(
				"%d resource(s) and %d trial(s) have no therapeutic area and were grouped under %q. "+
					"Their capacity and demand cannot be matched to the right team until an area is set "+
					"in the source data.",
				a.ResourceCount, a.TrialCount, types.AreaUnknown,
			),
		})
	}

	// ── Demand with nobody staffed ──────────────────────────────────────────
	if a.ResourceCount == 0 && a.TrialCount > 0 {
		v := a.Demand
		hints = append(hints, DiagnosticHint{
			Key:   "no_supply",
			Level: "critical",
			Title: "No staffed capacity",
			Detail: fmt.Sprintf(
				"%d trial(s) in this area need %.2f FTE but no resources are assigned to it. "+
					"Every quarter is overloaded until someone is staffed here.",
				a.TrialCount, a.Demand,
			),
			Value: &v,
		})
		return sortHints(hints)
	}

	// ── Capacity with no trials ─────────────────────────────────────────────
	if a.TrialCount == 0 && a.ResourceCount > 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "no_demand",
			Level: "info",
			Title: "No active trials",
			Detail: fmt.Sprintf(
				"%d resource(s) are assigned to this area but no trials are. "+
					"Their capacity is available to be reassigned.",
				a.ResourceCount,
			),
		})
	}

	// ── Overloaded quarters ─────────────────────────────────────────────────
	var over, under []types.BottleneckRecord
	for _, r := range records {
		switch r.Status {
		case types.StatusOverloaded:
			over = append(over, r)
		case types.StatusUnderutilized:
			under = append(under, r)
		}
	}
	if len(over) > 0 {
		worst := over[0]
		for _, r := range over[1:] {
			if r.Net < worst.Net {
				worst = r
			}
		}
		v := worst.Net
		level := "warning"
		if len(over) > len(records)/2 {
			level = "critical"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "overloaded",
			Level: level,
			Title: fmt.Sprintf("Overloaded %d of %d quarters", len(over), len(records)),
			Detail: fmt.Sprintf(
				"Demand exceeds available capacity after the 20%% non-trial deduction. "+
					"The worst quarter is %s, short by %.2f FTE. "+
					"Consider moving staff from underutilized areas or rephasing trial start dates.",
				worst.Quarter, -worst.Net,
			),
			Value: &v,
		})
	}

	// ── Underutilized quarters ──────────────────────────────────────────────
	if len(under) > 0 {
		spare := 0.0
		for _, r := range under {
			spare += r.Net
		}
		v := spare
		hints = append(hints, DiagnosticHint{
			Key:   "underutilized",
			Level: "info",
			Title: fmt.Sprintf("Spare capacity in %d quarters", len(under)),
			Detail: fmt.Sprintf(
				"This area has %.2f FTE of unused capacity summed across %d quarter(s). "+
					"It can absorb new trials or lend staff to overloaded areas.",
				spare, len(under),
			),
			Value: &v,
		})
	}

	// ── All clear ───────────────────────────────────────────────────────────
	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "balanced",
			Level:  "ok",
			Title:  "Balanced",
			Detail: "Supply and demand are within tolerance in every quarter. No action needed.",
		})
	}

	return sortHints(hints)
}

func sortHints(hints []DiagnosticHint) []DiagnosticHint {
	sort.SliceStable(hints, func(i, j int) bool {
		return levelRank[hints[i].Level] < levelRank[hints[j].Level]
	})
	return hints
}
