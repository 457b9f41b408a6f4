package compute

import "github.com/trialdash/trialdash/pkg/types"

// NTSAShare is the fraction of supply reserved for non-trial-supporting
// activity.
const NTSAShare = 0.2

// Classification bounds on net capacity, in FTE.
const (
	OverloadedBelow    = -0.2
	UnderutilizedAbove = 0.5
)

// Classify maps a net capacity value to a status label. Values exactly on
// either bound are balanced.
func Classify(net float64) string {
	switch {
	case net < OverloadedBelow:
		return types.StatusOverloaded
	case net > UnderutilizedAbove:
		return types.StatusUnderutilized
	default:
		return types.StatusBalanced
	}
}

// Evaluate computes the bottleneck record for one area in one quarter.
func Evaluate(area, quarter string, supply, demand float64) types.BottleneckRecord {
	ntsa := supply * NTSAShare
	net := supply - ntsa - demand
	return types.BottleneckRecord{
		Area:    area,
		Quarter: quarter,
		Supply:  supply,
		Demand:  demand,
		NTSA:    ntsa,
		Net:     net,
		Status:  Classify(net),
	}
}

// Bottlenecks classifies every (area, quarter) pair. Records are ordered by
// area in the order given, then by quarter in the order given.
func Bottlenecks(areas []types.AreaAggregate, quarters []string) []types.BottleneckRecord {
	out := make([]types.BottleneckRecord, 0, len(areas)*len(quarters))
	for _, a := range areas {
		for _, q := range quarters {
			out = append(out, Evaluate(a.Area, q, a.Supply[q], a.Demand))
		}
	}
	return out
}

// Analyze runs quarter detection, aggregation and classification over ds.
func Analyze(ds *types.Dataset) []types.BottleneckRecord {
	quarters := DetectQuarters(ds)
	return Bottlenecks(Aggregate(ds, quarters), quarters)
}

// CountByStatus tallies records per status label. All three labels are
// always present.
func CountByStatus(records []types.BottleneckRecord) map[string]int {
	counts := map[string]int{
		types.StatusBalanced:      0,
		types.StatusOverloaded:    0,
		types.StatusUnderutilized: 0,
	}
	for _, r := range records {
		counts[r.Status]++
	}
	return counts
}
