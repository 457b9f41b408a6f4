package compute

import (
	"math"

	"github.com/trialdash/trialdash/pkg/types"
)

// Summarize builds the dashboard rollup for ds. A nil or empty dataset gives
// zero counts, empty lists and 0 utilization.
func Summarize(ds *types.Dataset) types.Summary {
	quarters := DetectQuarters(ds)
	s := types.Summary{
		TherapeuticAreas: []string{},
		Quarters:         quarters,
	}
	if ds == nil {
		return s
	}

	s.TotalResources = len(ds.Resources)
	s.TotalTrials = len(ds.Trials)
	for _, a := range Aggregate(ds, quarters) {
		s.TherapeuticAreas = append(s.TherapeuticAreas, a.Area)
	}
	s.OverallUtilization = Utilization(ds, quarters)
	return s
}

// Utilization is total trial demand as a percentage of total supply across
// the given quarters, rounded to one decimal place. It is 0 when there is no
// supply.
func Utilization(ds *types.Dataset, quarters []string) float64 {
	if ds == nil {
		return 0
	}
	var supply, demand float64
	for _, r := range ds.Resources {
		for _, q := range quarters {
			supply += r.Capacity[q]
		}
	}
	for _, t := range ds.Trials {
		demand += TrialDemand(t)
	}
	if supply <= 0 {
		return 0
	}
	return round1(demand / supply * 100)
}

// round1 rounds v to one decimal place, halves away from zero.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
