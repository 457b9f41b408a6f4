package compute

import (
	"strings"

	"github.com/trialdash/trialdash/pkg/types"
)

// SubjectsPerFTE is the number of trial subjects one full-time-equivalent
// supports.
const SubjectsPerFTE = 650.0

// AreaName folds a missing or blank area into types.AreaUnknown.
func AreaName(area string) string {
	if strings.TrimSpace(area) == "" {
		return types.AreaUnknown
	}
	return area
}

// TrialDemand converts a trial's subject count to FTE demand.
func TrialDemand(t types.Trial) float64 {
	return float64(t.Subjects) / SubjectsPerFTE
}

// Aggregate groups ds by therapeutic area over the given quarters.
//
// Areas are returned in the order first seen on resources, followed by areas
// that only appear on trials, in the order first seen there. Every area has a
// supply entry for every quarter (0 when no resource contributes) and a demand
// of 0 when it has no trials.
func Aggregate(ds *types.Dataset, quarters []string) []types.AreaAggregate {
	out := []types.AreaAggregate{}
	if ds == nil {
		return out
	}

	index := make(map[string]int)
	slot := func(area string) *types.AreaAggregate {
		area = AreaName(area)
		i, ok := index[area]
		if !ok {
			agg := types.AreaAggregate{
				Area:   area,
				Supply: make(map[string]float64, len(quarters)),
			}
			for _, q := range quarters {
				agg.Supply[q] = 0
			}
			out = append(out, agg)
			i = len(out) - 1
			index[area] = i
		}
		return &out[i]
	}

	for _, r := range ds.Resources {
		agg := slot(r.Area)
		agg.ResourceCount++
		for _, q := range quarters {
			agg.Supply[q] += r.Capacity[q]
		}
	}
	for _, t := range ds.Trials {
		agg := slot(t.Area)
		agg.TrialCount++
		agg.Demand += TrialDemand(t)
	}
	return out
}
