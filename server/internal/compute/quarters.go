package compute

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/trialdash/trialdash/pkg/types"
)

// quarterPattern matches a full quarter label such as "Q3-2025".
var quarterPattern = regexp.MustCompile(`^Q([1-4])-(\d{4})$`)

// IsQuarter reports whether label is a well-formed quarter label.
func IsQuarter(label string) bool {
	return quarterPattern.MatchString(label)
}

// parseQuarter splits a quarter label into its year and quarter number.
func parseQuarter(label string) (year, quarter int, ok bool) {
	m := quarterPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, 0, false
	}
	quarter, _ = strconv.Atoi(m[1])
	year, _ = strconv.Atoi(m[2])
	return year, quarter, true
}

// SortQuarters orders quarter labels by year, then by quarter number.
// Labels that are not quarters sort after all valid ones, lexically.
func SortQuarters(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		yi, qi, oki := parseQuarter(labels[i])
		yj, qj, okj := parseQuarter(labels[j])
		switch {
		case oki && okj:
			if yi != yj {
				return yi < yj
			}
			return qi < qj
		case oki != okj:
			return oki
		default:
			return labels[i] < labels[j]
		}
	})
}

// DetectQuarters returns the distinct quarter labels used as capacity keys
// on any resource in ds, in chronological order. Keys that are not quarter
// labels are ignored. A nil or empty dataset yields an empty, non-nil slice.
func DetectQuarters(ds *types.Dataset) []string {
	quarters := []string{}
	if ds == nil {
		return quarters
	}
	seen := make(map[string]struct{})
	for _, r := range ds.Resources {
		for key := range r.Capacity {
			if _, dup := seen[key]; dup || !IsQuarter(key) {
				continue
			}
			seen[key] = struct{}{}
			quarters = append(quarters, key)
		}
	}
	SortQuarters(quarters)
	return quarters
}
