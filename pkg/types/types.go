package types

import (
	"encoding/json"
)

// AreaUnknown is the therapeutic area assigned to records with no area.
const AreaUnknown = "Unknown"

// Bottleneck status labels.
const (
	StatusBalanced      = "balanced"
	StatusOverloaded    = "overloaded"
	StatusUnderutilized = "underutilized"
)

// Resource is one staffed person (or team) and their capacity per quarter,
// expressed in FTE.
type Resource struct {
	Name string
	Area string

	// Capacity maps a quarter label ("Q3-2025") to the FTE available.
	Capacity map[string]float64

	// Attributes holds the remaining columns of the uploaded record.
	Attributes map[string]any
}

// Trial is one clinical trial and the number of subjects it enrols.
type Trial struct {
	Name      string
	Area      string
	Subjects  int
	StartDate string
	EndDate   string

	Attributes map[string]any
}

// Dataset is a complete load: every resource and trial, in upload order.
type Dataset struct {
	Resources []Resource `json:"resources"`
	Trials    []Trial    `json:"trials"`
}

// Empty reports whether the dataset holds neither resources nor trials.
func (d *Dataset) Empty() bool {
	return d == nil || (len(d.Resources) == 0 && len(d.Trials) == 0)
}

// AreaAggregate is the per-therapeutic-area rollup of supply and demand.
type AreaAggregate struct {
	Area string `json:"therapeutic_area"`

	// Supply maps each quarter label to the summed resource capacity.
	Supply map[string]float64 `json:"supply"`

	// Demand is the FTE needed by the area's trials. It does not vary by quarter.
	Demand float64 `json:"demand"`

	ResourceCount int `json:"resource_count"`
	TrialCount    int `json:"trial_count"`
}

// BottleneckRecord is the capacity verdict for one area in one quarter.
type BottleneckRecord struct {
	Area    string  `json:"therapeutic_area"`
	Quarter string  `json:"quarter"`
	Supply  float64 `json:"supply"`
	Demand  float64 `json:"demand"`
	NTSA    float64 `json:"ntsa"`
	Net     float64 `json:"bottleneck"`
	Status  string  `json:"status"`
}

// Summary is the dashboard-level rollup of a dataset.
type Summary struct {
	TotalResources     int      `json:"total_resources"`
	TotalTrials        int      `json:"total_trials"`
	TherapeuticAreas   []string `json:"therapeutic_areas"`
	Quarters           []string `json:"quarters"`
	OverallUtilization float64  `json:"overall_utilization"`
}

// MarshalJSON emits the resource in its upload shape: name, area and one
// top-level key per quarter, plus any passthrough attributes.
func (r Resource) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Attributes)+len(r.Capacity)+2)
	for k, v := range r.Attributes {
		out[k] = v
	}
	for q, v := range r.Capacity {
		out[q] = v
	}
	out["name"] = r.Name
	out["area"] = r.Area
	return json.Marshal(out)
}

// MarshalJSON emits the trial in its upload shape.
func (t Trial) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Attributes)+5)
	for k, v := range t.Attributes {
		out[k] = v
	}
	out["name"] = t.Name
	out["area"] = t.Area
	out["subjects"] = t.Subjects
	out["start_date"] = t.StartDate
	out["end_date"] = t.EndDate
	return json.Marshal(out)
}
