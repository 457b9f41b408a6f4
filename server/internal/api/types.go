package api

import "github.com/trialdash/trialdash/pkg/types"

// RootResponse is the payload for GET /.
type RootResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// StatusResponse is the payload for GET /health.
type StatusResponse struct {
	Status string `json:"status"`
}

// MessageResponse carries a single human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// SummaryResponse is the payload for GET /api/dashboard-summary.
type SummaryResponse struct {
	types.Summary

	DatasetID    string         `json:"dataset_id,omitempty"`
	LoadedAt     string         `json:"loaded_at,omitempty"` // RFC3339
	Source       string         `json:"source,omitempty"`
	StatusCounts map[string]int `json:"status_counts"`
}

// LoadResponse is returned by both load endpoints on success.
type LoadResponse struct {
	Message        string `json:"message"`
	DatasetID      string `json:"dataset_id"`
	ResourcesCount int    `json:"resources_count"`
	TrialsCount    int    `json:"trials_count"`
}

// ValidationResponse is returned with 400 when a dataset is rejected.
type ValidationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// QuartersResponse is the payload for GET /api/quarters.
type QuartersResponse struct {
	Quarters []string `json:"quarters"`
}

// BottlenecksResponse is the payload for GET /api/bottlenecks.
type BottlenecksResponse struct {
	Bottlenecks []types.BottleneckRecord `json:"bottlenecks"`
}

// AreaResponse is one entry in GET /api/areas.
type AreaResponse struct {
	types.AreaAggregate

	Diagnostics []DiagnosticHint `json:"diagnostics"`
}

// AreasResponse is the payload for GET /api/areas.
type AreasResponse struct {
	Quarters []string       `json:"quarters"`
	Areas    []AreaResponse `json:"areas"`
}

// DashboardResponse is the payload for GET /api/dashboard and the data of
// every websocket broadcast.
type DashboardResponse struct {
	Summary     SummaryResponse          `json:"summary"`
	Bottlenecks []types.BottleneckRecord `json:"bottlenecks"`
	GeneratedAt string                   `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
