// Package api implements the HTTP JSON API for trialdash.
//
// New(store, receiver, alerts, opts) returns an http.Handler that serves:
//
//	GET  /                           service banner
//	GET  /health                     liveness
//	GET  /api/test                   connectivity check for the UI
//	GET  /api/dashboard-summary      totals, areas, quarters, utilization, status counts
//	POST /api/load-sample-data       load a JSON dataset from the request body
//	POST /api/upload-data            load a .json or .xlsx dataset (multipart "file")
//	GET  /api/resources              resources in upload order
//	GET  /api/trials                 trials in upload order
//	GET  /api/quarters               detected quarters, chronological
//	GET  /api/bottlenecks            per area and quarter verdicts (?status=, ?area=)
//	GET  /api/bottlenecks/export     CSV or XLSX download (?format=csv|xlsx)
//	GET  /api/areas                  per-area aggregates with diagnostic hints
//	GET  /api/alerts                 active and recently resolved alerts
//	GET  /api/dashboard              summary + bottlenecks (also the websocket payload)
//
// Every read is computed from the store's current snapshot at request time.
// When no dataset is loaded the read endpoints return zero values and empty
// lists, never 404.
//
// Errors use {"error": "..."}; rejected datasets use
// {"valid": false, "errors": [...]} with status 400. Unsupported methods
// return 405. JSON types are defined in types.go. No external HTTP framework
// is used.
package api
