// Package types defines the shared domain types used across trialdash:
// the loaded Dataset (resources and trials) and the derived records the
// compute package produces from it (area aggregates, bottleneck verdicts and
// the dashboard summary).
//
// Resources and trials keep any columns the server does not model in
// Attributes so that listing a loaded dataset returns what was uploaded.
package types
