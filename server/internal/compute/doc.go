// Package compute derives capacity metrics from a loaded dataset.
//
// quarters.go detects the quarter columns present on resources and orders
// them chronologically. aggregate.go groups resources and trials by
// therapeutic area, summing supply per quarter and converting trial subjects
// to FTE demand (650 subjects per FTE). bottleneck.go deducts the 20%
// non-trial-activity share from supply, nets off demand and classifies every
// area/quarter pair. summary.go builds the dashboard rollup.
//
// Every function here is pure: the dataset is read, never modified, and the
// results are recomputed on each call.
//
// Status thresholds: overloaded below -0.2 FTE, underutilized above 0.5 FTE,
// balanced otherwise (both bounds inclusive of balanced).
package compute
