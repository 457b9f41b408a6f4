// Package report renders bottleneck analysis for people and spreadsheets.
//
// WriteCSV and WriteXLSX back GET /api/bottlenecks/export; WriteTable and the
// JSON form back the offline `trialdash report` command. Every writer takes
// records in the order compute.Analyze produced them.
package report
