// Package ingest turns uploaded documents into a validated types.Dataset and
// publishes it to the store.
//
// Documents arrive as JSON ({"resources": [...], "trials": [...]}) or as an
// XLSX workbook with "Resources" and "Trials" sheets; both are decoded into
// the same generic document and pass through Build, which checks every record
// and reports all problems at once rather than stopping at the first.
//
// Receiver.Load is the only way a dataset reaches the store: it builds the
// complete dataset first and publishes it with a single swap, so a rejected
// upload never disturbs the dataset already being served.
package ingest
