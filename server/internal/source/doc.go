// Package source loads datasets from outside the HTTP API: a local file
// (optionally watched for changes) and a remote URL polled on an interval.
//
// Run(ctx, cfg, sink) performs the initial loads and then keeps the sources in
// sync until ctx is cancelled. Every payload is handed to sink together with a
// name whose extension selects the decoder. A failed load is logged and the
// previously published dataset stays active.
package source
