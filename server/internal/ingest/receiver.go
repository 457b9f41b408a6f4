package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/trialdash/trialdash/pkg/types"
	"github.com/trialdash/trialdash/server/internal/alerts"
	"github.com/trialdash/trialdash/server/internal/compute"
	"github.com/trialdash/trialdash/server/internal/store"
)

// Receiver validates incoming documents and publishes accepted datasets.
// Publishing is serialized so the store, the active alerts and the listeners
// always observe loads in the same order.
type Receiver struct {
	mu        sync.Mutex
	store     *store.Store
	alerts    *alerts.Engine
	listeners []func(*store.Snapshot)
}

// New creates a Receiver that writes accepted datasets to st and evaluates
// eng's rules against each one. eng may be nil.
func New(st *store.Store, eng *alerts.Engine) *Receiver {
	return &Receiver{store: st, alerts: eng}
}

// OnLoad registers fn to be called after every successful load.
// Listeners must be registered before the receiver is used concurrently.
func (r *Receiver) OnLoad(fn func(*store.Snapshot)) {
	r.listeners = append(r.listeners, fn)
}

// Load validates doc and, if it is valid, replaces the current dataset.
// A rejected document returns a *ValidationError and leaves the store as it was.
func (r *Receiver) Load(doc map[string]any, source string) (*store.Snapshot, Result, error) {
	ds, res := Build(doc)
	if !res.Valid {
		slog.Warn("ingest: dataset rejected",
			"source", source,
			"errors", len(res.Errors),
		)
		return nil, res, &ValidationError{Errors: res.Errors}
	}
	return r.publish(ds, source), res, nil
}

// LoadBytes decodes data (JSON or XLSX, chosen by name and content) and loads it.
func (r *Receiver) LoadBytes(name string, data []byte) (*store.Snapshot, Result, error) {
	doc, err := Decode(DetectFormat(name, data), data)
	if err != nil {
		slog.Error("ingest: decode failed", "source", name, "err", err)
		return nil, Result{Errors: []string{err.Error()}}, err
	}
	return r.Load(doc, name)
}

func (r *Receiver) publish(ds *types.Dataset, source string) *store.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.store.Replace(ds, source)

	slog.Info("ingest: dataset loaded",
		"source", source,
		"dataset_id", snap.ID,
		"resources", len(ds.Resources),
		"trials", len(ds.Trials),
	)

	if r.alerts != nil {
		r.alerts.Evaluate(compute.Analyze(ds))
	}
	for _, fn := range r.listeners {
		fn(snap)
	}
	return snap
}

// IsValidation reports whether err is a validation failure and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsMalformed reports whether err came from a document that could not be decoded.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}

// String describes the result for log lines and CLI output.
func (res Result) String() string {
	if res.Valid {
		return fmt.Sprintf("valid: %d resources, %d trials", res.ResourcesCount, res.TrialsCount)
	}
	return fmt.Sprintf("invalid: %d error(s)", len(res.Errors))
}
