package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/trialdash/trialdash/pkg/types"
	"github.com/trialdash/trialdash/server/internal/alerts"
	"github.com/trialdash/trialdash/server/internal/compute"
	"github.com/trialdash/trialdash/server/internal/ingest"
	"github.com/trialdash/trialdash/server/internal/report"
	"github.com/trialdash/trialdash/server/internal/store"
)

// DefaultMaxUploadBytes caps request bodies on the load endpoints when
// Options.MaxUploadBytes is zero.
const DefaultMaxUploadBytes = 10 << 20

// Options tunes the handler.
type Options struct {
	// MaxUploadBytes limits the body of the load endpoints.
	MaxUploadBytes int64

	// Guard wraps the mutating endpoints, typically with auth.APIKey.
	// Nil leaves them open.
	Guard func(http.Handler) http.Handler
}

// Handler is the HTTP handler for the trialdash API.
// It reads the current dataset from the store and computes every response on demand.
type Handler struct {
	store    *store.Store
	receiver *ingest.Receiver
	alerts   *alerts.Engine
	maxBytes int64
	mux      *http.ServeMux
}

// New creates a Handler and registers all routes. eng may be nil, in which
// case /api/alerts always returns an empty list.
func New(st *store.Store, rcv *ingest.Receiver, eng *alerts.Engine, opts Options) http.Handler {
	h := &Handler{
		store:    st,
		receiver: rcv,
		alerts:   eng,
		maxBytes: opts.MaxUploadBytes,
		mux:      http.NewServeMux(),
	}
	if h.maxBytes <= 0 {
		h.maxBytes = DefaultMaxUploadBytes
	}
	guard := opts.Guard
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}

	h.mux.HandleFunc("/", h.root)
	h.mux.HandleFunc("/health", h.health)
	h.mux.HandleFunc("/api/test", h.test)
	h.mux.HandleFunc("/api/dashboard-summary", h.summary)
	h.mux.Handle("/api/load-sample-data", guard(http.HandlerFunc(h.loadSample)))
	h.mux.Handle("/api/upload-data", guard(http.HandlerFunc(h.upload)))
	h.mux.HandleFunc("/api/resources", h.resources)
	h.mux.HandleFunc("/api/trials", h.trials)
	h.mux.HandleFunc("/api/quarters", h.quarters)
	h.mux.HandleFunc("/api/bottlenecks", h.bottlenecks)
	h.mux.HandleFunc("/api/bottlenecks/export", h.export)
	h.mux.HandleFunc("/api/areas", h.areas)
	h.mux.HandleFunc("/api/alerts", h.listAlerts)
	h.mux.HandleFunc("/api/dashboard", h.dashboard)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// root returns GET /: service banner. Any other unmatched path is a 404.
func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}
	if !allowGet(w, r) {
		return
	}
	jsonResp(w, http.StatusOK, RootResponse{Message: "Clinical Trials Dashboard API", Status: "running"})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	jsonResp(w, http.StatusOK, StatusResponse{Status: "healthy"})
}

func (h *Handler) test(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	jsonResp(w, http.StatusOK, MessageResponse{Message: "Backend connected successfully"})
}

// summary returns GET /api/dashboard-summary.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	snap, ds := current(h.store)
	jsonResp(w, http.StatusOK, buildSummary(snap, ds, compute.Analyze(ds)))
}

// loadSample handles POST /api/load-sample-data: a dataset in the JSON body.
func (h *Handler) loadSample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		jsonErr(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	h.load(w, "sample-data.json", ingest.FormatJSON, body, "Sample data loaded successfully")
}

// upload handles POST /api/upload-data: multipart form with a "file" part.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonErr(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		jsonErr(w, http.StatusBadRequest, "missing multipart file field \"file\"")
		return
	}
	defer file.Close()

	var format ingest.Format
	switch name := strings.ToLower(hdr.Filename); {
	case strings.HasSuffix(name, ".json"):
		format = ingest.FormatJSON
	case strings.HasSuffix(name, ".xlsx"):
		format = ingest.FormatXLSX
	default:
		jsonErr(w, http.StatusBadRequest, "Only JSON and XLSX files are supported")
		return
	}

	slog.Info("api: received file upload", "filename", hdr.Filename, "size", hdr.Size)
	data, err := io.ReadAll(file)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}
	h.load(w, hdr.Filename, format, data, "Data uploaded successfully")
}

// load decodes, validates and publishes a dataset, then writes the response.
func (h *Handler) load(w http.ResponseWriter, source string, format ingest.Format, data []byte, okMsg string) {
	doc, err := ingest.Decode(format, data)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s format", strings.ToUpper(string(format))))
		return
	}
	snap, res, err := h.receiver.Load(doc, source)
	if err != nil {
		if ve, ok := ingest.IsValidation(err); ok {
			jsonResp(w, http.StatusBadRequest, ValidationResponse{Valid: false, Errors: ve.Errors})
			return
		}
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, LoadResponse{
		Message:        okMsg,
		DatasetID:      snap.ID,
		ResourcesCount: res.ResourcesCount,
		TrialsCount:    res.TrialsCount,
	})
}

func (h *Handler) resources(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	jsonResp(w, http.StatusOK, h.store.Resources())
}

func (h *Handler) trials(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	jsonResp(w, http.StatusOK, h.store.Trials())
}

func (h *Handler) quarters(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	jsonResp(w, http.StatusOK, QuartersResponse{Quarters: compute.DetectQuarters(h.store.Dataset())})
}

// bottlenecks returns GET /api/bottlenecks, optionally filtered by
// ?status= and ?area= (both case-insensitive).
func (h *Handler) bottlenecks(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	records := compute.Analyze(h.store.Dataset())
	records = filterRecords(records, r.URL.Query().Get("status"), r.URL.Query().Get("area"))
	jsonResp(w, http.StatusOK, BottlenecksResponse{Bottlenecks: records})
}

// export returns GET /api/bottlenecks/export?format=csv|xlsx as a download.
func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	format := report.FormatCSV
	if f := r.URL.Query().Get("format"); f != "" {
		parsed, err := report.ParseFormat(f)
		if err != nil || (parsed != report.FormatCSV && parsed != report.FormatXLSX) {
			jsonErr(w, http.StatusBadRequest, "format must be csv or xlsx")
			return
		}
		format = parsed
	}

	ds := h.store.Dataset()
	records := compute.Analyze(ds)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bottlenecks.%s"`, format))
	if err := report.Write(w, format, compute.Summarize(ds), records); err != nil {
		slog.Error("api: export failed", "format", format, "err", err)
	}
}

// areas returns GET /api/areas: per-area aggregates with diagnostic hints.
func (h *Handler) areas(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	ds := h.store.Dataset()
	quarters := compute.DetectQuarters(ds)
	aggs := compute.Aggregate(ds, quarters)
	records := compute.Bottlenecks(aggs, quarters)

	out := make([]AreaResponse, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, AreaResponse{
			AreaAggregate: a,
			Diagnostics:   computeDiagnostics(a, recordsFor(records, a.Area)),
		})
	}
	jsonResp(w, http.StatusOK, AreasResponse{Quarters: quarters, Areas: out})
}

// listAlerts returns GET /api/alerts: active + recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// dashboard returns GET /api/dashboard: the same payload the websocket pushes.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	jsonResp(w, http.StatusOK, BuildDashboard(h.store))
}

// --- builders ---------------------------------------------------------------

// BuildDashboard computes the dashboard payload from the store's current dataset.
// Exported so the websocket hub can reuse it without an HTTP round-trip.
func BuildDashboard(st *store.Store) DashboardResponse {
	snap, ds := current(st)
	records := compute.Analyze(ds)
	return DashboardResponse{
		Summary:     buildSummary(snap, ds, records),
		Bottlenecks: records,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// current reads the store once. snap is nil when nothing has been loaded.
func current(st *store.Store) (*store.Snapshot, *types.Dataset) {
	snap, ok := st.Current()
	if !ok || snap.Dataset == nil {
		return nil, &types.Dataset{}
	}
	return snap, snap.Dataset
}

func buildSummary(snap *store.Snapshot, ds *types.Dataset, records []types.BottleneckRecord) SummaryResponse {
	resp := SummaryResponse{
		Summary:      compute.Summarize(ds),
		StatusCounts: compute.CountByStatus(records),
	}
	if snap != nil {
		resp.DatasetID = snap.ID
		resp.Source = snap.Source
		resp.LoadedAt = snap.LoadedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// --- helpers ----------------------------------------------------------------

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

func filterRecords(records []types.BottleneckRecord, status, area string) []types.BottleneckRecord {
	if status == "" && area == "" {
		return records
	}
	out := make([]types.BottleneckRecord, 0, len(records))
	for _, rec := range records {
		if status != "" && !strings.EqualFold(rec.Status, status) {
			continue
		}
		if area != "" && !strings.EqualFold(rec.Area, area) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func recordsFor(records []types.BottleneckRecord, area string) []types.BottleneckRecord {
	var out []types.BottleneckRecord
	for _, rec := range records {
		if rec.Area == area {
			out = append(out, rec)
		}
	}
	return out
}
