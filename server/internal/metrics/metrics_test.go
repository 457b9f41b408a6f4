package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/trialdash/trialdash/pkg/types"
	"github.com/trialdash/trialdash/server/internal/metrics"
	"github.com/trialdash/trialdash/server/internal/store"
)

func scrape(t *testing.T, st *store.Store) map[string]*dto.MetricFamily {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler(st).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q", ct)
	}

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(rr.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}
	return mfs
}

// value returns the sample in mf whose labels include every pair in want.
func value(t *testing.T, mf *dto.MetricFamily, want map[string]string) float64 {
	t.Helper()
	if mf == nil {
		t.Fatal("family missing")
	}
	for _, m := range mf.GetMetric() {
		got := map[string]string{}
		for _, lp := range m.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		match := true
		for k, v := range want {
			if got[k] != v {
				match = false
			}
		}
		if !match {
			continue
		}
		if m.Counter != nil {
			return m.Counter.GetValue()
		}
		return m.Gauge.GetValue()
	}
	t.Fatalf("%s: no sample with labels %v", mf.GetName(), want)
	return 0
}

func TestHandler_EmptyStore(t *testing.T) {
	mfs := scrape(t, store.New())

	if v := value(t, mfs["trialdash_resources"], nil); v != 0 {
		t.Errorf("resources: got %v, want 0", v)
	}
	if v := value(t, mfs["trialdash_dataset_loads_total"], nil); v != 0 {
		t.Errorf("loads: got %v, want 0", v)
	}
	if _, ok := mfs["trialdash_area_supply_fte"]; ok {
		t.Error("per-area family exposed with no data")
	}
}

func TestHandler_WithDataset(t *testing.T) {
	st := store.New()
	st.Replace(&types.Dataset{
		Resources: []types.Resource{
			{Name: "A", Area: "Onc", Capacity: map[string]float64{"Q1-2025": 10, "Q2-2025": 8}},
		},
		Trials: []types.Trial{
			{Name: "T", Area: "Onc", Subjects: 1300},
			{Name: "U", Area: "Neuro", Subjects: 650},
		},
	}, "test")

	mfs := scrape(t, st)

	if got := mfs["trialdash_dataset_loads_total"].GetType(); got != dto.MetricType_COUNTER {
		t.Errorf("loads type: got %v, want COUNTER", got)
	}
	if v := value(t, mfs["trialdash_dataset_loads_total"], nil); v != 1 {
		t.Errorf("loads: got %v, want 1", v)
	}
	if v := value(t, mfs["trialdash_trials"], nil); v != 2 {
		t.Errorf("trials: got %v, want 2", v)
	}
	// demand 3 / supply 18 = 16.7%
	if v := value(t, mfs["trialdash_overall_utilization_percent"], nil); v != 16.7 {
		t.Errorf("utilization: got %v, want 16.7", v)
	}
	if v := value(t, mfs["trialdash_area_demand_fte"], map[string]string{"area": "Neuro"}); v != 1 {
		t.Errorf("Neuro demand: got %v, want 1", v)
	}
	if v := value(t, mfs["trialdash_area_supply_fte"], map[string]string{"area": "Onc", "quarter": "Q2-2025"}); v != 8 {
		t.Errorf("Onc Q2 supply: got %v, want 8", v)
	}
	if v := value(t, mfs["trialdash_area_net_fte"], map[string]string{"area": "Onc", "quarter": "Q1-2025"}); v != 6 {
		t.Errorf("Onc Q1 net: got %v, want 6", v)
	}

	status := mfs["trialdash_bottleneck_status"]
	cases := []struct {
		area, quarter, status string
		want                  float64
	}{
		{"Onc", "Q1-2025", "underutilized", 1},
		{"Onc", "Q1-2025", "balanced", 0},
		{"Neuro", "Q2-2025", "overloaded", 1},
		{"Neuro", "Q2-2025", "underutilized", 0},
	}
	for _, tc := range cases {
		got := value(t, status, map[string]string{"area": tc.area, "quarter": tc.quarter, "status": tc.status})
		if got != tc.want {
			t.Errorf("status %s/%s/%s: got %v, want %v", tc.area, tc.quarter, tc.status, got, tc.want)
		}
	}
	if n := len(status.GetMetric()); n != 12 {
		t.Errorf("status samples: got %d, want 12 (2 areas x 2 quarters x 3 statuses)", n)
	}
}

func TestFamilies_SortedByName(t *testing.T) {
	fams := metrics.Families(store.New())
	for i := 1; i < len(fams); i++ {
		if fams[i-1].GetName() > fams[i].GetName() {
			t.Errorf("families not sorted: %s before %s", fams[i-1].GetName(), fams[i].GetName())
		}
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	rr := httptest.NewRecorder()
	metrics.Handler(store.New()).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}
