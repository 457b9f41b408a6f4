package metrics

import (
	"bytes"
	"log/slog"
	"net/http"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/trialdash/trialdash/pkg/types"
	"github.com/trialdash/trialdash/server/internal/compute"
	"github.com/trialdash/trialdash/server/internal/store"
)

const namespace = "trialdash_"

var statuses = []string{types.StatusBalanced, types.StatusOverloaded, types.StatusUnderutilized}

// Families computes every exposed metric family from the store's current
// dataset, sorted by name.
func Families(st *store.Store) []*dto.MetricFamily {
	ds := st.Dataset()
	quarters := compute.DetectQuarters(ds)
	aggs := compute.Aggregate(ds, quarters)

	demand := gaugeFamily("area_demand_fte", "FTE needed by the trials of a therapeutic area.")
	supply := gaugeFamily("area_supply_fte", "FTE available to a therapeutic area in a quarter.")
	net := gaugeFamily("area_net_fte", "Supply after the non-trial deduction minus demand.")
	status := gaugeFamily("bottleneck_status", "1 for the current status of an area in a quarter, 0 otherwise.")

	for _, a := range aggs {
		demand.Metric = append(demand.Metric, gauge(a.Demand, "area", a.Area))
	}
	for _, rec := range compute.Bottlenecks(aggs, quarters) {
		supply.Metric = append(supply.Metric, gauge(rec.Supply, "area", rec.Area, "quarter", rec.Quarter))
		net.Metric = append(net.Metric, gauge(rec.Net, "area", rec.Area, "quarter", rec.Quarter))
		for _, s := range statuses {
			v := 0.0
			if rec.Status == s {
				v = 1
			}
			status.Metric = append(status.Metric, gauge(v, "area", rec.Area, "quarter", rec.Quarter, "status", s))
		}
	}

	resources := gaugeFamily("resources", "Resources in the current dataset.")
	resources.Metric = []*dto.Metric{gauge(float64(len(ds.Resources)))}
	trials := gaugeFamily("trials", "Trials in the current dataset.")
	trials.Metric = []*dto.Metric{gauge(float64(len(ds.Trials)))}
	util := gaugeFamily("overall_utilization_percent", "Total demand as a percentage of total supply.")
	util.Metric = []*dto.Metric{gauge(compute.Utilization(ds, quarters))}

	loads := &dto.MetricFamily{
		Name: proto.String(namespace + "dataset_loads_total"),
		Help: proto.String("Datasets published since startup."),
		Type: dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{
			Counter: &dto.Counter{Value: proto.Float64(float64(st.Loads()))},
		}},
	}

	out := []*dto.MetricFamily{resources, trials, util, demand, supply, net, status, loads}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// Handler serves Families in the Prometheus text format.
func Handler(st *store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var buf bytes.Buffer
		for _, mf := range Families(st) {
			// Families with no samples (e.g. per-area gauges before a load) are skipped.
			if len(mf.GetMetric()) == 0 {
				continue
			}
			if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
				slog.Error("metrics: encode family", "family", mf.GetName(), "err", err)
				http.Error(w, "encode metrics", http.StatusInternalServerError)
				return
			}
		}
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		w.Write(buf.Bytes()) //nolint:errcheck
	})
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(namespace + name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

// gauge builds one sample; labels are name/value pairs.
func gauge(v float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	return m
}
