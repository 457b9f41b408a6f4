// Package metrics exposes the derived dashboard figures in the Prometheus
// text format at GET /metrics.
//
// Families(store) builds the metric families from the current dataset on every
// scrape; nothing is cached between scrapes. Exposed families:
//
//	trialdash_resources                              gauge
//	trialdash_trials                                 gauge
//	trialdash_overall_utilization_percent            gauge
//	trialdash_area_demand_fte{area}                  gauge
//	trialdash_area_supply_fte{area,quarter}          gauge
//	trialdash_area_net_fte{area,quarter}             gauge
//	trialdash_bottleneck_status{area,quarter,status} gauge, 1 for the current status
//	trialdash_dataset_loads_total                    counter
package metrics
