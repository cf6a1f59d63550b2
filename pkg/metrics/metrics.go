// Package metrics collects pipeline counters on a private Prometheus registry.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultCanceled = "canceled"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	Extractions        *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec
	ExtractedBytes     prometheus.Counter

	Reconciles     *prometheus.CounterVec
	CatalogChanges *prometheus.CounterVec
	Resolves       *prometheus.CounterVec

	RegistryApps  *prometheus.GaugeVec
	EventsEmitted *prometheus.CounterVec
}

// New creates a collector with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Extractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apkstash_extractions_total",
				Help: "Extractions by shape (single, bundle) and result",
			},
			[]string{"shape", "result"},
		),
		ExtractionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apkstash_extraction_duration_seconds",
				Help:    "Extraction wall time in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"shape"},
		),
		ExtractedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "apkstash_extracted_bytes_total",
				Help: "Source bytes copied by successful extractions",
			},
		),
		Reconciles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apkstash_reconcile_total",
				Help: "Catalog reconciliation passes by result",
			},
			[]string{"result"},
		),
		CatalogChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apkstash_catalog_changes_total",
				Help: "Catalog rows written by operation (insert, delete, upsert)",
			},
			[]string{"op"},
		),
		Resolves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apkstash_resolve_total",
				Help: "Archive metadata resolutions by result",
			},
			[]string{"result"},
		),
		RegistryApps: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "apkstash_registry_apps",
				Help: "Installed apps per registry bucket",
			},
			[]string{"bucket"},
		),
		EventsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apkstash_events_emitted_total",
				Help: "Lifecycle events emitted by kind",
			},
			[]string{"kind"},
		),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveExtraction records one finished extraction.
func (m *Metrics) ObserveExtraction(shape, result string, d time.Duration, bytes int64) {
	if m == nil {
		return
	}
	m.Extractions.WithLabelValues(shape, result).Inc()
	m.ExtractionDuration.WithLabelValues(shape).Observe(d.Seconds())
	if result == ResultSuccess && bytes > 0 {
		m.ExtractedBytes.Add(float64(bytes))
	}
}

// ObserveReconcile records one reconciliation pass and the rows it changed.
func (m *Metrics) ObserveReconcile(result string, inserted, deleted int) {
	if m == nil {
		return
	}
	m.Reconciles.WithLabelValues(result).Inc()
	m.CatalogChanges.WithLabelValues("insert").Add(float64(inserted))
	m.CatalogChanges.WithLabelValues("delete").Add(float64(deleted))
}

// ObserveUpsert records rows upserted outside reconciliation.
func (m *Metrics) ObserveUpsert(n int) {
	if m == nil {
		return
	}
	m.CatalogChanges.WithLabelValues("upsert").Add(float64(n))
}

// ObserveDelete records rows deleted outside reconciliation.
func (m *Metrics) ObserveDelete(n int) {
	if m == nil {
		return
	}
	m.CatalogChanges.WithLabelValues("delete").Add(float64(n))
}

// ObserveResolve records one metadata resolution attempt.
func (m *Metrics) ObserveResolve(result string) {
	if m == nil {
		return
	}
	m.Resolves.WithLabelValues(result).Inc()
}

// SetRegistryApps publishes the bucket sizes of the latest registry snapshot.
func (m *Metrics) SetRegistryApps(favorites, user, system int) {
	if m == nil {
		return
	}
	m.RegistryApps.WithLabelValues("favorites").Set(float64(favorites))
	m.RegistryApps.WithLabelValues("user").Set(float64(user))
	m.RegistryApps.WithLabelValues("system").Set(float64(system))
}

// ObserveEvent counts an emitted lifecycle event.
func (m *Metrics) ObserveEvent(kind string) {
	if m == nil {
		return
	}
	m.EventsEmitted.WithLabelValues(kind).Inc()
}

// Sample is one flattened metric value.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Snapshot gathers counters and gauges as flat samples sorted by name.
// Histograms are reported by their sample count.
func (m *Metrics) Snapshot() ([]Sample, error) {
	if m == nil {
		return nil, nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	var out []Sample
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			labels := make(map[string]string, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			var value float64
			switch {
			case metric.GetCounter() != nil:
				value = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				value = metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				value = float64(metric.GetHistogram().GetSampleCount())
			}
			out = append(out, Sample{Name: fam.GetName(), Labels: labels, Value: value})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
