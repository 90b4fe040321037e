package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitekit"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg               *prom.Registry
	stageDuration     *prom.HistogramVec
	buildDuration     prom.Histogram
	stageResults      *prom.CounterVec
	buildOutcome      *prom.CounterVec
	collections       prom.Gauge
	preparedEntries   *prom.CounterVec
	unresolvedRefs    *prom.CounterVec
	generatorDuration *prom.HistogramVec
}

// NewPrometheusRecorder constructs the collectors and registers them on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		collections: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "collections",
			Help:      "Collections discovered by the last registry build",
		}),
		preparedEntries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "prepared_entries_total",
			Help:      "Entries prepared for rendering",
		}, []string{"collection"}),
		unresolvedRefs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_references_total",
			Help:      "References whose target entry does not exist",
		}, []string{"collection"}),
		generatorDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "generator_duration_seconds",
			Help:      "Duration of external generator runs",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
		pr.collections, pr.preparedEntries, pr.unresolvedRefs, pr.generatorDuration)
	return pr
}

// Registry returns the registry the collectors are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

// WriteTextfile writes all gathered metrics in the text exposition format.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.reg)
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetCollections(n int) {
	if p == nil {
		return
	}
	p.collections.Set(float64(n))
}

func (p *PrometheusRecorder) AddPreparedEntries(collection string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.preparedEntries.WithLabelValues(collection).Add(float64(n))
}

func (p *PrometheusRecorder) AddUnresolvedReferences(collection string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.unresolvedRefs.WithLabelValues(collection).Add(float64(n))
}

func (p *PrometheusRecorder) ObserveGeneratorRun(d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.generatorDuration.WithLabelValues(res).Observe(d.Seconds())
}
