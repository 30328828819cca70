package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus implements [PipelineHooks], [CacheHooks] and [HTTPHooks] by
// recording counters and histograms on a registry.
type Prometheus struct {
	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	flowPhases    prometheus.Histogram
	graphNodes    prometheus.Histogram
	cacheTotal    *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec
	httpTotal     *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	sessions      *prometheus.CounterVec
	toggles       *prometheus.CounterVec
}

// NewPrometheus registers phaseflow metrics on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		stageTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phaseflow",
			Name:      "stage_total",
			Help:      "Pipeline stage runs by stage and result.",
		}, []string{"stage", "result"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "phaseflow",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
		}, []string{"stage"}),
		flowPhases: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "phaseflow",
			Name:      "flow_phases",
			Help:      "Phases per normalized flow.",
			Buckets:   prometheus.LinearBuckets(0, 5, 10),
		}),
		graphNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "phaseflow",
			Name:      "graph_nodes",
			Help:      "Nodes per laid-out graph.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		cacheTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phaseflow",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by key type and result.",
		}, []string{"type", "result"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phaseflow",
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache by key type.",
		}, []string{"type"}),
		httpTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phaseflow",
			Name:      "outbound_requests_total",
			Help:      "Outbound HTTP requests by host and status.",
		}, []string{"method", "host", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "phaseflow",
			Name:      "outbound_request_duration_seconds",
			Help:      "Outbound HTTP latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "host"}),
		sessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phaseflow",
			Name:      "sessions_total",
			Help:      "Session lookups and creations by event and origin.",
		}, []string{"event", "origin"}),
		toggles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phaseflow",
			Name:      "toggles_total",
			Help:      "Expand/collapse requests by whether they changed the graph.",
		}, []string{"changed"}),
	}
}

// Register installs p for every hook kind.
func (p *Prometheus) Register() {
	SetPipelineHooks(p)
	SetCacheHooks(p)
	SetHTTPHooks(p)
	SetSessionHooks(p)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnNormalizeStart(context.Context, int) {}

func (p *Prometheus) OnNormalizeComplete(_ context.Context, phases int, d time.Duration, err error) {
	p.stageTotal.WithLabelValues("normalize", result(err)).Inc()
	p.stageDuration.WithLabelValues("normalize").Observe(d.Seconds())
	if err == nil {
		p.flowPhases.Observe(float64(phases))
	}
}

func (p *Prometheus) OnLayoutStart(context.Context, int) {}

func (p *Prometheus) OnLayoutComplete(_ context.Context, nodes int, d time.Duration, err error) {
	p.stageTotal.WithLabelValues("layout", result(err)).Inc()
	p.stageDuration.WithLabelValues("layout").Observe(d.Seconds())
	if err == nil {
		p.graphNodes.Observe(float64(nodes))
	}
}

func (p *Prometheus) OnRenderStart(context.Context, []string) {}

func (p *Prometheus) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	p.stageTotal.WithLabelValues("render", result(err)).Inc()
	p.stageDuration.WithLabelValues("render").Observe(d.Seconds())
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheTotal.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheTotal.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, method, host, _ string, status int, d time.Duration) {
	p.httpTotal.WithLabelValues(method, host, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, host).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, method, host, _ string, _ error) {
	p.httpTotal.WithLabelValues(method, host, "error").Inc()
}

func (p *Prometheus) OnSessionCreated(_ context.Context, origin string) {
	p.sessions.WithLabelValues("created", origin).Inc()
}

func (p *Prometheus) OnSessionMissing(context.Context) {
	p.sessions.WithLabelValues("missing", "").Inc()
}

func (p *Prometheus) OnToggle(_ context.Context, changed bool) {
	p.toggles.WithLabelValues(strconv.FormatBool(changed)).Inc()
}

var (
	_ PipelineHooks = (*Prometheus)(nil)
	_ CacheHooks    = (*Prometheus)(nil)
	_ HTTPHooks     = (*Prometheus)(nil)
	_ SessionHooks  = (*Prometheus)(nil)
)
