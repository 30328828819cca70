package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnNormalizeStart(ctx, 10)
	p.OnNormalizeComplete(ctx, 2, time.Millisecond, nil)
	p.OnLayoutStart(ctx, 2)
	p.OnLayoutComplete(ctx, 6, time.Millisecond, nil)
	p.OnRenderStart(ctx, []string{"svg"})
	p.OnRenderComplete(ctx, []string{"svg"}, time.Millisecond, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "layout")
	c.OnCacheMiss(ctx, "artifact")
	c.OnCacheSet(ctx, "summary", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "127.0.0.1:5000", "/api/summary")
	h.OnResponse(ctx, "POST", "127.0.0.1:5000", "/api/summary", 200, time.Second)
	h.OnError(ctx, "POST", "127.0.0.1:5000", "/api/summary", nil)

	s := NoopSessionHooks{}
	s.OnSessionCreated(ctx, "flow")
	s.OnSessionMissing(ctx)
	s.OnToggle(ctx, true)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should default to NoopPipelineHooks")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should default to NoopCacheHooks")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should default to NoopHTTPHooks")
	}
	if _, ok := Sessions().(NoopSessionHooks); !ok {
		t.Error("Sessions() should default to NoopSessionHooks")
	}

	prom := NewPrometheus(prometheus.NewRegistry())
	prom.Register()
	if Pipeline() != PipelineHooks(prom) || Cache() != CacheHooks(prom) || HTTP() != HTTPHooks(prom) || Sessions() != SessionHooks(prom) {
		t.Error("Register should install all hooks")
	}

	SetPipelineHooks(nil)
	if Pipeline() != PipelineHooks(prom) {
		t.Error("nil should be ignored")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset should restore defaults")
	}
}

func TestPrometheusRecords(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.OnNormalizeComplete(ctx, 3, time.Millisecond, nil)
	p.OnNormalizeComplete(ctx, 0, time.Millisecond, errors.New("bad"))
	p.OnLayoutComplete(ctx, 9, time.Millisecond, nil)
	p.OnCacheHit(ctx, "layout")
	p.OnCacheMiss(ctx, "layout")
	p.OnCacheMiss(ctx, "layout")
	p.OnCacheSet(ctx, "layout", 128)
	p.OnResponse(ctx, "POST", "svc", "/api/summary", 200, time.Millisecond)
	p.OnError(ctx, "POST", "svc", "/api/summary", errors.New("refused"))
	p.OnSessionCreated(ctx, "summary")
	p.OnSessionMissing(ctx)
	p.OnToggle(ctx, true)
	p.OnToggle(ctx, false)
	p.OnToggle(ctx, false)

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"normalize ok", p.stageTotal.WithLabelValues("normalize", "ok"), 1},
		{"normalize error", p.stageTotal.WithLabelValues("normalize", "error"), 1},
		{"layout ok", p.stageTotal.WithLabelValues("layout", "ok"), 1},
		{"cache hit", p.cacheTotal.WithLabelValues("layout", "hit"), 1},
		{"cache miss", p.cacheTotal.WithLabelValues("layout", "miss"), 2},
		{"cache bytes", p.cacheBytes.WithLabelValues("layout"), 128},
		{"http 200", p.httpTotal.WithLabelValues("POST", "svc", "200"), 1},
		{"http error", p.httpTotal.WithLabelValues("POST", "svc", "error"), 1},
		{"session created", p.sessions.WithLabelValues("created", "summary"), 1},
		{"session missing", p.sessions.WithLabelValues("missing", ""), 1},
		{"toggle changed", p.toggles.WithLabelValues("true"), 1},
		{"toggle no-op", p.toggles.WithLabelValues("false"), 2},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}

	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Errorf("GatherAndCount = %d, %v", n, err)
	}
}
