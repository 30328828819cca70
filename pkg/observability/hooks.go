// Package observability provides hooks for metrics and logging.
//
// Libraries emit events through the registered hooks; main (or the server)
// registers a real implementation at startup. The defaults are no-ops, so
// library code never checks for nil and tests need no setup.
//
//	prom := observability.NewPrometheus(reg)
//	prom.Register()
//
// Libraries call hooks around each stage:
//
//	observability.Pipeline().OnNormalizeStart(ctx, len(raw))
//	f, err := flow.Normalize(raw)
//	observability.Pipeline().OnNormalizeComplete(ctx, f.Len(), time.Since(start), err)
//
// [Prometheus] implements every hook interface on top of client_golang.
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// =============================================================================
// Hook Interfaces
// =============================================================================

// PipelineHooks receives events from the normalize, layout and render stages.
type PipelineHooks interface {
	OnNormalizeStart(ctx context.Context, size int)
	OnNormalizeComplete(ctx context.Context, phases int, duration time.Duration, err error)

	OnLayoutStart(ctx context.Context, phases int)
	OnLayoutComplete(ctx context.Context, nodes int, duration time.Duration, err error)

	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// CacheHooks receives events from cache lookups. keyType is "layout",
// "artifact" or "summary".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from outbound HTTP calls.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	// OnError records a transport failure (no response received).
	OnError(ctx context.Context, method, host, path string, err error)
}

// SessionHooks receives events from viewing sessions served over HTTP.
// origin is "flow" for submitted documents and "summary" for flows produced
// by the summarization service.
type SessionHooks interface {
	OnSessionCreated(ctx context.Context, origin string)
	OnSessionMissing(ctx context.Context)
	OnToggle(ctx context.Context, changed bool)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks ignores every event.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnNormalizeStart(context.Context, int)                            {}
func (NoopPipelineHooks) OnNormalizeComplete(context.Context, int, time.Duration, error)   {}
func (NoopPipelineHooks) OnLayoutStart(context.Context, int)                               {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, int, time.Duration, error)      {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores every event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// NoopSessionHooks ignores every event.
type NoopSessionHooks struct{}

func (NoopSessionHooks) OnSessionCreated(context.Context, string) {}
func (NoopSessionHooks) OnSessionMissing(context.Context)         {}
func (NoopSessionHooks) OnToggle(context.Context, bool)           {}

// =============================================================================
// Global Hook Registry
// =============================================================================

// slot holds one registered hook implementation. Loads are lock-free so hot
// paths like cache lookups pay only an atomic read.
type slot[T any] struct {
	p   atomic.Pointer[T]
	def T
}

func (s *slot[T]) get() T {
	if p := s.p.Load(); p != nil {
		return *p
	}
	return s.def
}

func (s *slot[T]) set(h T) {
	if any(h) != nil {
		s.p.Store(&h)
	}
}

func (s *slot[T]) reset() { s.p.Store(nil) }

var (
	pipelineSlot = slot[PipelineHooks]{def: NoopPipelineHooks{}}
	cacheSlot    = slot[CacheHooks]{def: NoopCacheHooks{}}
	httpSlot     = slot[HTTPHooks]{def: NoopHTTPHooks{}}
	sessionSlot  = slot[SessionHooks]{def: NoopSessionHooks{}}
)

// SetPipelineHooks registers pipeline hooks. nil is ignored.
func SetPipelineHooks(h PipelineHooks) { pipelineSlot.set(h) }

// SetCacheHooks registers cache hooks. nil is ignored.
func SetCacheHooks(h CacheHooks) { cacheSlot.set(h) }

// SetHTTPHooks registers HTTP hooks. nil is ignored.
func SetHTTPHooks(h HTTPHooks) { httpSlot.set(h) }

// SetSessionHooks registers session hooks. nil is ignored.
func SetSessionHooks(h SessionHooks) { sessionSlot.set(h) }

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks { return pipelineSlot.get() }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return cacheSlot.get() }

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks { return httpSlot.get() }

// Sessions returns the registered session hooks.
func Sessions() SessionHooks { return sessionSlot.get() }

// Reset restores the no-op defaults. Used by tests.
func Reset() {
	pipelineSlot.reset()
	cacheSlot.reset()
	httpSlot.reset()
	sessionSlot.reset()
}
