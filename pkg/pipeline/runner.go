package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/phaseflow/pkg/cache"
	"github.com/matzehuels/phaseflow/pkg/flow"
	"github.com/matzehuels/phaseflow/pkg/graph"
	"github.com/matzehuels/phaseflow/pkg/layout"
	"github.com/matzehuels/phaseflow/pkg/observability"
)

// Runner executes pipeline stages with caching.
//
// A Runner holds no per-run state; one instance can serve many goroutines.
// Concurrent layouts of the same flow with the same options are collapsed
// into one computation.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	group singleflight.Group
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer uses
// [cache.NewDefaultKeyer] and a nil logger uses log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs normalize, layout and render on raw.
func (r *Runner) Execute(ctx context.Context, raw string, opts Options) (*Result, error) {
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, err
	}
	res := &Result{}

	start := time.Now()
	f, err := r.Normalize(ctx, raw)
	if err != nil {
		return nil, err
	}
	res.Flow = f
	res.Stats.Phases = f.Len()
	res.Stats.NormalizeTime = time.Since(start)

	start = time.Now()
	g, hit, err := r.Layout(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	res.Graph = g
	res.FlowHash, _ = FlowHash(f)
	res.Stats.Nodes = len(g.Nodes)
	res.Stats.Edges = len(g.Edges)
	res.Stats.LayoutTime = time.Since(start)
	res.CacheInfo.LayoutHit = hit

	r.Logger.Debug("laid out flow",
		"phases", f.Len(),
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
		"cached", hit)

	if len(opts.Formats) == 0 {
		return res, nil
	}

	start = time.Now()
	artifacts, hit, err := r.Render(ctx, g, opts)
	if err != nil {
		return nil, err
	}
	res.Artifacts = artifacts
	res.Stats.RenderTime = time.Since(start)
	res.CacheInfo.RenderHit = hit

	r.Logger.Debug("rendered outputs",
		"formats", opts.Formats,
		"duration", res.Stats.RenderTime,
		"cached", hit)
	return res, nil
}

// Normalize validates raw. Errors are *flow.ValidationError values.
func (r *Runner) Normalize(ctx context.Context, raw string) (flow.ProcessFlow, error) {
	hooks := observability.Pipeline()
	hooks.OnNormalizeStart(ctx, len(raw))
	start := time.Now()

	f, err := flow.Normalize(raw)
	hooks.OnNormalizeComplete(ctx, f.Len(), time.Since(start), err)
	if err != nil {
		var ve *flow.ValidationError
		if errors.As(err, &ve) {
			r.Logger.Debug("input rejected", "kind", ve.Kind, "index", ve.Index, "sub_index", ve.SubIndex)
		}
		return flow.ProcessFlow{}, err
	}
	return f, nil
}

// Layout lays out f, consulting the cache first unless opts.Refresh is set.
// The returned bool reports a cache hit.
func (r *Runner) Layout(ctx context.Context, f flow.ProcessFlow, opts Options) (graph.Graph, bool, error) {
	hash, err := FlowHash(f)
	if err != nil {
		return graph.Graph{}, false, err
	}
	lo := layout.DefaultOptions()
	layout.WithOptions(opts.Layout)(&lo)
	key := r.Keyer.LayoutKey(hash, cache.LayoutKeyOpts{
		Vertical:   lo.Vertical,
		Horizontal: lo.Horizontal,
		SubPhase:   lo.SubPhase,
		OriginX:    lo.Origin.X,
		OriginY:    lo.Origin.Y,
	})

	if !opts.Refresh {
		if g, ok := r.cachedGraph(ctx, key); ok {
			return g, true, nil
		}
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		hooks := observability.Pipeline()
		hooks.OnLayoutStart(ctx, f.Len())
		start := time.Now()
		g := layout.Build(f, layout.WithOptions(lo))
		hooks.OnLayoutComplete(ctx, len(g.Nodes), time.Since(start), nil)

		if data, err := graph.Marshal(g); err == nil {
			if err := r.Cache.Set(ctx, key, data, cache.LayoutTTL); err != nil {
				r.Logger.Warn("cache write failed", "key", key, "err", err)
			} else {
				observability.Cache().OnCacheSet(ctx, "layout", len(data))
			}
		}
		return g, nil
	})
	if err != nil {
		return graph.Graph{}, false, err
	}
	return v.(graph.Graph).Clone(), false, nil
}

// Render produces artifacts for opts.Formats. When every format is cached the
// cached bytes are returned and the bool is true.
func (r *Runner) Render(ctx context.Context, g graph.Graph, opts Options) (map[string][]byte, bool, error) {
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, false, err
	}
	data, err := graph.Marshal(g)
	if err != nil {
		return nil, false, fmt.Errorf("serialize graph: %w", err)
	}
	// Render options change the output, so they are part of the hash.
	graphHash := cache.Hash(fmt.Appendf(data, "|%+v", opts.Render))
	keyFor := func(format string) string {
		return r.Keyer.ArtifactKey(graphHash, cache.ArtifactKeyOpts{Format: format})
	}

	if !opts.Refresh {
		cached := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			data, hit, err := r.Cache.Get(ctx, keyFor(format))
			if err != nil || !hit {
				observability.Cache().OnCacheMiss(ctx, "artifact")
				break
			}
			observability.Cache().OnCacheHit(ctx, "artifact")
			cached[format] = data
		}
		if len(cached) == len(opts.Formats) {
			return cached, true, nil
		}
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	artifacts, err := RenderFormats(ctx, g, opts.Formats, opts.Render)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range artifacts {
		if err := r.Cache.Set(ctx, keyFor(format), data, cache.ArtifactTTL); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return artifacts, false, nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) cachedGraph(ctx context.Context, key string) (graph.Graph, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "key", key, "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "layout")
		return graph.Graph{}, false
	}
	g, err := graph.Unmarshal(data)
	if err != nil || g.Validate() != nil {
		observability.Cache().OnCacheMiss(ctx, "layout")
		return graph.Graph{}, false
	}
	observability.Cache().OnCacheHit(ctx, "layout")
	return g, true
}

// FlowHash returns the content hash of f's canonical JSON form.
func FlowHash(f flow.ProcessFlow) (string, error) {
	data, err := flow.Marshal(f)
	if err != nil {
		return "", err
	}
	return cache.Hash(data), nil
}
