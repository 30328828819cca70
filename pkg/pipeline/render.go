package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/phaseflow/pkg/graph"
	"github.com/matzehuels/phaseflow/pkg/render"
	"github.com/matzehuels/phaseflow/pkg/render/nodelink"
)

// RenderFormats renders g in each format. Formats render concurrently; the
// first failure cancels the rest.
func RenderFormats(ctx context.Context, g graph.Graph, formats []string, opts nodelink.Options) (map[string][]byte, error) {
	if err := ValidateFormats(formats); err != nil {
		return nil, err
	}

	dot := nodelink.ToDOT(g, opts)
	var (
		mu  sync.Mutex
		out = make(map[string][]byte, len(formats))
	)
	eg, ctx := errgroup.WithContext(ctx)
	for _, format := range formats {
		eg.Go(func() error {
			data, err := renderOne(ctx, g, dot, format)
			if err != nil {
				return fmt.Errorf("render %s: %w", format, err)
			}
			mu.Lock()
			out[format] = data
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func renderOne(ctx context.Context, g graph.Graph, dot, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return graph.Marshal(g)
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		return nodelink.RenderSVG(ctx, dot)
	case FormatPNG:
		return nodelink.RenderPNG(ctx, dot)
	case FormatPDF:
		svg, err := nodelink.RenderSVG(ctx, dot)
		if err != nil {
			return nil, err
		}
		return render.ToPDF(svg)
	}
	return nil, ValidateFormat(format)
}
