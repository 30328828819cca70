// Package nodelink renders a positioned process flow graph with Graphviz.
//
// [ToDOT] writes every node with a pinned position (pos="x,y!") so the neato
// engine keeps the layout engine's coordinates instead of computing its own.
// Y is flipped because Graphviz grows upward. Expanded nodes list their code
// lines under the label; collapsed nodes show the label only.
//
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot)
//
// Rendering runs Graphviz in-process through [github.com/goccy/go-graphviz].
package nodelink
