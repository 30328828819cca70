// Package render turns laid-out process flow graphs into images.
//
// The [nodelink] subpackage emits Graphviz DOT with every node pinned at its
// layout position and renders it to SVG or PNG in-process. [ToPDF] converts
// an SVG to PDF with the external rsvg-convert tool:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(svg)
package render
