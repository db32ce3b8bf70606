// Package nodelink renders dependency graphs as node-link diagrams.
//
// Packages appear as boxes connected by arrows pointing at their
// dependencies. [ToDOT] produces Graphviz DOT source; [RenderSVG] lays it out
// with the embedded Graphviz (github.com/goccy/go-graphviz), so no system
// installation is required.
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
package nodelink
