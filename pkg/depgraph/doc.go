// Package depgraph builds package dependency graphs for display.
//
// A [Graph] is built from one of three sources:
//
//   - [FromClosure]: a fresh resolution result
//   - [FromLock]: the sections of a lock artifact
//   - [FromInstalled]: the packages installed in an interpreter
//
// Nodes are keyed by normalized package name. Edges point from a package to
// its dependencies and record the specifier the dependent asked for. A
// dependency that is declared but absent from the source becomes a node with
// version [MissingVersion] so that the gap stays visible.
//
// Installed environments are not guaranteed to be acyclic, so unlike a
// layered DAG this graph accepts cycles; [Graph.Cycles] reports them.
//
//	g := depgraph.FromLock(lf)
//	for _, root := range g.Roots() {
//	    fmt.Println(root)
//	}
package depgraph
