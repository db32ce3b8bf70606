// Package render writes dependency graphs in the formats of the graph
// command.
//
// # Formats
//
//   - [Text]: forward tree, one package per line, children indented
//   - [ReverseText]: inverted tree listing who requires each package
//   - [JSON]: flat list of packages with their direct dependencies
//   - [JSONTree]: the forward tree as nested objects
//   - DOT: node-link diagram source (see [nodelink])
//
// [Render] dispatches on [Options] after validating them; combining two
// formats is a usage error:
//
//	opts := render.Options{Reverse: true}
//	if err := opts.Validate(); err != nil {
//	    return err // before any graph is built
//	}
//	err := render.Render(os.Stdout, depgraph.FromLock(lf), opts)
//
// # Cycles
//
// Every format walks the graph depth first with an on-path set. A package
// met again on its own path is printed once more, marked " (cycle)" in text
// and with empty dependencies in JSON, and not expanded further.
//
// [nodelink]: github.com/matzehuels/stacklock/pkg/render/nodelink
package render
