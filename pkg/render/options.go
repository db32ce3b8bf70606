package render

import (
	"fmt"
	"io"

	"github.com/matzehuels/stacklock/pkg/depgraph"
	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/render/nodelink"
)

// Options selects the output format. The zero value is the forward text
// tree. At most one of Reverse, JSON, JSONTree and DOT may be set.
type Options struct {
	Reverse  bool
	JSON     bool
	JSONTree bool
	DOT      bool

	// ShowAll keeps bookkeeping packages (pip, setuptools, ...) that are
	// otherwise hidden from the top level.
	ShowAll bool
	// Detailed adds versions and specifiers to DOT labels.
	Detailed bool
}

// Validate rejects combinations of formats with an errors.ErrCodeUsage
// error. Callers validate before building a graph.
func (o Options) Validate() error {
	switch {
	case o.Reverse && o.JSON:
		return unsupported("--reverse", "--json")
	case o.Reverse && o.JSONTree:
		return unsupported("--reverse", "--json-tree")
	case o.JSON && o.JSONTree:
		return unsupported("--json", "--json-tree")
	case o.DOT && o.Reverse:
		return unsupported("--dot", "--reverse")
	case o.DOT && o.JSON:
		return unsupported("--dot", "--json")
	case o.DOT && o.JSONTree:
		return unsupported("--dot", "--json-tree")
	}
	return nil
}

func unsupported(a, b string) error {
	return errs.Usage("Using both %s and %s together is not supported. Please select one of the two options.", a, b)
}

// Render writes g to w in the format selected by opts.
func Render(w io.Writer, g *depgraph.Graph, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	switch {
	case opts.Reverse:
		return ReverseText(w, g)
	case opts.JSON:
		return JSON(w, g, opts.ShowAll)
	case opts.JSONTree:
		return JSONTree(w, g, opts.ShowAll)
	case opts.DOT:
		_, err := fmt.Fprint(w, nodelink.ToDOT(g, nodelink.Options{Detailed: opts.Detailed}))
		return err
	}
	return Text(w, g, opts.ShowAll)
}
