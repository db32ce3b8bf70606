package depgraph_test

import (
	"fmt"

	"github.com/matzehuels/stacklock/pkg/depgraph"
)

func ExampleGraph_Roots() {
	g := depgraph.New()
	_ = g.AddNode(depgraph.Node{Key: "flask", Version: "3.0.0"})
	_ = g.AddNode(depgraph.Node{Key: "werkzeug", Version: "3.0.1"})
	_ = g.AddNode(depgraph.Node{Key: "markupsafe", Version: "2.1.5"})
	_ = g.AddEdge(depgraph.Edge{From: "flask", To: "werkzeug", Required: ">=3.0.0"})
	_ = g.AddEdge(depgraph.Edge{From: "werkzeug", To: "markupsafe", Required: ">=2.1.1"})

	fmt.Println("Roots:", g.Roots())
	fmt.Println("Leaves:", g.Leaves())
	fmt.Println("Dependents of markupsafe:", g.Reverse().Children("markupsafe")[0].To)
	// Output:
	// Roots: [flask]
	// Leaves: [markupsafe]
	// Dependents of markupsafe: werkzeug
}

func ExampleGraph_Cycles() {
	g := depgraph.New()
	for _, k := range []string{"sphinx", "sphinxcontrib-applehelp"} {
		_ = g.AddNode(depgraph.Node{Key: k})
	}
	_ = g.AddEdge(depgraph.Edge{From: "sphinx", To: "sphinxcontrib-applehelp"})
	_ = g.AddEdge(depgraph.Edge{From: "sphinxcontrib-applehelp", To: "sphinx"})

	fmt.Println(g.Cycles())
	// Output:
	// [[sphinx sphinxcontrib-applehelp]]
}
