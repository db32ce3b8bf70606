package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/stacklock/pkg/depgraph"
)

func graph(t *testing.T) *depgraph.Graph {
	t.Helper()
	g := depgraph.New()
	for _, n := range []depgraph.Node{
		{Key: "flask", Name: "Flask", Version: "3.0.0"},
		{Key: "werkzeug", Name: "Werkzeug", Version: "3.0.1"},
		{Key: "ghost", Version: depgraph.MissingVersion, Missing: true},
	} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	_ = g.AddEdge(depgraph.Edge{From: "flask", To: "werkzeug", Required: ">=3.0.0"})
	_ = g.AddEdge(depgraph.Edge{From: "flask", To: "ghost"})
	return g
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(graph(t), Options{})
	for _, want := range []string{
		`"flask" [label="Flask"];`,
		`"ghost" [label="ghost", style="rounded,filled,dashed", fillcolor=lightgrey, fontcolor=black];`,
		`"flask" -> "ghost";`,
		`"flask" -> "werkzeug";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %s:\n%s", want, dot)
		}
	}
	if ToDOT(graph(t), Options{}) != dot {
		t.Error("ToDOT should be deterministic")
	}
	if !strings.Contains(ToDOT(graph(t), Options{Detailed: true}), `[label=">=3.0.0"]`) {
		t.Error("detailed output should label edges with specifiers")
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(graph(t), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG failed: %v", err)
	}
	s := string(svg)
	if !strings.Contains(s, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 `) {
		t.Errorf("viewBox not normalized: %.200s", s)
	}
	if !strings.Contains(s, "Werkzeug") {
		t.Error("SVG should contain node labels")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.50 200.00" xmlns="x"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.50 200.00" width="100" height="200"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox = %s", got)
	}
	if string(normalizeViewBox([]byte("<svg>"))) != "<svg>" {
		t.Error("SVG without viewBox should be unchanged")
	}
}
