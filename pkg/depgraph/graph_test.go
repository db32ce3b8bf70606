package depgraph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/matzehuels/stacklock/pkg/environment"
	"github.com/matzehuels/stacklock/pkg/lock"
	"github.com/matzehuels/stacklock/pkg/markers"
	"github.com/matzehuels/stacklock/pkg/requirement"
	"github.com/matzehuels/stacklock/pkg/resolve"
)

func entry(name, version string, deps map[string]string) *resolve.Entry {
	if deps == nil {
		deps = map[string]string{}
	}
	return &resolve.Entry{Name: name, Version: version, Hashes: []string{}, Dependencies: deps}
}

func tablibClosure() *resolve.Closure {
	return &resolve.Closure{Entries: map[string]*resolve.Entry{
		"tablib":     entry("tablib", "0.13.0", map[string]string{"openpyxl": ">=2.4.0"}),
		"openpyxl":   entry("openpyxl", "2.5.4", map[string]string{"et-xmlfile": "*", "jdcal": "*"}),
		"et-xmlfile": entry("et-xmlfile", "1.0.1", nil),
		"jdcal":      entry("jdcal", "1.4.1", nil),
	}}
}

func TestAddNodeErrors(t *testing.T) {
	g := New()
	if err := g.AddNode(Node{}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
	if err := g.AddNode(Node{Key: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode(Node{Key: "a"}); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if err := g.AddEdge(Edge{From: "x", To: "a"}); !errors.Is(err, ErrUnknownSourceNode) {
		t.Errorf("expected ErrUnknownSourceNode, got %v", err)
	}
	if err := g.AddEdge(Edge{From: "a", To: "x"}); !errors.Is(err, ErrUnknownTargetNode) {
		t.Errorf("expected ErrUnknownTargetNode, got %v", err)
	}
	if n, _ := g.Node("a"); n.Name != "a" {
		t.Errorf("Name should default to key, got %q", n.Name)
	}
}

func TestFromClosure(t *testing.T) {
	g := FromClosure(tablibClosure())

	if g.NodeCount() != 4 || g.EdgeCount() != 3 {
		t.Fatalf("nodes=%d edges=%d, want 4 and 3", g.NodeCount(), g.EdgeCount())
	}
	if got := g.Roots(); !reflect.DeepEqual(got, []string{"tablib"}) {
		t.Errorf("Roots = %v", got)
	}
	if got := g.Leaves(); !reflect.DeepEqual(got, []string{"et-xmlfile", "jdcal"}) {
		t.Errorf("Leaves = %v", got)
	}
	children := g.Children("openpyxl")
	if len(children) != 2 || children[0].To != "et-xmlfile" || children[0].Required != "" {
		t.Errorf("Children(openpyxl) = %+v", children)
	}
	parents := g.Parents("openpyxl")
	if len(parents) != 1 || parents[0].From != "tablib" || parents[0].Required != ">=2.4.0" {
		t.Errorf("Parents(openpyxl) = %+v", parents)
	}
}

func TestMissingDependency(t *testing.T) {
	c := &resolve.Closure{Entries: map[string]*resolve.Entry{
		"app": entry("app", "1.0", map[string]string{"ghost": ">=1"}),
	}}
	g := FromClosure(c)
	n, ok := g.Node("ghost")
	if !ok {
		t.Fatal("missing dependency should become a node")
	}
	if n.Version != MissingVersion || !n.Missing {
		t.Errorf("ghost = %+v", n)
	}
}

func TestReverse(t *testing.T) {
	r := FromClosure(tablibClosure()).Reverse()
	if got := r.Roots(); !reflect.DeepEqual(got, []string{"et-xmlfile", "jdcal"}) {
		t.Errorf("reverse Roots = %v", got)
	}
	children := r.Children("openpyxl")
	if len(children) != 1 || children[0].To != "tablib" || children[0].Required != ">=2.4.0" {
		t.Errorf("reverse Children(openpyxl) = %+v", children)
	}
}

func TestCycles(t *testing.T) {
	tests := []struct {
		name  string
		edges [][2]string
		want  [][]string
	}{
		{"Acyclic", [][2]string{{"a", "b"}, {"b", "c"}}, nil},
		{"TwoNode", [][2]string{{"a", "b"}, {"b", "a"}}, [][]string{{"a", "b"}}},
		{"Rotated", [][2]string{{"c", "b"}, {"b", "d"}, {"d", "c"}, {"a", "c"}}, [][]string{{"b", "d", "c"}}},
		{"Two", [][2]string{{"a", "b"}, {"b", "a"}, {"c", "d"}, {"d", "c"}}, [][]string{{"a", "b"}, {"c", "d"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			for _, e := range tt.edges {
				for _, k := range e {
					_ = g.AddNode(Node{Key: k})
				}
				if err := g.AddEdge(Edge{From: e[0], To: e[1]}); err != nil {
					t.Fatal(err)
				}
			}
			if got := g.Cycles(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Cycles() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromLock(t *testing.T) {
	lf := &lock.Lockfile{
		Default: tablibClosure(),
		Develop: &resolve.Closure{Entries: map[string]*resolve.Entry{
			"pytest":   entry("pytest", "8.0.0", map[string]string{"openpyxl": "*"}),
			"openpyxl": entry("openpyxl", "2.5.4", nil),
		}},
	}
	g := FromLock(lf)
	if got := g.Roots(); !reflect.DeepEqual(got, []string{"pytest", "tablib"}) {
		t.Errorf("Roots = %v", got)
	}
	if g.NodeCount() != 5 {
		t.Errorf("sections should merge into 5 nodes, got %d", g.NodeCount())
	}

	def := FromLock(lf, lock.SectionDefault)
	if _, ok := def.Node("pytest"); ok {
		t.Error("develop package in default-only graph")
	}
}

func TestDisplayNames(t *testing.T) {
	g := FromClosure(&resolve.Closure{Entries: map[string]*resolve.Entry{
		"pyyaml":         entry("pyyaml", "6.0.1", nil),
		"zope-interface": entry("zope-interface", "6.1", nil),
	}})
	g.DisplayNames("PyYAML", "Zope.Interface", "Unknown")

	for key, want := range map[string]string{"pyyaml": "PyYAML", "zope-interface": "Zope.Interface"} {
		n, _ := g.Node(key)
		if n.Name != want || n.Key != key {
			t.Errorf("node %s = %+v, want name %s", key, n, want)
		}
	}
	if _, ok := g.Node("unknown"); ok {
		t.Error("unknown names must not add nodes")
	}
}

func TestFromInstalled(t *testing.T) {
	pkgs := []environment.Package{
		{Name: "tablib", Version: "0.13.0", Requires: []requirement.Requirement{
			requirement.MustParse("openpyxl>=2.4.0"),
			requirement.MustParse("odfpy; extra == 'ods'"),
			requirement.MustParse("pywin32; sys_platform == 'win32'"),
		}},
		{Name: "openpyxl", Version: "2.5.4", Requires: []requirement.Requirement{
			requirement.MustParse("et_xmlfile"),
		}},
		{Name: "et-xmlfile", Version: "1.0.1"},
	}

	g := FromInstalled(pkgs, markers.NewEnvironment("linux", "amd64", "3.11"))
	if g.NodeCount() != 3 {
		t.Errorf("nodes = %d, want 3", g.NodeCount())
	}
	if children := g.Children("openpyxl"); len(children) != 1 || children[0].To != "et-xmlfile" {
		t.Errorf("Children(openpyxl) = %+v", children)
	}

	g = FromInstalled(pkgs, nil)
	n, ok := g.Node("pywin32")
	if !ok || !n.Missing {
		t.Errorf("without an environment platform requirements are kept, got %+v", n)
	}
	if _, ok := g.Node("odfpy"); ok {
		t.Error("extra requirements are never followed")
	}
}
