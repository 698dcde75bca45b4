package graph

import (
	"strings"
	"testing"
)

func TestAddNodeAssignsID(t *testing.T) {
	g := New()
	n := &Node{Name: "conv1", Op: "Conv2D"}
	if err := g.AddNode(n); err != nil {
		t.Fatal(err)
	}
	if n.ID == "" {
		t.Error("node should get an ID assigned")
	}
	if _, ok := g.NodeByName("conv1"); !ok {
		t.Error("node not findable by name")
	}
	if _, ok := g.NodeByID(n.ID); !ok {
		t.Error("node not findable by ID")
	}
}

func TestAddNodeRejectsDuplicates(t *testing.T) {
	g := New()
	if err := g.AddNode(&Node{Name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode(&Node{Name: "a"}); err == nil {
		t.Error("duplicate name must be rejected")
	}
	if err := g.AddNode(&Node{}); err == nil {
		t.Error("empty name must be rejected")
	}
}

func TestEdgesAndDegrees(t *testing.T) {
	g := New()
	for _, name := range []string{"a", "b", "c"} {
		if err := g.AddNode(&Node{Name: name}); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddEdge("a", "c"); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge("b", "c"); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge("a", "missing"); err == nil {
		t.Error("edge to a missing node must fail")
	}

	c, _ := g.NodeByName("c")
	a, _ := g.NodeByName("a")
	if len(g.PrevNodes(c)) != 2 {
		t.Errorf("c should have 2 predecessors, got %d", len(g.PrevNodes(c)))
	}
	if g.OutDegree(a) != 1 {
		t.Errorf("a fan-out = %d, want 1", g.OutDegree(a))
	}
}

func TestLoad(t *testing.T) {
	src := `{
	  "nodes": [
	    {"name": "conv1", "op": "Conv2D",
	     "attributes": ["conv1/kernel:0"],
	     "weights": {"conv1/kernel:0": {"shape": [2, 2], "data": [1, -2, 3, -4]}},
	     "channel_axis": {"output": 3, "input": 2}},
	    {"name": "concat", "op": "Concatenate"}
	  ],
	  "edges": [{"source": "conv1", "target": "concat"}]
	}`
	g, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("loaded %d nodes", len(g.Nodes))
	}
	conv, ok := g.NodeByName("conv1")
	if !ok {
		t.Fatal("conv1 missing")
	}
	if conv.ChannelAxis == nil || conv.ChannelAxis.Output != 3 {
		t.Errorf("channel axis not loaded: %+v", conv.ChannelAxis)
	}
	w, ok := conv.Weights["conv1/kernel:0"]
	if !ok || w.Len() != 4 {
		t.Errorf("weights not loaded: %+v", w)
	}
	if keys := conv.AttrKeys(); len(keys) != 1 || keys[0].Name() != "conv1/kernel:0" {
		t.Errorf("attr keys = %v", keys)
	}

	concat, _ := g.NodeByName("concat")
	if len(g.PrevNodes(concat)) != 1 {
		t.Error("edge not wired")
	}
}

func TestLoadDiscardsResolvedCandidates(t *testing.T) {
	src := `{
	  "nodes": [
	    {"name": "relu1", "op": "ReLU",
	     "candidates_quantization_cfg": [{"activation": {"activation_n_bits": 8}, "weights": {}}]}
	  ]
	}`
	g, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	n, ok := g.NodeByName("relu1")
	if !ok {
		t.Fatal("relu1 missing")
	}
	if n.Primary() != nil {
		t.Error("resolved candidates from the input must be discarded on load")
	}
}

func TestLoadBadEdge(t *testing.T) {
	src := `{"nodes": [{"name": "a"}], "edges": [{"source": "a", "target": "ghost"}]}`
	if _, err := Load(strings.NewReader(src)); err == nil {
		t.Error("expected an error for an edge to a missing node")
	}
}
