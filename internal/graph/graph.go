// Package graph holds the minimal model-graph representation the
// quantization layer works against: nodes with declared weight attributes
// and tensors, directed edges, and predecessor/successor queries for the
// substitution passes.
package graph

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/lowbit-ml/lowbit/internal/quant"
	"github.com/lowbit-ml/lowbit/internal/tensor"
)

// Node is one operation of the model graph.
type Node struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Op   string `json:"op"`

	// Attributes are the framework-reported weight attribute names;
	// PositionalAttributes address constant inputs by argument position.
	Attributes           []string `json:"attributes,omitempty"`
	PositionalAttributes []int    `json:"positional_attributes,omitempty"`

	Weights     map[string]tensor.Tensor `json:"weights,omitempty"`
	ChannelAxis *quant.ChannelAxis       `json:"channel_axis,omitempty"`

	// Candidates holds the node's resolved quantization configurations.
	// The primary candidate sits at index 0; further entries exist only
	// for mixed-precision search, which deduplicates them by structural
	// equality.
	Candidates []*quant.NodeQuantizationConfig `json:"candidates_quantization_cfg,omitempty"`
}

// AttrKeys returns the node's declared weight attributes as lookup keys,
// named attributes first.
func (n *Node) AttrKeys() []quant.AttrKey {
	keys := make([]quant.AttrKey, 0, len(n.Attributes)+len(n.PositionalAttributes))
	for _, name := range n.Attributes {
		keys = append(keys, quant.NamedAttr(name))
	}
	for _, pos := range n.PositionalAttributes {
		keys = append(keys, quant.PositionalAttr(pos))
	}
	return keys
}

// Primary returns the node's primary quantization candidate, or nil before
// resolution.
func (n *Node) Primary() *quant.NodeQuantizationConfig {
	if len(n.Candidates) == 0 {
		return nil
	}
	return n.Candidates[0]
}

// Edge connects two nodes by name.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is a directed model graph.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []Edge  `json:"edges"`

	byID   map[string]*Node
	byName map[string]*Node
	succ   map[string][]*Node
	pred   map[string][]*Node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		byID:   make(map[string]*Node),
		byName: make(map[string]*Node),
		succ:   make(map[string][]*Node),
		pred:   make(map[string][]*Node),
	}
}

// AddNode registers a node, assigning it an ID when it carries none.
func (g *Graph) AddNode(n *Node) error {
	if n.Name == "" {
		return fmt.Errorf("graph: node without a name")
	}
	if _, exists := g.byName[n.Name]; exists {
		return fmt.Errorf("graph: duplicate node name %q", n.Name)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if _, exists := g.byID[n.ID]; exists {
		return fmt.Errorf("graph: duplicate node id %q", n.ID)
	}
	g.Nodes = append(g.Nodes, n)
	g.byID[n.ID] = n
	g.byName[n.Name] = n
	return nil
}

// AddEdge connects source to target by node name.
func (g *Graph) AddEdge(source, target string) error {
	src, ok := g.byName[source]
	if !ok {
		return fmt.Errorf("graph: edge source %q not found", source)
	}
	dst, ok := g.byName[target]
	if !ok {
		return fmt.Errorf("graph: edge target %q not found", target)
	}
	g.Edges = append(g.Edges, Edge{Source: source, Target: target})
	g.succ[src.ID] = append(g.succ[src.ID], dst)
	g.pred[dst.ID] = append(g.pred[dst.ID], src)
	return nil
}

// NodeByName returns the node registered under name.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// NodeByID returns the node with the given ID.
func (g *Graph) NodeByID(id string) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// PrevNodes returns the direct predecessors of n.
func (g *Graph) PrevNodes(n *Node) []*Node {
	return g.pred[n.ID]
}

// NextNodes returns the direct successors of n.
func (g *Graph) NextNodes(n *Node) []*Node {
	return g.succ[n.ID]
}

// OutDegree returns n's fan-out.
func (g *Graph) OutDegree(n *Node) int {
	return len(g.succ[n.ID])
}

// Load reads a graph from its JSON topology file. Load consumes topology
// only: resolved quantization candidates in the input are discarded, since
// their bound functions and numeric parameters cannot round-trip through
// JSON. Resolution rebuilds them.
func Load(r io.Reader) (*Graph, error) {
	var raw struct {
		Nodes []*Node `json:"nodes"`
		Edges []Edge  `json:"edges"`
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("graph: decoding topology: %w", err)
	}

	g := New()
	for _, n := range raw.Nodes {
		n.Candidates = nil
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range raw.Edges {
		if err := g.AddEdge(e.Source, e.Target); err != nil {
			return nil, err
		}
	}
	return g, nil
}
