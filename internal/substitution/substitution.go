// Package substitution hosts the graph passes that run after initial
// calibration and adjust resolved quantization configs in place. Passes
// never compute new parameters; they propagate or overwrite existing ones.
package substitution

import (
	"fmt"
	"slices"

	"github.com/lowbit-ml/lowbit/internal/graph"
	"github.com/lowbit-ml/lowbit/internal/logger"
)

// Substitution is one post-calibration pass: a node matcher plus the
// in-place mutation applied to every matched node.
type Substitution interface {
	Name() string
	Match(n *graph.Node) bool
	Substitute(g *graph.Graph, n *graph.Node) error
}

// OperationMatcher matches nodes by operation type.
type OperationMatcher struct {
	Ops []string
}

// Match reports whether the node's op is one of the matcher's.
func (m OperationMatcher) Match(n *graph.Node) bool {
	return slices.Contains(m.Ops, n.Op)
}

// Apply runs every substitution over every matching node of the graph, in
// order. The first fatal pass error aborts the run.
func Apply(g *graph.Graph, log logger.Logger, subs ...Substitution) error {
	for _, sub := range subs {
		matched := 0
		for _, n := range g.Nodes {
			if !sub.Match(n) {
				continue
			}
			matched++
			if err := sub.Substitute(g, n); err != nil {
				return fmt.Errorf("substitution %s on node %q: %w", sub.Name(), n.Name, err)
			}
		}
		log.Debug("substitution pass finished", "pass", sub.Name(), "matched", matched)
	}
	return nil
}
