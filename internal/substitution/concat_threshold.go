package substitution

import (
	"github.com/lowbit-ml/lowbit/internal/graph"
	"github.com/lowbit-ml/lowbit/pkg/fakequant"
)

// ConcatThresholdUpdate aligns the activation thresholds of the layers
// feeding a concatenation with the concatenation's own calibrated
// threshold. A predecessor feeding more than one consumer is left alone:
// there is no single downstream threshold that should win.
type ConcatThresholdUpdate struct {
	matcher OperationMatcher
}

// NewConcatThresholdUpdate builds the pass for the given combining operator
// types; with none given it matches the standard concat ops.
func NewConcatThresholdUpdate(ops ...string) *ConcatThresholdUpdate {
	if len(ops) == 0 {
		ops = []string{"Concatenate", "Concat"}
	}
	return &ConcatThresholdUpdate{matcher: OperationMatcher{Ops: ops}}
}

func (s *ConcatThresholdUpdate) Name() string { return "concat_threshold_update" }

func (s *ConcatThresholdUpdate) Match(n *graph.Node) bool {
	return s.matcher.Match(n)
}

// Substitute copies the concat node's calibrated threshold onto every
// fan-out-1 predecessor. Unresolved or uncalibrated concat nodes are
// skipped rather than failing: the pass may legitimately run before the
// whole graph is calibrated.
func (s *ConcatThresholdUpdate) Substitute(g *graph.Graph, n *graph.Node) error {
	p := n.Primary()
	if p == nil {
		return nil
	}
	threshold, ok := p.Activation.Params()[fakequant.Threshold]
	if !ok {
		return nil
	}

	for _, prev := range g.PrevNodes(n) {
		if g.OutDegree(prev) != 1 {
			continue
		}
		prevCfg := prev.Primary()
		if prevCfg == nil {
			continue
		}
		t := make([]float32, len(threshold))
		copy(t, threshold)
		prevCfg.Activation.Params()[fakequant.Threshold] = t
	}
	return nil
}
