package substitution

import (
	"io"
	"log/slog"
	"testing"

	"github.com/lowbit-ml/lowbit/internal/graph"
	"github.com/lowbit-ml/lowbit/internal/logger"
	"github.com/lowbit-ml/lowbit/internal/quant"
	"github.com/lowbit-ml/lowbit/internal/tpc"
	"github.com/lowbit-ml/lowbit/pkg/fakequant"
)

func testLogger() logger.Logger {
	return logger.JSON(io.Discard, slog.LevelError)
}

// buildConcatGraph wires A -> C, B -> C, C -> D with C a concatenation, and
// optionally A -> E to give A a fan-out of two.
func buildConcatGraph(t *testing.T, extraConsumer bool) *graph.Graph {
	t.Helper()
	g := graph.New()
	names := []string{"A", "B", "D"}
	for _, name := range names {
		if err := g.AddNode(&graph.Node{Name: name, Op: "ReLU"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddNode(&graph.Node{Name: "C", Op: "Concatenate"}); err != nil {
		t.Fatal(err)
	}
	edges := [][2]string{{"A", "C"}, {"B", "C"}, {"C", "D"}}
	if extraConsumer {
		if err := g.AddNode(&graph.Node{Name: "E", Op: "ReLU"}); err != nil {
			t.Fatal(err)
		}
		edges = append(edges, [2]string{"A", "E"})
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatal(err)
		}
	}

	qc := quant.DefaultQuantizationConfig()
	if err := tpc.Default().ResolveGraph(g, &qc); err != nil {
		t.Fatal(err)
	}

	// Calibrate every node to threshold 1.0, then give the concat its own.
	for _, n := range g.Nodes {
		if err := n.Primary().Activation.SetActivationQuantizationParams(
			fakequant.Params{fakequant.Threshold: []float32{1.0}}); err != nil {
			t.Fatal(err)
		}
	}
	c, _ := g.NodeByName("C")
	c.Primary().Activation.Params()[fakequant.Threshold] = []float32{4.0}
	return g
}

func nodeThreshold(t *testing.T, g *graph.Graph, name string) float32 {
	t.Helper()
	n, ok := g.NodeByName(name)
	if !ok {
		t.Fatalf("node %s missing", name)
	}
	v, ok := n.Primary().Activation.Params().Scalar(fakequant.Threshold)
	if !ok {
		t.Fatalf("node %s has no threshold", name)
	}
	return v
}

func TestConcatThresholdPropagation(t *testing.T) {
	g := buildConcatGraph(t, false)
	if err := Apply(g, testLogger(), NewConcatThresholdUpdate()); err != nil {
		t.Fatal(err)
	}

	if got := nodeThreshold(t, g, "A"); got != 4.0 {
		t.Errorf("A threshold = %v, want 4.0", got)
	}
	if got := nodeThreshold(t, g, "B"); got != 4.0 {
		t.Errorf("B threshold = %v, want 4.0", got)
	}
	// D consumes the concat; it is downstream and must not change.
	if got := nodeThreshold(t, g, "D"); got != 1.0 {
		t.Errorf("D threshold = %v, want 1.0", got)
	}
}

func TestConcatThresholdSkipsFanOut(t *testing.T) {
	g := buildConcatGraph(t, true)
	if err := Apply(g, testLogger(), NewConcatThresholdUpdate()); err != nil {
		t.Fatal(err)
	}

	// A feeds both C and E: ambiguous, untouched.
	if got := nodeThreshold(t, g, "A"); got != 1.0 {
		t.Errorf("A threshold = %v, want 1.0 (fan-out > 1)", got)
	}
	if got := nodeThreshold(t, g, "B"); got != 4.0 {
		t.Errorf("B threshold = %v, want 4.0", got)
	}
}

func TestConcatThresholdUncalibratedConcat(t *testing.T) {
	g := buildConcatGraph(t, false)
	c, _ := g.NodeByName("C")
	delete(c.Primary().Activation.Params(), fakequant.Threshold)

	if err := Apply(g, testLogger(), NewConcatThresholdUpdate()); err != nil {
		t.Fatal(err)
	}
	if got := nodeThreshold(t, g, "A"); got != 1.0 {
		t.Errorf("uncalibrated concat must not touch predecessors, A = %v", got)
	}
}

func TestConcatThresholdDoesNotAlias(t *testing.T) {
	g := buildConcatGraph(t, false)
	if err := Apply(g, testLogger(), NewConcatThresholdUpdate()); err != nil {
		t.Fatal(err)
	}
	a, _ := g.NodeByName("A")
	a.Primary().Activation.Params()[fakequant.Threshold][0] = 2.0
	if got := nodeThreshold(t, g, "B"); got != 4.0 {
		t.Error("propagated thresholds must not share backing storage")
	}
}

func TestOperationMatcher(t *testing.T) {
	m := OperationMatcher{Ops: []string{"Concatenate"}}
	if !m.Match(&graph.Node{Op: "Concatenate"}) {
		t.Error("expected match")
	}
	if m.Match(&graph.Node{Op: "Conv2D"}) {
		t.Error("unexpected match")
	}
}
