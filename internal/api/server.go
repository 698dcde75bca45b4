// Package api exposes a resolved, calibrated graph over HTTP for
// inspection and adjustment: listing nodes, dumping a node's quantization
// configuration, applying tagged field updates, and re-running the
// post-calibration passes.
package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/lowbit-ml/lowbit/internal/graph"
	"github.com/lowbit-ml/lowbit/internal/logger"
	"github.com/lowbit-ml/lowbit/internal/quant"
	"github.com/lowbit-ml/lowbit/internal/substitution"
)

// Server serves the inspection API over one resolved graph. The underlying
// configs are mutated in place by updates; callers needing isolation should
// serve a dedicated graph instance.
type Server struct {
	graph *graph.Graph
	log   logger.Logger
}

// NewServer creates a Server over g.
func NewServer(g *graph.Graph, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{graph: g, log: log}
}

// Register attaches the API routes.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/graph", s.handleGraph)
	e.GET("/v1/nodes/:id", s.handleGetNode)
	e.PATCH("/v1/nodes/:id/config", s.handleUpdateNode)
	e.POST("/v1/passes/concat-threshold", s.handleConcatThreshold)
}

func (s *Server) handleGraph(c *echo.Context) error {
	nodes := make([]NodeSummary, 0, len(s.graph.Nodes))
	for _, n := range s.graph.Nodes {
		summary := NodeSummary{
			ID:     n.ID,
			Name:   n.Name,
			Op:     n.Op,
			FanIn:  len(s.graph.PrevNodes(n)),
			FanOut: s.graph.OutDegree(n),
		}
		if p := n.Primary(); p != nil {
			summary.Resolved = true
			summary.Calibrated = p.Activation.HasActivationQuantizationParams()
		}
		nodes = append(nodes, summary)
	}
	return c.JSON(http.StatusOK, GraphResponse{Nodes: nodes, Edges: s.graph.Edges})
}

func (s *Server) handleGetNode(c *echo.Context) error {
	n, err := s.lookupNode(c.Param("id"))
	if err != nil {
		return writeNotFound(c, err.Error())
	}
	p := n.Primary()
	if p == nil {
		return writeConflict(c, "node has no resolved quantization config")
	}
	return c.JSON(http.StatusOK, NodeConfigResponse{
		ID:     n.ID,
		Name:   n.Name,
		Op:     n.Op,
		Config: p,
	})
}

func (s *Server) handleUpdateNode(c *echo.Context) error {
	n, err := s.lookupNode(c.Param("id"))
	if err != nil {
		return writeNotFound(c, err.Error())
	}
	p := n.Primary()
	if p == nil {
		return writeConflict(c, "node has no resolved quantization config")
	}

	req, err := decodeJSON[UpdateConfigRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	field, err := quant.ParseField(req.Field)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	switch {
	case req.Attr != "":
		if err := p.Weights.SetAttrField(req.Attr, field, req.Value); err != nil {
			return writeNotFound(c, err.Error())
		}
	case req.Target == "weights":
		p.Weights.Set(field, req.Value)
	default:
		p.Activation.Set(field, req.Value)
	}

	s.log.Info("node config updated",
		"node", n.Name, "field", field.String(), "attr", req.Attr)
	return c.JSON(http.StatusOK, NodeConfigResponse{
		ID:     n.ID,
		Name:   n.Name,
		Op:     n.Op,
		Config: p,
	})
}

func (s *Server) handleConcatThreshold(c *echo.Context) error {
	pass := substitution.NewConcatThresholdUpdate()
	if err := substitution.Apply(s.graph, s.log, pass); err != nil {
		return writeConflict(c, err.Error())
	}
	return c.JSON(http.StatusOK, PassResponse{
		RunID: "pass_" + uuid.NewString(),
		Pass:  pass.Name(),
	})
}

// lookupNode resolves a node by ID, falling back to its name.
func (s *Server) lookupNode(key string) (*graph.Node, error) {
	if n, ok := s.graph.NodeByID(key); ok {
		return n, nil
	}
	if n, ok := s.graph.NodeByName(key); ok {
		return n, nil
	}
	return nil, &nodeNotFoundError{key: key}
}
