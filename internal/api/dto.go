package api

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/lowbit-ml/lowbit/internal/graph"
	"github.com/lowbit-ml/lowbit/internal/quant"
)

// NodeSummary is one row of the graph listing.
type NodeSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Op         string `json:"op"`
	FanIn      int    `json:"fan_in"`
	FanOut     int    `json:"fan_out"`
	Resolved   bool   `json:"resolved"`
	Calibrated bool   `json:"calibrated"`
}

// GraphResponse lists the served graph's topology.
type GraphResponse struct {
	Nodes []NodeSummary `json:"nodes"`
	Edges []graph.Edge  `json:"edges"`
}

// NodeConfigResponse dumps one node's primary quantization config.
type NodeConfigResponse struct {
	ID     string                        `json:"id"`
	Name   string                        `json:"name"`
	Op     string                        `json:"op"`
	Config *quant.NodeQuantizationConfig `json:"config"`
}

// UpdateConfigRequest is a tagged field update. Field carries the wire
// name of the config field. Attr, when set, targets one weight attribute;
// otherwise Target selects "activation" (the default) or "weights".
type UpdateConfigRequest struct {
	Field  string `json:"field"`
	Value  any    `json:"value"`
	Target string `json:"target,omitempty"`
	Attr   string `json:"attr,omitempty"`
}

// PassResponse reports one substitution pass run.
type PassResponse struct {
	RunID string `json:"run_id"`
	Pass  string `json:"pass"`
}

// decodeJSON decodes a request body into T, rejecting unknown fields.
func decodeJSON[T any](r io.Reader) (T, error) {
	var v T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("decoding request body: %w", err)
	}
	return v, nil
}
