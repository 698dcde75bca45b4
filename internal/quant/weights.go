package quant

import (
	"fmt"
	"sort"
	"strings"
)

// NodeWeightsQuantizationConfig maps every weight attribute of a node
// (named or positional) to its resolved quantization configuration, next to
// the node-global quantization knobs.
type NodeWeightsQuantizationConfig struct {
	MinThreshold           float32
	SIMDSize               int
	SecondMomentCorrection bool
	BiasCorrection         bool

	attrConfigs    map[string]*WeightsAttrQuantizationConfig
	posAttrConfigs map[int]*WeightsAttrQuantizationConfig
}

// NewNodeWeightsQuantizationConfig resolves a configuration for each of the
// node's declared weight attributes.
//
// Positional attributes always take the operator's default attribute config;
// if that default enables quantization, construction fails, since quantizing
// constant weights is unsupported. Named attributes match capability keys by
// substring containment: zero matches fall back to the operator default, one
// match wins, and more than one is a fatal capability-authoring error.
func NewNodeWeightsQuantizationConfig(qc *QuantizationConfig, opCfg *OpQuantizationConfig, channelAxis *ChannelAxis, nodeAttrs []AttrKey) (*NodeWeightsQuantizationConfig, error) {
	c := &NodeWeightsQuantizationConfig{
		MinThreshold:           qc.MinThreshold,
		SIMDSize:               opCfg.SIMDSize,
		SecondMomentCorrection: qc.WeightsSecondMomentCorrection,
		BiasCorrection:         qc.WeightsBiasCorrection,
		attrConfigs:            make(map[string]*WeightsAttrQuantizationConfig),
		posAttrConfigs:         make(map[int]*WeightsAttrQuantizationConfig),
	}

	for _, attr := range nodeAttrs {
		if attr.IsPositional() {
			if opCfg.DefaultWeightAttrConfig.Enabled {
				return nil, fmt.Errorf("quant: attribute %s: quantizing constant weights is not supported", attr)
			}
			c.posAttrConfigs[attr.Position()] = NewWeightsAttrQuantizationConfig(qc, &opCfg.DefaultWeightAttrConfig, channelAxis)
			continue
		}

		matched := capabilityKeysIn(opCfg, attr.Name())
		switch len(matched) {
		case 0:
			attrCfg := opCfg.DefaultWeightAttrConfig
			c.attrConfigs[attr.Name()] = NewWeightsAttrQuantizationConfig(qc, &attrCfg, channelAxis)
		case 1:
			attrCfg := opCfg.AttrMapping[matched[0]]
			c.attrConfigs[attr.Name()] = NewWeightsAttrQuantizationConfig(qc, &attrCfg, channelAxis)
		default:
			return nil, fmt.Errorf("quant: multiple capability attributes %v are contained in attribute name %q; fix the capability attribute mapping so each operator attribute has a unique match", matched, attr.Name())
		}
	}
	return c, nil
}

// capabilityKeysIn returns the capability mapping keys contained in the node
// attribute name, sorted for deterministic errors.
func capabilityKeysIn(opCfg *OpQuantizationConfig, attrName string) []string {
	var keys []string
	for k := range opCfg.AttrMapping {
		if strings.Contains(attrName, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// GetAttrConfig returns the resolved config of the attribute addressed by
// key. Named lookup is by substring containment; on a resolvable ambiguity
// it warns and falls back to an exact-name match, and fails when even that
// is absent. A key matching nothing is fatal.
func (c *NodeWeightsQuantizationConfig) GetAttrConfig(key AttrKey) (*WeightsAttrQuantizationConfig, error) {
	if key.IsPositional() {
		cfg, ok := c.posAttrConfigs[key.Position()]
		if !ok {
			return nil, fmt.Errorf("quant: weight attribute %s config could not be found", key)
		}
		return cfg, nil
	}

	r := attrResolver{configs: c.attrConfigs}
	matched := r.containing(key.Name())
	switch len(matched) {
	case 1:
		return c.attrConfigs[matched[0]], nil
	case 0:
		return nil, fmt.Errorf("quant: weight attribute %q config could not be found", key.Name())
	default:
		log.Warn("multiple weight attributes contain the queried name; looking for an exact match",
			"attribute", key.Name(), "matches", matched)
		cfg, ok := r.exact(key.Name())
		if !ok {
			return nil, fmt.Errorf("quant: weight attribute %q is ambiguous (%v) and has no exact match", key.Name(), matched)
		}
		return cfg, nil
	}
}

// HasAttributeConfig reports whether some stored attribute answers to key,
// using the same matching rules as GetAttrConfig but without failing.
func (c *NodeWeightsQuantizationConfig) HasAttributeConfig(key AttrKey) bool {
	if key.IsPositional() {
		_, ok := c.posAttrConfigs[key.Position()]
		return ok
	}
	r := attrResolver{configs: c.attrConfigs}
	return len(r.containing(key.Name())) >= 1
}

// SetAttrConfig inserts or replaces the config stored under key. This is
// how substitution passes attach a resolved config to an attribute.
func (c *NodeWeightsQuantizationConfig) SetAttrConfig(key AttrKey, cfg *WeightsAttrQuantizationConfig) {
	if key.IsPositional() {
		c.posAttrConfigs[key.Position()] = cfg
		return
	}
	c.attrConfigs[key.Name()] = cfg
}

// AttrKeys returns all stored attribute keys, named first, each group
// sorted.
func (c *NodeWeightsQuantizationConfig) AttrKeys() []AttrKey {
	names := make([]string, 0, len(c.attrConfigs))
	for k := range c.attrConfigs {
		names = append(names, k)
	}
	sort.Strings(names)
	positions := make([]int, 0, len(c.posAttrConfigs))
	for p := range c.posAttrConfigs {
		positions = append(positions, p)
	}
	sort.Ints(positions)

	keys := make([]AttrKey, 0, len(names)+len(positions))
	for _, n := range names {
		keys = append(keys, NamedAttr(n))
	}
	for _, p := range positions {
		keys = append(keys, PositionalAttr(p))
	}
	return keys
}

// Set applies a tagged field update to the node-global weights knobs.
// Fields belonging to individual attributes go through SetAttrField.
func (c *NodeWeightsQuantizationConfig) Set(f Field, value any) {
	switch f {
	case FieldMinThreshold:
		if v, ok := asFloat32(value); ok {
			c.MinThreshold = v
			return
		}
	case FieldSIMDSize:
		if v, ok := asInt(value); ok {
			c.SIMDSize = v
			return
		}
	case FieldWeightsSecondMomentCorrection:
		if v, ok := asBool(value); ok {
			c.SecondMomentCorrection = v
			return
		}
	case FieldWeightsBiasCorrection:
		if v, ok := asBool(value); ok {
			c.BiasCorrection = v
			return
		}
	}
	warnUnknownField("node_weights", f, value)
}

// SetAttrField applies a tagged field update to the attribute answering to
// attrName. A missing attribute is fatal; an inapplicable field warns inside
// the nested config and is ignored, like Set.
func (c *NodeWeightsQuantizationConfig) SetAttrField(attrName string, f Field, value any) error {
	key := NamedAttr(attrName)
	if !c.HasAttributeConfig(key) {
		return fmt.Errorf("quant: weight attribute %q could not be found to set field %s", attrName, f)
	}
	cfg, err := c.GetAttrConfig(key)
	if err != nil {
		return err
	}
	cfg.Set(f, value)
	return nil
}

// Equal reports structural equality: node-global knobs plus key-set and
// per-key equality of both attribute mappings, order-independent.
func (c *NodeWeightsQuantizationConfig) Equal(other *NodeWeightsQuantizationConfig) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.MinThreshold != other.MinThreshold ||
		c.SIMDSize != other.SIMDSize ||
		c.SecondMomentCorrection != other.SecondMomentCorrection ||
		c.BiasCorrection != other.BiasCorrection {
		return false
	}
	if len(c.attrConfigs) != len(other.attrConfigs) || len(c.posAttrConfigs) != len(other.posAttrConfigs) {
		return false
	}
	for k, v := range c.attrConfigs {
		o, ok := other.attrConfigs[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	for k, v := range c.posAttrConfigs {
		o, ok := other.posAttrConfigs[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// Hash returns a structural hash consistent with Equal. Like Equal it is
// order-independent: attribute keys are folded in sorted order.
func (c *NodeWeightsQuantizationConfig) Hash() uint64 {
	h := newHasher()
	h.writeFloat32(c.MinThreshold)
	h.writeInt(c.SIMDSize)
	h.writeBool(c.SecondMomentCorrection)
	h.writeBool(c.BiasCorrection)
	for _, k := range c.AttrKeys() {
		h.writeString(k.String())
	}
	return h.sum()
}

// String dumps the node-global fields and every attribute config.
func (c *NodeWeightsQuantizationConfig) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "min_threshold: %g\n", c.MinThreshold)
	fmt.Fprintf(&b, "simd_size: %d\n", c.SIMDSize)
	fmt.Fprintf(&b, "weights_second_moment_correction: %t\n", c.SecondMomentCorrection)
	fmt.Fprintf(&b, "weights_bias_correction: %t\n", c.BiasCorrection)
	for _, k := range c.AttrKeys() {
		cfg, err := c.GetAttrConfig(k)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "attribute %s:\n", k)
		for _, line := range strings.Split(strings.TrimSuffix(cfg.String(), "\n"), "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	return b.String()
}
