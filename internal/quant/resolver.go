package quant

import (
	"sort"
	"strconv"
	"strings"
)

// AttrKey identifies a node weight attribute either by name or by argument
// position. Positional (constant) attributes are not eligible for
// quantization.
type AttrKey struct {
	name       string
	pos        int
	positional bool
}

// NamedAttr builds a key for an attribute addressed by name.
func NamedAttr(name string) AttrKey {
	return AttrKey{name: name}
}

// PositionalAttr builds a key for a constant attribute addressed by its
// argument position.
func PositionalAttr(pos int) AttrKey {
	return AttrKey{pos: pos, positional: true}
}

// IsPositional reports whether the key addresses a positional attribute.
func (k AttrKey) IsPositional() bool { return k.positional }

// Name returns the attribute name; empty for positional keys.
func (k AttrKey) Name() string { return k.name }

// Position returns the argument position; meaningful only for positional
// keys.
func (k AttrKey) Position() int { return k.pos }

func (k AttrKey) String() string {
	if k.positional {
		return "#" + strconv.Itoa(k.pos)
	}
	return k.name
}

// attrResolver implements the two-tier attribute-name lookup over a named
// attribute mapping: exact key first, then an ordered scan for stored keys
// that contain the queried name as a substring. Frameworks composing
// attribute names from layer name plus parameter name make the containment
// tier necessary.
type attrResolver struct {
	configs map[string]*WeightsAttrQuantizationConfig
}

// exact returns the config stored under exactly name.
func (r attrResolver) exact(name string) (*WeightsAttrQuantizationConfig, bool) {
	cfg, ok := r.configs[name]
	return cfg, ok
}

// containing returns the stored keys that contain name, sorted for
// deterministic warnings and tie-breaks.
func (r attrResolver) containing(name string) []string {
	var keys []string
	for k := range r.configs {
		if strings.Contains(k, name) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
