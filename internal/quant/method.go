// Package quant implements the node quantization configuration model: the
// closed method/error-metric enumerations, the per-attribute and per-node
// resolved configurations, and the resolution logic that merges a global
// user configuration with per-operator platform capabilities.
package quant

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Method is a quantization method supported by the toolkit. The set is
// closed: capability files naming anything else fail to load.
type Method int

const (
	MethodPowerOfTwo Method = iota
	MethodSymmetric
	MethodUniform
	// MethodIdentity keeps tensors untouched and needs no statistical
	// calibration; its params function is nil.
	MethodIdentity
)

var methodNames = map[Method]string{
	MethodPowerOfTwo: "power_of_two",
	MethodSymmetric:  "symmetric",
	MethodUniform:    "uniform",
	MethodIdentity:   "identity",
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// ParseMethod resolves a method name from config files.
func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown quantization method %q", s)
}

func (m Method) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Method) UnmarshalText(b []byte) error {
	v, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m Method) MarshalYAML() (any, error) { return m.String(), nil }

func (m *Method) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return m.UnmarshalText([]byte(s))
}

// ErrorMethod is the error metric used when searching quantization
// parameters. Like Method, the set is closed.
type ErrorMethod int

const (
	ErrorNoClipping ErrorMethod = iota
	ErrorMSE
	ErrorMAE
	ErrorLp
	ErrorKL
)

var errorMethodNames = map[ErrorMethod]string{
	ErrorNoClipping: "no_clipping",
	ErrorMSE:        "mse",
	ErrorMAE:        "mae",
	ErrorLp:         "lp",
	ErrorKL:         "kl",
}

func (e ErrorMethod) String() string {
	if s, ok := errorMethodNames[e]; ok {
		return s
	}
	return fmt.Sprintf("error_method(%d)", int(e))
}

// ParseErrorMethod resolves an error metric name from config files.
func ParseErrorMethod(s string) (ErrorMethod, error) {
	for e, name := range errorMethodNames {
		if name == s {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown quantization error method %q", s)
}

func (e ErrorMethod) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *ErrorMethod) UnmarshalText(b []byte) error {
	v, err := ParseErrorMethod(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

func (e ErrorMethod) MarshalYAML() (any, error) { return e.String(), nil }

func (e *ErrorMethod) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return e.UnmarshalText([]byte(s))
}
