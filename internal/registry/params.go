package registry

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Params is a stage's fully bound parameter mapping: every reference has
// been replaced by the concrete upstream artifact value, literals are
// untouched. Blocks read their inputs through the typed accessors below.
type Params map[string]cty.Value

// ObjectAttrs flattens an object or map value into Params, so nested
// parameter objects decode through the same typed accessors as top-level
// parameters instead of reaching into cty values directly.
func ObjectAttrs(v cty.Value) (Params, error) {
	if v.IsNull() || !(v.Type().IsObjectType() || v.Type().IsMapType()) {
		return nil, fmt.Errorf("expected an object, got %s", v.Type().FriendlyName())
	}
	out := make(Params, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		k, val := it.Element()
		out[k.AsString()] = val
	}
	return out, nil
}

// Has reports whether the parameter is present and non-null.
func (p Params) Has(name string) bool {
	v, ok := p[name]
	return ok && !v.IsNull()
}

// Value returns the raw parameter value.
func (p Params) Value(name string) (cty.Value, bool) {
	v, ok := p[name]
	if !ok || v.IsNull() {
		return cty.NilVal, false
	}
	return v, true
}

// String returns a required string parameter.
func (p Params) String(name string) (string, error) {
	v, ok := p.Value(name)
	if !ok {
		return "", fmt.Errorf("missing parameter %q", name)
	}
	if v.Type() != cty.String {
		return "", fmt.Errorf("parameter %q must be a string, got %s", name, v.Type().FriendlyName())
	}
	return v.AsString(), nil
}

// StringOr returns an optional string parameter, or def when absent.
func (p Params) StringOr(name, def string) (string, error) {
	if !p.Has(name) {
		return def, nil
	}
	return p.String(name)
}

// Int returns a required integer parameter.
func (p Params) Int(name string) (int, error) {
	v, ok := p.Value(name)
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", name)
	}
	if v.Type() != cty.Number {
		return 0, fmt.Errorf("parameter %q must be a number, got %s", name, v.Type().FriendlyName())
	}
	n, acc := v.AsBigFloat().Int64()
	if acc != 0 {
		return 0, fmt.Errorf("parameter %q must be an integer", name)
	}
	return int(n), nil
}

// IntOr returns an optional integer parameter, or def when absent.
func (p Params) IntOr(name string, def int) (int, error) {
	if !p.Has(name) {
		return def, nil
	}
	return p.Int(name)
}

// Float returns a required numeric parameter.
func (p Params) Float(name string) (float64, error) {
	v, ok := p.Value(name)
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", name)
	}
	if v.Type() != cty.Number {
		return 0, fmt.Errorf("parameter %q must be a number, got %s", name, v.Type().FriendlyName())
	}
	f, _ := v.AsBigFloat().Float64()
	return f, nil
}

// FloatOr returns an optional numeric parameter, or def when absent.
func (p Params) FloatOr(name string, def float64) (float64, error) {
	if !p.Has(name) {
		return def, nil
	}
	return p.Float(name)
}

// Strings returns a required sequence-of-strings parameter.
func (p Params) Strings(name string) ([]string, error) {
	v, ok := p.Value(name)
	if !ok {
		return nil, fmt.Errorf("missing parameter %q", name)
	}
	if !v.CanIterateElements() {
		return nil, fmt.Errorf("parameter %q must be a sequence, got %s", name, v.Type().FriendlyName())
	}
	var out []string
	for it := v.ElementIterator(); it.Next(); {
		_, el := it.Element()
		if el.Type() != cty.String {
			return nil, fmt.Errorf("parameter %q must contain strings, got %s", name, el.Type().FriendlyName())
		}
		out = append(out, el.AsString())
	}
	return out, nil
}

// Ints returns a required sequence-of-integers parameter.
func (p Params) Ints(name string) ([]int, error) {
	v, ok := p.Value(name)
	if !ok {
		return nil, fmt.Errorf("missing parameter %q", name)
	}
	if !v.CanIterateElements() {
		return nil, fmt.Errorf("parameter %q must be a sequence, got %s", name, v.Type().FriendlyName())
	}
	var out []int
	for it := v.ElementIterator(); it.Next(); {
		_, el := it.Element()
		if el.Type() != cty.Number {
			return nil, fmt.Errorf("parameter %q must contain numbers, got %s", name, el.Type().FriendlyName())
		}
		n, acc := el.AsBigFloat().Int64()
		if acc != 0 {
			return nil, fmt.Errorf("parameter %q must contain integers", name)
		}
		out = append(out, int(n))
	}
	return out, nil
}
