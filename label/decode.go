package label

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode reads a label document in YAML or JSON form, the structured output
// of an external PVL parser. Keywords map to scalars, lists or nested groups;
// a mapping holding exactly "value" and "units" becomes a Quantity:
//
//	FOCAL_PLANE_TEMPERATURE: {value: -35.94, units: DEGC}
func Decode(r io.Reader) (*Label, error) {
	var raw map[string]any
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return New(nil), nil
		}
		return nil, fmt.Errorf("decode label: %w", err)
	}
	root, err := toGroup(raw)
	if err != nil {
		return nil, err
	}
	return New(root), nil
}

func toGroup(raw map[string]any) (Group, error) {
	g := make(Group, len(raw))
	seen := make(map[string]string, len(raw))
	for k, v := range raw {
		fold := strings.ToLower(k)
		if prev, dup := seen[fold]; dup {
			return nil, fmt.Errorf("%w: keywords %q and %q differ only by case", ErrInvalidValue, prev, k)
		}
		seen[fold] = k
		conv, err := convert(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		g[k] = conv
	}
	return g, nil
}

func convert(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		if q, ok := asQuantity(x); ok {
			return q, nil
		}
		return toGroup(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			conv, err := convert(item)
			if err != nil {
				return nil, err
			}
			out[i] = conv
		}
		return out, nil
	case nil:
		return "", nil
	default:
		return x, nil
	}
}

func asQuantity(m map[string]any) (Quantity, bool) {
	if len(m) != 2 {
		return Quantity{}, false
	}
	units, ok := m["units"].(string)
	if !ok {
		return Quantity{}, false
	}
	val, ok := toFloat(m["value"])
	if !ok {
		return Quantity{}, false
	}
	if _, isString := m["value"].(string); isString {
		return Quantity{}, false
	}
	return Quantity{Value: val, Units: units}, true
}
