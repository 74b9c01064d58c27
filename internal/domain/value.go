package domain

import (
	"encoding/json"
)

// DataMap is an open-ended, JSON-representable key/value mapping. Values may
// be strings, bools, numbers, nil, nested mappings or lists. The session core
// carries these opaquely and never interprets individual entries.
type DataMap map[string]interface{}

// Clone returns a deep copy of the map in normalized form.
func (m DataMap) Clone() DataMap {
	if m == nil {
		return DataMap{}
	}
	out := make(DataMap, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

// Merge returns a new map containing all entries of m overlaid with the
// entries of other. Keys present in other overwrite keys in m; keys absent
// from other are preserved.
func (m DataMap) Merge(other DataMap) DataMap {
	out := m.Clone()
	for k, v := range other {
		out[k] = normalizeValue(v)
	}
	return out
}

// Equal reports structural equality: order-independent key comparison and
// deep value comparison, with numeric values compared by magnitude rather
// than Go type.
func (m DataMap) Equal(other DataMap) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		ov, ok := other[k]
		if !ok || !equalValue(v, ov) {
			return false
		}
	}
	return true
}

// Normalize returns the map with every value reduced to the canonical JSON
// shapes (float64 numbers, map[string]interface{} objects, []interface{}
// lists). Storage adapters call this so that a round trip through any
// backend yields an Equal map.
func (m DataMap) Normalize() DataMap {
	return m.Clone()
}

// normalizeValue reduces v to canonical JSON value shapes.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case bool, string, float64:
		return val
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	case DataMap:
		out := make(map[string]interface{}, len(val))
		for k, nested := range val {
			out[k] = normalizeValue(nested)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, nested := range val {
			out[k] = normalizeValue(nested)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, nested := range val {
			out[i] = normalizeValue(nested)
		}
		return out
	default:
		// Uncommon shapes (structs, typed slices) go through a JSON round
		// trip so equality and storage behave the same for them.
		raw, err := json.Marshal(val)
		if err != nil {
			return val
		}
		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return val
		}
		return decoded
	}
}

// equalValue compares two normalized values deeply.
func equalValue(a, b interface{}) bool {
	na, nb := normalizeValue(a), normalizeValue(b)

	switch va := na.(type) {
	case nil:
		return nb == nil
	case bool:
		vb, ok := nb.(bool)
		return ok && va == vb
	case string:
		vb, ok := nb.(string)
		return ok && va == vb
	case float64:
		vb, ok := nb.(float64)
		return ok && va == vb
	case map[string]interface{}:
		vb, ok := nb.(map[string]interface{})
		if !ok || len(va) != len(vb) {
			return false
		}
		for k, v := range va {
			other, present := vb[k]
			if !present || !equalValue(v, other) {
				return false
			}
		}
		return true
	case []interface{}:
		vb, ok := nb.([]interface{})
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !equalValue(va[i], vb[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
