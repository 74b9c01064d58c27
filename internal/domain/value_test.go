package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataMap_Merge_OverwritesAndPreserves(t *testing.T) {
	base := DataMap{
		"theme":      "dark",
		"font_size":  14,
		"beta_flags": []interface{}{"a", "b"},
	}
	merged := base.Merge(DataMap{
		"theme":    "light",
		"language": "en",
	})

	assert.Equal(t, "light", merged["theme"])
	assert.Equal(t, "en", merged["language"])
	assert.Equal(t, float64(14), merged["font_size"])
	assert.Len(t, merged, 4)

	// The receiver is never mutated
	assert.Equal(t, "dark", base["theme"])
	assert.NotContains(t, base, "language")
}

func TestDataMap_Merge_NilReceiver(t *testing.T) {
	var base DataMap
	merged := base.Merge(DataMap{"k": "v"})
	assert.Equal(t, "v", merged["k"])
	assert.Len(t, merged, 1)
}

func TestDataMap_Clone_IsDeep(t *testing.T) {
	original := DataMap{
		"nested": map[string]interface{}{"count": 1},
		"list":   []interface{}{1, 2},
	}
	clone := original.Clone()

	clone["nested"].(map[string]interface{})["count"] = 99
	clone["list"].([]interface{})[0] = 99

	assert.Equal(t, float64(1), normalizeValue(original["nested"].(map[string]interface{})["count"]))
	assert.Equal(t, float64(1), normalizeValue(original["list"].([]interface{})[0]))
}

func TestDataMap_Equal_Structural(t *testing.T) {
	tests := []struct {
		name  string
		a, b  DataMap
		equal bool
	}{
		{
			name:  "identical maps",
			a:     DataMap{"k": "v", "n": 1},
			b:     DataMap{"n": 1, "k": "v"},
			equal: true,
		},
		{
			name:  "numeric types compare by magnitude",
			a:     DataMap{"n": int64(5)},
			b:     DataMap{"n": float64(5)},
			equal: true,
		},
		{
			name:  "nested maps compare deeply",
			a:     DataMap{"m": map[string]interface{}{"x": 1, "y": "z"}},
			b:     DataMap{"m": map[string]interface{}{"y": "z", "x": 1.0}},
			equal: true,
		},
		{
			name:  "different values",
			a:     DataMap{"k": "v"},
			b:     DataMap{"k": "w"},
			equal: false,
		},
		{
			name:  "missing key",
			a:     DataMap{"k": "v"},
			b:     DataMap{},
			equal: false,
		},
		{
			name:  "list order matters",
			a:     DataMap{"l": []interface{}{1, 2}},
			b:     DataMap{"l": []interface{}{2, 1}},
			equal: false,
		},
		{
			name:  "both empty",
			a:     DataMap{},
			b:     nil,
			equal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
		})
	}
}

func TestDataMap_Normalize_RoundTripStable(t *testing.T) {
	raw := DataMap{
		"int":    42,
		"float":  3.5,
		"nested": DataMap{"inner": int32(7)},
	}
	normalized := raw.Normalize()

	assert.Equal(t, float64(42), normalized["int"])
	assert.Equal(t, 3.5, normalized["float"])
	nested, ok := normalized["nested"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, float64(7), nested["inner"])

	// Normalizing twice is a fixed point
	assert.True(t, normalized.Equal(normalized.Normalize()))
}
