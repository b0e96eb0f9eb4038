package fingerprint

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf_Deterministic(t *testing.T) {
	payload := map[string]any{"customerId": "cust-42", "itemId": "item-9", "quantity": 1}

	first, err := Of(payload)
	require.NoError(t, err)
	second, err := Of(payload)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, Size)
}

func TestOf_IgnoresFieldOrder(t *testing.T) {
	var a, b map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"customerId":"cust-42","itemId":"item-9","quantity":1}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"quantity":1,"itemId":"item-9","customerId":"cust-42"}`), &b))

	fa, err := Of(a)
	require.NoError(t, err)
	fb, err := Of(b)
	require.NoError(t, err)

	assert.Equal(t, fa, fb)
}

func TestOf_IntegralNumbersMatchInts(t *testing.T) {
	decoded, err := Of(map[string]any{"quantity": float64(3)})
	require.NoError(t, err)
	typed, err := Of(map[string]any{"quantity": 3})
	require.NoError(t, err)

	assert.Equal(t, typed, decoded)
}

func TestOf_NormalizesUnicode(t *testing.T) {
	composed, err := Of(map[string]any{"customerId": "caf\u00e9"})
	require.NoError(t, err)
	decomposed, err := Of(map[string]any{"customerId": "cafe\u0301"})
	require.NoError(t, err)

	assert.Equal(t, composed, decomposed)
}

func TestOf_DifferentPayloadsDiffer(t *testing.T) {
	base := map[string]any{"customerId": "cust-42", "itemId": "item-9", "quantity": 1}
	variants := []map[string]any{
		{"customerId": "cust-43", "itemId": "item-9", "quantity": 1},
		{"customerId": "cust-42", "itemId": "item-8", "quantity": 1},
		{"customerId": "cust-42", "itemId": "item-9", "quantity": 2},
		{"customerId": "cust-42", "itemId": "item-9"},
	}

	want, err := Of(base)
	require.NoError(t, err)
	for _, v := range variants {
		got, err := Of(v)
		require.NoError(t, err)
		assert.NotEqual(t, want, got, "payload %v", v)
	}
}

func TestCanonical(t *testing.T) {
	out, err := Canonical(map[string]any{
		"b":      "<tag>",
		"a":      []any{2.0, 1.5, "x"},
		"nested": map[string]any{"z": true, "y": nil},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"a":[2,1.5,"x"],"b":"<tag>","nested":{"y":null,"z":true}}`, string(out))
}

func TestCanonical_RejectsUnsupported(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{name: "nan", in: map[string]any{"q": math.NaN()}},
		{name: "inf", in: map[string]any{"q": math.Inf(1)}},
		{name: "struct", in: map[string]any{"q": struct{}{}}},
		{name: "colliding keys", in: map[string]any{"caf\u00e9": 1, "cafe\u0301": 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Canonical(tt.in)
			assert.ErrorIs(t, err, ErrUnsupportedValue)
		})
	}
}
