package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeysAndDropsWhitespace(t *testing.T) {
	got, err := Marshal(map[string]any{"b": 1, "a": []any{true, nil, "x"}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true,null,"x"],"b":1}`, string(got))
}

func TestMarshal_Structs(t *testing.T) {
	type item struct {
		Zeta  int64   `json:"zeta"`
		Alpha *string `json:"alpha"`
	}
	got, err := Marshal(item{Zeta: 4})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":null,"zeta":4}`, string(got))
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	got, err := Marshal("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(got))
}

func TestMarshal_NFCNormalization(t *testing.T) {
	decomposed, err := Marshal("e\u0301")
	require.NoError(t, err)
	composed, err := Marshal("\u00e9")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshal_LineSeparatorsUnescaped(t *testing.T) {
	got, err := Marshal("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(got))
}

func TestMarshal_EscapesControlAndBackslash(t *testing.T) {
	got, err := Marshal("q\"\\u2028\n\x01")
	require.NoError(t, err)
	assert.Equal(t, `"q\"\\u2028\n\u0001"`, string(got))
}

func TestMarshal_RejectsFloats(t *testing.T) {
	_, err := Marshal(map[string]any{"x": 1.5})
	assert.Error(t, err)
}

func TestCanonicalize_Idempotent(t *testing.T) {
	first, err := Canonicalize([]byte(`{ "b" : [1, 2], "a" : {"d": "x", "c": false} }`))
	require.NoError(t, err)
	second, err := Canonicalize(first)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"c":false,"d":"x"},"b":[1,2]}`, string(first))
	assert.Equal(t, first, second)
}

func TestFingerprint_DomainSeparation(t *testing.T) {
	v := map[string]any{"id": 1}

	a, err := Fingerprint(DomainState, v)
	require.NoError(t, err)
	b, err := Fingerprint(DomainForest, v)
	require.NoError(t, err)
	again, err := Fingerprint(DomainState, v)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, again)
}

func TestFingerprintRaw_MatchesFingerprint(t *testing.T) {
	a, err := FingerprintRaw(DomainEvent, []byte(`{"b":2,"a":1}`))
	require.NoError(t, err)
	b, err := Fingerprint(DomainEvent, map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
