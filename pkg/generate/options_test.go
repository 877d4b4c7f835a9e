package generate

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestKeyOrderIndependent(t *testing.T) {
	a, err := OptionsFromMap(decode(t, `{"model":"m","max_tokens":50,"top_p":0.5,"stop":["x"]}`))
	require.NoError(t, err)
	b, err := OptionsFromMap(decode(t, `{"stop":["x"],"top_p":0.5,"max_tokens":50,"model":"m"}`))
	require.NoError(t, err)

	assert.Equal(t, Key("p", a), Key("p", b))
}

func TestKeyIgnoresToken(t *testing.T) {
	base := Options{Model: "m", MaxTokens: 50}
	t1 := base
	t1.Timestamp = "1"
	t2 := base
	t2.Timestamp = "2"

	assert.Equal(t, Key("p", base), Key("p", t1))
	assert.Equal(t, Key("p", t1), Key("p", t2))
}

func TestKeyDistinguishes(t *testing.T) {
	temp := 0.1
	keys := map[string]bool{}
	for _, k := range []string{
		Key("p", Options{}),
		Key("q", Options{}),
		Key("p", Options{Model: "m"}),
		Key("p", Options{MaxTokens: 50}),
		Key("p", Options{Temperature: &temp}),
		Key("p", Options{Extra: map[string]any{"top_p": 0.5}}),
	} {
		assert.Len(t, k, 64)
		keys[k] = true
	}
	assert.Len(t, keys, 6)
}

func TestKeyCallerOptionsOnly(t *testing.T) {
	// Omitting an option and passing its default value are distinct requests.
	assert.NotEqual(t, Key("p", Options{}), Key("p", Options{MaxTokens: DefaultMaxTokens}))
}

func TestOptionsFromMap(t *testing.T) {
	opts, err := OptionsFromMap(decode(t, `{
		"model": "m",
		"maxOutputLength": 120,
		"temperature": 0.3,
		"timestamp": 1700000000000,
		"top_p": 0.9
	}`))
	require.NoError(t, err)

	temp := 0.3
	want := Options{
		Model:       "m",
		MaxTokens:   120,
		Temperature: &temp,
		Timestamp:   "1700000000000",
		NoCache:     true,
		Extra:       map[string]any{"top_p": 0.9},
	}
	if diff := cmp.Diff(want, opts); diff != "" {
		t.Errorf("OptionsFromMap mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, opts.Regenerate())
}

func TestOptionsFromMapNullToken(t *testing.T) {
	opts, err := OptionsFromMap(decode(t, `{"timestamp": null, "model": null}`))
	require.NoError(t, err)
	assert.False(t, opts.Regenerate())
	assert.Empty(t, opts.Model)
}

func TestOptionsFromMapEmptyToken(t *testing.T) {
	opts, err := OptionsFromMap(decode(t, `{"timestamp": ""}`))
	require.NoError(t, err)
	assert.True(t, opts.Regenerate())
	assert.Equal(t, Key("x", Options{}), Key("x", opts))
}

func TestOptionsFromMapMaxTokensAliases(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{`{"max_tokens": 100, "maxTokens": 200}`, 100},
		{`{"maxOutputLength": 300, "maxTokens": 200}`, 200},
		{`{"maxOutputLength": 300, "max_tokens": 100, "maxTokens": 200}`, 100},
		{`{"maxOutputLength": 300}`, 300},
	}
	for _, tt := range tests {
		// Map iteration order varies between runs; repeat to cover it.
		for range 50 {
			opts, err := OptionsFromMap(decode(t, tt.body))
			require.NoError(t, err)
			require.Equal(t, tt.want, opts.MaxTokens, tt.body)
		}
	}
}

func TestOptionsFromMapErrors(t *testing.T) {
	for _, body := range []string{
		`{"model": 5}`,
		`{"max_tokens": "lots"}`,
		`{"max_tokens": 1.5}`,
		`{"max_tokens": -1}`,
		`{"temperature": "hot"}`,
	} {
		_, err := OptionsFromMap(decode(t, body))
		assert.Error(t, err, body)
	}
}
