package generate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Options are the per-call generation options. Zero values fall back to the
// forwarder's defaults.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature *float64

	// Timestamp is the no-cache token. Any non-empty value skips the cache
	// lookup. It never takes part in the cache key and is never sent upstream.
	Timestamp string

	// NoCache marks the token as present even when its value is empty.
	NoCache bool

	// Extra holds unrecognized options. They join the cache key and are
	// passed through to the provider request body.
	Extra map[string]any
}

// Regenerate reports whether the no-cache token is present.
func (o Options) Regenerate() bool {
	return o.NoCache || o.Timestamp != ""
}

// reserved names cannot be overridden through Extra.
var reserved = map[string]bool{
	"model":       true,
	"max_tokens":  true,
	"temperature": true,
	"messages":    true,
	"timestamp":   true,
}

func (o Options) extra() map[string]any {
	if len(o.Extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(o.Extra))
	for k, v := range o.Extra {
		if !reserved[k] {
			out[k] = v
		}
	}
	return out
}

// cacheable returns the options that identify a request, without the token.
func (o Options) cacheable() map[string]any {
	m := o.extra()
	if m == nil {
		m = make(map[string]any, 3)
	}
	if o.Model != "" {
		m["model"] = o.Model
	}
	if o.MaxTokens > 0 {
		m["max_tokens"] = o.MaxTokens
	}
	if o.Temperature != nil {
		m["temperature"] = *o.Temperature
	}
	return m
}

// Key derives the cache key for a prompt and its caller-supplied options.
// encoding/json writes map keys in sorted order, so the key does not depend
// on the order options were set in.
func Key(prompt string, opts Options) string {
	payload := struct {
		Prompt  string         `json:"prompt"`
		Options map[string]any `json:"options"`
	}{prompt, opts.cacheable()}

	data, err := json.Marshal(payload)
	if err != nil {
		// fmt prints maps sorted by key as well.
		data = []byte(fmt.Sprintf("%q|%v", prompt, payload.Options))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// OptionsFromMap converts decoded JSON options into Options. It recognizes
// model, max_tokens (also maxTokens and maxOutputLength), temperature and
// timestamp; everything else lands in Extra. A timestamp key with any
// non-null value, empty string included, marks the call as a regeneration.
// When several max token aliases are set, max_tokens wins over maxTokens,
// which wins over maxOutputLength.
func OptionsFromMap(m map[string]any) (Options, error) {
	var opts Options
	alias := -1
	for k, v := range m {
		switch k {
		case "model":
			if v == nil {
				continue
			}
			s, ok := v.(string)
			if !ok {
				return Options{}, fmt.Errorf("option %q: expected string, got %T", k, v)
			}
			opts.Model = s
		case "max_tokens", "maxTokens", "maxOutputLength":
			if v == nil {
				continue
			}
			n, ok := toInt(v)
			if !ok || n <= 0 {
				return Options{}, fmt.Errorf("option %q: expected positive integer, got %v", k, v)
			}
			if rank := maxTokensRank[k]; alias < 0 || rank < alias {
				alias = rank
				opts.MaxTokens = n
			}
		case "temperature":
			if v == nil {
				continue
			}
			f, ok := toFloat(v)
			if !ok {
				return Options{}, fmt.Errorf("option %q: expected number, got %T", k, v)
			}
			opts.Temperature = &f
		case "timestamp":
			if v == nil {
				continue
			}
			opts.NoCache = true
			if f, ok := v.(float64); ok {
				opts.Timestamp = strconv.FormatFloat(f, 'f', -1, 64)
			} else {
				opts.Timestamp = fmt.Sprint(v)
			}
		default:
			if opts.Extra == nil {
				opts.Extra = make(map[string]any)
			}
			opts.Extra[k] = v
		}
	}
	return opts, nil
}

// maxTokensRank orders the max token aliases, lowest first.
var maxTokensRank = map[string]int{
	"max_tokens":      0,
	"maxTokens":       1,
	"maxOutputLength": 2,
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
