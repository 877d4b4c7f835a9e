package generate

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gildcraft/guildgen/pkg/cache"
	"github.com/gildcraft/guildgen/pkg/metrics"
	"github.com/gildcraft/guildgen/pkg/models"
	"github.com/gildcraft/guildgen/pkg/provider"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeProvider answers with replies in order, repeating the last one.
type fakeProvider struct {
	mu      sync.Mutex
	reqs    []models.ChatCompletionRequest
	replies []string
	err     error
	resp    *models.ChatCompletionResponse
	block   chan struct{}
}

func (p *fakeProvider) Complete(ctx context.Context, req models.ChatCompletionRequest) (*models.ChatCompletionResponse, error) {
	p.mu.Lock()
	p.reqs = append(p.reqs, req)
	n := len(p.reqs)
	p.mu.Unlock()

	if p.block != nil {
		<-p.block
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.resp != nil {
		return p.resp, nil
	}
	text := p.replies[min(n, len(p.replies))-1]
	return &models.ChatCompletionResponse{
		Model:   req.Model,
		Choices: []models.Choice{{Message: models.ChatMessage{Role: "assistant", Content: text}}},
		Usage:   &models.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reqs)
}

func (p *fakeProvider) last() models.ChatCompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reqs[len(p.reqs)-1]
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []models.UsageRecord
	err  error
}

func (r *fakeRecorder) Record(_ context.Context, rec models.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return r.err
}

func newForwarder(t *testing.T, p Completer, opts ...Option) (*Forwarder, *cache.Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := cache.New(time.Hour, cache.WithClock(clock.Now))
	return New(p, store, opts...), store, clock
}

func TestNameAColor(t *testing.T) {
	p := &fakeProvider{replies: []string{"  Blue  ", "Green"}}
	f, store, _ := newForwarder(t, p)
	ctx := context.Background()
	opts := Options{MaxTokens: 50}

	got, err := f.Generate(ctx, "Name a color", opts)
	require.NoError(t, err)
	assert.Equal(t, "Blue", got)
	cached, ok := store.Get(Key("Name a color", opts))
	require.True(t, ok)
	assert.Equal(t, "Blue", cached)

	got, err = f.Generate(ctx, "Name a color", opts)
	require.NoError(t, err)
	assert.Equal(t, "Blue", got)
	assert.Equal(t, 1, p.calls())

	opts.Timestamp = "t1"
	got, err = f.Generate(ctx, "Name a color", opts)
	require.NoError(t, err)
	assert.Equal(t, "Green", got)
	assert.Equal(t, 2, p.calls())
}

func TestCacheHitEquivalence(t *testing.T) {
	p := &fakeProvider{replies: []string{"first", "second"}}
	f, _, _ := newForwarder(t, p)
	ctx := context.Background()
	opts := Options{Model: "m", MaxTokens: 100}

	a, err := f.Do(ctx, "prompt", opts)
	require.NoError(t, err)
	b, err := f.Do(ctx, "prompt", opts)
	require.NoError(t, err)

	assert.Equal(t, a.Text, b.Text)
	assert.Equal(t, metrics.LookupMiss, a.Cache)
	assert.Equal(t, metrics.LookupHit, b.Cache)
	assert.Equal(t, 1, p.calls())
}

func TestTTLExpiry(t *testing.T) {
	p := &fakeProvider{replies: []string{"first", "second"}}
	f, store, clock := newForwarder(t, p)
	ctx := context.Background()

	_, err := f.Generate(ctx, "prompt", Options{})
	require.NoError(t, err)

	clock.Advance(store.TTL() + time.Nanosecond)

	got, err := f.Generate(ctx, "prompt", Options{})
	require.NoError(t, err)
	assert.Equal(t, "second", got)
	assert.Equal(t, 2, p.calls())
}

func TestRegenerateBypassesAndOverwrites(t *testing.T) {
	p := &fakeProvider{replies: []string{"old", "new"}}
	f, _, _ := newForwarder(t, p)
	ctx := context.Background()

	_, err := f.Generate(ctx, "prompt", Options{Model: "m"})
	require.NoError(t, err)

	res, err := f.Do(ctx, "prompt", Options{Model: "m", Timestamp: "1700000000000"})
	require.NoError(t, err)
	assert.Equal(t, "new", res.Text)
	assert.Equal(t, metrics.LookupBypass, res.Cache)
	assert.Equal(t, 2, p.calls())

	got, err := f.Generate(ctx, "prompt", Options{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "new", got)
	assert.Equal(t, 2, p.calls())
}

func TestTimestampNotForwarded(t *testing.T) {
	p := &fakeProvider{replies: []string{"ok"}}
	f, _, _ := newForwarder(t, p)

	_, err := f.Generate(context.Background(), "prompt", Options{
		Timestamp: "t1",
		Extra:     map[string]any{"timestamp": "t2", "top_p": 0.9},
	})
	require.NoError(t, err)

	req := p.last()
	assert.NotContains(t, req.Extra, "timestamp")
	assert.Equal(t, 0.9, req.Extra["top_p"])
}

func TestFailureLeavesNoTrace(t *testing.T) {
	p := &fakeProvider{err: &provider.StatusError{StatusCode: http.StatusTooManyRequests, Message: "Rate limit exceeded"}}
	f, store, _ := newForwarder(t, p)
	ctx := context.Background()

	_, err := f.Generate(ctx, "prompt", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, "Rate limit exceeded", err.Error())
	assert.Equal(t, 0, store.Len())

	_, err = f.Generate(ctx, "prompt", Options{})
	require.Error(t, err)
	assert.Equal(t, 2, p.calls())
}

func TestEmptyChoicesRejected(t *testing.T) {
	tests := []struct {
		name string
		resp *models.ChatCompletionResponse
	}{
		{"no choices", &models.ChatCompletionResponse{}},
		{"blank text", &models.ChatCompletionResponse{
			Choices: []models.Choice{{Message: models.ChatMessage{Content: " \n\t "}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{resp: tt.resp}
			f, store, _ := newForwarder(t, p)

			_, err := f.Generate(context.Background(), "prompt", Options{})
			require.ErrorIs(t, err, ErrGenerationFailed)
			assert.Equal(t, "No response generated from AI", err.Error())
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"provider message", &provider.StatusError{StatusCode: 400, Message: "model not found"}, "model not found"},
		{"transport error", errors.New("dial tcp: connection refused"), "dial tcp: connection refused"},
		{"empty error", errors.New(""), "Failed to generate content"},
		{"status without message", &provider.StatusError{StatusCode: 500}, "provider returned 500: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _, _ := newForwarder(t, &fakeProvider{err: tt.err})

			_, err := f.Generate(context.Background(), "prompt", Options{})
			var gerr *Error
			require.ErrorAs(t, err, &gerr)
			assert.Equal(t, tt.want, gerr.Message)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDefaultsMerged(t *testing.T) {
	p := &fakeProvider{replies: []string{"ok"}}
	f, _, _ := newForwarder(t, p)

	_, err := f.Generate(context.Background(), "hello", Options{})
	require.NoError(t, err)

	req := p.last()
	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, DefaultMaxTokens, *req.MaxTokens)
	assert.Equal(t, DefaultTemperature, *req.Temperature)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, models.ChatMessage{Role: "user", Content: "hello"}, req.Messages[0])

	temp := 0.2
	_, err = f.Generate(context.Background(), "hello", Options{Model: "other", MaxTokens: 600, Temperature: &temp})
	require.NoError(t, err)

	req = p.last()
	assert.Equal(t, "other", req.Model)
	assert.Equal(t, 600, *req.MaxTokens)
	assert.Equal(t, 0.2, *req.Temperature)
}

func TestWithDefaults(t *testing.T) {
	p := &fakeProvider{replies: []string{"ok"}}
	f, _, _ := newForwarder(t, p, WithDefaults(Defaults{Model: "configured", MaxTokens: 120, Temperature: 0.4}))

	_, err := f.Generate(context.Background(), "hello", Options{})
	require.NoError(t, err)

	req := p.last()
	assert.Equal(t, "configured", req.Model)
	assert.Equal(t, 120, *req.MaxTokens)
	assert.Equal(t, 0.4, *req.Temperature)
}

func TestWithDefaultsZeroTemperature(t *testing.T) {
	p := &fakeProvider{replies: []string{"ok"}}
	f, _, _ := newForwarder(t, p, WithDefaults(Defaults{Temperature: 0}))

	_, err := f.Generate(context.Background(), "hello", Options{})
	require.NoError(t, err)

	req := p.last()
	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, DefaultMaxTokens, *req.MaxTokens)
	assert.Equal(t, 0.0, *req.Temperature)
}

func TestNoStore(t *testing.T) {
	p := &fakeProvider{replies: []string{"ok"}}
	f := New(p, nil)

	for range 2 {
		res, err := f.Do(context.Background(), "prompt", Options{})
		require.NoError(t, err)
		assert.Equal(t, metrics.LookupBypass, res.Cache)
	}
	assert.Equal(t, 2, p.calls())
	assert.Nil(t, f.Store())
}

func TestCoalescing(t *testing.T) {
	p := &fakeProvider{replies: []string{"shared"}, block: make(chan struct{})}
	f, _, _ := newForwarder(t, p, WithCoalescing())

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.Generate(context.Background(), "prompt", Options{})
		}(i)
	}

	// Hold the first provider call until it is in flight. Callers that
	// join after it lands read the stored result, so the count stays at
	// one however the goroutines are scheduled.
	require.Eventually(t, func() bool { return p.calls() == 1 }, 5*time.Second, time.Millisecond)
	close(p.block)
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", results[i])
	}
	assert.Equal(t, 1, p.calls())
}

func TestEmptyTokenBypassesCache(t *testing.T) {
	p := &fakeProvider{replies: []string{"a", "b"}}
	f, _, _ := newForwarder(t, p)
	ctx := context.Background()

	got, err := f.Generate(ctx, "x", Options{})
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	opts, err := OptionsFromMap(map[string]any{"timestamp": ""})
	require.NoError(t, err)
	res, err := f.Do(ctx, "x", opts)
	require.NoError(t, err)
	assert.Equal(t, "b", res.Text)
	assert.Equal(t, metrics.LookupBypass, res.Cache)
	assert.Equal(t, 2, p.calls())
}

func TestRecorder(t *testing.T) {
	p := &fakeProvider{replies: []string{"ok"}}
	rec := &fakeRecorder{}
	f, _, _ := newForwarder(t, p, WithRecorder(rec))
	ctx := WithLabel(context.Background(), "server-name")

	for range 2 {
		_, err := f.Generate(ctx, "prompt", Options{})
		require.NoError(t, err)
	}

	require.Len(t, rec.recs, 2)
	assert.Equal(t, models.SourceProvider, rec.recs[0].Source)
	assert.Equal(t, "server-name", rec.recs[0].Template)
	assert.Equal(t, 15, rec.recs[0].TotalTokens)
	assert.Equal(t, models.SourceCache, rec.recs[1].Source)
	assert.Equal(t, 0, rec.recs[1].TotalTokens)
}

func TestRecorderErrorIgnored(t *testing.T) {
	p := &fakeProvider{replies: []string{"ok"}}
	f, _, _ := newForwarder(t, p, WithRecorder(&fakeRecorder{err: errors.New("disk full")}))

	got, err := f.Generate(context.Background(), "prompt", Options{})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestMetricsCounted(t *testing.T) {
	m := metrics.New()
	p := &fakeProvider{replies: []string{"ok"}}
	f, _, _ := newForwarder(t, p, WithMetrics(m))
	ctx := context.Background()

	for range 3 {
		_, err := f.Generate(ctx, "prompt", Options{})
		require.NoError(t, err)
	}
	_, err := f.Generate(ctx, "prompt", Options{Timestamp: "now"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, counter(t, m, metrics.LookupMiss))
	assert.Equal(t, 2.0, counter(t, m, metrics.LookupHit))
	assert.Equal(t, 1.0, counter(t, m, metrics.LookupBypass))
}

func counter(t *testing.T, m *metrics.Metrics, result string) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.CacheLookups.WithLabelValues(result).Write(&out))
	return out.GetCounter().GetValue()
}
