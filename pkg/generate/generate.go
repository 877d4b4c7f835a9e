// Package generate forwards prompts to the completion provider through an
// in-memory response cache.
//
// A call derives a cache key from the prompt and the caller's options, minus
// the no-cache token. Without the token a live cache entry is returned as is.
// Otherwise exactly one provider request is made and a successful, non-empty
// answer is stored under the key. Failures are never cached or retried.
package generate

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/gildcraft/guildgen/pkg/cache"
	"github.com/gildcraft/guildgen/pkg/logging"
	"github.com/gildcraft/guildgen/pkg/metrics"
	"github.com/gildcraft/guildgen/pkg/models"
	"github.com/gildcraft/guildgen/pkg/telemetry"
)

// Built-in defaults merged under caller options.
const (
	DefaultModel       = "meta-llama/llama-3.3-70b-instruct:free"
	DefaultMaxTokens   = 300
	DefaultTemperature = 0.7
)

// Completer sends one chat completion request.
type Completer interface {
	Complete(ctx context.Context, req models.ChatCompletionRequest) (*models.ChatCompletionResponse, error)
}

// Recorder stores usage records. *tracker.SQLiteTracker satisfies it.
type Recorder interface {
	Record(ctx context.Context, rec models.UsageRecord) error
}

// Defaults are the option values used when a caller leaves one unset.
type Defaults struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Result is the outcome of a generation.
type Result struct {
	Text string
	// Cache is metrics.LookupHit, LookupMiss or LookupBypass.
	Cache string
	Model string
	Usage models.Usage
}

// Forwarder is the memoizing front of a Completer. It is safe for
// concurrent use.
type Forwarder struct {
	provider Completer
	store    *cache.Store
	defaults Defaults
	logger   *log.Logger
	metrics  *metrics.Metrics
	tracer   *telemetry.Provider
	recorder Recorder
	group    *singleflight.Group
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithDefaults overrides the built-in defaults. An empty model or a
// non-positive token limit keeps the built-in value; the temperature is
// always taken, so zero means greedy sampling.
func WithDefaults(d Defaults) Option {
	return func(f *Forwarder) {
		if d.Model != "" {
			f.defaults.Model = d.Model
		}
		if d.MaxTokens > 0 {
			f.defaults.MaxTokens = d.MaxTokens
		}
		f.defaults.Temperature = d.Temperature
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(f *Forwarder) { f.logger = l }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Forwarder) { f.metrics = m }
}

// WithTracer enables tracing spans.
func WithTracer(p *telemetry.Provider) Option {
	return func(f *Forwarder) { f.tracer = p }
}

// WithRecorder enables the usage ledger.
func WithRecorder(r Recorder) Option {
	return func(f *Forwarder) { f.recorder = r }
}

// WithCoalescing collapses concurrent identical cache misses into a single
// provider call. Regeneration requests are never collapsed.
func WithCoalescing() Option {
	return func(f *Forwarder) { f.group = &singleflight.Group{} }
}

// New returns a Forwarder. A nil store disables caching; every call then
// goes to the provider.
func New(p Completer, store *cache.Store, opts ...Option) *Forwarder {
	f := &Forwarder{
		provider: p,
		store:    store,
		defaults: Defaults{
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		logger: logging.Discard(),
		tracer: telemetry.Noop(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Store returns the response cache, or nil when caching is disabled.
func (f *Forwarder) Store() *cache.Store {
	return f.store
}

// Generate returns generated text for prompt. Every error it returns
// matches ErrGenerationFailed.
func (f *Forwarder) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	res, err := f.Do(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Do is Generate with the cache outcome and token usage attached.
func (f *Forwarder) Do(ctx context.Context, prompt string, opts Options) (Result, error) {
	start := time.Now()
	regenerate := opts.Regenerate()

	ctx, span := f.tracer.StartGenerate(ctx, len(prompt), regenerate)
	defer span.End()

	key := Key(prompt, opts)
	req := f.request(prompt, opts)

	outcome := metrics.LookupBypass
	if f.store != nil && !regenerate {
		_, lookup := f.tracer.StartCacheLookup(ctx, key)
		text, ok := f.store.Get(key)
		lookup.SetAttributes(attribute.Bool("guildgen.cache.hit", ok))
		lookup.End()

		if ok {
			f.logger.Debug("using cached response", "key", key[:12])
			f.countLookup(metrics.LookupHit)
			res := Result{Text: text, Cache: metrics.LookupHit, Model: req.Model}
			f.record(ctx, res, models.SourceCache, start)
			return res, nil
		}
		outcome = metrics.LookupMiss
	}
	f.countLookup(outcome)

	fetch := func() (Result, error) {
		res, err := f.call(ctx, req)
		if err != nil {
			return Result{}, err
		}
		if f.store != nil {
			f.store.Put(key, res.Text)
		}
		f.record(ctx, res, models.SourceProvider, start)
		return res, nil
	}

	var res Result
	var err error
	if f.group != nil && outcome == metrics.LookupMiss {
		var v any
		v, err, _ = f.group.Do(key, func() (any, error) {
			// A flight that finished between our lookup and joining the
			// group has already stored its result.
			if text, ok := f.store.Peek(key); ok {
				return Result{Text: text, Model: req.Model}, nil
			}
			return fetch()
		})
		if err == nil {
			res = v.(Result)
		}
	} else {
		res, err = fetch()
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return Result{Cache: outcome}, err
	}
	res.Cache = outcome
	return res, nil
}

// request merges the caller's options over the defaults.
func (f *Forwarder) request(prompt string, opts Options) models.ChatCompletionRequest {
	model := f.defaults.Model
	if opts.Model != "" {
		model = opts.Model
	}
	maxTokens := f.defaults.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	temperature := f.defaults.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	return models.ChatCompletionRequest{
		Model:       model,
		Messages:    []models.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		Extra:       opts.extra(),
	}
}

func (f *Forwarder) call(ctx context.Context, req models.ChatCompletionRequest) (Result, error) {
	f.logger.Debug("provider request",
		"model", req.Model,
		"max_tokens", *req.MaxTokens,
		"prompt_length", len(req.Messages[0].Content),
	)

	ctx, span := f.tracer.StartProviderCall(ctx, req.Model, *req.MaxTokens)
	defer span.End()

	start := time.Now()
	resp, err := f.provider.Complete(ctx, req)
	if f.metrics != nil {
		f.metrics.RecordProviderCall(err, time.Since(start))
	}
	if err != nil {
		gerr := failed(err)
		f.logger.Error("provider call failed", "model", req.Model, "err", err)
		telemetry.RecordError(span, gerr)
		return Result{}, gerr
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		gerr := &Error{Message: msgNoResponse}
		f.logger.Error("provider returned no usable choice", "model", req.Model, "choices", len(resp.Choices))
		telemetry.RecordError(span, gerr)
		return Result{}, gerr
	}

	res := Result{
		Text:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Model: req.Model,
	}
	if resp.Model != "" {
		res.Model = resp.Model
	}
	if resp.Usage != nil {
		res.Usage = *resp.Usage
	}
	return res, nil
}

func (f *Forwarder) countLookup(result string) {
	if f.metrics != nil {
		f.metrics.RecordCacheLookup(result)
	}
}

// record writes a usage row. Ledger failures are logged and never reach the
// caller.
func (f *Forwarder) record(ctx context.Context, res Result, source string, start time.Time) {
	if f.recorder == nil {
		return
	}
	rec := models.UsageRecord{
		Template:         LabelFrom(ctx),
		Model:            res.Model,
		Source:           source,
		PromptTokens:     res.Usage.PromptTokens,
		CompletionTokens: res.Usage.CompletionTokens,
		TotalTokens:      res.Usage.TotalTokens,
		LatencyMs:        time.Since(start).Milliseconds(),
		CreatedAt:        time.Now().UTC(),
	}
	if err := f.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		f.logger.Warn("usage record failed", "err", err)
	}
}

type labelKey struct{}

// WithLabel attaches a template label to ctx for the usage ledger.
func WithLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, labelKey{}, label)
}

// LabelFrom returns the label set by WithLabel, or "".
func LabelFrom(ctx context.Context) string {
	s, _ := ctx.Value(labelKey{}).(string)
	return s
}
