// Package llm wraps a chat model behind a gateway that never fails: transient
// errors are retried, and anything the model cannot answer is served by a
// built-in mock generator instead.
package llm

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"bargain-backend/pkg/metrics"

	"go.uber.org/zap"
)

type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

type ChatParams struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// LanguageModel is a live chat completion backend.
type LanguageModel interface {
	CompleteChat(ctx context.Context, messages []Message, params ChatParams) (string, error)
}

type Mode string

const (
	ModeLive Mode = "live"
	ModeMock Mode = "mock"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

type RetryConfig struct {
	// MaxRetries is the number of attempts per call.
	MaxRetries int
	// BackoffBase is the first wait after a transient error; it doubles on
	// each further attempt.
	BackoffBase time.Duration
	// UnexpectedDelay is the fixed wait after an unclassified error.
	UnexpectedDelay time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		BackoffBase:     time.Second,
		UnexpectedDelay: time.Second,
	}
}

type Gateway struct {
	model     LanguageModel
	modelName string
	mock      atomic.Bool
	retry     RetryConfig
	logger    *zap.Logger
	metrics   *metrics.Recorder

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*Gateway)

func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

func WithRetryConfig(cfg RetryConfig) Option {
	return func(g *Gateway) { g.retry = cfg }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithModelName sets the model passed to the provider on every call.
func WithModelName(name string) Option {
	return func(g *Gateway) { g.modelName = name }
}

// WithSeed makes the mock generator's choices reproducible.
func WithSeed(seed uint64) Option {
	return func(g *Gateway) { g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// New builds a gateway. A nil model puts the gateway in mock mode for good.
func New(model LanguageModel, opts ...Option) *Gateway {
	g := &Gateway{
		model:  model,
		retry:  DefaultRetryConfig(),
		logger: zap.NewNop(),
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(g)
	}

	if model == nil {
		g.mock.Store(true)
		g.logger.Warn("no language model configured, running in mock mode")
	}
	return g
}

func (g *Gateway) Mode() Mode {
	if g.mock.Load() {
		return ModeMock
	}
	return ModeLive
}

// ChatCompletion sends messages to the model and always returns non-empty
// text. maxRetries < 1 falls back to the gateway's configured retries.
func (g *Gateway) ChatCompletion(ctx context.Context, messages []Message, model string, temperature float64, maxTokens, maxRetries int) string {
	if g.mock.Load() {
		return g.mockResponse(messages)
	}
	if model == "" {
		model = g.modelName
	}
	if maxRetries < 1 {
		maxRetries = g.retry.MaxRetries
	}
	params := ChatParams{Model: model, Temperature: temperature, MaxTokens: maxTokens}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return g.fallback(messages, "cancelled")
		}

		text, err := g.model.CompleteChat(ctx, messages, params)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				return g.fallback(messages, "empty_response")
			}
			return text
		}

		if ctx.Err() != nil {
			// The caller gave up; that says nothing about the endpoint.
			g.logger.Warn("language model call cut short by context", zap.Error(err))
			return g.fallback(messages, "cancelled")
		}

		switch {
		case IsTransient(err):
			g.logger.Warn("language model connection error",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", maxRetries),
				zap.Error(err))
			if attempt < maxRetries {
				if !g.wait(ctx, g.backoff(attempt)) {
					return g.fallback(messages, "cancelled")
				}
				continue
			}
			// The endpoint is considered gone for the rest of the process.
			g.mock.Store(true)
			g.logger.Error("language model unreachable, switching to mock mode")
			return g.fallback(messages, "transient")

		case IsAPI(err):
			g.logger.Error("language model api error", zap.Error(err))
			return g.fallback(messages, "api_error")

		default:
			g.logger.Error("language model call failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			if attempt < maxRetries {
				if !g.wait(ctx, g.retry.UnexpectedDelay) {
					return g.fallback(messages, "cancelled")
				}
				continue
			}
			return g.fallback(messages, "unexpected")
		}
	}

	return g.fallback(messages, "exhausted")
}

func (g *Gateway) backoff(attempt int) time.Duration {
	return g.retry.BackoffBase << (attempt - 1)
}

func (g *Gateway) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (g *Gateway) fallback(messages []Message, reason string) string {
	g.metrics.LLMFallback(reason)
	return g.mockResponse(messages)
}

func (g *Gateway) intn(n int) int {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return g.rng.IntN(n)
}
