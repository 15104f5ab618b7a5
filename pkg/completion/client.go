// Package completion wraps a single remote completion call with response
// caching, API key rotation, bounded retries and an optional circuit
// breaker.
package completion

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abdhe/llm-batch-processor/pkg/cache"
	"github.com/abdhe/llm-batch-processor/pkg/metrics"
	"github.com/abdhe/llm-batch-processor/pkg/provider"
	"github.com/abdhe/llm-batch-processor/pkg/resilience"
)

// Config holds the immutable configuration for a Client. The credential
// lives in the key pool; nothing is written to process-global state.
type Config struct {
	Provider       provider.Provider
	Keys           *resilience.KeyPool
	Model          string
	Temperature    float32
	MaxTokens      int32
	Retry          resilience.RetryConfig
	Breaker        *resilience.CircuitBreaker // optional
	Cache          cache.ResponseCache        // optional
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// Client issues completion requests on behalf of document tasks. It is
// safe for concurrent use by all workers.
type Client struct {
	cfg    Config
	logger *zap.Logger
}

// New validates cfg and creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Provider == nil {
		return nil, errors.New("completion: provider is required")
	}
	if cfg.Keys == nil || cfg.Keys.Size() == 0 {
		return nil, errors.New("completion: at least one API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("completion: model is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{cfg: cfg, logger: cfg.Logger.Named("completion")}, nil
}

// Complete sends the system and user prompts to the provider and returns
// the response text trimmed of surrounding whitespace.
//
// Rate limits, service faults and transport errors are retried with
// exponential backoff; when the retry budget is spent the caller
// receives a *resilience.ExhaustedError. That is the single failure a
// document task has to handle.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	providerName := c.cfg.Provider.Name()

	key := cache.Key(c.cfg.Model, systemPrompt, userPrompt)
	if c.cfg.Cache != nil {
		cached, hit, err := c.cfg.Cache.Lookup(ctx, key)
		if err != nil {
			c.logger.Warn("cache lookup failed", zap.Error(err))
		}
		metrics.RecordCacheLookup(hit)
		if hit {
			metrics.CompletionLatency.WithLabelValues(providerName, c.cfg.Model, "hit").Observe(time.Since(start).Seconds())
			return strings.TrimSpace(cached.Text), nil
		}
	}

	apiKey, err := c.cfg.Keys.Next()
	if err != nil {
		return "", err
	}

	req := provider.Request{
		Model:        c.cfg.Model,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  c.cfg.Temperature,
		MaxTokens:    c.cfg.MaxTokens,
		APIKey:       apiKey,
	}

	var resp provider.Response
	attempts := 0
	call := func(ctx context.Context) error {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()

		var callErr error
		resp, callErr = c.cfg.Provider.Complete(callCtx, req)
		if callErr != nil && provider.IsRateLimited(callErr) {
			c.cfg.Keys.MarkRateLimited(apiKey, time.Now().Add(time.Minute))
		}
		return callErr
	}

	if c.cfg.Breaker != nil {
		err = c.cfg.Breaker.Execute(func() error {
			return resilience.Retry(ctx, c.cfg.Retry, c.logger, call)
		})
		metrics.CircuitBreakerState.WithLabelValues(providerName).Set(float64(c.cfg.Breaker.State()))
	} else {
		err = resilience.Retry(ctx, c.cfg.Retry, c.logger, call)
	}

	if attempts > 1 {
		metrics.CompletionRetriesTotal.Add(float64(attempts - 1))
	}

	if err != nil {
		metrics.CompletionLatency.WithLabelValues(providerName, c.cfg.Model, "error").Observe(time.Since(start).Seconds())
		return "", err
	}

	metrics.CompletionLatency.WithLabelValues(providerName, c.cfg.Model, "miss").Observe(time.Since(start).Seconds())
	metrics.TokenUsageTotal.WithLabelValues(providerName, c.cfg.Model, "input").Add(float64(resp.PromptTokens))
	metrics.TokenUsageTotal.WithLabelValues(providerName, c.cfg.Model, "output").Add(float64(resp.OutputTokens))

	if c.cfg.Cache != nil {
		// Store asynchronously; a slow cache must not hold up the worker.
		go func() {
			if err := c.cfg.Cache.Store(context.Background(), key, resp); err != nil {
				c.logger.Warn("cache store failed", zap.Error(err))
			}
		}()
	}

	return strings.TrimSpace(resp.Text), nil
}
