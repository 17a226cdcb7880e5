// Copyright 2026 The Sheetloom Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package llm holds the provider-agnostic plumbing shared by the
// anthropic and openai adapters: request rate limiting and tool name
// sanitization.
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// RateLimiterConfig configures the LLM rate limiter.
type RateLimiterConfig struct {
	Enabled bool

	// RequestsPerSecond is the maximum requests allowed per second.
	RequestsPerSecond float64

	// TokensPerMinute records the provider's per-minute token budget; the
	// limiter itself paces only by request rate and does not enforce it.
	TokensPerMinute int64

	// BurstCapacity is the token bucket's maximum burst of requests.
	BurstCapacity int

	// MinDelay is the minimum delay enforced between requests.
	MinDelay time.Duration

	MaxRetries   int
	RetryBackoff time.Duration
	QueueTimeout time.Duration

	Logger *zap.Logger
}

// DefaultRateLimiterConfig returns conservative defaults suitable for a
// single-tenant agent making occasional Chat/ChatStream calls.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.7,
		TokensPerMinute:   80000,
		BurstCapacity:     3,
		MinDelay:          200 * time.Millisecond,
		MaxRetries:        5,
		RetryBackoff:      1 * time.Second,
		QueueTimeout:      5 * time.Minute,
		Logger:            zap.NewNop(),
	}
}

// RateLimiter implements token-bucket rate limiting with retry-on-429.
type RateLimiter struct {
	config RateLimiterConfig

	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex

	tokenWindow   []tokenUsage
	tokenWindowMu sync.Mutex

	queue      chan *rateLimitedRequest
	queueDepth int64
	queueMu    sync.Mutex

	metrics   RateLimiterMetrics
	metricsMu sync.RWMutex

	stopCh chan struct{}
	closed atomic.Bool
	wg     sync.WaitGroup
}

type tokenUsage struct {
	timestamp time.Time
	tokens    int64
}

type rateLimitedRequest struct {
	ctx      context.Context
	call     func(context.Context) (interface{}, error)
	resultCh chan *rateLimitedResult
}

type rateLimitedResult struct {
	result interface{}
	err    error
}

// RateLimiterMetrics tracks rate limiter activity for observability.
type RateLimiterMetrics struct {
	TotalRequests      int64
	ThrottledRequests  int64
	QueuedRequests     int64
	DroppedRequests    int64
	AverageQueueTimeMs int64
	CurrentQueueDepth  int64
	TokensConsumed     int64
	LastThrottleTime   time.Time
}

// NewRateLimiter creates a rate limiter and starts its background workers.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	rl := &RateLimiter{
		config:      config,
		tokens:      float64(config.BurstCapacity),
		maxTokens:   float64(config.BurstCapacity),
		refillRate:  config.RequestsPerSecond,
		lastRefill:  time.Now(),
		tokenWindow: make([]tokenUsage, 0, 64),
		queue:       make(chan *rateLimitedRequest, config.BurstCapacity*2+1),
		stopCh:      make(chan struct{}),
	}

	rl.wg.Add(1)
	go rl.processQueue()

	return rl
}

// Do executes call under rate limiting, retrying on throttling errors.
func (rl *RateLimiter) Do(ctx context.Context, call func(context.Context) (interface{}, error)) (interface{}, error) {
	if !rl.config.Enabled {
		return call(ctx)
	}
	if rl.closed.Load() {
		return nil, fmt.Errorf("rate limiter stopped")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	req := &rateLimitedRequest{ctx: ctx, call: call, resultCh: make(chan *rateLimitedResult, 1)}

	queueCtx, cancel := context.WithTimeout(ctx, rl.config.QueueTimeout)
	defer cancel()

	rl.incrementQueueDepth()
	defer rl.decrementQueueDepth()

	queueStart := time.Now()
	select {
	case <-rl.stopCh:
		return nil, fmt.Errorf("rate limiter stopped")
	case <-ctx.Done():
		rl.recordMetric("dropped", 0)
		return nil, ctx.Err()
	case <-queueCtx.Done():
		rl.recordMetric("dropped", 0)
		return nil, fmt.Errorf("rate limiter queue timeout after %v", rl.config.QueueTimeout)
	case rl.queue <- req:
		rl.recordMetric("queued", 0)
	}

	select {
	case result := <-req.resultCh:
		rl.updateAverageQueueTime(time.Since(queueStart))
		return result.result, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-rl.stopCh:
		return nil, fmt.Errorf("rate limiter stopped")
	}
}

func (rl *RateLimiter) processQueue() {
	defer rl.wg.Done()
	for {
		select {
		case req := <-rl.queue:
			rl.processRequest(req)
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) processRequest(req *rateLimitedRequest) {
	for {
		if rl.acquireToken() {
			break
		}
		select {
		case <-time.After(50 * time.Millisecond):
		case <-req.ctx.Done():
			req.resultCh <- &rateLimitedResult{err: req.ctx.Err()}
			return
		case <-rl.stopCh:
			req.resultCh <- &rateLimitedResult{err: fmt.Errorf("rate limiter stopped")}
			return
		}
	}

	if rl.config.MinDelay > 0 {
		time.Sleep(rl.config.MinDelay)
	}

	result, err := rl.executeWithRetry(req.ctx, req.call)

	select {
	case req.resultCh <- &rateLimitedResult{result: result, err: err}:
	case <-req.ctx.Done():
	case <-rl.stopCh:
	}
}

func (rl *RateLimiter) executeWithRetry(ctx context.Context, call func(context.Context) (interface{}, error)) (interface{}, error) {
	backoff := rl.config.RetryBackoff

	for attempt := 0; attempt <= rl.config.MaxRetries; attempt++ {
		result, err := call(ctx)
		rl.recordMetric("request", 0)

		if err != nil && isThrottlingError(err) {
			rl.recordMetric("throttled", 0)
			rl.config.Logger.Warn("llm request throttled, retrying",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", rl.config.MaxRetries),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			if attempt < rl.config.MaxRetries {
				select {
				case <-time.After(backoff):
					backoff *= 2
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-rl.stopCh:
					return nil, fmt.Errorf("rate limiter stopped during retry")
				}
				continue
			}
			continue
		}

		return result, err
	}

	return nil, fmt.Errorf("llm request failed after %d attempts due to throttling", rl.config.MaxRetries+1)
}

func (rl *RateLimiter) acquireToken() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens = minFloat(rl.maxTokens, rl.tokens+elapsed*rl.refillRate)
	rl.lastRefill = now

	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}

func isThrottlingError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate_limit") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "overloaded") ||
		strings.Contains(s, "throttle")
}

// RecordTokenUsage records token consumption for the sliding-window metric.
func (rl *RateLimiter) RecordTokenUsage(tokens int64) {
	rl.tokenWindowMu.Lock()
	defer rl.tokenWindowMu.Unlock()

	now := time.Now()
	rl.tokenWindow = append(rl.tokenWindow, tokenUsage{timestamp: now, tokens: tokens})

	cutoff := now.Add(-1 * time.Minute)
	for i, usage := range rl.tokenWindow {
		if usage.timestamp.After(cutoff) {
			rl.tokenWindow = rl.tokenWindow[i:]
			break
		}
	}

	rl.recordMetric("tokens", tokens)
}

// GetTokenUsageLastMinute returns token consumption in the last minute.
func (rl *RateLimiter) GetTokenUsageLastMinute() int64 {
	rl.tokenWindowMu.Lock()
	defer rl.tokenWindowMu.Unlock()

	var total int64
	cutoff := time.Now().Add(-1 * time.Minute)
	for _, usage := range rl.tokenWindow {
		if usage.timestamp.After(cutoff) {
			total += usage.tokens
		}
	}
	return total
}

func (rl *RateLimiter) recordMetric(event string, value int64) {
	rl.metricsMu.Lock()
	defer rl.metricsMu.Unlock()

	switch event {
	case "request":
		rl.metrics.TotalRequests++
	case "throttled":
		rl.metrics.ThrottledRequests++
		rl.metrics.LastThrottleTime = time.Now()
	case "queued":
		rl.metrics.QueuedRequests++
	case "dropped":
		rl.metrics.DroppedRequests++
	case "tokens":
		rl.metrics.TokensConsumed += value
	}
}

func (rl *RateLimiter) incrementQueueDepth() {
	rl.queueMu.Lock()
	defer rl.queueMu.Unlock()
	rl.queueDepth++
	rl.metricsMu.Lock()
	rl.metrics.CurrentQueueDepth = rl.queueDepth
	rl.metricsMu.Unlock()
}

func (rl *RateLimiter) decrementQueueDepth() {
	rl.queueMu.Lock()
	defer rl.queueMu.Unlock()
	rl.queueDepth--
	rl.metricsMu.Lock()
	rl.metrics.CurrentQueueDepth = rl.queueDepth
	rl.metricsMu.Unlock()
}

func (rl *RateLimiter) updateAverageQueueTime(queueTime time.Duration) {
	rl.metricsMu.Lock()
	defer rl.metricsMu.Unlock()
	currentAvg := time.Duration(rl.metrics.AverageQueueTimeMs) * time.Millisecond
	newAvg := (currentAvg + queueTime) / 2
	rl.metrics.AverageQueueTimeMs = newAvg.Milliseconds()
}

// GetMetrics returns a snapshot of the rate limiter's metrics.
func (rl *RateLimiter) GetMetrics() RateLimiterMetrics {
	rl.metricsMu.RLock()
	defer rl.metricsMu.RUnlock()
	return rl.metrics
}

// Close stops the rate limiter's background workers. Idempotent.
func (rl *RateLimiter) Close() error {
	if !rl.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(rl.stopCh)
	rl.wg.Wait()
	close(rl.queue)
	return nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
