// Package router picks which provider/model handles a chat request,
// falling back through an ordered chain when a model is unavailable or
// errors out, and records the outcome of every routing decision.
package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/howard-nolan/hive/internal/learn"
	"github.com/howard-nolan/hive/internal/provider"
	"github.com/howard-nolan/hive/internal/types"
)

// FallbackChain maps a requested tier to the ordered list of model ids to
// try, cheapest/fastest first within the tier and degrading gracefully to
// adjacent tiers when the caller configures it that way.
type FallbackChain map[types.ModelTier][]string

// Config configures a Router's fallback behavior and rate limits.
type Config struct {
	Chains          FallbackChain
	CostLimitUSD    float64
	RateLimitPerSec float64
	RateLimitBurst  int
}

// DefaultConfig returns conservative defaults: no cost ceiling, and a
// generous per-provider rate limit that only kicks in against a runaway
// client.
func DefaultConfig() Config {
	return Config{
		Chains:          FallbackChain{},
		CostLimitUSD:    0,
		RateLimitPerSec: 10,
		RateLimitBurst:  20,
	}
}

// Router dispatches a ChatRequest to the first available model in the
// request's tier's fallback chain, skipping models that have been marked
// unavailable and tracking cumulative spend.
type Router struct {
	cfg     Config
	models  map[string]provider.Provider
	history Store
	log     *zap.Logger

	mu            sync.Mutex
	unavailable   map[string]bool // model id -> permanently unavailable
	totalSpentUSD float64
	limiters      map[string]*rate.Limiter // provider name -> limiter
}

// New builds a Router over the given model→provider map. models is the
// same map cmd/hive builds from config: model id to the Provider instance
// that serves it.
func New(cfg Config, models map[string]provider.Provider, history Store, log *zap.Logger) *Router {
	return &Router{
		cfg:         cfg,
		models:      models,
		history:     history,
		log:         log,
		unavailable: make(map[string]bool),
		limiters:    make(map[string]*rate.Limiter),
	}
}

// MarkUnavailable permanently removes a model from consideration. Per the
// availability-tracking design, there is no automatic recovery: once a
// model is marked unavailable it stays that way until the process
// restarts or an operator intervenes out of band.
func (r *Router) MarkUnavailable(modelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unavailable[modelID] = true
}

// IsAvailable reports whether modelID is still eligible for routing.
func (r *Router) IsAvailable(modelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.unavailable[modelID]
}

// TotalSpentUSD returns the cumulative cost of every completed request
// this router has routed.
func (r *Router) TotalSpentUSD() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalSpentUSD
}

func (r *Router) limiterFor(providerName string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[providerName]
	if !ok {
		l = rate.NewLimiter(rate.Limit(r.cfg.RateLimitPerSec), r.cfg.RateLimitBurst)
		r.limiters[providerName] = l
	}
	return l
}

// chainFor returns the candidate model ids for req: an explicit model
// name takes precedence, otherwise the request's preferred tier's
// configured fallback chain is used.
func (r *Router) chainFor(req *types.ChatRequest) []string {
	if req.Model != "" {
		chain := []string{req.Model}
		chain = append(chain, r.cfg.Chains[req.PreferredTier]...)
		return chain
	}
	return r.cfg.Chains[req.PreferredTier]
}

// Route tries each candidate model in order, skipping ones marked
// unavailable, until one succeeds or the chain is exhausted.
func (r *Router) Route(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	candidates := r.chainFor(req)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("router: no fallback chain configured for tier %q", req.PreferredTier)
	}

	if r.cfg.CostLimitUSD > 0 && r.TotalSpentUSD() >= r.cfg.CostLimitUSD {
		return nil, provider.NewError(provider.ErrBudgetExceeded, "router cost limit reached", nil)
	}

	var lastErr error
	for i, modelID := range candidates {
		if i > 0 {
			routeFallbacksTotal.WithLabelValues(string(req.PreferredTier)).Inc()
		}

		if !r.IsAvailable(modelID) {
			continue
		}

		p, ok := r.models[modelID]
		if !ok {
			r.log.Warn("model not registered with any provider", zap.String("model", modelID))
			continue
		}

		if err := r.limiterFor(p.Name()).Wait(ctx); err != nil {
			return nil, fmt.Errorf("router: rate limiter: %w", err)
		}

		attempt := *req
		attempt.Model = modelID

		start := time.Now()
		resp, err := p.ChatCompletion(ctx, &attempt)
		latency := time.Since(start)

		if err != nil {
			routeAttemptsTotal.WithLabelValues(modelID, "failure").Inc()
			r.log.Warn("routing attempt failed", zap.String("model", modelID), zap.String("provider", p.Name()), zap.Error(err))

			if provider.Unavailable(err) {
				r.MarkUnavailable(modelID)
			}
			if provider.Terminal(err) {
				return nil, err
			}

			lastErr = err
			continue
		}

		routeAttemptsTotal.WithLabelValues(modelID, "success").Inc()

		cost := estimateCost(modelID, resp.Usage)
		r.mu.Lock()
		r.totalSpentUSD += cost
		r.mu.Unlock()

		r.recordHistory(ctx, req, modelID, cost, latency)
		return resp, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("router: all candidates exhausted: %w", lastErr)
	}
	return nil, fmt.Errorf("router: no available model for tier %q", req.PreferredTier)
}

func (r *Router) recordHistory(ctx context.Context, req *types.ChatRequest, modelID string, cost float64, latency time.Duration) {
	if r.history == nil {
		return
	}
	entry := learn.RoutingHistoryEntry{
		TaskType:       req.TaskType,
		ClassifiedTier: string(req.PreferredTier),
		ModelID:        modelID,
		Cost:           cost,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.history.Record(ctx, entry); err != nil {
		r.log.Warn("failed to record routing history", zap.Error(err))
	}
}

// estimateCost looks up the static registry entry for modelID and applies
// its per-token pricing to the usage reported by the provider. Models not
// in the registry cost nothing as far as the router's ledger is
// concerned — their provider is responsible for its own billing.
func estimateCost(modelID string, usage types.Usage) float64 {
	info, ok := provider.LookupModel(modelID)
	if !ok {
		return 0
	}
	input := float64(usage.PromptTokens) / 1_000_000 * info.InputPricePerMTok
	output := float64(usage.CompletionTokens) / 1_000_000 * info.OutputPricePerMTok
	return input + output
}
