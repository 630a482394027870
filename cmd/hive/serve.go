package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/howard-nolan/hive/internal/config"
	"github.com/howard-nolan/hive/internal/federation"
	"github.com/howard-nolan/hive/internal/provider"
	"github.com/howard-nolan/hive/internal/router"
	"github.com/howard-nolan/hive/internal/server"
	"github.com/howard-nolan/hive/internal/types"
)

// providerFactory builds a Provider from its config. Keeping these in a
// map instead of a big if/else chain makes it a one-line change to wire
// in a new backend.
type providerFactory func(apiKey, baseURL string) provider.Provider

var constructors = map[string]providerFactory{
	"google": func(apiKey, baseURL string) provider.Provider {
		return provider.NewGoogleProvider(apiKey, baseURL, http.DefaultClient)
	},
	"anthropic": func(apiKey, baseURL string) provider.Provider {
		return provider.NewAnthropicProvider(apiKey, baseURL, http.DefaultClient)
	},
	"openai": func(apiKey, baseURL string) provider.Provider {
		return provider.NewOpenAIProvider(apiKey, baseURL, http.DefaultClient)
	},
	"groq": func(apiKey, baseURL string) provider.Provider {
		return provider.NewGroqProvider(apiKey, baseURL, http.DefaultClient)
	},
	"hugging_face": func(apiKey, baseURL string) provider.Provider {
		return provider.NewHuggingFaceProvider(apiKey, baseURL, http.DefaultClient)
	},
	"openrouter": func(apiKey, baseURL string) provider.Provider {
		return provider.NewOpenRouterProvider(apiKey, baseURL, http.DefaultClient)
	},
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Hive gateway: HTTP API, agent loop control, and LAN federation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath)
		},
	}
}

func runServe(configPath string) error {
	cfg := loadConfigOrExit(configPath)
	log := newLogger(cfg)
	defer log.Sync()

	models := make(map[string]provider.Provider)
	for name, provCfg := range cfg.Providers {
		if !provCfg.Enabled && len(provCfg.Models) == 0 {
			continue
		}
		factory, ok := constructors[name]
		if !ok {
			return fmt.Errorf("unknown provider in config: %q", name)
		}

		p := factory(provCfg.APIKey, provCfg.BaseURL)
		for _, model := range provCfg.Models {
			models[model] = p
			log.Info("registered model", zap.String("model", model), zap.String("provider", name))
		}
	}

	history := newHistoryStore(cfg, log)

	routerCfg := router.Config{
		Chains:          convertChains(cfg.Router.Chains),
		CostLimitUSD:    cfg.Router.CostLimitUSD,
		RateLimitPerSec: cfg.Router.RateLimitPerSec,
		RateLimitBurst:  cfg.Router.RateLimitBurst,
	}
	rt := router.New(routerCfg, models, history, log)

	identity := federation.LoadOrGenerateIdentity(log, cfg.Federation.IdentityFile, "hive-node")
	peers := federation.LoadPeerRegistryOrDefault(log, cfg.Federation.PeerRegistryFile)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	startFederation(ctx, log, cfg, identity, peers)

	srv := server.New(cfg, models, rt, peers, identity, history, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("error during shutdown", zap.Error(err))
		}
		if err := peers.SaveToFile(cfg.Federation.PeerRegistryFile); err != nil {
			log.Warn("failed to persist peer registry", zap.Error(err))
		}
	}()

	log.Info("hive listening", zap.Int("port", cfg.Server.Port), zap.String("peer_id", string(identity.PeerID)))

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// startFederation launches UDP discovery, wiring newly discovered peers
// into the registry. It starts no heartbeat sweep.
func startFederation(ctx context.Context, log *zap.Logger, cfg *config.Config, identity federation.NodeIdentity, peers *federation.PeerRegistry) {
	discoveredCh := make(chan federation.DiscoveredPeer, 16)

	discoveryCfg := federation.DiscoveryConfig{
		Port:     cfg.Federation.DiscoveryPort,
		Interval: time.Duration(cfg.Federation.DiscoveryIntervalSecs) * time.Second,
		Announcement: federation.Announcement{
			PeerID:     identity.PeerID,
			ListenAddr: cfg.Federation.ListenAddr,
			Name:       identity.Name,
			Version:    identity.Version,
		},
	}

	if err := federation.StartDiscovery(ctx, log, discoveryCfg, discoveredCh); err != nil {
		log.Warn("discovery failed to start", zap.Error(err))
		return
	}

	go func() {
		for {
			select {
			case discovered := <-discoveredCh:
				peers.AddPeer(federation.PeerInfo{
					ID: discovered.Announcement.PeerID,
					Identity: federation.NodeIdentity{
						PeerID:  discovered.Announcement.PeerID,
						Name:    discovered.Announcement.Name,
						Version: discovered.Announcement.Version,
					},
					Addr:     discovered.Announcement.ListenAddr,
					State:    federation.PeerDiscovered,
					LastSeen: time.Now(),
				})
			case <-ctx.Done():
				return
			}
		}
	}()
}

// convertChains adapts the koanf-friendly map[string][]string in config
// into the typed router.FallbackChain keyed by types.ModelTier.
func convertChains(chains map[string][]string) router.FallbackChain {
	out := make(router.FallbackChain, len(chains))
	for tier, models := range chains {
		out[types.ModelTier(tier)] = models
	}
	return out
}

// newHistoryStore uses Redis for the routing-history ledger when
// router.history_redis_url is configured, otherwise an in-memory store
// that doesn't survive a restart.
func newHistoryStore(cfg *config.Config, log *zap.Logger) router.Store {
	if cfg.Router.HistoryRedisURL == "" {
		return router.NewMemoryStore()
	}

	opts, err := redis.ParseURL(cfg.Router.HistoryRedisURL)
	if err != nil {
		log.Warn("invalid history_redis_url, falling back to in-memory history", zap.Error(err))
		return router.NewMemoryStore()
	}

	client := redis.NewClient(opts)
	return router.NewRedisStore(client, "hive:routing_history")
}
