// Package server sets up the HTTP router, middleware, and request handlers.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/howard-nolan/hive/internal/config"
	"github.com/howard-nolan/hive/internal/federation"
	"github.com/howard-nolan/hive/internal/provider"
	"github.com/howard-nolan/hive/internal/router"
)

// Server holds the HTTP router and all dependencies that handlers need.
// As we add more features, they become fields here — similar to
// attaching services to an Express app.
type Server struct {
	chiRouter chi.Router
	cfg       *config.Config
	log       *zap.Logger

	// models maps model names to the provider that handles them.
	// For example: "gemini-2.0-flash" → GoogleProvider,
	//              "claude-haiku-4-5-20251001" → AnthropicProvider.
	//
	// This is the provider registry. When a request comes in with a
	// model name, we look it up here to find the right provider.
	// It's like a route table, but for LLM providers instead of URLs.
	models map[string]provider.Provider

	// router handles requests whose model isn't registered here, trying
	// that name and then the fallback chain for the request's
	// PreferredTier.
	router *router.Router

	loops    *loopRegistry
	peers    *federation.PeerRegistry
	identity federation.NodeIdentity
	history  router.Store
}

// New creates a Server, wires up routes and middleware, and returns it
// ready to use as an http.Handler. This is Go's equivalent of a
// constructor — the convention is to name it New when the package name
// already tells you what you're constructing (server.New → "new server").
func New(cfg *config.Config, models map[string]provider.Provider, rt *router.Router, peers *federation.PeerRegistry, identity federation.NodeIdentity, history router.Store, log *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		models:   models,
		router:   rt,
		peers:    peers,
		identity: identity,
		history:  history,
		log:      log,
		loops:    newLoopRegistry(),
	}
	s.routes()
	return s
}

// routes builds the chi router with all middleware and route definitions.
// This is conceptually like your Express app.use() / app.get() / app.post()
// setup, but gathered in one method so the routing table is easy to scan.
func (s *Server) routes() {
	r := chi.NewRouter()

	// --- Global middleware ---
	// middleware.Logger prints a log line for every request, similar to
	// morgan('dev') in Express. It logs method, path, status, and duration.
	r.Use(middleware.Logger)

	// middleware.Recoverer catches panics in handlers and returns a 500
	// instead of crashing the whole process. In Express, you'd use an
	// error-handling middleware like app.use((err, req, res, next) => ...).
	r.Use(middleware.Recoverer)

	// metricsMiddleware records per-route request counts and latency for
	// /metrics, on top of the router/fallback counters internal/router
	// records directly.
	r.Use(metricsMiddleware)

	// --- Routes ---
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/v1/chat/completions", s.handleChatCompletions)
	r.Get("/v1/models", s.handleListModels)

	r.Post("/v1/loop", s.handleCreateLoop)
	r.Get("/v1/loop/{id}", s.handleGetLoop)
	r.Post("/v1/loop/{id}/pause", s.handlePauseLoop)
	r.Post("/v1/loop/{id}/resume", s.handleResumeLoop)
	r.Get("/v1/loop/{id}/events", s.handleLoopEvents)

	r.Get("/v1/federation/peers", s.handleListPeers)
	r.Post("/v1/federation/announce", s.handleAnnounce)

	r.Get("/v1/learn/report", s.handleLearnReport)

	s.chiRouter = r
}

// ServeHTTP makes Server satisfy the http.Handler interface. Every incoming
// request flows through this method, and we just delegate to chi's router.
//
// This is what allows main.go to pass our Server directly to
// http.Server{Handler: srv} — the stdlib needs anything that has a
// ServeHTTP(ResponseWriter, *Request) method.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.chiRouter.ServeHTTP(w, r)
}
