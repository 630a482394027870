package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/howard-nolan/hive/internal/federation"
	"github.com/howard-nolan/hive/internal/loop"
	"github.com/howard-nolan/hive/internal/provider"
	"github.com/howard-nolan/hive/internal/stream"
	"github.com/howard-nolan/hive/internal/types"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleHealth responds with liveness plus a connectivity summary keyed by
// model id (each registered model mapped to whether its provider is
// reachable), so an operator can tell at a glance which backends this node
// can currently reach.
//
// In Express terms, this is like:
//   app.get('/health', (req, res) => res.json({ status: 'ok', ... }))
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	providers := make(map[string]bool, len(s.models))
	for model, p := range s.models {
		providers[model] = p.IsAvailable(r.Context())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": providers,
		"peers":     s.peers.ConnectedCount(),
	})
}

// handleChatCompletions handles POST /v1/chat/completions.
// It decodes the request, resolves a model or tier to a provider (either
// directly, or by routing through the fallback chain), and dispatches to
// either the streaming or non-streaming path.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	// An explicit model name that's in our registry is dispatched
	// directly; anything else is handed to the router, which tries that
	// name as a model id and then the chain for req.PreferredTier.
	// PreferredTier is not read from the request body, so a tier name or
	// "auto" in the model field is not resolved to a tier's chain.
	if p, ok := s.models[req.Model]; ok {
		s.dispatch(w, r, p, &req)
		return
	}

	resp, err := s.router.Route(r.Context(), &req)
	if err != nil {
		s.log.Warn("routing failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "routing failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, p provider.Provider, req *types.ChatRequest) {
	w.Header().Set("X-Hive-Provider", p.Name())
	w.Header().Set("X-Hive-Model", req.Model)

	if req.Stream {
		chunks, err := p.ChatCompletionStream(r.Context(), req)
		if err != nil {
			s.log.Warn("provider stream error", zap.String("provider", p.Name()), zap.Error(err))
			writeError(w, http.StatusBadGateway, "provider error: "+err.Error())
			return
		}
		if err := stream.Write(w, chunks); err != nil {
			s.log.Warn("stream write error", zap.Error(err))
		}
		return
	}

	resp, err := p.ChatCompletion(r.Context(), req)
	if err != nil {
		s.log.Warn("provider error", zap.String("provider", p.Name()), zap.Error(err))
		writeError(w, http.StatusBadGateway, "provider error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListModels merges the catalog across every configured provider.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	seen := make(map[string]struct{})
	var all []types.ModelInfo

	for _, p := range s.models {
		if _, ok := seen[p.Name()]; ok {
			continue
		}
		seen[p.Name()] = struct{}{}

		models, err := p.ListModels(r.Context())
		if err != nil {
			s.log.Warn("catalog fetch failed", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		all = append(all, models...)
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": all})
}

// handleCreateLoop starts a new agent loop with the config's loop
// defaults (max_iterations and cost_limit_usd may be overridden from the
// request body) and returns its generated id.
func (s *Server) handleCreateLoop(w http.ResponseWriter, r *http.Request) {
	cfg := loop.Config{
		MaxIterations:     s.cfg.Loop.MaxIterations,
		CostLimitUSD:      s.cfg.Loop.CostLimitUSD,
		TimeLimit:         time.Duration(s.cfg.Loop.TimeLimitSecs) * time.Second,
		CompletionPhrases: s.cfg.Loop.CompletionPhrases,
	}

	var override struct {
		MaxIterations *int     `json:"max_iterations"`
		CostLimitUSD  *float64 `json:"cost_limit_usd"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&override)
	}
	if override.MaxIterations != nil {
		cfg.MaxIterations = *override.MaxIterations
	}
	if override.CostLimitUSD != nil {
		cfg.CostLimitUSD = *override.CostLimitUSD
	}

	id, l := s.loops.Create(cfg)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "status": l.Status})
}

// handleGetLoop reports the current status of a loop by id.
func (s *Server) handleGetLoop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, ok := s.loops.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown loop id")
		return
	}
	writeJSON(w, http.StatusOK, l.Checkpoint())
}

func (s *Server) handlePauseLoop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, ok := s.loops.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown loop id")
		return
	}
	l.Pause()
	writeJSON(w, http.StatusOK, map[string]any{"status": l.Status})
}

func (s *Server) handleResumeLoop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, ok := s.loops.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown loop id")
		return
	}
	l.Resume()
	writeJSON(w, http.StatusOK, map[string]any{"status": l.Status})
}

// handleListPeers reports every peer this node currently knows about.
func (s *Server) handleListPeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"peers": s.peers.ListAll()})
}

// handleAnnounce lets a caller manually register a peer, mainly for
// testing federation without waiting on UDP discovery.
func (s *Server) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	var ann federation.Announcement
	if err := json.NewDecoder(r.Body).Decode(&ann); err != nil {
		writeError(w, http.StatusBadRequest, "invalid announcement: "+err.Error())
		return
	}

	identity := federation.NodeIdentity{PeerID: ann.PeerID, Name: ann.Name, Version: ann.Version}
	s.peers.AddPeer(federation.PeerInfo{
		ID:       ann.PeerID,
		Identity: identity,
		Addr:     ann.ListenAddr,
		State:    federation.PeerDiscovered,
		LastSeen: time.Now(),
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

// handleLearnReport serves the learning subsystem's self-evaluation
// summary, synthesized from the router's routing-history ledger.
func (s *Server) handleLearnReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.buildSelfEvaluationReport(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
