package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/CTAG07/graph-composer/pkg/corpus"
	"github.com/CTAG07/graph-composer/pkg/markov"
)

// CorpusAPI holds the dependencies for the corpus and composition API handlers.
type CorpusAPI struct {
	store    *corpus.Store
	composer *ComposeService
	config   *ConfigManager
	logger   *slog.Logger
}

// NewCorpusAPI creates a new instance of the CorpusAPI.
func NewCorpusAPI(store *corpus.Store, composer *ComposeService, config *ConfigManager, logger *slog.Logger) *CorpusAPI {
	return &CorpusAPI{
		store:    store,
		composer: composer,
		config:   config,
		logger:   logger,
	}
}

// RegisterRoutes sets up the routing for all corpus and composition endpoints.
func (c *CorpusAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/corpora", c.handleListAndCreateCorpora)
	mux.HandleFunc("/api/corpora/", c.handleCorpusByName)
	mux.HandleFunc("/api/compositions", c.handleListCompositions)
	mux.HandleFunc("/api/compositions/", c.handleCompositionByID)
	mux.HandleFunc("/api/compose", c.handleCompose)
	mux.HandleFunc("/api/stats/summary", c.handleSummary)
}

// CreateCorpusRequest is the JSON body for storing a text. It is also the
// response body of GET /api/corpora/{name}.
type CreateCorpusRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// AdHocComposeRequest is the JSON body for composing from a text that is not
// stored.
type AdHocComposeRequest struct {
	Text string `json:"text"`
	ComposeRequest
}

// ComposeResponse is returned by both compose endpoints. ID is set only when
// the composition was recorded.
type ComposeResponse struct {
	ID string `json:"id,omitempty"`
	*ComposeResult
}

// handleListAndCreateCorpora handles GET for listing and POST for creating or replacing texts.
func (c *CorpusAPI) handleListAndCreateCorpora(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !requireScope(w, r, scopeCorpusRead) {
			return
		}
		texts, err := c.store.ListTexts(r.Context())
		if err != nil {
			c.logger.Error("Failed to list texts", "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve corpora: %v", err))
			return
		}
		respondWithJSON(w, http.StatusOK, texts)

	case http.MethodPost:
		if !requireScope(w, r, scopeCorpusWrite) {
			return
		}
		var req CreateCorpusRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if req.Name == "" || strings.Contains(req.Name, "/") {
			respondWithError(w, http.StatusBadRequest, "A corpus name without '/' is required")
			return
		}
		if err := c.store.PutText(r.Context(), req.Name, req.Text); err != nil {
			c.logger.Error("Failed to store text", "name", req.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to store corpus: %v", err))
			return
		}
		respondWithJSON(w, http.StatusCreated, map[string]interface{}{"name": req.Name, "size": len(req.Text)})

	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleCorpusByName routes actions for a specific text, e.g., compose, stats, delete.
func (c *CorpusAPI) handleCorpusByName(w http.ResponseWriter, r *http.Request) {

	path := strings.TrimPrefix(r.URL.Path, "/api/corpora/")
	parts := strings.Split(path, "/")
	name := parts[0]

	if name == "" {
		respondWithError(w, http.StatusBadRequest, "Corpus name not specified")
		return
	}

	scope := scopeCorpusRead
	if r.Method == http.MethodDelete {
		scope = scopeCorpusWrite
	} else if len(parts) > 1 && parts[1] == "compose" {
		scope = scopeCompose
	}
	if !requireScope(w, r, scope) {
		return
	}

	text, err := c.store.GetText(r.Context(), name)
	if err != nil {
		if errors.Is(err, corpus.ErrTextNotFound) {
			respondWithError(w, http.StatusNotFound, "Corpus not found")
			return
		}
		c.logger.Error("Failed to get text by name", "name", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}

	if len(parts) == 1 { // Path is just /api/corpora/{name}
		switch r.Method {
		case http.MethodGet:
			respondWithJSON(w, http.StatusOK, CreateCorpusRequest{Name: name, Text: text})
		case http.MethodDelete:
			if err = c.store.RemoveText(r.Context(), name); err != nil {
				c.logger.Error("Failed to remove text", "name", name, "error", err)
				respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to remove corpus: %v", err))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Allow", "GET, DELETE")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	action := parts[1]
	switch action {
	case "compose":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		var req ComposeRequest
		if err = decodeJSON(w, r, &req, true); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		result, err := c.composer.Compose(r.Context(), text, req)
		if err != nil {
			c.respondWithComposeError(w, name, err)
			return
		}

		resp := ComposeResponse{ComposeResult: result}
		if c.config.Composer().RecordHistory {
			resp.ID, err = c.store.RecordComposition(r.Context(), corpus.Composition{
				Corpus:          name,
				Seed:            result.Seed,
				Length:          result.Length,
				Text:            result.Text,
				TokenCount:      len(result.Tokens),
				TerminatedEarly: result.TerminatedEarly,
				Restarts:        result.Restarts,
			})
			if err != nil {
				// The composition itself succeeded, so it is still returned.
				c.logger.Error("Failed to record composition", "name", name, "error", err)
			}
		}
		c.logger.Info("Composition served",
			"corpus", name,
			"length", result.Length,
			"generated", len(result.Tokens),
			"terminated_early", result.TerminatedEarly)
		respondWithJSON(w, http.StatusOK, resp)

	case "stats":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		stats, tokens, err := c.composer.GraphStats(text)
		if err != nil {
			c.respondWithComposeError(w, name, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"name":        name,
			"tokens":      tokens,
			"graph_stats": stats,
		})

	default:
		respondWithError(w, http.StatusNotFound, "Action not found")
	}
}

// handleCompose composes from a text supplied in the request. Nothing is stored.
func (c *CorpusAPI) handleCompose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !requireScope(w, r, scopeCompose) {
		return
	}
	var req AdHocComposeRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	result, err := c.composer.Compose(r.Context(), req.Text, req.ComposeRequest)
	if err != nil {
		c.respondWithComposeError(w, "", err)
		return
	}
	respondWithJSON(w, http.StatusOK, ComposeResponse{ComposeResult: result})
}

// handleListCompositions lists recorded compositions, optionally filtered by corpus.
func (c *CorpusAPI) handleListCompositions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !requireScope(w, r, scopeCorpusRead) {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}
	compositions, err := c.store.ListCompositions(r.Context(), r.URL.Query().Get("corpus"), limit)
	if err != nil {
		c.logger.Error("Failed to list compositions", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve compositions: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, compositions)
}

// handleCompositionByID returns a single recorded composition.
func (c *CorpusAPI) handleCompositionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !requireScope(w, r, scopeCorpusRead) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/compositions/")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Composition id not specified")
		return
	}
	comp, err := c.store.GetComposition(r.Context(), id)
	if err != nil {
		if errors.Is(err, corpus.ErrCompositionNotFound) {
			respondWithError(w, http.StatusNotFound, "Composition not found")
			return
		}
		c.logger.Error("Failed to get composition", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, comp)
}

// handleSummary reports how many corpora and recorded compositions the store holds.
func (c *CorpusAPI) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !requireScope(w, r, scopeCorpusRead) {
		return
	}
	stats, err := c.store.GetStats(r.Context())
	if err != nil {
		c.logger.Error("Failed to get store stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve stats: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// respondWithComposeError maps composition failures onto HTTP status codes.
func (c *CorpusAPI) respondWithComposeError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, errInvalidRequest):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, markov.ErrEmptyInput):
		respondWithError(w, http.StatusUnprocessableEntity, "Text contains no tokens")
	case errors.Is(err, markov.ErrEmptyTransition):
		respondWithError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Composition reached a dead end: %v", err))
	default:
		c.logger.Error("Composition failed", "corpus", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Composition failed: %v", err))
	}
}
