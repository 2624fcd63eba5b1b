package main

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/CTAG07/graph-composer/pkg/corpus"
)

// Server wires the APIs to a single mux.
type Server struct {
	config    *ConfigManager
	db        *sql.DB
	logger    *slog.Logger
	store     *corpus.Store
	composer  *ComposeService
	authAPI   *AuthAPI
	corpusAPI *CorpusAPI
	serverAPI *ServerAPI
	apiMux    *http.ServeMux
	handler   http.Handler
}

// NewServer creates the server object and registers every route.
func NewServer(config *ConfigManager, logger *slog.Logger, db *sql.DB, store *corpus.Store, actionChan chan string) *Server {
	composer := NewComposeService(config.Composer, logger)

	server := &Server{
		config:    config,
		db:        db,
		logger:    logger,
		store:     store,
		composer:  composer,
		authAPI:   NewAuthAPI(db, logger),
		corpusAPI: NewCorpusAPI(store, composer, config, logger),
		serverAPI: NewServerAPI(config, actionChan, logger),
		apiMux:    http.NewServeMux(),
	}

	server.authAPI.RegisterRoutes(server.apiMux)
	server.corpusAPI.RegisterRoutes(server.apiMux)
	server.serverAPI.RegisterRoutes(server.apiMux)
	server.handler = server.authAPI.Authenticate(server.apiMux)

	return server
}

// ServeHTTP makes the Server usable as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
