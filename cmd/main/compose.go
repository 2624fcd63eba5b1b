package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/CTAG07/graph-composer/pkg/markov"
)

// errInvalidRequest marks composition parameters rejected before any work is done.
var errInvalidRequest = errors.New("invalid composition request")

// ComposeRequest holds the per-request overrides of the composer config.
// Nil fields fall back to the configured defaults.
type ComposeRequest struct {
	Length      *int     `json:"length,omitempty"`
	Seed        *uint64  `json:"seed,omitempty"`
	Policy      string   `json:"policy,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
}

// ComposeResult is the outcome of composing from a single text.
type ComposeResult struct {
	Tokens          []string          `json:"tokens"`
	Text            string            `json:"text"`
	Seed            string            `json:"seed"`
	Length          int               `json:"length"`
	TerminatedEarly bool              `json:"terminated_early"`
	Restarts        int               `json:"restarts"`
	Policy          string            `json:"policy"`
	GraphStats      markov.GraphStats `json:"graph_stats"`
}

// ComposeService turns a raw text into a composition: tokenize, build a fresh
// graph, walk it. Nothing is shared between calls, so it is safe for
// concurrent use.
type ComposeService struct {
	config func() ComposerConfig
	logger *slog.Logger
}

// NewComposeService creates a ComposeService that reads its configuration
// through config on every call.
func NewComposeService(config func() ComposerConfig, logger *slog.Logger) *ComposeService {
	return &ComposeService{config: config, logger: logger}
}

// Compose builds a graph from text and composes from it according to req.
// The token sequence of the text is used as the seed pool.
func (s *ComposeService) Compose(ctx context.Context, text string, req ComposeRequest) (*ComposeResult, error) {
	cfg := s.config()

	length := cfg.DefaultLength
	if req.Length != nil {
		length = *req.Length
	}
	if length < 0 || length > cfg.MaxLength {
		return nil, fmt.Errorf("%w: length must be between 0 and %d", errInvalidRequest, cfg.MaxLength)
	}

	policyName := cfg.DeadEndPolicy
	if req.Policy != "" {
		policyName = req.Policy
	}
	policy, err := markov.ParseDeadEndPolicy(policyName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}

	temperature := cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	topK := cfg.TopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK < 0 {
		return nil, fmt.Errorf("%w: top_k must not be negative", errInvalidRequest)
	}

	tokenizer := markov.NewDefaultTokenizer(markov.WithSeparator(cfg.Separator))
	g, tokens, err := markov.BuildGraphFromReader(tokenizer, strings.NewReader(text), cfg.MaxTokens)
	if err != nil {
		return nil, err
	}

	opts := []markov.ComposeOption{
		markov.WithDeadEndPolicy(policy),
		markov.WithTemperature(temperature),
		markov.WithTopK(topK),
	}
	var composer *markov.Composer
	if req.Seed != nil {
		composer = markov.NewSeededComposer(*req.Seed, opts...)
	} else {
		composer = markov.NewComposer(nil, opts...)
	}
	composer.SetLogger(s.logger)

	comp, err := composer.Compose(ctx, g, tokens, length)
	if err != nil {
		return nil, err
	}

	stats := markov.Stats(g)
	s.logger.DebugContext(ctx, "Composition built",
		slog.Int("tokens_read", len(tokens)),
		slog.Int("graph_nodes", stats.Nodes),
		slog.Int("graph_edges", stats.Edges),
		slog.Int("requested_length", length),
		slog.Int("generated_length", len(comp.Tokens)),
		slog.String("policy", policy.String()),
	)

	return &ComposeResult{
		Tokens:          comp.Tokens,
		Text:            comp.Text(tokenizer),
		Seed:            comp.Seed,
		Length:          length,
		TerminatedEarly: comp.TerminatedEarly,
		Restarts:        comp.Restarts,
		Policy:          policy.String(),
		GraphStats:      stats,
	}, nil
}

// GraphStats tokenizes text and reports statistics of the graph it yields.
func (s *ComposeService) GraphStats(text string) (markov.GraphStats, int, error) {
	cfg := s.config()
	g, tokens, err := markov.BuildGraphFromReader(markov.NewDefaultTokenizer(), strings.NewReader(text), cfg.MaxTokens)
	if err != nil {
		return markov.GraphStats{}, 0, err
	}
	return markov.Stats(g), len(tokens), nil
}
