package markov

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
)

// DeadEndPolicy decides what a Composer does when the walk has to advance
// from a token with no outgoing edges.
type DeadEndPolicy int

const (
	// DeadEndStop ends the composition early and returns the tokens emitted
	// so far.
	DeadEndStop DeadEndPolicy = iota
	// DeadEndRestart continues the walk from a fresh token drawn from the
	// seed pool.
	DeadEndRestart
	// DeadEndFail aborts the composition with ErrEmptyTransition.
	DeadEndFail
)

// String returns the policy name as used in configuration.
func (p DeadEndPolicy) String() string {
	switch p {
	case DeadEndStop:
		return "stop"
	case DeadEndRestart:
		return "restart"
	case DeadEndFail:
		return "fail"
	default:
		return fmt.Sprintf("DeadEndPolicy(%d)", int(p))
	}
}

// ParseDeadEndPolicy converts a configuration string into a DeadEndPolicy.
// The empty string maps to DeadEndStop.
func ParseDeadEndPolicy(s string) (DeadEndPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stop":
		return DeadEndStop, nil
	case "restart":
		return DeadEndRestart, nil
	case "fail":
		return DeadEndFail, nil
	default:
		return 0, fmt.Errorf("unknown dead-end policy %q", s)
	}
}

// composeOptions holds the settings a Composer applies to every walk.
type composeOptions struct {
	policy DeadEndPolicy
	sample sampleOptions
}

// ComposeOption is a function that configures composition parameters.
type ComposeOption func(*composeOptions)

// WithDeadEndPolicy sets the behavior at tokens with no successors.
// Default: DeadEndStop.
func WithDeadEndPolicy(p DeadEndPolicy) ComposeOption {
	return func(o *composeOptions) { o.policy = p }
}

// WithTemperature adjusts the randomness of the successor selection.
// A value of 1.0 is standard weighted random selection.
// Values > 1.0 flatten the distribution, values < 1.0 sharpen it.
// A value of 0 or less always picks the heaviest edge.
func WithTemperature(t float64) ComposeOption {
	return func(o *composeOptions) { o.sample.temperature = t }
}

// WithTopK restricts each draw to the k heaviest edges. A value of 0
// disables Top-K sampling.
func WithTopK(k int) ComposeOption {
	return func(o *composeOptions) { o.sample.topK = k }
}

// maxPrealloc caps the token slice allocated up front, since a walk may stop
// long before the requested length.
const maxPrealloc = 1024

// Composition is the result of a single Compose call.
type Composition struct {
	// Tokens is the emitted token sequence.
	Tokens []string
	// Seed is the token the walk started from; empty when nothing was emitted.
	Seed string
	// TerminatedEarly is set when DeadEndStop ended the walk before the
	// requested length.
	TerminatedEarly bool
	// Restarts counts how many times DeadEndRestart re-seeded the walk.
	Restarts int
}

// Text joins the composition with the given tokenizer.
func (c *Composition) Text(t Tokenizer) string {
	return t.Join(c.Tokens)
}

// Composer performs weighted random walks over a finalized Graph. All
// randomness comes from the *rand.Rand it was created with, so a Composer
// built from a seeded source produces the same output for the same inputs.
// A Composer is not safe for concurrent use; create one per goroutine.
type Composer struct {
	rng     *rand.Rand
	options composeOptions
	logger  *slog.Logger
}

// NewComposer creates a Composer that draws from rng. If rng is nil, a
// randomly seeded source is used.
func NewComposer(rng *rand.Rand, opts ...ComposeOption) *Composer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	c := &Composer{
		rng: rng,
		options: composeOptions{
			policy: DeadEndStop,
			sample: sampleOptions{temperature: 1.0},
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&c.options)
	}
	return c
}

// NewSeededComposer is a convenience wrapper around NewComposer using a PCG
// source seeded with seed.
func NewSeededComposer(seed uint64, opts ...ComposeOption) *Composer {
	return NewComposer(rand.New(rand.NewPCG(seed, seed)), opts...)
}

// SetLogger sets the logger for the Composer. By default, all logs are discarded.
func (c *Composer) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Compose walks g for length steps starting at a token drawn uniformly from
// seedPool. At every step the current token is emitted and the walk then
// advances to a weighted-random successor; no draw is made after the last
// emitted token.
//
// A seed token that is not present in g is emitted as-is and treated as a
// token without successors; g is never modified.
//
// The returned composition holds exactly length tokens unless the DeadEndStop
// policy ended the walk early, in which case TerminatedEarly is set. Under
// DeadEndFail, reaching a dead end returns an error wrapping
// ErrEmptyTransition.
func (c *Composer) Compose(ctx context.Context, g *Graph, seedPool []string, length int) (*Composition, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	if len(seedPool) == 0 {
		return nil, fmt.Errorf("seed pool: %w", ErrEmptyInput)
	}
	if !g.Finalized() {
		return nil, ErrUnfinalizedGraph
	}

	result := &Composition{Tokens: make([]string, 0, min(length, maxPrealloc))}
	if length == 0 {
		return result, nil
	}

	seed := c.pickSeed(seedPool)
	result.Seed = seed
	current, ok := g.Lookup(seed)
	if !ok {
		c.logger.DebugContext(ctx, "Seed token not in graph",
			slog.String("seed", seed),
		)
	}
	currentToken := seed

	for len(result.Tokens) < length {
		result.Tokens = append(result.Tokens, currentToken)
		if len(result.Tokens) == length {
			break
		}

		var next *Node
		var err error
		if current == nil {
			err = fmt.Errorf("%w: token %q", ErrEmptyTransition, currentToken)
		} else {
			next, err = g.next(c.rng, current, &c.options.sample)
		}
		if err == nil {
			current, currentToken = next, next.Value()
			continue
		}
		if !errors.Is(err, ErrEmptyTransition) {
			return nil, err
		}

		switch c.options.policy {
		case DeadEndRestart:
			currentToken = c.pickSeed(seedPool)
			current, _ = g.Lookup(currentToken)
			result.Restarts++
			c.logger.DebugContext(ctx, "Composition restarted after dead-end",
				slog.String("new_seed", currentToken),
				slog.Int("generated_length", len(result.Tokens)),
			)
		case DeadEndFail:
			return nil, fmt.Errorf("advancing after step %d: %w", len(result.Tokens), err)
		default:
			result.TerminatedEarly = true
			c.logger.DebugContext(ctx, "Composition terminated due to dead-end",
				slog.String("last_token", currentToken),
				slog.Int("requested_length", length),
				slog.Int("generated_length", len(result.Tokens)),
			)
			return result, nil
		}
	}

	c.logger.DebugContext(ctx, "Composition completed",
		slog.String("seed", seed),
		slog.Int("generated_length", len(result.Tokens)),
		slog.Int("restarts", result.Restarts),
	)
	return result, nil
}

func (c *Composer) pickSeed(seedPool []string) string {
	return seedPool[c.rng.IntN(len(seedPool))]
}
