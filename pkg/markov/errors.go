package markov

import "errors"

var (
	// ErrEmptyInput is returned when a graph is built from an empty token
	// sequence or a composition is requested with an empty seed pool.
	ErrEmptyInput = errors.New("markov: empty input")
	// ErrEmptyTransition is returned when a walk has to advance from a token
	// that has no outgoing edges.
	ErrEmptyTransition = errors.New("markov: no outgoing transitions")
	// ErrUnfinalizedGraph is returned when sampling is attempted before
	// Finalize has run.
	ErrUnfinalizedGraph = errors.New("markov: graph has not been finalized")
	// ErrInvalidLength is returned for a negative composition length.
	ErrInvalidLength = errors.New("markov: invalid composition length")
)
