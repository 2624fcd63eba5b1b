package markov

import (
	"errors"
	"io"
)

// DefaultMaxTokens is the number of tokens ReadTokens keeps when no explicit
// limit is given. It bounds graph size and build time.
const DefaultMaxTokens = 1000

// Tokenizer is an interface that defines the contract for splitting input text
// into tokens and joining generated tokens back into text. This keeps the graph
// and composer independent of any particular normalization strategy.
type Tokenizer interface {
	// NewStream returns a stateful StreamTokenizer for processing an io.Reader.
	NewStream(io.Reader) StreamTokenizer
	// Join builds the presentation string for a generated token sequence.
	Join(tokens []string) string
}

// StreamTokenizer is an interface for a stateful tokenizer that processes a
// stream of data, returning one normalized token at a time.
type StreamTokenizer interface {
	// Next returns the next token from the stream. It returns io.EOF as the
	// error when the stream is fully consumed.
	Next() (string, error)
}

// ReadTokens reads at most limit tokens from r using t. A limit of 0 or less
// means DefaultMaxTokens. The rest of the stream is left unread.
func ReadTokens(t Tokenizer, r io.Reader, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultMaxTokens
	}
	stream := t.NewStream(r)
	tokens := make([]string, 0, min(limit, 256))
	for len(tokens) < limit {
		token, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}
