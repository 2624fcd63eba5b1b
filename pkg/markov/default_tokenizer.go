package markov

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strings"
)

// asciiPunctuation is the set of characters stripped from every token by
// default.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// maxLineLength is the longest line the stream tokenizer handles as a unit.
// Longer lines are cut at whitespace into pieces of at most this size.
const maxLineLength = 1 << 20

// asciiSpace holds the bytes scanLinesOrWords may cut an over-long line at.
const asciiSpace = " \t\r\n\v\f"

// scanLinesOrWords behaves like bufio.ScanLines, except that once a line
// fills maxLineLength bytes without a newline it returns everything up to the
// last whitespace instead of failing with bufio.ErrTooLong. Bracketed spans
// are only removed within a single piece.
func scanLinesOrWords(data []byte, atEOF bool) (advance int, token []byte, err error) {
	advance, token, err = bufio.ScanLines(data, atEOF)
	if advance > 0 || token != nil || err != nil || len(data) < maxLineLength {
		return advance, token, err
	}
	if i := bytes.LastIndexAny(data, asciiSpace); i >= 0 {
		return i + 1, data[:i], nil
	}
	// One word longer than the buffer.
	return len(data), data, nil
}

// DefaultTokenizer is a default implementation of the Tokenizer interface.
// For every line of input it removes bracketed spans such as "[Chorus]",
// lowercases the text, strips ASCII punctuation and splits on whitespace.
// Its behavior can be customized with functional options.
type DefaultTokenizer struct {
	separator    string
	bracketRegex *regexp.Regexp
	punctuation  string
}

// Option is a function that configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithSeparator sets the string used for joining tokens in Join.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *DefaultTokenizer) {
		t.separator = sep
	}
}

// WithBracketRegex sets the regex whose matches are replaced by a space
// before a line is tokenized. An empty string disables the removal.
// Default: `\[(.+)\]`
func WithBracketRegex(expr string) Option {
	return func(t *DefaultTokenizer) {
		if expr == "" {
			t.bracketRegex = nil
			return
		}
		t.bracketRegex = regexp.MustCompile(expr)
	}
}

// WithPunctuation sets the characters removed from the text. An empty string
// keeps all punctuation.
func WithPunctuation(chars string) Option {
	return func(t *DefaultTokenizer) {
		t.punctuation = chars
	}
}

// NewDefaultTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		separator: " ",
		// Greedy and line-bounded, so "[a] b [c]" loses everything from the
		// first '[' to the last ']'.
		bracketRegex: regexp.MustCompile(`\[(.+)\]`),
		punctuation:  asciiPunctuation,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Join returns the tokens joined with the configured separator.
func (t *DefaultTokenizer) Join(tokens []string) string {
	return strings.Join(tokens, t.separator)
}

// Normalize applies the tokenizer's normalization to a single line and
// returns the resulting tokens.
func (t *DefaultTokenizer) Normalize(line string) []string {
	if t.bracketRegex != nil {
		line = t.bracketRegex.ReplaceAllString(line, " ")
	}
	line = strings.ToLower(line)
	if t.punctuation != "" {
		line = strings.Map(func(r rune) rune {
			if strings.ContainsRune(t.punctuation, r) {
				return -1
			}
			return r
		}, line)
	}
	return strings.Fields(line)
}

// NewStream returns a StreamTokenizer reading from r.
func (t *DefaultTokenizer) NewStream(r io.Reader) StreamTokenizer {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineLength)
	scanner.Split(scanLinesOrWords)
	return &DefaultStreamTokenizer{
		scanner:   scanner,
		buffer:    []string{},
		tokenizer: t,
	}
}

// DefaultStreamTokenizer is the default implementation of the StreamTokenizer interface.
// It reads its input line by line with a bufio.Scanner, cutting over-long
// lines at whitespace.
type DefaultStreamTokenizer struct {
	scanner   *bufio.Scanner
	buffer    []string
	tokenizer *DefaultTokenizer
}

// Next returns the next token from the stream. When the stream is exhausted,
// it returns "" and io.EOF. Any other error indicates a problem reading from
// the underlying stream.
func (s *DefaultStreamTokenizer) Next() (string, error) {
	for len(s.buffer) == 0 { // Loop until we have tokens
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		s.buffer = s.tokenizer.Normalize(s.scanner.Text())
	}

	token := s.buffer[0]
	s.buffer = s.buffer[1:]
	return token, nil
}
