package markov

import (
	"go/build"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// newTestRand returns a deterministic random source for tests.
func newTestRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// buildTestGraph builds a finalized graph from a space separated string.
func buildTestGraph(t testing.TB, text string) *Graph {
	t.Helper()
	g, err := BuildGraph(strings.Fields(text))
	if err != nil {
		t.Fatalf("BuildGraph(%q) error = %v", text, err)
	}
	return g
}

// mustLookup returns the node for token or fails the test.
func mustLookup(t testing.TB, g *Graph, token string) *Node {
	t.Helper()
	n, ok := g.Lookup(token)
	if !ok {
		t.Fatalf("token %q not found in graph", token)
	}
	return n
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = "this is a fallback corpus for benchmarking. it is not very long but will prevent a crash. "
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
