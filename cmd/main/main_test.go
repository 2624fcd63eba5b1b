package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestServer builds a Server backed by a fresh database and config file in
// a temp dir. Everything is closed through t.Cleanup.
func newTestServer(t *testing.T) (*Server, *ConfigManager, chan string) {
	t.Helper()
	dir := t.TempDir()

	cm, err := NewConfigManager(filepath.Join(dir, "config.json"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cm.SetLogger(logger)

	serverConfig := DefaultServerConfig()
	serverConfig.DataDir = filepath.Join(dir, "data")
	serverConfig.DatabasePath = filepath.Join(serverConfig.DataDir, "composer.db")

	db, store, err := openStore(serverConfig, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		_ = db.Close()
	})

	actionChan := make(chan string, 1)
	return NewServer(cm, logger, db, store, actionChan), cm, actionChan
}

// doJSON sends a request with an optional JSON body and decodes the response
// into out when out is non-nil.
func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = jsonBody(t, body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), "body: %s", rec.Body.String())
	}
	return rec
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func intPtr(v int) *int          { return &v }
func uint64Ptr(v uint64) *uint64 { return &v }
