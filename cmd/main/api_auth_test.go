package main

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withKey sends a request carrying key in the auth header.
func withKey(t *testing.T, h http.Handler, method, path, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set(authHeader, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthOpenUntilFirstKey(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := withKey(t, srv, http.MethodGet, "/api/corpora", "")
	assert.Equal(t, http.StatusOK, rec.Code, "API should be open without keys")

	var master CreateKeyResponse
	rec = doJSON(t, srv, http.MethodPost, "/api/auth/keys", CreateKeyRequest{Scopes: []string{scopeCorpusRead}, Description: "first"}, &master)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{scopeMaster}, master.Scopes, "first key is always master")
	assert.NotEmpty(t, master.RawKey)

	rec = withKey(t, srv, http.MethodGet, "/api/corpora", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = withKey(t, srv, http.MethodGet, "/api/corpora", "gc_bogus")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = withKey(t, srv, http.MethodGet, "/api/corpora", master.RawKey)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = withKey(t, srv, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code, "health is public")
}

func TestAuthScopes(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var master CreateKeyResponse
	doJSON(t, srv, http.MethodPost, "/api/auth/keys", CreateKeyRequest{Description: "master"}, &master)
	require.NotEmpty(t, master.RawKey)

	// Create a read-only key with the master key.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/keys",
		jsonBody(t, CreateKeyRequest{Scopes: []string{scopeCorpusRead}, Description: "reader"}))
	req.Header.Set(authHeader, master.RawKey)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reader := decodeBody[CreateKeyResponse](t, rec)
	assert.Equal(t, []string{scopeCorpusRead}, reader.Scopes)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/corpora", http.StatusOK},
		{http.MethodGet, "/api/compositions", http.StatusOK},
		{http.MethodGet, "/api/stats/summary", http.StatusOK},
		{http.MethodPost, "/api/compose", http.StatusForbidden},
		{http.MethodPost, "/api/corpora/any/compose", http.StatusForbidden},
		{http.MethodDelete, "/api/corpora/any", http.StatusForbidden},
		{http.MethodGet, "/api/server/config", http.StatusForbidden},
		{http.MethodPost, "/api/server/shutdown", http.StatusForbidden},
		{http.MethodGet, "/api/auth/keys", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := withKey(t, srv, tt.method, tt.path, reader.RawKey)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAuthKeyManagement(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var master CreateKeyResponse
	doJSON(t, srv, http.MethodPost, "/api/auth/keys", CreateKeyRequest{Description: "master"}, &master)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/keys",
		jsonBody(t, CreateKeyRequest{Scopes: []string{"everything"}}))
	req.Header.Set(authHeader, master.RawKey)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown scopes are rejected")

	req = httptest.NewRequest(http.MethodPost, "/api/auth/keys",
		jsonBody(t, CreateKeyRequest{Scopes: []string{scopeCompose}, Description: "bot"}))
	req.Header.Set(authHeader, master.RawKey)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	bot := decodeBody[CreateKeyResponse](t, rec)

	rec = withKey(t, srv, http.MethodGet, "/api/auth/keys", master.RawKey)
	require.Equal(t, http.StatusOK, rec.Code)
	keys := decodeBody[[]APIKeyInfo](t, rec)
	require.Len(t, keys, 2)
	assert.Equal(t, "bot", keys[1].Description)

	rec = withKey(t, srv, http.MethodGet, "/api/auth/me", bot.RawKey)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = withKey(t, srv, http.MethodDelete, "/api/auth/keys/1", master.RawKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "master key cannot be deleted")

	rec = withKey(t, srv, http.MethodDelete, "/api/auth/keys/"+strconv.Itoa(bot.ID), master.RawKey)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = withKey(t, srv, http.MethodGet, "/api/auth/me", bot.RawKey)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "deleted key no longer works")

	rec = withKey(t, srv, http.MethodDelete, "/api/auth/keys/999", master.RawKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHashAPIKey(t *testing.T) {
	key, err := generateAPIKey()
	require.NoError(t, err)
	assert.Len(t, key, len("gc_")+64)
	assert.Equal(t, hashAPIKey(key), hashAPIKey(key))
	assert.NotEqual(t, key, hashAPIKey(key))
}
