package main

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serveResult struct {
	action string
	err    error
}

// serveAsync runs serveUntilAction in the background and reports its result.
func serveAsync(srv *http.Server, actionChan chan string, cleaned *bool) chan serveResult {
	done := make(chan serveResult, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		action, err := serveUntilAction(srv, actionChan, logger, func() { *cleaned = true })
		done <- serveResult{action, err}
	}()
	return done
}

func TestServeUntilActionListenFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cleaned := false
	srv := &http.Server{Addr: busy.Addr().String(), Handler: http.NotFoundHandler()}
	done := serveAsync(srv, make(chan string), &cleaned)

	select {
	case res := <-done:
		assert.Error(t, res.err, "a port in use must end the cycle")
		assert.Empty(t, res.action)
		assert.True(t, cleaned)
	case <-time.After(5 * time.Second):
		t.Fatal("server cycle did not return after the listener failed")
	}
}

func TestServeUntilActionRestart(t *testing.T) {
	cleaned := false
	actionChan := make(chan string, 1)
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	done := serveAsync(srv, actionChan, &cleaned)

	actionChan <- actionRestart

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, actionRestart, res.action)
		assert.True(t, cleaned)
	case <-time.After(15 * time.Second):
		t.Fatal("server cycle did not return after a restart action")
	}
}
