package probes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balena-io-experimental/goal-engine/pkg/goal"
)

type urlCtx struct {
	url string
}

func urlOf(c urlCtx) string { return c.url }

func TestHTTPHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	healthy, err := HTTPHealthy(urlOf, srv.Client())(context.Background(), urlCtx{url: srv.URL})
	require.NoError(t, err)
	assert.True(t, healthy)
}

func TestHTTPUnhealthyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	healthy, err := HTTPHealthy(urlOf, srv.Client())(context.Background(), urlCtx{url: srv.URL})
	require.NoError(t, err)
	assert.False(t, healthy)
}

func TestHTTPRefusedConnectionIsAbsence(t *testing.T) {
	// A server that has been shut down leaves a port that refuses
	// connections.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := HTTPHealthy(urlOf, nil)(context.Background(), urlCtx{url: url})
	require.Error(t, err)
	assert.True(t, goal.IsStateNotFound(err))
}
