package probes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"

	"github.com/balena-io-experimental/goal-engine/pkg/goal"
)

// HTTPHealthy reads whether a GET on the derived URL answers with a 2xx
// status. A refused connection raises the state-absence signal (the
// service is simply not up yet); any other transport failure is fatal.
// A nil client falls back to http.DefaultClient.
func HTTPHealthy[C any](url func(C) string, client *http.Client) goal.State[C, bool] {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, c C) (bool, error) {
		u := url(c)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return false, fmt.Errorf("build request for %s: %w", u, err)
		}

		resp, err := client.Do(req)
		if err != nil {
			if errors.Is(err, syscall.ECONNREFUSED) {
				return false, goal.NewStateNotFound(fmt.Sprintf("%s is not accepting connections", u), err)
			}
			return false, fmt.Errorf("get %s: %w", u, err)
		}
		defer resp.Body.Close()

		return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
	}
}
