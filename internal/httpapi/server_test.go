// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package httpapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Lifecycle(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	s := NewServer("127.0.0.1:0", handler, nil)
	assert.Empty(t, s.Addr())

	errCh, err := s.Start()
	require.NoError(t, err)

	_, err = s.Start()
	assert.Error(t, err, "double start")

	resp, err := http.Get("http://" + s.Addr() + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx), "stop is idempotent")

	select {
	case serveErr, ok := <-errCh:
		assert.False(t, ok && serveErr != nil, "unexpected serve error: %v", serveErr)
	case <-time.After(2 * time.Second):
		t.Fatal("error channel not closed after stop")
	}
}
