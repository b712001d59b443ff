package observability

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownRunsCleanupFuncs(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)
	server := &http.Server{Addr: "127.0.0.1:0"}
	sm := NewShutdownManager(logger, server, time.Second)

	var order []string
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		order = append(order, "second")
		return assert.AnError
	})
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		order = append(order, "third")
		return nil
	})

	require.NoError(t, sm.Shutdown(context.Background()))
	// a failing cleanup must not stop the rest
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestShutdownNilServer(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)
	sm := NewShutdownManager(logger, nil, 0)

	assert.NoError(t, sm.Shutdown(context.Background()))
}
