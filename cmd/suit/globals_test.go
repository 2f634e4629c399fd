package main

import (
	"bytes"
	"context"
	"os"
	"syscall"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestWatchSignals(t *testing.T) {
	t.Run("normal exit is silent", func(t *testing.T) {
		var buf bytes.Buffer
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		watchSignals(ctx, cancel, make(chan os.Signal), zerolog.New(&buf))

		assert.Empty(t, buf.String())
	})

	t.Run("signal cancels and logs", func(t *testing.T) {
		var buf bytes.Buffer
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigs := make(chan os.Signal, 1)
		sigs <- syscall.SIGTERM
		watchSignals(ctx, cancel, sigs, zerolog.New(&buf))

		assert.ErrorIs(t, ctx.Err(), context.Canceled)
		assert.Contains(t, buf.String(), "shutting down gracefully")
		assert.Contains(t, buf.String(), "terminated")
	})
}

func TestSignalContext_StopIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	ctx, stop := signalContext(zerolog.New(&buf))
	stop()

	<-ctx.Done()
	assert.NotContains(t, buf.String(), "shutting down")
}
