package observability

import (
	"context"
	"errors"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *Logger {
	return NewLogger(ErrorLevel, io.Discard)
}

func TestShutdownManagerDefaults(t *testing.T) {
	sm := NewShutdownManager(quietLogger(), nil, 0)
	assert.Equal(t, 30*time.Second, sm.shutdownTimeout)
}

func TestWaitForShutdownRunsRegisteredFuncs(t *testing.T) {
	sm := NewShutdownManager(quietLogger(), nil, 5*time.Second)

	ran := make(chan string, 2)
	sm.RegisterShutdownFunc("postgres", func(ctx context.Context) error {
		ran <- "postgres"
		return nil
	})
	sm.RegisterShutdownFunc("redis", func(ctx context.Context) error {
		ran <- "redis"
		return nil
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- sm.WaitForShutdown()
	}()

	// Let WaitForShutdown install its signal handler before signaling
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}

	close(ran)
	var names []string
	for name := range ran {
		names = append(names, name)
	}
	assert.ElementsMatch(t, []string{"postgres", "redis"}, names)
}

func TestWaitForShutdownReportsErrors(t *testing.T) {
	sm := NewShutdownManager(quietLogger(), nil, 5*time.Second)
	sm.RegisterShutdownFunc("broken", func(ctx context.Context) error {
		return errors.New("close failed")
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- sm.WaitForShutdown()
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
}
