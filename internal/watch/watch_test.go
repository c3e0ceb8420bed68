package watch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/prisma-engine/internal/watch"
)

func TestRunsOnChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "query.graphql")
	require.NoError(t, os.WriteFile(file, []byte("{ findManyUser { id } }"), 0o644))

	var runs atomic.Int32
	w, err := watch.New(file, func(context.Context) error {
		runs.Add(1)
		return nil
	}, watch.WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(file, []byte("{ countUser }"), 0o644))
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestInitialFailureStops(t *testing.T) {
	file := filepath.Join(t.TempDir(), "query.graphql")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	boom := errors.New("boom")
	w, err := watch.New(file, func(context.Context) error { return boom })
	require.NoError(t, err)
	assert.ErrorIs(t, w.Run(context.Background()), boom)
}

func TestMissingDirectory(t *testing.T) {
	_, err := watch.New(filepath.Join(t.TempDir(), "nope", "q.graphql"), func(context.Context) error { return nil })
	assert.Error(t, err)
}
