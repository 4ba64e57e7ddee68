package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, KindVideo, map[string]any{"width": 1080, "height": 1920})
	require.NoError(t, err)
	assert.Len(t, job.ID, 36)
	assert.Equal(t, StatusPending, job.Status)
	assert.JSONEq(t, `{"width":1080,"height":1920}`, string(job.Request))
	assert.Nil(t, job.StartedAt)

	require.NoError(t, store.MarkRunning(ctx, job.ID))
	require.NoError(t, store.MarkDone(ctx, job.ID, "/out/videos/a.mp4"))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)
	assert.True(t, got.Status.Terminal())
	assert.Equal(t, "/out/videos/a.mp4", got.OutputPath)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.FinishedAt)
	assert.False(t, got.FinishedAt.Before(*got.StartedAt))
}

func TestStoreInvalidTransitions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, KindSlideshow, nil)
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, job.ID, errors.New("ffmpeg exploded")))

	assert.ErrorIs(t, store.MarkRunning(ctx, job.ID), ErrInvalidTransition)
	assert.ErrorIs(t, store.MarkDone(ctx, job.ID, "x"), ErrInvalidTransition)

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "ffmpeg exploded", got.Error)

	assert.ErrorIs(t, store.MarkRunning(ctx, "missing"), ErrNotFound)
	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	store.now = func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Millisecond) }

	var ids []string
	for i := 0; i < 3; i++ {
		job, err := store.Create(ctx, KindVideo, i)
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	jobs, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{jobs[0].ID, jobs[1].ID, jobs[2].ID})

	jobs, err = store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestStoreReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jobs.db")
	store, err := Open(path)
	require.NoError(t, err)
	job, err := store.Create(context.Background(), KindVideo, "req")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.NoError(t, reopened.Ping(context.Background()))
}

func TestRunnerRun(t *testing.T) {
	runner := NewRunner(openTestStore(t))

	job, err := runner.Run(context.Background(), KindVideo, "spec", func(ctx context.Context) (string, error) {
		return "/out/v.mp4", nil
	})
	require.NoError(t, err)
	assert.Equal(t, StatusDone, job.Status)
	assert.Equal(t, "/out/v.mp4", job.OutputPath)

	failure := orchestrator.NewFFmpegError(errors.New("exit 1"))
	job, err = runner.Run(context.Background(), KindSlideshow, "spec", func(ctx context.Context) (string, error) {
		return "", failure
	})
	assert.ErrorIs(t, err, failure)
	require.NotNil(t, job)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Contains(t, job.Error, "FFMPEG_FAILED")
}

func TestRunnerSubmitAndShutdown(t *testing.T) {
	runner := NewRunner(openTestStore(t))
	release := make(chan struct{})

	job, err := runner.Submit(context.Background(), KindSlideshow, "spec", func(ctx context.Context) (string, error) {
		select {
		case <-release:
			return "/out/s.mp4", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, job.Status)

	close(release)
	require.NoError(t, runner.Shutdown(context.Background()))

	got, err := runner.Store().Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)

	_, err = runner.Submit(context.Background(), KindVideo, "late", func(ctx context.Context) (string, error) { return "", nil })
	assert.ErrorIs(t, err, ErrRunnerClosed)
}

func TestRunnerSubmitDuringShutdown(t *testing.T) {
	runner := NewRunner(openTestStore(t))
	const submitters = 8

	var wg sync.WaitGroup
	ids := make(chan string, submitters)
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := runner.Submit(context.Background(), KindVideo, "race", func(ctx context.Context) (string, error) {
				return "/out/r.mp4", nil
			})
			if err != nil {
				assert.ErrorIs(t, err, ErrRunnerClosed)
				return
			}
			ids <- job.ID
		}()
	}
	require.NoError(t, runner.Shutdown(context.Background()))
	wg.Wait()
	close(ids)

	// accepted jobs are finished once Shutdown returns
	for id := range ids {
		got, err := runner.Store().Get(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, got.Status.Terminal(), "job %s status %s", id, got.Status)
	}
}

func TestRunnerShutdownCancelsRenders(t *testing.T) {
	runner := NewRunner(openTestStore(t))
	started := make(chan struct{})

	job, err := runner.Submit(context.Background(), KindVideo, "spec", func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})
	require.NoError(t, err)
	<-started

	require.NoError(t, runner.Shutdown(context.Background()))
	got, err := runner.Store().Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, context.Canceled.Error(), got.Error)
}
