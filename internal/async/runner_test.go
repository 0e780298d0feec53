package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Start_RunsInBackground(t *testing.T) {
	// Given: a runner whose func blocks until released
	release := make(chan struct{})
	r := NewRunner(func(ctx context.Context, p *Progress) error {
		p.Listed(1)
		<-release
		p.FileDone(true)
		return nil
	}, nil)

	// When: started
	r.Start(context.Background())

	// Then: it runs without blocking the caller
	assert.True(t, r.IsRunning())
	close(release)
	require.NoError(t, r.Wait())
	assert.False(t, r.IsRunning())
	assert.Equal(t, string(StatusReady), r.Progress().Snapshot().Status)
}

func TestRunner_Start_Twice_RunsOnce(t *testing.T) {
	var calls atomic.Int32
	r := NewRunner(func(context.Context, *Progress) error {
		calls.Add(1)
		return nil
	}, nil)

	r.Start(context.Background())
	r.Start(context.Background())
	require.NoError(t, r.Wait())

	assert.Equal(t, int32(1), calls.Load())
}

func TestRunner_Error_MarksProgress(t *testing.T) {
	// Given: a failing func
	boom := errors.New("boom")
	r := NewRunner(func(context.Context, *Progress) error { return boom }, NewProgress())

	// When: it runs
	r.Start(context.Background())
	err := r.Wait()

	// Then: the error is returned and recorded
	assert.ErrorIs(t, err, boom)
	snap := r.Progress().Snapshot()
	assert.Equal(t, string(StatusError), snap.Status)
	assert.Equal(t, "boom", snap.ErrorMessage)
}

func TestRunner_Stop_CancelsContext(t *testing.T) {
	// Given: a func that waits for cancellation
	var canceled atomic.Bool
	r := NewRunner(func(ctx context.Context, _ *Progress) error {
		<-ctx.Done()
		canceled.Store(true)
		return ctx.Err()
	}, nil)
	r.Start(context.Background())

	// When: stopped
	r.Stop()

	// Then: the func saw cancellation and Stop waited for it
	assert.True(t, canceled.Load())
	assert.False(t, r.IsRunning())
	assert.ErrorIs(t, r.Wait(), context.Canceled)
	r.Stop()
}

func TestRunner_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(func(ctx context.Context, _ *Progress) error {
		<-ctx.Done()
		return nil
	}, nil)
	r.Start(ctx)
	cancel()

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("runner did not finish after parent cancel")
	}
	assert.ErrorIs(t, r.Wait(), context.Canceled)
}

func TestRunner_StopBeforeStart(t *testing.T) {
	r := NewRunner(nil, nil)
	r.Stop()
	assert.False(t, r.IsRunning())
}
