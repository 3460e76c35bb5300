package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func counting(name string, interval time.Duration, deferred bool, n *atomic.Int32) Job {
	return Job{Name: name, Interval: interval, Deferred: deferred, Run: func(context.Context) error {
		n.Add(1)
		return nil
	}}
}

func TestRunner_RunsImmediatelyAndOnTick(t *testing.T) {
	var n atomic.Int32
	r := New(zap.NewNop())
	r.Register(counting("tick", 20*time.Millisecond, false, &n))
	r.Start()

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, r.Stop(context.Background()))

	after := n.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, n.Load(), "job ran after Stop")
}

func TestRunner_DeferredWaitsOneInterval(t *testing.T) {
	var n atomic.Int32
	r := New(zap.NewNop())
	r.Register(counting("digest", time.Hour, true, &n))
	r.Start()
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, r.Stop(context.Background()))

	assert.Zero(t, n.Load())
}

func TestRunner_FailuresAndPanicsKeepLooping(t *testing.T) {
	var calls atomic.Int32
	r := New(zap.NewNop())
	r.Register(Job{Name: "flaky", Interval: 10 * time.Millisecond, Run: func(context.Context) error {
		if calls.Add(1)%2 == 0 {
			panic("boom")
		}
		return errors.New("nope")
	}})
	r.Start()

	assert.Eventually(t, func() bool { return calls.Load() >= 4 }, time.Second, 5*time.Millisecond)
	require.NoError(t, r.Stop(context.Background()))
}

func TestRunner_StopTimesOutOnStuckJob(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	r := New(zap.NewNop())
	r.Register(Job{Name: "stuck", Interval: time.Hour, Run: func(context.Context) error {
		<-release
		return nil
	}})
	r.Start()
	assert.Eventually(t, func() bool { return len(r.Running()) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Stop(ctx), context.DeadlineExceeded)
	assert.Equal(t, []string{"stuck"}, r.Running())
}

func TestRunner_StopCancelsJobContext(t *testing.T) {
	sawCancel := make(chan struct{})
	r := New(zap.NewNop())
	r.Register(Job{Name: "waits", Interval: time.Hour, Run: func(ctx context.Context) error {
		<-ctx.Done()
		close(sawCancel)
		return ctx.Err()
	}})
	r.Start()
	assert.Eventually(t, func() bool { return len(r.Running()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Stop(context.Background()))
	select {
	case <-sawCancel:
	default:
		t.Fatal("job context was not cancelled")
	}
}

func TestRunner_StopBeforeStart(t *testing.T) {
	assert.NoError(t, New(zap.NewNop()).Stop(context.Background()))
}

func TestRunner_StopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var n atomic.Int32
	r := New(zap.NewNop())
	r.Register(counting("a", 5*time.Millisecond, false, &n))
	r.Register(counting("b", time.Hour, true, &n))
	r.Start()
	assert.Eventually(t, func() bool { return n.Load() >= 2 }, time.Second, time.Millisecond)
	require.NoError(t, r.Stop(context.Background()))
}
