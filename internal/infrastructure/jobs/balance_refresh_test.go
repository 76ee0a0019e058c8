package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type refresherStub struct {
	calls   atomic.Int32
	changed int
	err     error
}

func (s *refresherStub) RefreshAll(_ context.Context) (int, error) {
	s.calls.Add(1)
	return s.changed, s.err
}

func TestRefresh_Success(t *testing.T) {
	stub := &refresherStub{changed: 2}
	job := &BalanceRefreshJob{wallets: stub, interval: time.Millisecond, stop: make(chan struct{})}

	job.refresh(context.Background())
	require.Equal(t, int32(1), stub.calls.Load())
}

func TestRefresh_ErrorIsLoggedNotFatal(t *testing.T) {
	stub := &refresherStub{changed: 1, err: errors.New("ledger down")}
	job := &BalanceRefreshJob{wallets: stub, interval: time.Millisecond, stop: make(chan struct{})}

	require.NotPanics(t, func() { job.refresh(context.Background()) })
	require.Equal(t, int32(1), stub.calls.Load())
}

func TestNewBalanceRefreshJob_DefaultInterval(t *testing.T) {
	job := NewBalanceRefreshJob(&refresherStub{}, 0)
	require.Equal(t, 5*time.Minute, job.interval)

	job = NewBalanceRefreshJob(&refresherStub{}, time.Second)
	require.Equal(t, time.Second, job.interval)
}

func TestStart_TicksUntilStopped(t *testing.T) {
	stub := &refresherStub{}
	job := &BalanceRefreshJob{wallets: stub, interval: time.Millisecond, stop: make(chan struct{})}

	done := make(chan struct{})
	go func() {
		job.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return stub.calls.Load() >= 2 }, time.Second, time.Millisecond)
	job.Stop()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("job did not stop on Stop()")
	}
}

func TestStart_StopsByContext(t *testing.T) {
	job := &BalanceRefreshJob{wallets: &refresherStub{}, interval: time.Hour, stop: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("job did not stop on context cancel")
	}
}
