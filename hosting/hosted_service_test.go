package hosting

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocrud/ioc/logging"
)

type recordingService struct {
	started atomic.Int32
	stopped atomic.Int32
	startCh chan struct{}
	fail    error
}

func newRecordingService(fail error) *recordingService {
	return &recordingService{startCh: make(chan struct{}), fail: fail}
}

func (s *recordingService) Start(ctx context.Context) error {
	s.started.Add(1)
	if s.fail != nil {
		return s.fail
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *recordingService) Stop(ctx context.Context) error {
	s.stopped.Add(1)
	return nil
}

func TestManagerStartStop(t *testing.T) {
	mgr := NewHostedServiceManager(logging.NewNopLogger())
	a := newRecordingService(nil)
	b := newRecordingService(nil)
	mgr.Add(a)
	mgr.Add(b)

	if mgr.Count() != 2 {
		t.Fatalf("expected 2 services, got %d", mgr.Count())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := mgr.StartAll(ctx)

	cancel()
	mgr.Wait()

	if a.started.Load() != 1 || b.started.Load() != 1 {
		t.Error("expected both services started exactly once")
	}
	// context 取消不算启动错误
	select {
	case err := <-errCh:
		t.Errorf("unexpected error from cancelled services: %v", err)
	default:
	}

	if err := mgr.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if a.stopped.Load() != 1 || b.stopped.Load() != 1 {
		t.Error("expected both services stopped")
	}
}

func TestManagerReportsStartError(t *testing.T) {
	mgr := NewHostedServiceManager(logging.NewNopLogger())
	boom := errors.New("boom")
	svc := &recordingService{fail: boom}
	mgr.Add(svc)

	errCh := mgr.StartAll(context.Background())
	mgr.Wait()

	select {
	case err := <-errCh:
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an error on the channel")
	}
}

func TestBackgroundServiceStopSignal(t *testing.T) {
	svc := NewBackgroundService("worker", logging.NewNopLogger())

	done := make(chan error, 1)
	go func() {
		done <- svc.Start(context.Background())
	}()

	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
	if !svc.ShouldStop() {
		t.Error("ShouldStop should report true after Stop")
	}
}

func TestTimedHostedService(t *testing.T) {
	var runs atomic.Int32
	svc := NewTimedHostedService("ticker", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, logging.NewNopLogger())

	go svc.Start(context.Background())

	deadline := time.After(time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("timed task did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}
