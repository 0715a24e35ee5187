package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
)

func newTestPool(t *testing.T, workers int) *Pool {
	t.Helper()
	pool := NewPool(workers, arbor.NewLogger())
	pool.Start()
	t.Cleanup(pool.Stop)
	return pool
}

func TestSubmitDeliversResult(t *testing.T) {
	pool := newTestPool(t, 2)

	done := pool.Submit(context.Background(), func(ctx context.Context) (string, error) {
		return "result", nil
	})

	select {
	case result := <-done:
		if result.Err != nil || result.Value != "result" {
			t.Errorf("unexpected result %+v", result)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for result")
	}
}

func TestSubmitDeliversError(t *testing.T) {
	pool := newTestPool(t, 1)

	wantErr := fmt.Errorf("generation failed")
	done := pool.Submit(context.Background(), func(ctx context.Context) (string, error) {
		return "", wantErr
	})

	select {
	case result := <-done:
		if result.Err != wantErr {
			t.Errorf("error = %v, want %v", result.Err, wantErr)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for result")
	}
}

func TestConcurrencyBounded(t *testing.T) {
	pool := newTestPool(t, 2)

	var running, peak atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		done := pool.Submit(context.Background(), func(ctx context.Context) (string, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return "", nil
		})
		go func() {
			defer wg.Done()
			<-done
		}()
	}
	wg.Wait()

	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency %d exceeds pool size 2", p)
	}
}

func TestAbandonedTaskDoesNotBlockWorker(t *testing.T) {
	pool := newTestPool(t, 1)

	// The first task's result is never read. The buffered Done channel
	// must absorb it so the worker stays free for the next task.
	pool.Submit(context.Background(), func(ctx context.Context) (string, error) {
		return "abandoned", nil
	})

	done := pool.Submit(context.Background(), func(ctx context.Context) (string, error) {
		return "second", nil
	})

	select {
	case result := <-done:
		if result.Value != "second" {
			t.Errorf("unexpected result %+v", result)
		}
	case <-time.After(time.Second):
		t.Fatal("worker blocked by abandoned task")
	}
}
