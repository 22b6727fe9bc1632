package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestRefreshConcurrencySingleWinner(t *testing.T) {
	backends := map[string]func(t *testing.T) *Engine{
		"memory": func(t *testing.T) *Engine {
			e, _, _ := newMemoryEngine(t, testConfig())
			return e
		},
		"redis": func(t *testing.T) *Engine {
			e, _ := newRedisEngine(t, testConfig())
			return e
		},
	}

	for name, newEngine := range backends {
		t.Run(name, func(t *testing.T) {
			engine := newEngine(t)
			mustSignup(t, engine, "alice", "Secret123!")
			pair, _ := mustLogin(t, engine, "alice", "Secret123!")

			const n = 16
			var wg sync.WaitGroup
			wg.Add(n)

			start := make(chan struct{})
			results := make(chan error, n)
			for i := 0; i < n; i++ {
				go func() {
					defer wg.Done()
					<-start
					_, err := engine.Refresh(context.Background(), pair.RefreshToken)
					results <- err
				}()
			}
			close(start)
			wg.Wait()
			close(results)

			success := 0
			reuse := 0
			for err := range results {
				if err == nil {
					success++
					continue
				}
				if errors.Is(err, ErrReuseDetected) {
					reuse++
					continue
				}
				t.Fatalf("unexpected refresh error: %v", err)
			}

			if success != 1 {
				t.Fatalf("expected exactly one refresh success, got %d", success)
			}
			if reuse != n-1 {
				t.Fatalf("expected %d reuse detections, got %d", n-1, reuse)
			}
			if got := engine.MetricsSnapshot().Counters[MetricRefreshReuseDetected]; got != n-1 {
				t.Fatalf("reuse metric = %d, want %d", got, n-1)
			}
		})
	}
}
