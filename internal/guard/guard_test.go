// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package guard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// TestDo_TimesOutWithoutWaitingForCall verifies a 5s call under a 1s deadline
// returns a timeout at roughly 1s.
func TestDo_TimesOutWithoutWaitingForCall(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	start := time.Now()
	_, err := Do(context.Background(), "slow", time.Second, func(context.Context) (string, error) {
		select {
		case <-time.After(5 * time.Second):
		case <-release:
		}
		return "late", nil
	})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	var te *TimeoutError
	if !errors.As(err, &te) || te.Op != "slow" {
		t.Errorf("err = %#v, want *TimeoutError for op slow", err)
	}
	if elapsed < 900*time.Millisecond || elapsed > 3*time.Second {
		t.Errorf("elapsed = %s, want about 1s", elapsed)
	}
}

// TestDo_AbandonedCallKeepsRunning verifies the guard does not stop the call.
func TestDo_AbandonedCallKeepsRunning(t *testing.T) {
	var finished atomic.Bool
	done := make(chan struct{})

	_, err := Do(context.Background(), "leak", 20*time.Millisecond, func(context.Context) (int, error) {
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		close(done)
		return 1, nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if finished.Load() {
		t.Fatal("call finished before the guard returned")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("abandoned call never completed")
	}
	if !finished.Load() {
		t.Error("abandoned call should have run to completion")
	}
}

func TestDo_PropagatesResult(t *testing.T) {
	got, err := Do(context.Background(), "fast", time.Second, func(context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want ok", got)
	}
}

func TestDo_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Do(context.Background(), "failing", time.Second, func(context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("a failed call must not look like a timeout")
	}
}

func TestDo_RecoversPanic(t *testing.T) {
	_, err := Do(context.Background(), "panicky", time.Second, func(context.Context) (int, error) {
		panic("kaboom")
	})
	if err == nil {
		t.Fatal("expected error from panicking call")
	}
}

func TestDo_CancelsCallContextOnTimeout(t *testing.T) {
	observed := make(chan error, 1)
	_, _ = Do(context.Background(), "coop", 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		observed <- ctx.Err()
		return 0, ctx.Err()
	})

	select {
	case err := <-observed:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("call ctx err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("call context was never cancelled")
	}
}

func TestDo_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, "cancelled", 0, func(ctx context.Context) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRun_NoDeadline(t *testing.T) {
	called := false
	err := Run(context.Background(), "plain", 0, func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Errorf("Run() err = %v, called = %v", err, called)
	}
}
