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

// Package guard bounds a single call to a hard wall-clock deadline.
//
// The call runs on its own goroutine. When the deadline passes first, Do
// returns a *TimeoutError straight away and abandons the goroutine: the
// underlying work may keep running to completion and its result is dropped.
// Callers must read a timeout as "no answer within budget", not as "the
// operation stopped".
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is matched by every *TimeoutError.
var ErrTimeout = errors.New("guard: deadline exceeded")

// TimeoutError reports which operation ran out of time.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
}

// Is makes errors.Is(err, ErrTimeout) true.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

type result[T any] struct {
	val T
	err error
}

// Do runs fn and waits at most d for it to finish.
//
// fn receives a context that is cancelled once Do stops waiting, so backends
// that honour cancellation can stop early. Do never waits for that to happen.
// A panic inside fn is recovered and returned as an error. A non-positive d
// disables the deadline; cancellation of ctx is always honoured.
func Do[T any](ctx context.Context, op string, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithCancel(ctx)

	// Buffered so an abandoned goroutine can still deliver and exit.
	done := make(chan result[T], 1)
	go func() {
		var r result[T]
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("%s panicked: %v", op, p)
			}
			done <- r
		}()
		r.val, r.err = fn(callCtx)
	}()

	var expired <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		expired = timer.C
	}

	var zero T
	select {
	case r := <-done:
		cancel()
		return r.val, r.err
	case <-expired:
		cancel()
		return zero, &TimeoutError{Op: op, After: d}
	case <-ctx.Done():
		cancel()
		return zero, ctx.Err()
	}
}

// Run is Do for calls without a result value.
func Run(ctx context.Context, op string, d time.Duration, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, op, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
