package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWriteGate(t *testing.T) {
	t.Run("times out while another mutation holds the gate", func(t *testing.T) {
		gate := NewWriteGate(50 * time.Millisecond)
		held := make(chan struct{})
		release := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- gate.Do(context.Background(), func() error {
				close(held)
				<-release
				return nil
			})
		}()
		<-held

		ran := false
		err := gate.Do(context.Background(), func() error {
			ran = true
			return nil
		})
		if !errors.Is(err, ErrWriteGateTimeout) {
			t.Fatalf("expected ErrWriteGateTimeout, got %v", err)
		}
		if !errors.Is(err, ErrBusy) {
			t.Errorf("expected the timeout to be a busy error")
		}
		if ran {
			t.Errorf("fn must not run without the gate")
		}

		close(release)
		if err := <-done; err != nil {
			t.Fatalf("holder failed: %v", err)
		}
		if err := gate.Do(context.Background(), func() error { return nil }); err != nil {
			t.Errorf("expected the gate to be free again, got %v", err)
		}
	})

	t.Run("serializes mutations", func(t *testing.T) {
		gate := NewWriteGate(5 * time.Second)
		var inside, maxInside int32
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			go func() {
				errs <- gate.Do(context.Background(), func() error {
					n := atomic.AddInt32(&inside, 1)
					for {
						m := atomic.LoadInt32(&maxInside)
						if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
							break
						}
					}
					time.Sleep(time.Millisecond)
					atomic.AddInt32(&inside, -1)
					return nil
				})
			}()
		}
		for i := 0; i < 10; i++ {
			if err := <-errs; err != nil {
				t.Fatalf("Do failed: %v", err)
			}
		}
		if maxInside != 1 {
			t.Errorf("expected at most one holder, saw %d", maxInside)
		}
	})

	t.Run("returns the error of fn", func(t *testing.T) {
		gate := NewWriteGate(time.Second)
		boom := errors.New("boom")
		if err := gate.Do(context.Background(), func() error { return boom }); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})
}
