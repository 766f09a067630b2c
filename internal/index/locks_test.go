package index

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestVaultLocks(t *testing.T) {
	t.Run("second acquire waits for release", func(t *testing.T) {
		locks := NewVaultLocks()
		release, err := locks.Acquire(context.Background(), "v1")
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}

		acquired := make(chan struct{})
		go func() {
			r, err := locks.Acquire(context.Background(), "v1")
			if err == nil {
				r()
			}
			close(acquired)
		}()

		select {
		case <-acquired:
			t.Fatal("lock acquired while held")
		case <-time.After(20 * time.Millisecond):
		}

		release()
		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("lock not acquired after release")
		}
	})

	t.Run("vaults are independent", func(t *testing.T) {
		locks := NewVaultLocks()
		r1, err := locks.Acquire(context.Background(), "v1")
		if err != nil {
			t.Fatal(err)
		}
		defer r1()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		r2, err := locks.Acquire(ctx, "v2")
		if err != nil {
			t.Fatalf("Acquire(v2) error = %v", err)
		}
		r2()
	})

	t.Run("context cancels the wait", func(t *testing.T) {
		locks := NewVaultLocks()
		release, _ := locks.Acquire(context.Background(), "v1")
		defer release()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if _, err := locks.Acquire(ctx, "v1"); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Acquire() error = %v, want deadline exceeded", err)
		}
	})

	t.Run("double release is harmless", func(t *testing.T) {
		locks := NewVaultLocks()
		release, _ := locks.Acquire(context.Background(), "v1")
		release()
		release()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		r, err := locks.Acquire(ctx, "v1")
		if err != nil {
			t.Fatalf("Acquire() after release error = %v", err)
		}
		r()
	})
}
