package shutdownqueue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func reset() {
	mu.Lock()
	defer mu.Unlock()
	tasks = nil
	closed = false
}

func TestShutdown_RunsLIFO(t *testing.T) {
	reset()

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		Add(func(context.Context) error {
			order = append(order, i)
			return nil
		})
	}

	if err := Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	want := []int{3, 2, 1}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order: want %v, got %v", want, order)
		}
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	reset()

	runs := 0
	Add(func(context.Context) error {
		runs++
		return nil
	})

	_ = Shutdown(context.Background())
	_ = Shutdown(context.Background())

	if runs != 1 {
		t.Fatalf("task ran %d times, want 1", runs)
	}
}

func TestShutdown_AggregatesErrorsAndRecoversPanics(t *testing.T) {
	reset()

	boom := errors.New("boom")
	Add(func(context.Context) error { return boom })
	Add(func(context.Context) error { panic("oops") })

	err := Shutdown(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("want joined error containing boom, got %v", err)
	}
}

func TestShutdown_StopsOnCanceledContext(t *testing.T) {
	reset()

	ran := false
	Add(func(context.Context) error {
		ran = true
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := Shutdown(ctx)
	if err == nil {
		t.Fatal("want context error, got nil")
	}
	if ran {
		t.Fatal("task ran despite canceled context")
	}
}
