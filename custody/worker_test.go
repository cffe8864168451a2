package custody

import (
	"context"
	"errors"
	"testing"
	"time"
)

// Canceling ctx before the job is ever handed to a worker aborts the wait.
func TestRunCanceledBeforeDispatch(t *testing.T) {
	p := NewPool(0)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	block := make(chan struct{})
	defer close(block)
	// Keep the lone worker busy so our fn can never be dispatched.
	go Run(context.Background(), p, func() (int, error) {
		<-block
		return 0, nil
	})
	time.Sleep(10 * time.Millisecond)

	_, err := Run(ctx, p, func() (int, error) { return 1, nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// Once fn has been dispatched, canceling ctx must not cause Run to abandon
// the real result: the caller still needs it to zeroize correctly.
func TestRunWaitsOutCancellationAfterDispatch(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	resCh := make(chan struct {
		v   int
		err error
	}, 1)
	go func() {
		v, err := Run(ctx, p, func() (int, error) {
			close(started)
			<-release
			return 42, nil
		})
		resCh <- struct {
			v   int
			err error
		}{v, err}
	}()

	<-started
	cancel()
	// Give the canceled ctx every chance to make Run return early before
	// the job actually finishes.
	time.Sleep(10 * time.Millisecond)
	close(release)

	select {
	case r := <-resCh:
		if r.err != nil {
			t.Fatalf("expected the real result despite cancellation, got err %v", r.err)
		}
		if r.v != 42 {
			t.Fatalf("expected 42, got %d", r.v)
		}
	case <-time.After(time.Second):
		t.Fatal("Run never returned")
	}
}
