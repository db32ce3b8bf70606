package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestSpinnerBasic(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(context.Background(), &buf, "Locking...")
	s.Start()
	time.Sleep(250 * time.Millisecond)
	s.Stop()

	if !strings.Contains(buf.String(), "Locking...") {
		t.Error("spinner should draw its message")
	}
	if !strings.HasSuffix(buf.String(), "\r") {
		t.Error("Stop should clear the line")
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinner(ctx, io.Discard, "Testing with context...")
	s.Start()

	// Cancel the context
	cancel()

	// Give goroutine time to notice cancellation
	time.Sleep(100 * time.Millisecond)

	// Spinner should be cancelled
	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
}

func TestSpinnerWithTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newSpinner(ctx, io.Discard, "Testing with timeout...")
	s.Start()

	// Wait for timeout
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context timeout")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner(context.Background(), io.Discard, "Testing idempotent stop...")
	s.Start()

	// Stop multiple times should not panic
	s.Stop()
	s.Stop()
	s.Stop()
}

func TestWithSpinnerSkipsNonTerminals(t *testing.T) {
	var buf bytes.Buffer
	got, err := withSpinner(context.Background(), &buf, "Working...", func() (int, error) {
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Errorf("withSpinner = %d, %v", got, err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be drawn on a buffer, got %q", buf.String())
	}

	want := errors.New("boom")
	if _, err := withSpinner(context.Background(), &buf, "Working...", func() (int, error) {
		return 0, want
	}); !errors.Is(err, want) {
		t.Errorf("error should pass through, got %v", err)
	}
}

func TestSpinnerStopBeforeStart(t *testing.T) {
	s := newSpinner(context.Background(), io.Discard, "never drawn")
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop before Start should not block")
	}
}
