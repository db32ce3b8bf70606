package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// spinner animates a progress message on one terminal line until stopped or
// until its parent context ends.
type spinner struct {
	w       io.Writer
	message string

	parent   context.Context
	ctx      context.Context
	stop     context.CancelFunc
	finished chan struct{}
	start    sync.Once
}

func newSpinner(ctx context.Context, w io.Writer, message string) *spinner {
	inner, stop := context.WithCancel(ctx)
	return &spinner{
		w:        w,
		message:  message,
		parent:   ctx,
		ctx:      inner,
		stop:     stop,
		finished: make(chan struct{}),
	}
}

// interactive reports whether w is a terminal worth animating.
func interactive(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// Start begins the animation. Calling it more than once has no effect.
func (s *spinner) Start() {
	s.start.Do(func() { go s.run() })
}

func (s *spinner) run() {
	defer close(s.finished)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
			return
		case <-ticker.C:
			frame := spinnerFrames[i%len(spinnerFrames)]
			fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
		}
	}
}

// Stop ends the animation, clears the line and waits for the drawing
// goroutine. It is safe to call repeatedly, and before Start.
func (s *spinner) Stop() {
	s.stop()
	started := true
	s.start.Do(func() { started = false })
	if started {
		<-s.finished
	}
}

// Cancelled reports whether the parent context ended.
func (s *spinner) Cancelled() bool {
	return s.parent.Err() != nil
}

// withSpinner runs fn while a spinner animates on w. Nothing is drawn when w
// is not a terminal.
func withSpinner[T any](ctx context.Context, w io.Writer, message string, fn func() (T, error)) (T, error) {
	if !interactive(w) {
		return fn()
	}
	s := newSpinner(ctx, w, message)
	s.Start()
	defer s.Stop()
	return fn()
}
