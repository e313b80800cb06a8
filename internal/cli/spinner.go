package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a one-line status on w, normally stderr, so piped stdout
// stays clean. It stops on Stop or when its context is cancelled.
type Spinner struct {
	w      io.Writer
	ctx    context.Context
	cancel context.CancelFunc
	exited chan struct{}
	once   sync.Once

	started atomic.Bool
	stopped atomic.Bool

	mu      sync.Mutex
	message string
	width   int // widest line drawn, for clearing
}

func newSpinner(w io.Writer, message string) *Spinner {
	return newSpinnerWithContext(context.Background(), w, message)
}

func newSpinnerWithContext(ctx context.Context, w io.Writer, message string) *Spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &Spinner{w: w, ctx: ctx, cancel: cancel, exited: make(chan struct{}), message: message}
}

// SetMessage replaces the status text, e.g. to show a running count.
func (s *Spinner) SetMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

// Start draws frames every 80ms until the spinner stops.
func (s *Spinner) Start() {
	if s.started.Swap(true) {
		return
	}
	go func() {
		defer close(s.exited)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = max(s.width, len(s.message)+2)
	fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), styleDim.Render(s.message))
}

// Stop halts the animation and clears the line. It may be called more than
// once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.stopped.Store(true)
		s.cancel()
		if s.started.Load() {
			<-s.exited
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.width > 0 {
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width+2))
		}
	})
}

// Cancelled reports whether the parent context ended without Stop being
// called.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil && !s.stopped.Load()
}
