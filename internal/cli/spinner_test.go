package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestSpinnerDrawsAndClears(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, "Rendering svg")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.SetMessage("Rendering png")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Rendering svg") || !strings.Contains(out, "Rendering png") {
		t.Errorf("spinner output lacks its messages: %q", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Error("Stop should leave the cursor at the start of a cleared line")
	}
	if s.Cancelled() {
		t.Error("a stopped spinner is not cancelled")
	}
}

func TestSpinnerCancelledByContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinnerWithContext(ctx, io.Discard, "Verifying fixtures")
	s.Start()
	cancel()

	if !s.Cancelled() {
		t.Error("spinner should report cancellation of its parent context")
	}
	s.Stop()
}

func TestSpinnerStopTwice(t *testing.T) {
	s := newSpinner(io.Discard, "Evaluating")
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, "Evaluating")
	s.Stop()
	if buf.Len() != 0 {
		t.Errorf("a spinner that never started should write nothing, got %q", buf.String())
	}
}
