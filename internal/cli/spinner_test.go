package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/forevershiningA/memorial/pkg/personalize"
)

func TestSpinnerDrawsAndClears(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinnerTo(context.Background(), &buf, "Reading photo.jpg...")
	s.Start()
	time.Sleep(2 * spinnerInterval)
	s.Update("Compositing photo.jpg into oval mask...")
	time.Sleep(2 * spinnerInterval)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Reading photo.jpg...") || !strings.Contains(out, "oval mask") {
		t.Errorf("spinner output missing phases: %q", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Error("Stop should leave the cursor at a cleared line")
	}
	if s.Cancelled() {
		t.Error("a plain Stop is not a cancellation")
	}
}

func TestSpinnerCancelledByContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var buf bytes.Buffer
	s := newSpinnerTo(ctx, &buf, "Rendering family-doe...")
	s.Start()
	cancel()
	s.Stop()
	if !s.Cancelled() {
		t.Error("spinner should report the interrupt")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinnerTo(context.Background(), &buf, "Personalizing...")
	s.Start()
	s.Stop()
	n := buf.Len()
	s.Stop()
	s.StopWithError("Personalization failed")
	if buf.Len() != n {
		t.Error("extra stops must not redraw or clear again")
	}
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinnerTo(context.Background(), &buf, "unused")
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a spinner that never started")
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestPersonalizeStatus(t *testing.T) {
	tests := []struct {
		mask string
		want string
	}{
		{"", "Compositing grandma.jpg..."},
		{"heart", "Compositing grandma.jpg into heart mask..."},
	}
	for _, tt := range tests {
		got := personalizeStatus("grandma.jpg", personalize.CropSpec{Mask: tt.mask})
		if got != tt.want {
			t.Errorf("personalizeStatus(mask %q) = %q, want %q", tt.mask, got, tt.want)
		}
	}
}
