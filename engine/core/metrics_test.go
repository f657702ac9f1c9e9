package core

import (
	"io"
	"testing"
	"time"
)

func TestMetricsAverageAfterFullWindow(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT)-1; i++ {
		m.Update(0.010)
	}
	if m.FrameTime() != 0 {
		t.Fatalf("average published before the window filled: %f", m.FrameTime())
	}
	m.Update(0.010)
	if got := m.FrameTime(); got < 9.999 || got > 10.001 {
		t.Fatalf("FrameTime() = %f, want 10ms", got)
	}

	// A second window must not accumulate on top of the first.
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.020)
	}
	if got := m.FrameTime(); got < 19.999 || got > 20.001 {
		t.Fatalf("FrameTime() = %f, want 20ms", got)
	}
}

func TestMetricsFPS(t *testing.T) {
	m := NewMetrics()
	// 1/128 s is exact in binary, so 128 frames add up to exactly one second.
	for i := 0; i < 127; i++ {
		m.Update(1.0 / 128)
	}
	if m.FPS() != 0 {
		t.Fatalf("FPS published before a full second: %f", m.FPS())
	}
	m.Update(1.0 / 128)
	if got := m.FPS(); got != 128 {
		t.Fatalf("FPS() = %f, want 128", got)
	}
}

func TestClockElapsed(t *testing.T) {
	base := time.Unix(1000, 0)
	now := base
	c := &Clock{now: func() time.Time { return now }}

	c.Update()
	if c.Elapsed() != 0 {
		t.Fatal("a clock that was never started must not advance")
	}

	c.Start()
	now = base.Add(1500 * time.Millisecond)
	c.Update()
	if got := c.Elapsed(); got != 1.5 {
		t.Fatalf("Elapsed() = %f, want 1.5", got)
	}

	c.Stop()
	now = base.Add(3 * time.Second)
	c.Update()
	if got := c.Elapsed(); got != 1.5 {
		t.Fatalf("stopped clock moved to %f", got)
	}
}

func TestLogSetLevel(t *testing.T) {
	LogSetOutput(io.Discard)
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		if err := LogSetLevel(lvl); err != nil {
			t.Errorf("LogSetLevel(%q): %v", lvl, err)
		}
	}
	if err := LogSetLevel("loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
	_ = LogSetLevel("info")
}
