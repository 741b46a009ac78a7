package logging

import "testing"

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		if l := New(level); l == nil || l.Logger == nil {
			t.Fatalf("New(%q) returned nil logger", level)
		}
	}
}

func TestWithComponent(t *testing.T) {
	l := Default().WithComponent("sms")
	if l == nil || l.Logger == nil {
		t.Fatal("WithComponent returned nil logger")
	}
	var nilLogger *Logger
	if got := nilLogger.WithComponent("sms"); got == nil {
		t.Fatal("nil logger should fall back to default")
	}
}
