package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func withCapturedOutput(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	savedOut := out
	savedLevel := currentLevel
	out = log.New(&buf, "", 0)
	defer func() {
		out = savedOut
		currentLevel = savedLevel
	}()

	fn()
	return buf.String()
}

func TestDebugRespectsLevel(t *testing.T) {
	got := withCapturedOutput(t, func() {
		currentLevel = LevelInfo
		Debug("should not appear %d", 1)
	})
	if got != "" {
		t.Errorf("expected no output at LevelInfo, got %q", got)
	}

	got = withCapturedOutput(t, func() {
		currentLevel = LevelDebug
		Debug("visible %d", 2)
	})
	if !strings.Contains(got, "[DEBUG] visible 2") {
		t.Errorf("expected debug message, got %q", got)
	}
}

func TestInfoAndErrorLevelGating(t *testing.T) {
	got := withCapturedOutput(t, func() {
		currentLevel = LevelError
		Info("hidden")
		Error("shown")
	})
	if strings.Contains(got, "hidden") {
		t.Error("expected Info to be suppressed at LevelError")
	}
	if !strings.Contains(got, "[ERROR] shown") {
		t.Errorf("expected error message, got %q", got)
	}
}

func TestSetLevelSilentSuppressesEverything(t *testing.T) {
	got := withCapturedOutput(t, func() {
		SetLevel(LevelSilent)
		Error("should be gated by currentLevel check")
	})
	if got != "" {
		t.Errorf("expected no output at LevelSilent, got %q", got)
	}
	// restore the standard logger's output stream for any other test relying
	// on it.
	SetLevel(LevelInfo)
}
