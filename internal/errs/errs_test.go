package errs

import (
	"errors"
	"testing"
)

func TestSentinelErrorsHaveDistinctMessages(t *testing.T) {
	sentinels := []error{
		ErrNotConnected, ErrAlreadyConnected, ErrAdbNotFound, ErrDeviceNotFound,
		ErrDeviceUnauthorized, ErrConnectionTimeout, ErrCodecNotSupported,
		ErrDecoderInitFailed, ErrDecodeFailed, ErrBadArgument,
	}
	seen := make(map[string]bool)
	for _, e := range sentinels {
		if seen[e.Error()] {
			t.Errorf("duplicate sentinel error message: %q", e.Error())
		}
		seen[e.Error()] = true
	}
}

func TestAdbCommandErrorMessage(t *testing.T) {
	e := &AdbCommandError{Cmd: []string{"adb", "shell", "true"}, RC: 1, Stderr: "permission denied"}
	got := e.Error()
	if got == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestIncompleteReadErrorMessage(t *testing.T) {
	e := &IncompleteReadError{Expected: 12, Got: 4}
	got := e.Error()
	if got != "incomplete read: expected 12 bytes, got 4" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestIoErrorUnwraps(t *testing.T) {
	underlying := errors.New("connection reset")
	e := &IoError{Underlying: underlying}

	if !errors.Is(e, underlying) {
		t.Error("expected errors.Is to find the wrapped underlying error")
	}
	if errors.Unwrap(e) != underlying {
		t.Error("expected Unwrap to return the underlying error")
	}
}

func TestProtocolErrorMessage(t *testing.T) {
	e := &ProtocolError{Reason: "unexpected socket accept order"}
	if e.Error() != "scrcpy protocol error: unexpected socket accept order" {
		t.Errorf("unexpected message: %q", e.Error())
	}
}
