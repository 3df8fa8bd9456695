// Package errors provides unit tests for the application error type.
package errors

import (
	"fmt"
	"testing"
)

func TestIsMatchesWrappedCodes(t *testing.T) {
	inner := New(ErrStorage, "disk full")
	outer := Wrap(ErrSyncFailed, "pass aborted", inner)

	if !Is(outer, ErrSyncFailed) {
		t.Error("expected the outer code to match")
	}
	if !Is(outer, ErrStorage) {
		t.Error("expected the wrapped inner code to match")
	}
	if Is(outer, ErrNotFound) {
		t.Error("unrelated code must not match")
	}

	// A plain fmt wrapper around an AppError still matches.
	plain := fmt.Errorf("context: %w", inner)
	if !Is(plain, ErrStorage) {
		t.Error("expected the code behind a plain wrapper to match")
	}

	if Is(nil, ErrStorage) {
		t.Error("nil must not match any code")
	}
	if Is(fmt.Errorf("bare"), ErrStorage) {
		t.Error("a non-AppError must not match")
	}
}

func TestAppErrorMessageIncludesCode(t *testing.T) {
	err := Wrap(ErrQueueCorrupt, "decode failed", fmt.Errorf("unexpected end of input"))

	got := err.Error()
	want := "[QUEUE_CORRUPT] decode failed: unexpected end of input"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
