package errs

import (
	"errors"
	"testing"
)

func TestErrorFormatsWithMessage(t *testing.T) {
	e := New(HashMismatch, "want %x got %x", []byte{1}, []byte{2})
	want := "HashMismatch: want 01 got 02"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestErrorFormatsWithoutMessage(t *testing.T) {
	e := &Error{Kind: NotFound}
	if e.Error() != "NotFound" {
		t.Errorf("Error() = %q, want %q", e.Error(), "NotFound")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	e := Wrap(WriteFailed, cause, "put_shards failed")
	if !errors.Is(e, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestIs(t *testing.T) {
	var err error = New(SizeMismatch, "bad size")
	if !Is(err, SizeMismatch) {
		t.Error("Is should match the same Kind")
	}
	if Is(err, HashMismatch) {
		t.Error("Is should not match a different Kind")
	}
	if Is(errors.New("plain"), SizeMismatch) {
		t.Error("Is should not match a non-*Error")
	}
}
