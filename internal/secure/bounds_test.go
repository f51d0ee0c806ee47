package secure

import (
	"errors"
	"strings"
	"testing"
)

func TestBoundedBuffer_UnderCap(t *testing.T) {
	b := NewBoundedBuffer(1)
	n, err := b.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write = (%d, %v), want (5, nil)", n, err)
	}
	if b.Truncated() {
		t.Fatalf("buffer reported truncation under cap")
	}
	if b.String() != "hello" {
		t.Fatalf("contents = %q", b.String())
	}
}

func TestBoundedBuffer_TruncatesAtCap(t *testing.T) {
	b := NewBoundedBuffer(1) // 1 KiB
	payload := strings.Repeat("x", 2048)
	n, err := b.Write([]byte(payload))
	if !errors.Is(err, ErrOutputLimit) {
		t.Fatalf("err = %v, want ErrOutputLimit", err)
	}
	if n != 1024 {
		t.Fatalf("n = %d, want 1024", n)
	}
	if !b.Truncated() {
		t.Fatalf("truncation flag not set")
	}
	if len(b.Bytes()) != 1024 {
		t.Fatalf("buffer grew past cap: %d bytes", len(b.Bytes()))
	}
	// Further writes are rejected outright.
	if _, err := b.Write([]byte("more")); !errors.Is(err, ErrOutputLimit) {
		t.Fatalf("post-cap write err = %v, want ErrOutputLimit", err)
	}
}

func TestBoundedBuffer_DefaultCap(t *testing.T) {
	b := NewBoundedBuffer(0)
	if _, err := b.Write(make([]byte, 64*1024)); err != nil {
		t.Fatalf("write at default cap: %v", err)
	}
	if _, err := b.Write([]byte{1}); !errors.Is(err, ErrOutputLimit) {
		t.Fatalf("expected ErrOutputLimit past default cap, got %v", err)
	}
}
