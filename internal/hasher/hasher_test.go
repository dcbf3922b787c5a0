package hasher

import (
	"strings"
	"testing"
)

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("jpeg bytes"), 0)
	if len(a) != 16 {
		t.Fatalf("full hash length: got %d, want 16", len(a))
	}
	if b := ContentHash([]byte("jpeg bytes"), 0); a != b {
		t.Errorf("not deterministic: %s vs %s", a, b)
	}
	if c := ContentHash([]byte("jpeg bytez"), 0); a == c {
		t.Error("different inputs produced the same hash")
	}
	if short := ContentHash([]byte("jpeg bytes"), 8); short != a[:8] {
		t.Errorf("truncated: got %s, want %s", short, a[:8])
	}
	if long := ContentHash([]byte("jpeg bytes"), 64); long != a {
		t.Errorf("oversized hexLen should return the full hash, got %s", long)
	}
}

func TestContentHash_EmptyInput(t *testing.T) {
	// xxHash64 of the empty string with seed 0.
	if got := ContentHash(nil, 0); got != "ef46db3751d8e999" {
		t.Errorf("empty hash: got %s", got)
	}
}

func TestETag(t *testing.T) {
	tag := ETag([]byte("x"))
	if !strings.HasPrefix(tag, `"`) || !strings.HasSuffix(tag, `"`) {
		t.Errorf("etag not quoted: %s", tag)
	}
	if len(tag) != 18 {
		t.Errorf("etag length: got %d", len(tag))
	}
}
