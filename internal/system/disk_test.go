package system

import (
	"strings"
	"testing"
)

func TestEnsureSpace(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureSpace(dir, 0); err != nil {
		t.Fatalf("unknown size must pass: %v", err)
	}
	if err := EnsureSpace(dir, 1); err != nil {
		t.Fatalf("one byte: %v", err)
	}
	err := EnsureSpace(dir, 1<<60)
	if err == nil || !strings.Contains(err.Error(), "not enough space") {
		t.Fatalf("expected space error, got %v", err)
	}
	if _, err := AvailableSpace(dir + "/missing"); err == nil {
		t.Fatalf("missing dir should error")
	}
}
