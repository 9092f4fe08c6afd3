package main

import (
	"encoding/base64"
	"testing"
)

func TestRandomToken(t *testing.T) {
	a, err := randomToken(32)
	if err != nil {
		t.Fatalf("randomToken: %v", err)
	}
	b, _ := randomToken(32)
	if a == b {
		t.Error("tokens should differ")
	}

	raw, err := base64.RawURLEncoding.DecodeString(a)
	if err != nil || len(raw) != 32 {
		t.Errorf("token should decode to 32 bytes, got %d (%v)", len(raw), err)
	}

	if _, err := randomToken(8); err == nil {
		t.Error("short tokens should be rejected")
	}
}
