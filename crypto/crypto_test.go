package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate random key: %v", err)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestNewAESSealer(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		errorMsg  string
		wantError bool
	}{
		{name: "empty key", key: "", wantError: true, errorMsg: "encryption key is empty"},
		{name: "invalid base64", key: "not-valid-base64!@#$", wantError: true, errorMsg: "base64 decode failed"},
		{name: "key too short", key: base64.StdEncoding.EncodeToString(make([]byte, 16)), wantError: true, errorMsg: "must be 32 bytes"},
		{name: "key too long", key: base64.StdEncoding.EncodeToString(make([]byte, 64)), wantError: true, errorMsg: "must be 32 bytes"},
		{name: "valid 32-byte key", key: base64.StdEncoding.EncodeToString(make([]byte, 32))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewAESSealer(tt.key)
			if tt.wantError {
				if err == nil {
					t.Fatalf("NewAESSealer() expected error but got nil")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("NewAESSealer() error = %v, want error containing %q", err, tt.errorMsg)
				}
				return
			}
			if err != nil || s == nil {
				t.Fatalf("NewAESSealer() = %v, %v", s, err)
			}
		})
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	s, err := NewAESSealer(testKey(t))
	if err != nil {
		t.Fatal(err)
	}
	for _, plain := range []string{"AAAAA-BBBBB-CCCCC", "x", strings.Repeat("k", 512), "ключ-🎮"} {
		sealed, err := s.Seal(plain)
		if err != nil {
			t.Fatalf("Seal(%q): %v", plain, err)
		}
		if !IsSealed(sealed) || strings.Contains(sealed, plain) {
			t.Errorf("Seal(%q) = %q, want prefixed ciphertext", plain, sealed)
		}
		got, err := s.Open(sealed)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if got != plain {
			t.Errorf("Open() = %q, want %q", got, plain)
		}
	}
}

func TestSealUsesFreshNonce(t *testing.T) {
	s, _ := NewAESSealer(testKey(t))
	a, _ := s.Seal("same")
	b, _ := s.Seal("same")
	if a == b {
		t.Errorf("two seals of the same value must differ")
	}
}

func TestOpenLegacyPlaintext(t *testing.T) {
	s, _ := NewAESSealer(testKey(t))
	got, err := s.Open("LEGACY-KEY")
	if err != nil || got != "LEGACY-KEY" {
		t.Errorf("Open(legacy) = %q, %v", got, err)
	}
}

func TestOpenTampered(t *testing.T) {
	s, _ := NewAESSealer(testKey(t))
	sealed, _ := s.Seal("secret")
	raw, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, SealedPrefix))
	raw[len(raw)-1] ^= 0xff
	if _, err := s.Open(SealedPrefix + base64.StdEncoding.EncodeToString(raw)); err == nil {
		t.Errorf("expected authentication failure for tampered value")
	}
	if _, err := s.Open(SealedPrefix + "AAAA"); err == nil {
		t.Errorf("expected error for short ciphertext")
	}
}

func TestOpenWrongKey(t *testing.T) {
	a, _ := NewAESSealer(testKey(t))
	b, _ := NewAESSealer(testKey(t))
	sealed, _ := a.Seal("secret")
	if _, err := b.Open(sealed); err == nil {
		t.Errorf("expected failure opening with a different key")
	}
}

func TestPlain(t *testing.T) {
	var p Plain
	v, _ := p.Seal("abc")
	if v != "abc" {
		t.Errorf("Plain.Seal changed value: %q", v)
	}
	if _, err := p.Open(SealedPrefix + "zzz"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Plain.Open(sealed) err = %v, want ErrNotConfigured", err)
	}
}

func TestFromKey(t *testing.T) {
	s, err := FromKey("")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(Plain); !ok {
		t.Errorf("FromKey(\"\") = %T, want Plain", s)
	}
	s, err = FromKey(testKey(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*AESSealer); !ok {
		t.Errorf("FromKey(key) = %T, want *AESSealer", s)
	}
}
