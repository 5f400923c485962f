package crypto

import (
	"errors"
	"strings"
	"testing"
)

func mustSealer(t *testing.T, secret string) *Sealer {
	t.Helper()
	s, err := NewSealer(secret)
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	return s
}

func TestSealOpen_Roundtrip(t *testing.T) {
	s := mustSealer(t, "correct horse")
	sealed, err := s.Seal("sk-abc123def456ghi789")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if strings.Contains(sealed, "sk-abc") {
		t.Fatal("sealed value leaks plaintext")
	}
	got, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "sk-abc123def456ghi789" {
		t.Errorf("roundtrip = %q", got)
	}
}

func TestSealOpen_Empty(t *testing.T) {
	s := mustSealer(t, "")
	sealed, err := s.Seal("")
	if err != nil || sealed != "" {
		t.Fatalf("Seal(\"\") = %q, %v", sealed, err)
	}
	plain, err := s.Open("")
	if err != nil || plain != "" {
		t.Fatalf("Open(\"\") = %q, %v", plain, err)
	}
}

func TestSeal_FreshNonce(t *testing.T) {
	s := mustSealer(t, "k")
	a, _ := s.Seal("same")
	b, _ := s.Seal("same")
	if a == b {
		t.Error("two seals of the same value should differ")
	}
}

func TestOpen_WrongSecret(t *testing.T) {
	sealed, _ := mustSealer(t, "one").Seal("secret value")
	_, err := mustSealer(t, "two").Open(sealed)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestOpen_Garbage(t *testing.T) {
	s := mustSealer(t, "k")
	for _, in := range []string{"not base64!!", "AAAA"} {
		if _, err := s.Open(in); !errors.Is(err, ErrMalformed) {
			t.Errorf("Open(%q) err = %v, want ErrMalformed", in, err)
		}
	}
}

func TestMachineKeyIsStable(t *testing.T) {
	sealed, _ := mustSealer(t, "").Seal("v")
	got, err := mustSealer(t, "").Open(sealed)
	if err != nil || got != "v" {
		t.Fatalf("machine-bound key not stable: %q, %v", got, err)
	}
}
