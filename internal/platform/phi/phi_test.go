package phi

import (
	"crypto/rand"
	"strings"
	"testing"
)

func newTestEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate test key: %v", err)
	}
	enc, err := NewEncryptorWithKey(key)
	if err != nil {
		t.Fatalf("create encryptor: %v", err)
	}
	return enc
}

func TestNewEncryptor(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt: %v", err)
	}

	t.Run("valid passphrase", func(t *testing.T) {
		enc, err := NewEncryptor("correct horse battery staple", salt)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if enc == nil {
			t.Fatal("expected non-nil encryptor")
		}
	})

	t.Run("empty passphrase", func(t *testing.T) {
		if _, err := NewEncryptor("", salt); err == nil {
			t.Fatal("expected error for empty passphrase")
		}
	})

	t.Run("short salt", func(t *testing.T) {
		if _, err := NewEncryptor("secret", []byte{1, 2, 3}); err == nil {
			t.Fatal("expected error for short salt")
		}
	})

	t.Run("same inputs derive same key", func(t *testing.T) {
		a, _ := NewEncryptor("secret", salt)
		b, _ := NewEncryptor("secret", salt)
		sealed, err := a.Seal("patient data")
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		got, err := b.Open(sealed)
		if err != nil {
			t.Fatalf("Open with re-derived key: %v", err)
		}
		if got != "patient data" {
			t.Errorf("got %q", got)
		}
	})
}

func TestNewEncryptorWithKey_BadSizes(t *testing.T) {
	for _, n := range []int{0, 16, 64} {
		if _, err := NewEncryptorWithKey(make([]byte, n)); err == nil {
			t.Errorf("expected error for %d-byte key", n)
		}
	}
}

func TestSealOpen(t *testing.T) {
	enc := newTestEncryptor(t)

	cases := []string{
		"Jane Roe",
		"",
		"history: hypertension, T2DM; allergies: penicillin",
		"unicode ñame 漢字",
	}
	for _, plaintext := range cases {
		sealed, err := enc.Seal(plaintext)
		if err != nil {
			t.Fatalf("Seal(%q): %v", plaintext, err)
		}
		if !Sealed(sealed) {
			t.Errorf("Seal(%q) output missing prefix: %q", plaintext, sealed)
		}
		if plaintext != "" && strings.Contains(sealed, plaintext) {
			t.Errorf("ciphertext contains plaintext %q", plaintext)
		}
		got, err := enc.Open(sealed)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if got != plaintext {
			t.Errorf("round trip = %q, want %q", got, plaintext)
		}
	}
}

func TestSealProducesDistinctCiphertexts(t *testing.T) {
	enc := newTestEncryptor(t)
	a, _ := enc.Seal("same value")
	b, _ := enc.Seal("same value")
	if a == b {
		t.Error("two seals of the same value must differ (random nonce)")
	}
}

func TestOpen_PassthroughForPlaintext(t *testing.T) {
	enc := newTestEncryptor(t)
	got, err := enc.Open("legacy unencrypted value")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "legacy unencrypted value" {
		t.Errorf("got %q", got)
	}
}

func TestOpen_TamperedCiphertext(t *testing.T) {
	enc := newTestEncryptor(t)
	sealed, _ := enc.Seal("sensitive")
	tampered := sealed[:len(sealed)-4] + "AAAA"
	if _, err := enc.Open(tampered); err == nil {
		t.Fatal("expected error for tampered ciphertext")
	}
}

func TestOpen_WrongKey(t *testing.T) {
	a := newTestEncryptor(t)
	b := newTestEncryptor(t)
	sealed, _ := a.Seal("sensitive")
	if _, err := b.Open(sealed); err == nil {
		t.Fatal("expected error when opening with a different key")
	}
}

func TestSealJSONOpenJSON(t *testing.T) {
	enc := newTestEncryptor(t)

	type record struct {
		Name      string   `json:"name"`
		Allergies []string `json:"allergies"`
	}
	in := record{Name: "Jane Roe", Allergies: []string{"penicillin"}}

	sealed, err := enc.SealJSON(in)
	if err != nil {
		t.Fatalf("SealJSON: %v", err)
	}
	var out record
	if err := enc.OpenJSON(sealed, &out); err != nil {
		t.Fatalf("OpenJSON: %v", err)
	}
	if out.Name != in.Name || len(out.Allergies) != 1 || out.Allergies[0] != "penicillin" {
		t.Errorf("round trip = %+v", out)
	}

	if err := enc.OpenJSON("not sealed", &out); err == nil {
		t.Error("expected error for unsealed input")
	}
}
