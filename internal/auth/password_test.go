package auth

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt: %v", err)
	}
	for _, password := range []string{"Secret123", "p", "пароль", "with spaces inside"} {
		hash, err := HashPassword(password, salt)
		if err != nil {
			t.Fatalf("HashPassword(%q): %v", password, err)
		}
		ok, err := VerifyPassword(hash, password, salt)
		if err != nil {
			t.Fatalf("VerifyPassword(%q): %v", password, err)
		}
		if !ok {
			t.Fatalf("round trip failed for %q", password)
		}
	}
}

func TestHashDiffersAcrossPasswordsAndSalts(t *testing.T) {
	salt, _ := NewSalt()
	h1, err := HashPassword("Secret123", salt)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := HashPassword("Other456", salt)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 == h2 {
		t.Fatal("distinct passwords produced identical hashes")
	}

	otherSalt, _ := NewSalt()
	h3, err := HashPassword("Secret123", otherSalt)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 == h3 {
		t.Fatal("distinct salts produced identical hashes")
	}
}

func TestEmptyPasswordIsInputError(t *testing.T) {
	salt, _ := NewSalt()
	for _, password := range []string{"", "   ", "\t\n"} {
		if _, err := HashPassword(password, salt); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("HashPassword(%q): expected ErrInvalidInput, got %v", password, err)
		}
		if _, err := VerifyPassword("whatever", password, salt); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("VerifyPassword(%q): expected ErrInvalidInput, got %v", password, err)
		}
	}
}

func TestWrongPasswordVerifiesFalseWithoutError(t *testing.T) {
	salt, _ := NewSalt()
	hash, err := HashPassword("Secret123", salt)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ok, err := VerifyPassword(hash, "Secret124", salt)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}
}

func TestSaltSizeAndEncoding(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		t.Fatalf("salt is not base64: %v", err)
	}
	if len(raw) != saltSize {
		t.Fatalf("expected %d salt bytes, got %d", saltSize, len(raw))
	}
}
