package security_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/adspace-backend/pkg/config"
	"github.com/angelmondragon/adspace-backend/pkg/security"
)

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}

	hash, err := security.HashPassword("very-secure-password", cfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty string")
	}

	ok, err := security.VerifyPassword("very-secure-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	if _, err := security.VerifyPassword("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	cases := map[string]bool{
		"Admin234":    true,
		"short1":      false,
		"lettersonly": false,
		"123456789":   false,
	}
	for password, ok := range cases {
		err := security.ValidatePasswordStrength(password)
		if ok && err != nil {
			t.Fatalf("expected %q to pass, got %v", password, err)
		}
		if !ok && err == nil {
			t.Fatalf("expected %q to fail", password)
		}
	}
}

func TestGenerateTempPasswordIsStrong(t *testing.T) {
	for i := 0; i < 20; i++ {
		pw, err := security.GenerateTempPassword(12)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(pw) != 12 {
			t.Fatalf("expected 12 chars, got %d", len(pw))
		}
		if err := security.ValidatePasswordStrength(pw); err != nil {
			t.Fatalf("temp password %q too weak: %v", pw, err)
		}
	}
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	cfg := config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16}
	good, err := security.HashPassword("Prov2345", cfg)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	parts := strings.Split(good, "$")

	bad := []string{
		"",
		"plaintext",
		strings.Replace(good, "argon2id", "argon2i", 1),
		strings.Replace(good, "v=19", "v=16", 1),
		strings.Join([]string{parts[0], parts[1], parts[2], "m=0,t=1,p=1", parts[4], parts[5]}, "$"),
		strings.Join([]string{parts[0], parts[1], parts[2], parts[3], "!!", parts[5]}, "$"),
	}
	for _, encoded := range bad {
		if _, err := security.VerifyPassword("Prov2345", encoded); !errors.Is(err, security.ErrInvalidHash) {
			t.Errorf("expected ErrInvalidHash for %q, got %v", encoded, err)
		}
	}
}
