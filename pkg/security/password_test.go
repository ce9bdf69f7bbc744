package security_test

import (
	"strings"
	"testing"

	"github.com/smartcanteen/canteen-backend/pkg/config"
	"github.com/smartcanteen/canteen-backend/pkg/security"
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

func TestHasherUsesConfiguredParams(t *testing.T) {
	hasher := security.NewHasher(config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})

	hash, err := hasher.Hash("canteen-pass")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected hash prefix %q", hash)
	}
	ok, err := hasher.Verify("canteen-pass", hash)
	if err != nil || !ok {
		t.Fatalf("Verify failed ok=%v err=%v", ok, err)
	}
	if _, err := hasher.Hash(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyPasswordRejectsZeroParams(t *testing.T) {
	if _, err := security.VerifyPassword("x", "$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2g"); err == nil {
		t.Fatal("expected error for zero memory parameter")
	}
}

func TestNeedsRehashTracksConfiguredParams(t *testing.T) {
	cheap := config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
	stronger := cheap
	stronger.ArgonTime = 2

	hash, err := security.HashPassword("canteen-pass", cheap)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if security.NewHasher(cheap).NeedsRehash(hash) {
		t.Fatal("hash made with current params should not need rehash")
	}
	if !security.NewHasher(stronger).NeedsRehash(hash) {
		t.Fatal("hash made with old params should need rehash")
	}
	if !security.NewHasher(cheap).NeedsRehash("garbage") {
		t.Fatal("malformed hash should need rehash")
	}
}

func TestVerifyPasswordRejectsOtherVersion(t *testing.T) {
	if _, err := security.VerifyPassword("x", "$argon2id$v=16$m=8192,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2g"); err == nil {
		t.Fatal("expected error for unsupported argon2 version")
	}
}
