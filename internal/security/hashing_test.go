package security

import (
	"testing"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(4)
	password := []byte("secret123")
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" {
		t.Fatal("Hash returned empty")
	}
	ok, err := h.Verify(hash, password)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("Verify with correct password should succeed")
	}
}

func TestHasher_VerifyWrongPassword(t *testing.T) {
	h := NewHasher(4)
	hash, _ := h.Hash([]byte("secret123"))
	ok, err := h.Verify(hash, []byte("wrong"))
	if err != nil {
		t.Fatalf("Verify wrong password should not error, got %v", err)
	}
	if ok {
		t.Fatal("Verify with wrong password should fail")
	}
}

func TestHasher_VerifyMalformedHash(t *testing.T) {
	h := NewHasher(4)
	testCases := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"too short", "$2a$"},
		{"not bcrypt", "plain-text-password"},
		{"argon2 hash", "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := h.Verify(tc.hash, []byte("secret123"))
			if err == nil {
				t.Errorf("Verify(%q): want error for malformed hash", tc.hash)
			}
			if ok {
				t.Errorf("Verify(%q): malformed hash must not verify", tc.hash)
			}
		})
	}
}

func TestHasher_Cost(t *testing.T) {
	h := NewHasher(12)
	if h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	h0 := NewHasher(0)
	if h0.Cost < 4 {
		t.Errorf("zero cost should be clamped to at least MinCost, got %d", h0.Cost)
	}
	hMax := NewHasher(99)
	if hMax.Cost != 31 {
		t.Errorf("cost above MaxCost should be clamped to 31, got %d", hMax.Cost)
	}
}
