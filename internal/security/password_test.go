package security

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("P@ssw0rd1")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "P@ssw0rd1" {
		t.Fatal("hash must not equal the plaintext")
	}
	ok, err := VerifyPassword(hash, "P@ssw0rd1")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected password verification success")
	}
	ok, err = VerifyPassword(hash, "wrong-pass")
	if err != nil {
		t.Fatalf("verify wrong password errored: %v", err)
	}
	if ok {
		t.Fatal("expected password verification failure")
	}
}

func TestHashPasswordSaltsEachCall(t *testing.T) {
	a, err := HashPassword("same-input-1234")
	if err != nil {
		t.Fatalf("first hash: %v", err)
	}
	b, err := HashPassword("same-input-1234")
	if err != nil {
		t.Fatalf("second hash: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestVerifyPasswordMalformedDigest(t *testing.T) {
	if _, err := VerifyPassword("not-a-bcrypt-digest", "whatever"); err == nil {
		t.Fatal("expected error for malformed digest")
	}
}
