package utils

import "testing"

func TestGenerateAndVerifyToken(t *testing.T) {
	token, err := GenerateToken("tester@example.com", 42)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	uid, err := VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if uid != 42 {
		t.Fatalf("want userId 42, got %d", uid)
	}
}

func TestVerifyToken_Garbage(t *testing.T) {
	if _, err := VerifyToken("this-is-not-a-jwt"); err == nil {
		t.Fatalf("garbage token verified")
	}
	if _, err := VerifyToken(""); err == nil {
		t.Fatalf("empty token verified")
	}
}
