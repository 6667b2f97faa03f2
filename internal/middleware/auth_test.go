package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestTokenRoundtrip(t *testing.T) {
	expires := time.Now().Add(time.Hour).Unix()

	token, err := TokenNew("test-key", 42, expires, TokenAccess)
	if err != nil {
		t.Fatalf("TokenNew: %v", err)
	}

	userID, tokenType, err := TokenCheck(token, "test-key")
	if err != nil {
		t.Fatalf("TokenCheck: %v", err)
	}
	if userID != 42 {
		t.Errorf("userID = %d, want 42", userID)
	}
	if tokenType != TokenAccess {
		t.Errorf("tokenType = %s, want %s", tokenType, TokenAccess)
	}
}

func TestTokenCheckRejectsWrongKey(t *testing.T) {
	expires := time.Now().Add(time.Hour).Unix()

	token, err := TokenNew("test-key", 42, expires, TokenAccess)
	if err != nil {
		t.Fatalf("TokenNew: %v", err)
	}

	if _, _, err := TokenCheck(token, "other-key"); err == nil {
		t.Error("expected signature error for wrong key")
	}
}

func TestTokenCheckRejectsExpired(t *testing.T) {
	expired := time.Now().Add(-time.Minute).Unix()

	token, err := TokenNew("test-key", 42, expired, TokenAccess)
	if err != nil {
		t.Fatalf("TokenNew: %v", err)
	}

	_, _, err = TokenCheck(token, "test-key")
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("err = %v, want token expired", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !ComparePasswords(hash, "correct horse battery staple") {
		t.Error("correct password rejected")
	}
	if ComparePasswords(hash, "wrong password") {
		t.Error("wrong password accepted")
	}
}
