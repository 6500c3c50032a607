package utils

import (
	"testing"
	"time"
)

func TestSessionTokenRoundtrip(t *testing.T) {
	token, err := NewSessionToken(42, "Alice", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}

	claims, err := ParseSessionToken(token)
	if err != nil {
		t.Fatalf("ParseSessionToken: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Name != "Alice" {
		t.Fatalf("Name = %q, want Alice", claims.Name)
	}
	if claims.ID == "" {
		t.Fatal("token ID (jti) missing")
	}
}

func TestSessionTokenTampered(t *testing.T) {
	token, err := NewSessionToken(1, "Admin", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	if _, err := ParseSessionToken(token + "x"); err == nil {
		t.Fatal("tampered token accepted")
	}
	if _, err := ParseSessionToken("not.a.token"); err == nil {
		t.Fatal("garbage token accepted")
	}
}

func TestSessionTokenExpired(t *testing.T) {
	token, err := NewSessionToken(7, "Short", -time.Minute)
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	if _, err := ParseSessionToken(token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestRevokeSessionToken(t *testing.T) {
	token, err := NewSessionToken(9, "Leaver", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	if IsSessionRevoked(token) {
		t.Fatal("fresh token reported revoked")
	}

	RevokeSessionToken(token, time.Now().Add(time.Hour))
	if !IsSessionRevoked(token) {
		t.Fatal("revoked token reported valid")
	}

	// A token past natural expiration needs no blacklist entry.
	RevokeSessionToken("expired-token", time.Now().Add(-time.Minute))
	if IsSessionRevoked("expired-token") {
		t.Fatal("expired token should not occupy the blacklist")
	}
}
