package auth

import (
	"strings"
	"testing"
	"time"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword("correct horse battery staple", hash) {
		t.Error("correct password rejected")
	}
	if VerifyPassword("wrong password", hash) {
		t.Error("wrong password accepted")
	}
}

func TestHashPassword_LongInput(t *testing.T) {
	long := strings.Repeat("a", 200)
	hash, err := HashPassword(long)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(long, hash) {
		t.Error("long password rejected by its own hash")
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	// 71 ASCII bytes + one 3-byte rune straddling the 72-byte limit.
	s := strings.Repeat("a", 71) + "€"
	got := truncate(s)
	if len(got) > maxPasswordBytes {
		t.Errorf("truncated to %d bytes", len(got))
	}
	if len(got) != 71 {
		t.Errorf("len = %d, want 71 (multi-byte rune must not be split)", len(got))
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	iss, err := NewTokenIssuer("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, err := iss.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	subject, err := iss.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if subject != "user@example.com" {
		t.Errorf("subject = %q", subject)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	iss, _ := NewTokenIssuer("test-secret", time.Minute)
	iss.ttl = -time.Minute

	token, err := iss.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := iss.Verify(token); err == nil {
		t.Error("expired token accepted")
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	a, _ := NewTokenIssuer("secret-a", time.Minute)
	b, _ := NewTokenIssuer("secret-b", time.Minute)

	token, _ := a.Issue("user@example.com")
	if _, err := b.Verify(token); err == nil {
		t.Error("token signed with different secret accepted")
	}
}

func TestTokenIssuer_Garbage(t *testing.T) {
	iss, _ := NewTokenIssuer("test-secret", time.Minute)
	if _, err := iss.Verify("not.a.token"); err == nil {
		t.Error("garbage token accepted")
	}
}

func TestNewTokenIssuer_EmptySecret(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Minute); err == nil {
		t.Error("empty secret accepted")
	}
}
