package usertoken

import (
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	issuer, err := New("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	token, err := issuer.Issue("a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	email, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if email != "a@x.com" {
		t.Fatalf("unexpected subject: %q", email)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	a, _ := New("secret-a", time.Hour)
	b, _ := New("secret-b", time.Hour)
	token, err := a.Issue("a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.Verify(token); err == nil {
		t.Fatalf("expected verification failure for foreign secret")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer, _ := New("test-secret", time.Hour)
	issuer.ttl = -2 * time.Minute
	issuer.leeway = 0
	token, err := issuer.Issue("a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Verify(token); err == nil {
		t.Fatalf("expected expired token to fail verification")
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New("   ", time.Hour); err == nil {
		t.Fatalf("expected constructor error for empty secret")
	}
}
