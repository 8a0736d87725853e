package token

import (
	"errors"
	"testing"
	"time"

	"github.com/minishop/apiserver/internal/clock"
)

const testSecret = "test-secret"

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(testSecret, time.Hour, clock.NewFixed(now))

	signed, err := svc.Issue(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	userID, err := svc.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user id 42, got %d", userID)
	}
}

func TestVerifyExpired(t *testing.T) {
	issuedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewService(testSecret, time.Hour, clock.NewFixed(issuedAt))

	signed, err := issuer.Issue(7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Same secret, clock advanced past issuance + 1 hour.
	verifier := NewService(testSecret, time.Hour, clock.NewFixed(issuedAt.Add(time.Hour+time.Second)))
	if _, err := verifier.Verify(signed); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyMissing(t *testing.T) {
	svc := NewService(testSecret, time.Hour, clock.NewSystem())
	if _, err := svc.Verify(""); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewService(testSecret, time.Hour, clock.NewFixed(now))

	signed, err := issuer.Issue(7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	verifier := NewService("other-secret", time.Hour, clock.NewFixed(now))
	if _, err := verifier.Verify(signed); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	svc := NewService(testSecret, time.Hour, clock.NewSystem())
	if _, err := svc.Verify("not.a.token"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
