package auth

import (
	"errors"
	"testing"
	"time"

	"classdesk/internal/model"
)

func newTestService(accessTTL, refreshTTL time.Duration) *Service {
	return NewService("access-secret", "refresh-secret", "test-issuer", accessTTL, refreshTTL)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService(15*time.Minute, 7*24*time.Hour)

	pair, err := svc.IssuePair("user-1", model.RoleStudent, "student@example.edu")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens to be issued")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatalf("expected independently signed tokens")
	}

	claims, err := svc.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != model.RoleStudent || claims.Email != "student@example.edu" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestExpiredAccessToken(t *testing.T) {
	svc := newTestService(-time.Minute, 7*24*time.Hour)

	pair, err := svc.IssuePair("user-1", model.RoleProfessor, "prof@example.edu")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	_, err = svc.VerifyAccess(pair.AccessToken)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestForgedTokenRejected(t *testing.T) {
	svc := newTestService(15*time.Minute, 7*24*time.Hour)
	other := NewService("another-secret", "", "test-issuer", 15*time.Minute, 7*24*time.Hour)

	pair, err := other.IssuePair("user-1", model.RoleAdmin, "admin@example.edu")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	if _, err := svc.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestMalformedTokenRejected(t *testing.T) {
	svc := newTestService(15*time.Minute, 7*24*time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.VerifyAccess(token); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid for %q, got %v", token, err)
		}
	}
}

func TestUnknownRoleRejected(t *testing.T) {
	svc := newTestService(15*time.Minute, 7*24*time.Hour)

	pair, err := svc.IssuePair("user-1", model.Role("SUPERUSER"), "x@example.edu")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if _, err := svc.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for unknown role, got %v", err)
	}
}

func TestRefreshIssuesFreshPair(t *testing.T) {
	svc := newTestService(15*time.Minute, 7*24*time.Hour)

	pair, err := svc.IssuePair("user-1", model.RoleStudent, "student@example.edu")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	before := time.Now().UTC()
	renewed, err := svc.Refresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh error: %v", err)
	}

	claims, err := svc.VerifyAccess(renewed.AccessToken)
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != model.RoleStudent {
		t.Fatalf("refresh changed identity: %+v", claims)
	}
	if !claims.ExpiresAt.Time.After(before) {
		t.Fatalf("expected fresh expiry after %s, got %s", before, claims.ExpiresAt.Time)
	}
}

func TestRefreshFailuresCollapse(t *testing.T) {
	svc := newTestService(15*time.Minute, 7*24*time.Hour)

	// Expired refresh token.
	expiring := newTestService(15*time.Minute, -time.Minute)
	pair, err := expiring.IssuePair("user-1", model.RoleStudent, "student@example.edu")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if _, err := expiring.Refresh(pair.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid for expired token, got %v", err)
	}

	// Access token presented as refresh token: different secret, rejected.
	pair, err = svc.IssuePair("user-1", model.RoleStudent, "student@example.edu")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if _, err := svc.Refresh(pair.AccessToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid for access token, got %v", err)
	}

	if _, err := svc.Refresh("garbage"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid for garbage, got %v", err)
	}
}

func TestRefreshSecretFallback(t *testing.T) {
	svc := NewService("shared-secret", "", "test-issuer", 15*time.Minute, 7*24*time.Hour)

	pair, err := svc.IssuePair("user-1", model.RoleStudent, "student@example.edu")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if _, err := svc.Refresh(pair.RefreshToken); err != nil {
		t.Fatalf("expected refresh with shared secret to succeed, got %v", err)
	}
}

func TestResetTokenRoundTrip(t *testing.T) {
	svc := newTestService(15*time.Minute, 7*24*time.Hour)

	token, err := svc.SignResetToken("user-1", model.RoleStudent, "student@example.edu", time.Hour)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	claims, err := svc.VerifyResetToken(token)
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
