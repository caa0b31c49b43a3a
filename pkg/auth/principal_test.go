package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestTokenManager_IssueAndResolve(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, err := tm.Issue("u-1", "cajero@latrattoria.almoud.pe", "t-1", false)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	principal, err := tm.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if principal.UserID != "u-1" {
		t.Errorf("Expected user ID u-1, got %s", principal.UserID)
	}
	if principal.Email != "cajero@latrattoria.almoud.pe" {
		t.Errorf("Expected email cajero@latrattoria.almoud.pe, got %s", principal.Email)
	}
	if principal.TenantClaim != "t-1" {
		t.Errorf("Expected tenant claim t-1, got %s", principal.TenantClaim)
	}
	if principal.SuperAdminClaim {
		t.Error("Expected super admin claim to be false")
	}
}

func TestTokenManager_SuperAdminClaim(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, err := tm.Issue("u-2", "ops@almoud.pe", "", true)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	principal, err := tm.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if !principal.SuperAdminClaim {
		t.Error("Expected super admin claim to be true")
	}
	if principal.TenantClaim != "" {
		t.Errorf("Expected empty tenant claim, got %s", principal.TenantClaim)
	}
}

func TestTokenManager_Resolve_WrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	other := NewTokenManager("other-secret", time.Hour)

	token, err := tm.Issue("u-1", "user@almoud.pe", "", true)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = other.Resolve(token)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential, got %v", err)
	}
}

func TestTokenManager_Resolve_Expired(t *testing.T) {
	tm := NewTokenManager("test-secret", -time.Minute)

	token, err := tm.Issue("u-1", "user@almoud.pe", "", false)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = tm.Resolve(token)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for expired token, got %v", err)
	}
}

func TestTokenManager_Resolve_MissingClaims(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	// Token signed with the right secret but without userId/email claims
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	_, err = tm.Resolve(signed)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for missing claims, got %v", err)
	}
}

func TestTokenManager_Resolve_Garbage(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	_, err := tm.Resolve("not-a-token")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential, got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == "s3cret-password" {
		t.Error("Hash must not equal the plaintext")
	}

	if !CheckPassword(hash, "s3cret-password") {
		t.Error("Expected password to match its hash")
	}
	if CheckPassword(hash, "wrong-password") {
		t.Error("Expected wrong password to be rejected")
	}
}
