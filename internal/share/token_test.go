package share

import (
	"testing"
	"time"

	"github.com/jrlabs/appforge/internal/apperr"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", "app-123", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	appID, err := ValidateToken("secret", token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if appID != "app-123" {
		t.Errorf("expected app-123, got %q", appID)
	}
}

func TestTokenRequiresSecret(t *testing.T) {
	if _, err := GenerateToken("", "app-123", time.Hour); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, _ := GenerateToken("secret", "app-123", time.Hour)
	if _, err := ValidateToken("other-secret", token); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	token, _ := GenerateToken("secret", "app-123", -time.Minute)
	if _, err := ValidateToken("secret", token); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("expected validation error for expired token, got %v", err)
	}
}

func TestTokenGarbage(t *testing.T) {
	if _, err := ValidateToken("secret", "not.a.token"); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
