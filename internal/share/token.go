// Package share mints signed, expiring links for viewing an app without
// the builder UI.
package share

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jrlabs/appforge/internal/apperr"
)

// GenerateToken signs a share token for the given app id.
func GenerateToken(secret, appID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", apperr.Validation("share links are disabled: no share secret configured")
	}
	claims := jwt.MapClaims{
		"sub": appID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeUnknown, "failed to sign share token")
	}
	return signed, nil
}

// ValidateToken verifies a share token and returns the app id it names.
func ValidateToken(secret, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Newf(apperr.CodeValidation, "unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeValidation, "invalid share token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", apperr.Validation("invalid share token")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", apperr.Validation("share token missing app id")
	}
	return sub, nil
}
