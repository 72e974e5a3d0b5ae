package utils

import (
	"testing"
	"time"
)

func TestAccessToken(t *testing.T) {
	secret := []byte("utils-test-secret")
	token, err := GenerateAccessToken("coach@example.com", "Coach", secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Email != "coach@example.com" || claims.Name != "Coach" || claims.Subject != "coach@example.com" {
		t.Errorf("unexpected claims %+v", claims)
	}

	if _, err := ValidateToken(token, []byte("other")); err == nil {
		t.Errorf("expected a foreign secret to fail")
	}

	expired, err := GenerateAccessToken("coach@example.com", "", secret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if _, err := ValidateToken(expired, secret); err == nil {
		t.Errorf("expected an expired token to fail")
	}
}
