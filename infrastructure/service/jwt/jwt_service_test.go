package jwt

import (
	"testing"
	"time"

	"github.com/agentity/agentity/application/port/outbound"
)

func TestJWTService(t *testing.T) {
	service, err := NewJWTService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("Failed to create JWT service: %v", err)
	}

	t.Run("GenerateAccessToken", func(t *testing.T) {
		token, err := service.GenerateAccessToken(outbound.TokenClaims{UserID: "user123"})
		if err != nil {
			t.Errorf("Failed to generate access token: %v", err)
		}
		if token == "" {
			t.Error("Access token should not be empty")
		}
	})

	t.Run("ValidateAccessToken", func(t *testing.T) {
		tokenString, err := service.GenerateAccessToken(outbound.TokenClaims{UserID: "user123", Email: "test@example.com"})
		if err != nil {
			t.Fatalf("Failed to generate token: %v", err)
		}

		claims, err := service.ValidateAccessToken(tokenString)
		if err != nil {
			t.Errorf("Failed to validate token: %v", err)
		}
		if claims != nil && claims.UserID != "user123" {
			t.Errorf("Expected user ID 'user123', got '%s'", claims.UserID)
		}
		if claims != nil && claims.Email != "test@example.com" {
			t.Errorf("Expected email 'test@example.com', got '%s'", claims.Email)
		}
	})

	t.Run("ValidateInvalidToken", func(t *testing.T) {
		_, err := service.ValidateAccessToken("invalid-token")
		if err == nil {
			t.Error("Should fail to validate invalid token")
		}
	})

	t.Run("ValidateTokenWithWrongSecret", func(t *testing.T) {
		other, err := NewJWTService("other-secret", time.Hour)
		if err != nil {
			t.Fatalf("Failed to create JWT service: %v", err)
		}
		token, err := other.GenerateAccessToken(outbound.TokenClaims{UserID: "user123"})
		if err != nil {
			t.Fatalf("Failed to generate token: %v", err)
		}

		if _, err := service.ValidateAccessToken(token); err == nil {
			t.Error("Should reject token signed with a different secret")
		}
	})

	t.Run("ValidateExpiredToken", func(t *testing.T) {
		shortService := &JWTService{hmacSecret: []byte("test-secret"), tokenTTL: -time.Minute}
		token, err := shortService.GenerateAccessToken(outbound.TokenClaims{UserID: "user123"})
		if err != nil {
			t.Fatalf("Failed to generate token: %v", err)
		}

		if _, err := service.ValidateAccessToken(token); err != ErrTokenExpired {
			t.Errorf("Expected ErrTokenExpired, got %v", err)
		}
	})
}

func TestNewJWTService_RequiresSecret(t *testing.T) {
	if _, err := NewJWTService("", time.Hour); err == nil {
		t.Error("Should reject empty secret")
	}
}
