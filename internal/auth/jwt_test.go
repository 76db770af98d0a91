package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/carryon-collective/carryon/internal/middleware"
)

const testSecret = "test-secret-key-for-jwt-signing"

func TestGenerateAccessToken(t *testing.T) {
	svc := NewJWTService(testSecret)

	token, err := svc.GenerateAccessToken("user-123")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("Subject = %s, want user-123", claims.Subject)
	}
	if claims.Type != TokenTypeAccess {
		t.Errorf("Type = %s, want %s", claims.Type, TokenTypeAccess)
	}

	// Expiry should be roughly AccessTokenExpiry from now
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 || remaining > AccessTokenExpiry+time.Minute {
		t.Errorf("unexpected access token expiry: %v remaining", remaining)
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	svc := NewJWTService(testSecret)

	token, err := svc.GenerateRefreshToken("user-123")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Type != TokenTypeRefresh {
		t.Errorf("Type = %s, want %s", claims.Type, TokenTypeRefresh)
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 || remaining > RefreshTokenExpiry+time.Minute {
		t.Errorf("unexpected refresh token expiry: %v remaining", remaining)
	}
}

func TestEmptyUserIDError(t *testing.T) {
	svc := NewJWTService(testSecret)

	if _, err := svc.GenerateAccessToken(""); err != ErrEmptyUserID {
		t.Errorf("GenerateAccessToken() error = %v, want %v", err, ErrEmptyUserID)
	}
	if _, err := svc.GenerateRefreshToken(""); err != ErrEmptyUserID {
		t.Errorf("GenerateRefreshToken() error = %v, want %v", err, ErrEmptyUserID)
	}
}

func TestExpiredToken(t *testing.T) {
	svc := NewJWTService(testSecret).WithLeeway(0) // No leeway for this test

	// Create an expired token manually
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-expired",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-1 * time.Hour)), // Expired 1 hour ago
		},
		Type: TokenTypeAccess,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to create expired token: %v", err)
	}

	_, err = svc.ValidateToken(tokenString)
	if err != ErrExpiredToken {
		t.Errorf("ValidateToken() error = %v, want %v", err, ErrExpiredToken)
	}
}

func TestLeewayValidation(t *testing.T) {
	// A token that expired a few seconds ago should still validate within leeway.
	svc := NewJWTService(testSecret).WithLeeway(30 * time.Second)

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-leeway",
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		},
		Type: TokenTypeAccess,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	if _, err := svc.ValidateToken(tokenString); err != nil {
		t.Errorf("ValidateToken() within leeway error = %v", err)
	}
}

func TestTamperedToken(t *testing.T) {
	svc := NewJWTService(testSecret)

	validToken, err := svc.GenerateAccessToken("user-123")
	if err != nil {
		t.Fatalf("Failed to generate access token: %v", err)
	}

	// Corrupt the signature
	parts := strings.Split(validToken, ".")
	if len(parts) != 3 {
		t.Fatalf("Invalid token format")
	}
	tamperedToken := parts[0] + "." + parts[1] + ".tamperedsignature"

	_, err = svc.ValidateToken(tamperedToken)
	if err != ErrInvalidToken {
		t.Errorf("ValidateToken() error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestWrongSecretToken(t *testing.T) {
	svc1 := NewJWTService("secret-one")
	svc2 := NewJWTService("secret-two")

	token, err := svc1.GenerateAccessToken("user-123")
	if err != nil {
		t.Fatalf("Failed to generate access token: %v", err)
	}

	_, err = svc2.ValidateToken(token)
	if err != ErrInvalidToken {
		t.Errorf("ValidateToken() error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestKeyRotation(t *testing.T) {
	// Tokens signed with the old secret stay valid during rotation.
	oldSvc := NewJWTService("old-secret")
	oldToken, err := oldSvc.GenerateAccessToken("user-123")
	if err != nil {
		t.Fatalf("Failed to generate token with old secret: %v", err)
	}

	rotated := NewJWTServiceWithRotation("new-secret", "old-secret")

	claims, err := rotated.ValidateToken(oldToken)
	if err != nil {
		t.Fatalf("ValidateToken() with previous secret error = %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("Subject = %s, want user-123", claims.Subject)
	}

	// New tokens are signed with the current secret
	newToken, err := rotated.GenerateAccessToken("user-456")
	if err != nil {
		t.Fatalf("Failed to generate token with rotated service: %v", err)
	}
	if _, err := rotated.ValidateToken(newToken); err != nil {
		t.Errorf("ValidateToken() with current secret error = %v", err)
	}

	// Once the previous secret is dropped, old tokens stop validating
	final := NewJWTServiceWithRotation("new-secret", "")
	if _, err := final.ValidateToken(oldToken); err != ErrInvalidToken {
		t.Errorf("ValidateToken() after rotation complete error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestAuthenticate_AttachesUserID(t *testing.T) {
	svc := NewJWTService(testSecret)
	token, err := svc.GenerateAccessToken("user-123")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	var gotUserID string
	handler := Authenticate(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = middleware.GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/search/trips", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if gotUserID != "user-123" {
		t.Errorf("user ID in context = %q, want user-123", gotUserID)
	}
}

func TestAuthenticate_NoHeaderPassesThrough(t *testing.T) {
	svc := NewJWTService(testSecret)

	called := false
	handler := Authenticate(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if middleware.GetUserID(r.Context()) != "" {
			t.Error("expected empty user ID without Authorization header")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/search/trips", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !called {
		t.Error("expected handler to be called")
	}
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	svc := NewJWTService(testSecret)
	refresh, err := svc.GenerateRefreshToken("user-123")
	if err != nil {
		t.Fatalf("Failed to generate refresh token: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"malformed scheme", "Basic abc"},
		{"garbage token", "Bearer not-a-token"},
		{"refresh token as access", "Bearer " + refresh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Authenticate(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/search/trips", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected status 401, got %d", w.Code)
			}

			var resp struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if resp.Error.Code != "auth_failed" {
				t.Errorf("error code = %s, want auth_failed", resp.Error.Code)
			}
		})
	}
}
