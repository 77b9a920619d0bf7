package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/web/middleware"
)

func newTestTokenManager(t *testing.T) *middleware.TokenManager {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return middleware.NewTokenManager(&config.AuthConfig{
		JWTSecret: "test-secret",
		Users: []config.UserConfig{
			{Username: "admin", PasswordHash: string(hash), Role: middleware.RoleAdmin},
		},
	})
}

func TestAuthHandler_Login_Success(t *testing.T) {
	handler := NewAuthHandler(newTestTokenManager(t))

	req := jsonRequest("POST", "/api/v1/auth/login", `{"username": "admin", "password": "secret-pass"}`)
	recorder := httptest.NewRecorder()

	handler.Login(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var response LoginResponse
	parseJSONResponse(t, recorder, &response)

	if !response.Success {
		t.Error("expected success to be true")
	}
	if response.Token == "" {
		t.Error("expected token to be set")
	}
	if response.Role != middleware.RoleAdmin {
		t.Errorf("expected role admin, got %q", response.Role)
	}
	if response.ExpiresAt == "" {
		t.Error("expected expires_at to be set")
	}

	cookies := recorder.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != response.Token || !cookies[0].HttpOnly {
		t.Errorf("expected HttpOnly token cookie, got %+v", cookies)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{"wrong password", `{"username": "admin", "password": "nope"}`, http.StatusUnauthorized},
		{"unknown user", `{"username": "ghost", "password": "secret-pass"}`, http.StatusUnauthorized},
		{"missing username", `{"username": "", "password": "secret-pass"}`, http.StatusBadRequest},
		{"missing password", `{"username": "admin", "password": ""}`, http.StatusBadRequest},
		{"invalid json", `{invalid`, http.StatusBadRequest},
	}

	tm := newTestTokenManager(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthHandler(tm)
			recorder := httptest.NewRecorder()

			handler.Login(recorder, jsonRequest("POST", "/api/v1/auth/login", tt.body))

			assertStatusCode(t, recorder, tt.expected)
			if len(recorder.Result().Cookies()) != 0 {
				t.Error("expected no cookie on failed login")
			}
		})
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	handler := NewAuthHandler(newTestTokenManager(t))
	recorder := httptest.NewRecorder()

	handler.Logout(recorder, httptest.NewRequest("POST", "/api/v1/auth/logout", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	cookies := recorder.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expired token cookie, got %+v", cookies)
	}
}

func TestAuthHandler_Status(t *testing.T) {
	tm := newTestTokenManager(t)
	handler := NewAuthHandler(tm)

	t.Run("anonymous", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.Status(recorder, httptest.NewRequest("GET", "/api/v1/auth/status", nil))

		var response StatusResponse
		parseJSONResponse(t, recorder, &response)
		if response.Authenticated {
			t.Error("expected unauthenticated")
		}
	})

	t.Run("bearer token", func(t *testing.T) {
		token, _, err := tm.Issue("admin", middleware.RoleAdmin)
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}
		req := httptest.NewRequest("GET", "/api/v1/auth/status", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		recorder := httptest.NewRecorder()

		handler.Status(recorder, req)

		var response StatusResponse
		parseJSONResponse(t, recorder, &response)
		if !response.Authenticated || response.Username != "admin" || response.Role != middleware.RoleAdmin {
			t.Errorf("unexpected status %+v", response)
		}
	})

	t.Run("tampered token", func(t *testing.T) {
		token, _, _ := tm.Issue("admin", middleware.RoleAdmin)
		req := httptest.NewRequest("GET", "/api/v1/auth/status", nil)
		req.Header.Set("Authorization", "Bearer "+token+"x")
		recorder := httptest.NewRecorder()

		handler.Status(recorder, req)

		var response StatusResponse
		parseJSONResponse(t, recorder, &response)
		if response.Authenticated {
			t.Error("expected tampered token to be rejected")
		}
	})
}
