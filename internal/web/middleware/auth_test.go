package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kozaktomas/attendance/internal/config"
)

func testAuthConfig(t *testing.T) *config.AuthConfig {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &config.AuthConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
		Users: []config.UserConfig{
			{Username: "admin", PasswordHash: string(hash), Role: RoleAdmin},
			{Username: "kiosk", PasswordHash: string(hash), Role: RoleOperator},
		},
	}
}

func TestTokenManager_Authenticate(t *testing.T) {
	tm := NewTokenManager(testAuthConfig(t))

	tests := []struct {
		name     string
		username string
		password string
		wantRole string
		wantOK   bool
	}{
		{"admin", "admin", "secret", RoleAdmin, true},
		{"operator", "kiosk", "secret", RoleOperator, true},
		{"wrong password", "admin", "nope", "", false},
		{"unknown user", "ghost", "secret", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, ok := tm.Authenticate(tt.username, tt.password)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && user.Role != tt.wantRole {
				t.Errorf("expected role %s, got %s", tt.wantRole, user.Role)
			}
		})
	}
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	tm := NewTokenManager(testAuthConfig(t))

	token, claims, err := tm.Issue("admin", RoleAdmin)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if claims.ID == "" {
		t.Error("expected token id")
	}

	parsed, err := tm.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed.Subject != "admin" || parsed.Role != RoleAdmin {
		t.Errorf("unexpected claims: %+v", parsed)
	}

	other := NewTokenManager(&config.AuthConfig{JWTSecret: "other-secret"})
	if _, err := other.Parse(token); err == nil {
		t.Error("expected signature error with a different secret")
	}
}

func TestTokenManager_ExpiredToken(t *testing.T) {
	cfg := testAuthConfig(t)
	tm := NewTokenManager(cfg)
	tm.ttl = -time.Minute

	token, _, err := tm.Issue("admin", RoleAdmin)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := tm.Parse(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestTokenManager_FromRequest(t *testing.T) {
	tm := NewTokenManager(testAuthConfig(t))
	token, claims, _ := tm.Issue("kiosk", RoleOperator)

	t.Run("bearer", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		if got := tm.FromRequest(req); got == nil || got.Subject != "kiosk" {
			t.Errorf("expected claims from bearer token, got %+v", got)
		}
	})

	t.Run("cookie", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		tm.SetTokenCookie(recorder, httptest.NewRequest("POST", "/", nil), token, claims.ExpiresAt.Time)
		cookies := recorder.Result().Cookies()
		if len(cookies) != 1 || !cookies[0].HttpOnly {
			t.Fatalf("expected one HttpOnly cookie, got %+v", cookies)
		}

		req := httptest.NewRequest("GET", "/", nil)
		req.AddCookie(cookies[0])
		if got := tm.FromRequest(req); got == nil || got.Role != RoleOperator {
			t.Errorf("expected claims from cookie, got %+v", got)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		if got := tm.FromRequest(req); got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if got := tm.FromRequest(httptest.NewRequest("GET", "/", nil)); got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})
}

func TestTokenManager_ClearTokenCookie(t *testing.T) {
	tm := NewTokenManager(testAuthConfig(t))
	recorder := httptest.NewRecorder()
	tm.ClearTokenCookie(recorder)

	cookies := recorder.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expiring cookie, got %+v", cookies)
	}
}

func TestRequireAuth(t *testing.T) {
	tm := NewTokenManager(testAuthConfig(t))
	token, _, _ := tm.Issue("admin", RoleAdmin)

	handler := RequireAuth(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaimsFromContext(r.Context())
		if claims == nil {
			t.Error("expected claims in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/", nil))
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", recorder.Code)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", recorder.Code)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		claims   *Claims
		expected int
	}{
		{"no claims", nil, http.StatusUnauthorized},
		{"operator", &Claims{Role: RoleOperator}, http.StatusForbidden},
		{"admin", &Claims{Role: RoleAdmin}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", nil)
			if tt.claims != nil {
				req = req.WithContext(SetClaimsInContext(req.Context(), tt.claims))
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, req)
			if recorder.Code != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, recorder.Code)
			}
		})
	}
}

func TestGetClaimsFromContext(t *testing.T) {
	if GetClaimsFromContext(context.Background()) != nil {
		t.Error("expected nil for empty context")
	}
	ctx := SetClaimsInContext(context.Background(), &Claims{Role: RoleAdmin})
	if claims := GetClaimsFromContext(ctx); claims == nil || claims.Role != RoleAdmin {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestNewTokenManagerDefaults(t *testing.T) {
	tm := NewTokenManager(&config.AuthConfig{})
	if len(tm.secret) == 0 || !strings.Contains(string(tm.secret), "dev") {
		t.Error("expected development secret")
	}
	if tm.ttl != 12*time.Hour {
		t.Errorf("expected default ttl, got %v", tm.ttl)
	}
}
