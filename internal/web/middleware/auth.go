package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/constants"
)

type contextKey string

const claimsContextKey contextKey = "claims"

const tokenCookieName = "attendance_token"

// Roles
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// Claims are the JWT claims of an authenticated user
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager authenticates users against the configured accounts and
// issues stateless HS256 tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	users  map[string]config.UserConfig
}

// NewTokenManager creates a new token manager
func NewTokenManager(cfg *config.AuthConfig) *TokenManager {
	secret := cfg.GetJWTSecret()
	if len(secret) == 0 {
		log.Println("Warning: JWT_SECRET is not set, using an insecure development secret")
		secret = []byte("attendance-dev-secret-change-in-production")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = constants.DefaultTokenTTLHours * time.Hour
	}
	users := make(map[string]config.UserConfig, len(cfg.Users))
	for _, u := range cfg.Users {
		users[u.Username] = u
	}
	return &TokenManager{secret: secret, ttl: ttl, users: users}
}

// Authenticate checks a username and password against the bcrypt hash of the account
func (tm *TokenManager) Authenticate(username, password string) (*config.UserConfig, bool) {
	user, ok := tm.users[username]
	if !ok {
		return nil, false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, false
	}
	return &user, true
}

// Issue signs a token for the user
func (tm *TokenManager) Issue(username, role string) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, claims, nil
}

// Parse validates a token and returns its claims
func (tm *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// FromRequest returns the claims of the bearer token or token cookie, nil if absent or invalid
func (tm *TokenManager) FromRequest(r *http.Request) *Claims {
	tokenString := ""
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		tokenString = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	} else if cookie, err := r.Cookie(tokenCookieName); err == nil {
		tokenString = cookie.Value
	}
	if tokenString == "" {
		return nil
	}
	claims, err := tm.Parse(tokenString)
	if err != nil {
		return nil
	}
	return claims
}

// SetTokenCookie stores the token in an HttpOnly cookie
func (tm *TokenManager) SetTokenCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie removes the token cookie
func (tm *TokenManager) ClearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// RequireAuth is middleware that requires a valid token
func RequireAuth(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := tm.FromRequest(r)
			if claims == nil {
				http.Error(w, `{"success": false, "message": "unauthorized"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole is middleware that requires one of the roles. It must run after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				http.Error(w, `{"success": false, "message": "unauthorized"}`, http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, `{"success": false, "message": "forbidden"}`, http.StatusForbidden)
		})
	}
}

// GetClaimsFromContext retrieves the claims from the request context
func GetClaimsFromContext(ctx context.Context) *Claims {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// SetClaimsInContext adds claims to the context.
// This is primarily for testing - use RequireAuth middleware in production.
func SetClaimsInContext(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}
