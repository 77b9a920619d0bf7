package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/attendance/internal/web/middleware"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	tokens *middleware.TokenManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(tm *middleware.TokenManager) *AuthHandler {
	return &AuthHandler{tokens: tm}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Token     string `json:"token,omitempty"`
	Role      string `json:"role,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, ok := h.tokens.Authenticate(req.Username, req.Password)
	if !ok {
		log.Printf("Failed login for %q", sanitizeForLog(req.Username))
		respondJSON(w, http.StatusUnauthorized, LoginResponse{
			Success: false,
			Message: "invalid credentials",
		})
		return
	}

	token, claims, err := h.tokens.Issue(user.Username, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.tokens.SetTokenCookie(w, r, token, claims.ExpiresAt.Time)

	respondJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		Message:   "logged in as " + user.Username,
		Token:     token,
		Role:      user.Role,
		ExpiresAt: claims.ExpiresAt.Time.Format(time.RFC3339),
	})
}

// Logout clears the token cookie. Tokens are stateless and expire on their own.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.tokens.ClearTokenCookie(w)
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "logged out"})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Role          string `json:"role,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// Status checks if the request carries a valid token.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims := h.tokens.FromRequest(r)
	if claims == nil {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		Username:      claims.Subject,
		Role:          claims.Role,
		ExpiresAt:     claims.ExpiresAt.Time.Format(time.RFC3339),
	})
}
