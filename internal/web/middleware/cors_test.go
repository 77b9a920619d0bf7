package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://kiosk.campus.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		origin      string
		method      string
		wantAllowed bool
		wantStatus  int
	}{
		{"configured origin", "https://kiosk.campus.example", "GET", true, http.StatusOK},
		{"localhost", "http://localhost:5173", "GET", true, http.StatusOK},
		{"loopback ip", "http://127.0.0.1:3000", "GET", true, http.StatusOK},
		{"localhost lookalike", "http://localhost.evil.example", "GET", false, http.StatusOK},
		{"unknown origin", "https://evil.example", "GET", false, http.StatusOK},
		{"no origin", "", "GET", false, http.StatusOK},
		{"preflight", "https://kiosk.campus.example", "OPTIONS", true, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/slots", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, req)

			if recorder.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, recorder.Code)
			}
			got := recorder.Header().Get("Access-Control-Allow-Origin")
			if tt.wantAllowed && got != tt.origin {
				t.Errorf("expected origin %q to be allowed, got %q", tt.origin, got)
			}
			if !tt.wantAllowed && got != "" {
				t.Errorf("expected no allow-origin header, got %q", got)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/", nil))

	for _, h := range []string{"Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options"} {
		if recorder.Header().Get(h) == "" {
			t.Errorf("expected %s header", h)
		}
	}
}
