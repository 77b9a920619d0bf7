package recognition

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}

func TestClientDetectFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/embed/face" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("expected file part: %v", err)
		}
		defer file.Close()
		if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("expected image/jpeg part, got %s", ct)
		}
		data, _ := io.ReadAll(file)
		if len(data) != len(jpegHeader) {
			t.Errorf("expected %d bytes, got %d", len(jpegHeader), len(data))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"faces": []map[string]any{
				{"face_index": 0, "dim": 3, "embedding": []float32{1, 0, 0}, "bbox": []float64{10, 20, 110, 140}, "det_score": 0.98},
			},
			"model": "buffalo_l",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	resp, err := client.DetectFaces(context.Background(), jpegHeader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.FacesCount != 1 || len(resp.Faces) != 1 {
		t.Fatalf("expected one face, got %+v", resp)
	}
	if resp.Faces[0].DetScore != 0.98 || len(resp.Faces[0].Embedding) != 3 {
		t.Errorf("unexpected face: %+v", resp.Faces[0])
	}
}

func TestClientDetectFacesNoFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"faces_count": 0, "faces": []}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).DetectFaces(context.Background(), jpegHeader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.FacesCount != 0 || len(resp.Faces) != 0 {
		t.Errorf("expected no faces, got %+v", resp)
	}
}

func TestClientDetectFacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := NewClient(server.URL).DetectFaces(context.Background(), jpegHeader); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestClientHealth(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if err := client.Health(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}
	healthy = false
	if err := client.Health(context.Background()); err == nil {
		t.Error("expected error for unhealthy service")
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", jpegHeader, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"short", []byte{0xFF}, "application/octet-stream"},
		{"unknown", []byte("plain text data"), "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMIMEType(tt.data); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}
