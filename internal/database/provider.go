package database

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// OpenFunc opens a backend for a connection URL.
type OpenFunc func(ctx context.Context, url string) (Store, error)

var (
	backends   = make(map[string]OpenFunc)
	backendsMu sync.RWMutex
)

// RegisterBackend registers a store constructor for URL schemes.
// This is called from cmd to avoid import cycles between the database packages.
func RegisterBackend(open OpenFunc, schemes ...string) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	for _, s := range schemes {
		backends[strings.ToLower(s)] = open
	}
}

// SchemeOf returns the scheme of a connection URL ("postgres", "sqlite", ...).
func SchemeOf(url string) string {
	scheme, _, ok := strings.Cut(url, "://")
	if !ok {
		if strings.HasPrefix(url, "file:") {
			return "file"
		}
		return ""
	}
	return strings.ToLower(scheme)
}

// Open opens the backend registered for the URL's scheme.
func Open(ctx context.Context, url string) (Store, error) {
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	scheme := SchemeOf(url)

	backendsMu.RLock()
	open, ok := backends[scheme]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no database backend registered for scheme %q", scheme)
	}

	store, err := open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", scheme, err)
	}
	return store, nil
}
