// Package storage keeps uploaded files (signed documents, acknowledgment
// scans, signatures) and hands out short-lived download links.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a reference does not name a stored object.
var ErrNotFound = errors.New("file not found")

// Folders accepted by Upload.
var Folders = map[string]bool{
	"onboarding": true,
	"hr-records": true,
	"signatures": true,
	"training":   true,
}

// FileStore uploads objects and resolves references to download URLs.
type FileStore interface {
	Upload(ctx context.Context, folder, filename string, r io.Reader, size int64, contentType string) (string, error)
	PresignedURL(ctx context.Context, ref string) (string, error)
}

// ObjectKey builds "<folder>/<yyyy>/<mm>/<uuid>-<name>" for an upload.
func ObjectKey(folder, filename string, at time.Time) string {
	return path.Join(folder, at.UTC().Format("2006/01"), uuid.NewString()+"-"+cleanName(filename))
}

// cleanName strips directories and anything outside [A-Za-z0-9._-].
func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

// MemoryStorage keeps objects in process; used when MinIO is not configured.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{objects: map[string][]byte{}, baseURL: strings.TrimRight(baseURL, "/")}
}

func (m *MemoryStorage) Upload(_ context.Context, folder, filename string, r io.Reader, _ int64, _ string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := ObjectKey(folder, filename, time.Now())
	m.mu.Lock()
	m.objects[key] = b
	m.mu.Unlock()
	return key, nil
}

func (m *MemoryStorage) PresignedURL(_ context.Context, ref string) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[ref]
	m.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	return m.baseURL + "/" + ref, nil
}

// Bytes returns a stored object; tests only.
func (m *MemoryStorage) Bytes(ref string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[ref]
	return b, ok
}
