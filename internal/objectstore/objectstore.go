// Package objectstore хранение бинарных артефактов (счетов) с публичной ссылкой.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("invalid object key")

// Store принимает объект и возвращает постоянную публичную ссылку
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// FileStore складывает объекты в каталог, раздаёт их HTTP-сервер по PublicBaseURL
type FileStore struct {
	dir     string
	baseURL string
}

func NewFileStore(dir, publicBaseURL string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create object dir: %w", err)
	}
	return &FileStore{dir: dir, baseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

// Put пишет через временный файл, чтобы по ссылке никогда не отдавался недописанный объект
func (s *FileStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	const op = "objectstore.FileStore.Put"

	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != key {
		return "", fmt.Errorf("%s: %q: %w", op, key, ErrInvalidKey)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	target := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return s.baseURL + "/" + escapePath(clean), nil
}

func escapePath(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
