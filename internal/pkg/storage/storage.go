package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ObjectStore grava bytes em um caminho e devolve a URL pública do objeto.
type ObjectStore interface {
	Put(ctx context.Context, path, contentType string, data []byte) (string, error)
}

// LocalStore grava os objetos em disco. Os arquivos são servidos em BaseURL
// (o servidor HTTP expõe o diretório em /media/).
type LocalStore struct {
	Dir     string
	BaseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("falha ao criar diretório de mídia %s: %w", dir, err)
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean("/" + path)
	full := filepath.Join(s.Dir, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("falha ao criar diretório: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("falha ao gravar %s: %w", clean, err)
	}
	return s.BaseURL + filepath.ToSlash(clean), nil
}
