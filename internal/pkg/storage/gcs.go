package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

const publicHost = "https://storage.googleapis.com"

// GCSStore grava objetos em um bucket do Google Cloud Storage.
type GCSStore struct {
	svc    *gcs.Service
	bucket string
}

// NewGCSStore cria o cliente do bucket. Sem arquivo de credenciais, usa as
// Application Default Credentials do ambiente.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	client, err := httpClient(ctx, credentialsFile)
	if err != nil {
		return nil, err
	}

	svc, err := gcs.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("não foi possível criar o cliente do Cloud Storage: %w", err)
	}
	return &GCSStore{svc: svc, bucket: bucket}, nil
}

func httpClient(ctx context.Context, credentialsFile string) (*http.Client, error) {
	if credentialsFile == "" {
		client, err := google.DefaultClient(ctx, gcs.DevstorageReadWriteScope)
		if err != nil {
			return nil, fmt.Errorf("credenciais padrão do Google indisponíveis: %w", err)
		}
		return client, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("não foi possível ler %s: %w", credentialsFile, err)
	}
	creds, err := google.CredentialsFromJSON(ctx, b, gcs.DevstorageReadWriteScope)
	if err != nil {
		return nil, fmt.Errorf("credenciais inválidas em %s: %w", credentialsFile, err)
	}
	return oauth2.NewClient(ctx, creds.TokenSource), nil
}

func (s *GCSStore) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	obj := &gcs.Object{Name: strings.TrimPrefix(path, "/"), ContentType: contentType}

	stored, err := s.svc.Objects.Insert(s.bucket, obj).
		Media(bytes.NewReader(data)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("falha ao enviar %s ao bucket %s: %w", obj.Name, s.bucket, err)
	}
	return PublicURL(s.bucket, stored.Name), nil
}

// PublicURL monta a URL de leitura de um objeto, escapando cada segmento do caminho.
func PublicURL(bucket, name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return fmt.Sprintf("%s/%s/%s", publicHost, bucket, strings.Join(parts, "/"))
}
