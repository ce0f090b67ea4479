package imagepipe

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	apperror "sitetrack/internal/errors"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/pkg/storage"
)

// Pipeline comprime e envia imagens para o ObjectStore.
type Pipeline struct {
	store  storage.ObjectStore
	opts   Options
	logger logger.Logger
	now    func() time.Time
}

func NewPipeline(store storage.ObjectStore, opts Options, log logger.Logger) *Pipeline {
	return &Pipeline{store: store, opts: opts, logger: log, now: time.Now}
}

// Upload grava uma imagem já comprimida em path e retorna a URL.
func (p *Pipeline) Upload(ctx context.Context, f File, path string) (string, error) {
	url, err := p.store.Put(ctx, path, f.ContentType, f.Data)
	if err != nil {
		p.logger.Error("Falha no upload da imagem "+path, err)
		return "", apperror.NewUploadError(path, err)
	}
	p.logger.Debug("Imagem enviada", map[string]interface{}{"path": path, "bytes": len(f.Data)})
	return url, nil
}

// maxParallelUploads limita quantas imagens são comprimidas e enviadas ao mesmo tempo.
const maxParallelUploads = 4

// UploadAll comprime e envia todas as imagens em paralelo. Qualquer falha cancela
// o lote e nenhuma URL é retornada. As URLs seguem a ordem de files.
func (p *Pipeline) UploadAll(ctx context.Context, files []File, basePath string) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	stamp := p.now().UnixMilli()
	urls := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)
	for i, f := range files {
		g.Go(func() error {
			compressed, err := Compress(f, p.opts)
			if err != nil {
				return err
			}
			path := fmt.Sprintf("%s/%d-%d-%s", strings.TrimRight(basePath, "/"), stamp, i, SanitizeName(compressed.Name))
			url, err := p.Upload(gctx, compressed, path)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.logger.Info("Imagens enviadas", map[string]interface{}{"count": len(urls), "base_path": basePath})
	return urls, nil
}

// SanitizeName deixa apenas letras, dígitos, ponto, hífen e sublinhado no nome do arquivo.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "image.jpg"
	}
	return out
}
