package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/imagepipe"
)

// Nomes das partes de um formulário multipart.
const (
	PayloadField = "payload"
	ImagesField  = "images"
)

// DecodeJSON lê o corpo JSON em v.
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.NewValidationError("Payload inválido. Verifique o formato JSON.")
	}
	return nil
}

// DecodeEntity aceita application/json ou multipart/form-data com uma parte
// "payload" (JSON) e zero ou mais arquivos "images".
func DecodeEntity(w http.ResponseWriter, r *http.Request, maxBytes int64, v interface{}) ([]imagepipe.File, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return nil, DecodeJSON(r, v)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, apperror.NewValidationError("Formulário multipart inválido ou grande demais.")
	}
	if err := json.Unmarshal([]byte(r.FormValue(PayloadField)), v); err != nil {
		return nil, apperror.NewValidationError("A parte 'payload' deve conter JSON válido.")
	}

	headers := r.MultipartForm.File[ImagesField]
	if len(headers) > domain.MaxImagesPerEntity {
		return nil, apperror.NewValidationError(fmt.Sprintf("No máximo %d imagens por envio.", domain.MaxImagesPerEntity))
	}

	files := make([]imagepipe.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, apperror.NewValidationError(fmt.Sprintf("Não foi possível ler a imagem %s.", fh.Filename))
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, apperror.NewValidationError(fmt.Sprintf("Não foi possível ler a imagem %s.", fh.Filename))
		}
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		files = append(files, imagepipe.File{Name: fh.Filename, ContentType: contentType, Data: data})
	}
	return files, nil
}

// PathIndex lê um parâmetro de rota inteiro (ex.: {index}).
func PathIndex(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, apperror.NewValidationError(fmt.Sprintf("O parâmetro %s deve ser um número.", name))
	}
	return n, nil
}
