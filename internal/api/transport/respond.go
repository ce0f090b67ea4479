// Package transport reúne o que os handlers HTTP compartilham: envelope de
// resposta, decodificação de payloads (JSON ou multipart) e streaming SSE.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"

	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/pkg/logger"
)

// NewErrorResponse monta o envelope de erro. Erros de agenda levam o tipo e o índice do horário.
func NewErrorResponse(err error) domain.ErrorResponse {
	status, category, message := apperror.MapToHTTPStatus(err)
	resp := domain.ErrorResponse{Code: status, Category: category, Message: message}

	var se *apperror.ScheduleError
	if errors.As(err, &se) {
		resp.Kind = string(se.Kind)
		if se.Index != apperror.NoSlot {
			idx := se.Index
			resp.SlotIndex = &idx
		}
	}
	return resp
}

// Respond processa erros de serviço e envia respostas padronizadas ao cliente.
// Erros 5xx são registrados no log e enviados ao Sentry.
func Respond(w http.ResponseWriter, r *http.Request, log logger.Logger, data interface{}, err error, successStatus int) {
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)

		log.Debug("Requisição concluída com sucesso", map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": successStatus,
		})

		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				log.Error("Falha ao codificar JSON de resposta", jsonErr)
			}
		}
		return
	}

	resp := NewErrorResponse(err)
	if resp.Code >= 500 {
		log.Error(fmt.Sprintf("Erro de Servidor: %s", resp.Category), err)
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
	} else {
		log.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", resp.Code, resp.Category), map[string]interface{}{"path": r.URL.Path})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Code)
	json.NewEncoder(w).Encode(resp)
}
