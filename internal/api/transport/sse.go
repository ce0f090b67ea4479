package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperror "sitetrack/internal/errors"
	"sitetrack/internal/pkg/logger"
)

// HeartbeatInterval mantém a conexão SSE viva atrás de proxies.
const HeartbeatInterval = 25 * time.Second

// StreamSSE envia cada valor de snapshots como um evento "snapshot" até o
// canal fechar ou o cliente desconectar.
func StreamSSE[T any](w http.ResponseWriter, r *http.Request, log logger.Logger, snapshots <-chan T) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		Respond(w, r, log, nil, apperror.NewInternalError("streaming não suportado", nil), 0)
		return
	}

	// O WriteTimeout do servidor não vale para conexões de streaming.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Warn("Não foi possível remover o prazo de escrita do stream", map[string]interface{}{"error": err.Error()})
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				log.Error("Falha ao serializar snapshot", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
