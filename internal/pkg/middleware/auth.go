package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/pkg/token"
)

// ContextKey é o tipo das chaves que este pacote grava no contexto.
type ContextKey int

const (
	SessionKey ContextKey = iota
)

// TokenService define o contrato de validação necessário para o middleware.
type TokenService interface {
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// RevocationChecker informa se um token foi encerrado por logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// NewAuthMiddleware valida o JWT do header Authorization e anexa a domain.Session ao contexto.
// Em conexões de streaming (EventSource não envia headers), o token também é aceito em ?access_token=.
func NewAuthMiddleware(tokenSvc TokenService, revoked RevocationChecker, log logger.Logger) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				WriteError(w, apperror.NewUnauthorizedError("Token de autorização ausente ou malformado."))
				return
			}

			claims, err := tokenSvc.ValidateToken(tokenString)
			if err != nil {
				log.Debug("Token rejeitado", map[string]interface{}{"reason": err.Error()})
				WriteError(w, apperror.NewUnauthorizedError("Token inválido ou expirado."))
				return
			}

			isRevoked, err := revoked.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				log.Error("Falha ao consultar tokens revogados", err)
				WriteError(w, apperror.NewInternalError("não foi possível validar a sessão", err))
				return
			}
			if isRevoked {
				WriteError(w, apperror.NewUnauthorizedError("Sessão encerrada. Faça login novamente."))
				return
			}

			ctx := WithSession(r.Context(), claims.Session())
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if t, ok := strings.CutPrefix(authHeader, "Bearer "); ok && t != "" {
		return t, true
	}
	if t := r.URL.Query().Get("access_token"); t != "" {
		return t, true
	}
	return "", false
}

// WithSession anexa a sessão ao contexto.
func WithSession(ctx context.Context, s domain.Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// SessionFromContext é uma função utilitária para extrair a sessão no handler.
func SessionFromContext(ctx context.Context) (domain.Session, bool) {
	s, ok := ctx.Value(SessionKey).(domain.Session)
	return s, ok
}

// PermissionMiddleware restringe a rota aos papéis informados.
func PermissionMiddleware(requiredRoles ...domain.UserRole) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFromContext(r.Context())
			if !ok {
				WriteError(w, apperror.NewUnauthorizedError("Autorização necessária. Token não processado."))
				return
			}

			for _, requiredRole := range requiredRoles {
				if session.Role == requiredRole {
					next.ServeHTTP(w, r)
					return
				}
			}

			WriteError(w, apperror.NewPermissionDeniedError("Acesso negado. Você não tem a permissão necessária."))
		}
	}
}

// WriteError escreve o envelope JSON de erro padrão.
func WriteError(w http.ResponseWriter, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{Code: status, Category: category, Message: message})
}
