package user

import (
	"context"
	"net/http"

	"sitetrack/internal/api/transport"
	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/pkg/middleware"
)

// UserService define o contrato para as operações de cadastro, login e sessão.
type UserService interface {
	SignUp(ctx context.Context, registration domain.UserRegistration) (domain.User, error)
	SignIn(ctx context.Context, login domain.UserLogin) (domain.LoginResult, error)
	SignOut(ctx context.Context, session domain.Session) error
	Me(ctx context.Context, session domain.Session) (domain.User, error)
	SearchUsers(ctx context.Context, session domain.Session, q string) ([]domain.UserInfo, error)
}

// Handler agrupa todos os métodos de Handler do usuário.
type Handler struct {
	Service UserService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc UserService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// RegisterUserHandler lida com a requisição POST /v1/register.
// @Summary Registra um novo usuário
// @Description Cria um usuário com o papel escolhido. O código secreto do papel é obrigatório.
// @Tags users
// @Accept json
// @Produce json
// @Param registration body domain.UserRegistration true "Dados de cadastro"
// @Success 201 {object} domain.User "Usuário criado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 403 {object} domain.ErrorResponse "Código de cadastro inválido"
// @Failure 409 {object} domain.ErrorResponse "Email já cadastrado"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /register [post]
func (h *Handler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var reg domain.UserRegistration
	if err := transport.DecodeJSON(r, &reg); err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}

	newUser, err := h.Service.SignUp(r.Context(), reg)
	transport.Respond(w, r, h.Logger, newUser, err, http.StatusCreated)
}

// LoginUserHandler lida com a requisição POST /v1/login.
// @Summary Autentica um usuário e retorna um JWT
// @Description role indica a aba usada: "admin" só aceita administradores e "user" recusa administradores.
// @Tags users
// @Accept json
// @Produce json
// @Param login body domain.UserLogin true "Credenciais do usuário"
// @Success 200 {object} domain.LoginResult "Token JWT emitido"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 401 {object} domain.ErrorResponse "Credenciais inválidas"
// @Router /login [post]
func (h *Handler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var login domain.UserLogin
	if err := transport.DecodeJSON(r, &login); err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}

	result, err := h.Service.SignIn(r.Context(), login)
	transport.Respond(w, r, h.Logger, result, err, http.StatusOK)
}

// LogoutUserHandler lida com POST /v1/logout.
// @Summary Encerra a sessão atual
// @Tags users
// @Success 204
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /logout [post]
func (h *Handler) LogoutUserHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		transport.Respond(w, r, h.Logger, nil, apperror.NewUnauthorizedError("Sessão ausente."), 0)
		return
	}
	err := h.Service.SignOut(r.Context(), s)
	transport.Respond(w, r, h.Logger, nil, err, http.StatusNoContent)
}

// MeHandler lida com GET /v1/me.
// @Summary Retorna o usuário autenticado
// @Tags users
// @Produce json
// @Success 200 {object} domain.User
// @Security BearerAuth
// @Router /me [get]
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		transport.Respond(w, r, h.Logger, nil, apperror.NewUnauthorizedError("Sessão ausente."), 0)
		return
	}
	u, err := h.Service.Me(r.Context(), s)
	transport.Respond(w, r, h.Logger, u, err, http.StatusOK)
}

// SearchUsersHandler lida com GET /v1/users?q= (admin).
// @Summary Busca usuários por nome ou email
// @Tags users
// @Produce json
// @Param q query string false "Texto de busca"
// @Success 200 {array} domain.UserInfo
// @Failure 403 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /users [get]
func (h *Handler) SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		transport.Respond(w, r, h.Logger, nil, apperror.NewUnauthorizedError("Sessão ausente."), 0)
		return
	}
	users, err := h.Service.SearchUsers(r.Context(), s, r.URL.Query().Get("q"))
	transport.Respond(w, r, h.Logger, users, err, http.StatusOK)
}
