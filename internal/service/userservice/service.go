package userservice

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/query"
)

// UserRepository é o contrato de persistência de usuários.
type UserRepository interface {
	Save(ctx context.Context, user domain.User) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id string) (domain.User, error)
	FindAll(ctx context.Context) (domain.UserDirectory, error)
}

// TokenService é o contrato da camada de token (internal/pkg/token).
type TokenService interface {
	GenerateToken(user domain.User) (string, time.Time, error)
}

// Revoker invalida tokens no logout.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// SignupCodes são os códigos secretos exigidos no cadastro de cada papel.
type SignupCodes struct {
	Admin string
	User  string
}

func (c SignupCodes) valid(role domain.UserRole, code string) bool {
	var want string
	switch role {
	case domain.RoleAdmin:
		want = c.Admin
	case domain.RoleUser:
		want = c.User
	}
	return want != "" && subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1
}

// UserService define o serviço de lógica de negócio para a entidade User.
type UserService struct {
	UserRepo UserRepository
	TokenSvc TokenService
	Revoker  Revoker
	codes    SignupCodes
	validate *validator.Validate
	logger   logger.Logger
}

// NewService cria uma nova instância do UserService, injetando o Repositório.
func NewService(repo UserRepository, tokenSvc TokenService, revoker Revoker, codes SignupCodes, logger logger.Logger) *UserService {
	return &UserService{
		UserRepo: repo,
		TokenSvc: tokenSvc,
		Revoker:  revoker,
		codes:    codes,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// validationMessage traduz o primeiro erro do validator para uma mensagem legível.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Dados inválidos."
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("O campo %s é obrigatório.", field)
	case "email":
		return "Informe um email válido."
	case "min":
		return fmt.Sprintf("O campo %s deve ter pelo menos %s caracteres.", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("O campo %s deve ser um de: %s.", field, fe.Param())
	}
	return fmt.Sprintf("O campo %s é inválido.", field)
}

// SignUp registra um novo usuário. O papel só é concedido com o código secreto correspondente.
func (s *UserService) SignUp(ctx context.Context, registration domain.UserRegistration) (domain.User, error) {
	registration.Email = strings.TrimSpace(registration.Email)
	registration.Name = strings.TrimSpace(registration.Name)

	// 1. Validação
	if err := s.validate.Struct(registration); err != nil {
		return domain.User{}, apperror.NewValidationError(validationMessage(err))
	}
	if !s.codes.valid(registration.Role, registration.Code) {
		s.logger.Warn("Código de cadastro inválido.", map[string]interface{}{"email": registration.Email, "role": registration.Role})
		return domain.User{}, apperror.NewValidationError("Código de cadastro inválido para o tipo de conta escolhido.")
	}

	// 2. Hashing da Senha
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, apperror.NewInternalError("Falha ao gerar hash da senha.", err)
	}

	// 3. Persistência (e-mail duplicado vira ConflictError no repositório)
	user, err := s.UserRepo.Save(ctx, domain.User{
		Email:        registration.Email,
		Name:         registration.Name,
		PasswordHash: string(hashedPassword),
		Role:         registration.Role,
	})
	if err != nil {
		return domain.User{}, err
	}

	s.logger.Info("Usuário registrado.", map[string]interface{}{"user_id": user.ID, "role": user.Role})
	return user, nil
}

// SignIn autentica e emite o JWT. Role é a aba escolhida na tela de login:
// contas de administrador entram pela aba de administrador e vice-versa.
func (s *UserService) SignIn(ctx context.Context, login domain.UserLogin) (domain.LoginResult, error) {
	if err := s.validate.Struct(login); err != nil {
		return domain.LoginResult{}, apperror.NewValidationError(validationMessage(err))
	}

	user, err := s.UserRepo.FindByEmail(ctx, login.Email)
	if err != nil {
		// NotFound vira Unauthorized para não dar dicas a invasores.
		var notFoundErr *apperror.NotFoundError
		if errors.As(err, &notFoundErr) {
			return domain.LoginResult{}, apperror.NewUnauthorizedError("Credenciais inválidas.")
		}
		return domain.LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(login.Password)); err != nil {
		return domain.LoginResult{}, apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	switch {
	case login.Role == domain.RoleAdmin && user.Role != domain.RoleAdmin:
		return domain.LoginResult{}, apperror.NewUnauthorizedError("Credenciais de administrador inválidas.")
	case login.Role == domain.RoleUser && user.Role == domain.RoleAdmin:
		return domain.LoginResult{}, apperror.NewUnauthorizedError("Use a aba Conta de Administrador para entrar.")
	}

	tokenString, expiresAt, err := s.TokenSvc.GenerateToken(user)
	if err != nil {
		return domain.LoginResult{}, apperror.NewInternalError("Falha ao gerar token de autenticação.", err)
	}

	s.logger.Info("Login realizado.", map[string]interface{}{"user_id": user.ID, "role": user.Role})
	return domain.LoginResult{Token: tokenString, ExpiresAt: expiresAt, User: user}, nil
}

// SignOut revoga o token da sessão até a sua expiração.
func (s *UserService) SignOut(ctx context.Context, session domain.Session) error {
	if session.TokenID == "" {
		return apperror.NewUnauthorizedError("Sessão sem identificador de token.")
	}
	if err := s.Revoker.Revoke(ctx, session.TokenID, session.ExpiresAt); err != nil {
		return apperror.NewInternalError("Falha ao encerrar a sessão.", err)
	}
	s.logger.Info("Logout realizado.", map[string]interface{}{"user_id": session.UserID})
	return nil
}

// Me retorna o usuário da sessão.
func (s *UserService) Me(ctx context.Context, session domain.Session) (domain.User, error) {
	return s.UserRepo.FindByID(ctx, session.UserID)
}

// SearchUsers alimenta o seletor de usuários dos filtros (somente administradores).
func (s *UserService) SearchUsers(ctx context.Context, session domain.Session, q string) ([]domain.UserInfo, error) {
	if !session.IsAdmin() {
		return nil, apperror.NewPermissionDeniedError("Apenas administradores podem consultar usuários.")
	}
	dir, err := s.UserRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return query.FilterUsers(dir, q), nil
}
