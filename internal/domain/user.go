package domain

import "time"

// User representa a entidade do usuário no sistema.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"` // Oculta o hash da senha no JSON de resposta
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRole é um tipo string para representar o papel do usuário no sistema.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

func (r UserRole) Valid() bool { return r == RoleAdmin || r == RoleUser }

// UserRegistration representa o payload de entrada para o registro.
// Code é o código secreto exigido para o papel escolhido.
type UserRegistration struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Name     string   `json:"name" validate:"required,min=2"`
	Role     UserRole `json:"role" validate:"required,oneof=admin user"`
	Code     string   `json:"code" validate:"required"`
}

// UserLogin representa o payload de login. Role indica a aba escolhida (usuário ou admin).
type UserLogin struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required"`
	Role     UserRole `json:"role" validate:"omitempty,oneof=admin user"`
}

// LoginResult é a resposta de um login bem-sucedido.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Session é a identidade autenticada de uma requisição.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      UserRole  `json:"role"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// UserInfo é a visão pública de um usuário, usada no diretório de busca.
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserDirectory indexa usuários por ID.
type UserDirectory map[string]UserInfo

// ListScope restringe as consultas de listagem: administradores veem tudo,
// os demais apenas os próprios registros.
type ListScope struct {
	All     bool
	OwnerID string
}

// ScopeFor deriva o escopo de listagem a partir da sessão.
func ScopeFor(s Session) ListScope {
	if s.IsAdmin() {
		return ListScope{All: true}
	}
	return ListScope{OwnerID: s.UserID}
}
