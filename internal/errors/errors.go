package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros customizados do SiteTrack.
// Ela permite que o código externo (Handler) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "VALIDATION_ERROR", "NOT_FOUND")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// --- Tipos de Erro Específicos (Erros de Domínio) ---

// ValidationError representa falhas de validação de dados de entrada.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest }
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// UnauthorizedError representa credenciais ausentes, inválidas ou revogadas.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized }
func (e *UnauthorizedError) Unwrap() error    { return nil }

func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// PermissionDeniedError indica que a política de autorização negou a ação.
type PermissionDeniedError struct {
	Msg string
}

func (e *PermissionDeniedError) Error() string    { return fmt.Sprintf("Permissão negada: %s", e.Msg) }
func (e *PermissionDeniedError) Category() string { return "PERMISSION_DENIED" }
func (e *PermissionDeniedError) HTTPStatus() int  { return http.StatusForbidden }
func (e *PermissionDeniedError) Unwrap() error    { return nil }

func NewPermissionDeniedError(msg string) AppError {
	return &PermissionDeniedError{Msg: msg}
}

// NotFoundError representa a ausência de um recurso solicitado.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound }
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// ConflictError representa um conflito na regra de negócio (e.g., OCC, recurso duplicado).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict }
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError cria um novo erro de conflito (usado em OCC).
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// --- Erros de Agenda ---

// ScheduleKind identifica a regra de agenda violada.
type ScheduleKind string

const (
	ScheduleDuplicateDate    ScheduleKind = "DUPLICATE_DATE"
	ScheduleInvalidRange     ScheduleKind = "INVALID_RANGE"
	ScheduleLocked           ScheduleKind = "LOCKED"
	ScheduleMissingSlot      ScheduleKind = "MISSING_SLOT"
	ScheduleMissingStartTime ScheduleKind = "MISSING_START_TIME"
)

// NoSlot é usado como índice quando o erro não se refere a um horário específico.
const NoSlot = -1

// ScheduleError representa uma violação das regras de horários de uma tarefa.
type ScheduleError struct {
	Kind  ScheduleKind
	Index int // índice do horário envolvido, ou NoSlot
	Msg   string
}

func (e *ScheduleError) Error() string    { return fmt.Sprintf("Erro de Agenda: %s", e.Msg) }
func (e *ScheduleError) Category() string { return "SCHEDULE_ERROR" }
func (e *ScheduleError) HTTPStatus() int  { return http.StatusUnprocessableEntity }
func (e *ScheduleError) Unwrap() error    { return nil }

// NewScheduleError cria um erro de agenda para o horário de índice index.
func NewScheduleError(kind ScheduleKind, index int, msg string) AppError {
	return &ScheduleError{Kind: kind, Index: index, Msg: msg}
}

// IsScheduleKind informa se err é um ScheduleError do tipo kind.
func IsScheduleKind(err error, kind ScheduleKind) bool {
	var se *ScheduleError
	return errors.As(err, &se) && se.Kind == kind
}

// --- Erros do Pipeline de Imagens ---

// CompressionError indica que uma imagem não pôde ser decodificada ou recodificada.
type CompressionError struct {
	Msg string
	Err error
}

func (e *CompressionError) Error() string    { return fmt.Sprintf("Falha ao comprimir imagem: %s", e.Msg) }
func (e *CompressionError) Category() string { return "COMPRESSION_ERROR" }
func (e *CompressionError) HTTPStatus() int  { return http.StatusUnprocessableEntity }
func (e *CompressionError) Unwrap() error    { return e.Err }

func NewCompressionError(msg string, err error) AppError {
	return &CompressionError{Msg: msg, Err: err}
}

// UploadError indica falha ao enviar um arquivo ao armazenamento de objetos.
type UploadError struct {
	Msg string
	Err error
}

func (e *UploadError) Error() string    { return fmt.Sprintf("Falha no upload: %s", e.Msg) }
func (e *UploadError) Category() string { return "UPLOAD_ERROR" }
func (e *UploadError) HTTPStatus() int  { return http.StatusBadGateway }
func (e *UploadError) Unwrap() error    { return e.Err }

func NewUploadError(msg string, err error) AppError {
	return &UploadError{Msg: msg, Err: err}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError }
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// PersistenceError representa falhas de leitura ou escrita no banco de dados.
type PersistenceError struct {
	Msg string
	Err error
}

func (e *PersistenceError) Error() string    { return fmt.Sprintf("Erro de Persistência: %s", e.Msg) }
func (e *PersistenceError) Category() string { return "PERSISTENCE_ERROR" }
func (e *PersistenceError) HTTPStatus() int  { return http.StatusInternalServerError }
func (e *PersistenceError) Unwrap() error    { return e.Err }

// NewDBError é um atalho para criar um PersistenceError a partir de uma falha do driver.
func NewDBError(msg string, err error) AppError {
	return &PersistenceError{Msg: fmt.Sprintf("%s (DB): %s", msg, err.Error()), Err: err}
}

// --- Helper para o Handler (Tradução Final) ---

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
// Erros encapsulados com %w mantêm a categoria original.
func MapToHTTPStatus(err error) (int, string, string) {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado: tratado como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}

// Is é um atalho para errors.Is, evitando importar os dois pacotes "errors" no mesmo arquivo.
func Is(err, target error) bool { return errors.Is(err, target) }

// As é um atalho para errors.As.
func As(err error, target any) bool { return errors.As(err, target) }
