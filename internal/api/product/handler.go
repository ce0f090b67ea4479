package product

import (
	"context"
	"net/http"
	"net/url"

	"sitetrack/internal/api/transport"
	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/imagepipe"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/pkg/middleware"
	"sitetrack/internal/query"
)

// ProductService define o contrato que o Handler espera da camada de Serviço.
type ProductService interface {
	CreateProduct(ctx context.Context, s domain.Session, input domain.ProductInput, files []imagepipe.File) (domain.Product, error)
	UpdateProduct(ctx context.Context, s domain.Session, id string, input domain.ProductInput, files []imagepipe.File) (domain.Product, error)
	DeleteProduct(ctx context.Context, s domain.Session, id string) error
	GetProduct(ctx context.Context, s domain.Session, id string) (domain.Product, error)
	SetProductStatus(ctx context.Context, s domain.Session, id string, status domain.ProductStatus) (domain.Product, error)
	ListProducts(ctx context.Context, s domain.Session, params query.ProductParams) (query.Page[domain.Product], error)
	WatchProducts(ctx context.Context, s domain.Session, params query.ProductParams) (<-chan query.Page[domain.Product], error)
}

// ViewStore guarda o estado da tela de listagem por usuário.
type ViewStore interface {
	Load(ctx context.Context, userID string) query.ListState[query.ProductFilters]
	Save(ctx context.Context, userID string, s query.ListState[query.ProductFilters])
}

// StatusRequest é o payload de PUT /v1/products/{id}/status.
type StatusRequest struct {
	Status domain.ProductStatus `json:"status" example:"approved"`
}

// ListResponse é a resposta de GET /v1/products.
type ListResponse = transport.ListResponse[domain.Product, query.ProductFilters]

// Handler agrupa todos os métodos de Handler do produto.
type Handler struct {
	Service        ProductService
	Views          ViewStore
	MaxUploadBytes int64
	Logger         logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ProductService, views ViewStore, maxUploadBytes int64, log logger.Logger) *Handler {
	return &Handler{
		Service:        svc,
		Views:          views,
		MaxUploadBytes: maxUploadBytes,
		Logger:         log,
	}
}

var filterKeys = []string{"warranty", "has_images", "has_serial_number", "has_purchase_date", "users"}

func parseFilters(q url.Values) query.ProductFilters {
	f := query.ProductFilters{
		HasImages:       transport.TriState(q, "has_images"),
		HasSerialNumber: transport.TriState(q, "has_serial_number"),
		HasPurchaseDate: transport.TriState(q, "has_purchase_date"),
		Users:           transport.CSV(q, "users"),
	}
	for _, w := range transport.CSV(q, "warranty") {
		if t := domain.WarrantyType(w); t.Valid() {
			f.WarrantyTypes = append(f.WarrantyTypes, t)
		}
	}
	return f
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		transport.Respond(w, r, h.Logger, nil, apperror.NewUnauthorizedError("Sessão ausente."), 0)
	}
	return s, ok
}

// listState carrega o estado salvo e aplica os parâmetros da requisição.
func (h *Handler) listState(r *http.Request, s domain.Session) query.ListState[query.ProductFilters] {
	state := h.Views.Load(r.Context(), s.UserID)
	transport.ApplyListQuery(&state, r.URL.Query(), filterKeys, parseFilters)
	h.Views.Save(r.Context(), s.UserID, state)
	return state
}

// CreateProductHandler lida com a requisição POST /v1/products.
// @Summary Cria um produto
// @Description Aceita JSON ou multipart/form-data (parte "payload" em JSON e arquivos "images"). Pelo menos uma imagem é obrigatória.
// @Tags products
// @Accept json,mpfd
// @Produce json
// @Param payload body domain.ProductInput true "Dados do produto"
// @Success 201 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 422 {object} domain.ErrorResponse "Imagem não pôde ser comprimida"
// @Failure 502 {object} domain.ErrorResponse "Falha no upload"
// @Security BearerAuth
// @Router /products [post]
func (h *Handler) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var input domain.ProductInput
	files, err := transport.DecodeEntity(w, r, h.MaxUploadBytes, &input)
	if err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}

	h.Logger.Info("Tentativa de criação de produto por", map[string]interface{}{"user_id": s.UserID, "role": s.Role, "images": len(files)})
	product, err := h.Service.CreateProduct(r.Context(), s, input, files)
	transport.Respond(w, r, h.Logger, product, err, http.StatusCreated)
}

// ListProductsHandler lida com GET /v1/products.
// @Summary Lista produtos
// @Description Busca, filtros, ordenação e paginação (10 por página). Parâmetros ausentes mantêm o último estado salvo da tela.
// @Tags products
// @Produce json
// @Param search query string false "Texto de busca"
// @Param sort query string false "newest, oldest, name-asc, name-desc"
// @Param page query int false "Página (base 1)"
// @Param view query string false "grid ou list"
// @Param warranty query string false "Tipos de garantia separados por vírgula"
// @Param has_images query bool false "Com/sem imagens"
// @Param has_serial_number query bool false "Com/sem número de série"
// @Param has_purchase_date query bool false "Com/sem data de compra"
// @Param users query string false "IDs de usuários (admin)"
// @Success 200 {object} ListResponse
// @Security BearerAuth
// @Router /products [get]
func (h *Handler) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	state := h.listState(r, s)
	page, err := h.Service.ListProducts(r.Context(), s, state.Params)
	if err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}
	transport.Respond(w, r, h.Logger, ListResponse{Page: page, State: state, ActiveFilters: state.Params.Filters.ActiveCount()}, nil, http.StatusOK)
}

// StreamProductsHandler lida com GET /v1/products/stream (Server-Sent Events).
// @Summary Acompanha a lista de produtos
// @Description Envia a página atual e uma nova a cada alteração. O token pode ir em ?access_token=.
// @Tags products
// @Produce text/event-stream
// @Success 200 {object} query.Page[domain.Product]
// @Security BearerAuth
// @Router /products/stream [get]
func (h *Handler) StreamProductsHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	state := h.listState(r, s)
	snapshots, err := h.Service.WatchProducts(r.Context(), s, state.Params)
	if err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}
	transport.StreamSSE(w, r, h.Logger, snapshots)
}

// GetProductHandler lida com GET /v1/products/{id}.
// @Summary Busca um produto
// @Tags products
// @Produce json
// @Param id path string true "ID do produto"
// @Success 200 {object} domain.Product
// @Failure 403 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /products/{id} [get]
func (h *Handler) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	product, err := h.Service.GetProduct(r.Context(), s, r.PathValue("id"))
	transport.Respond(w, r, h.Logger, product, err, http.StatusOK)
}

// UpdateProductHandler lida com PUT /v1/products/{id}.
// @Summary Edita um produto
// @Description existing_images lista as fotos atuais a manter; version habilita a detecção de conflito.
// @Tags products
// @Accept json,mpfd
// @Produce json
// @Param id path string true "ID do produto"
// @Param payload body domain.ProductInput true "Dados do produto"
// @Success 200 {object} domain.Product
// @Failure 403 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Versão desatualizada"
// @Security BearerAuth
// @Router /products/{id} [put]
func (h *Handler) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var input domain.ProductInput
	files, err := transport.DecodeEntity(w, r, h.MaxUploadBytes, &input)
	if err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}
	product, err := h.Service.UpdateProduct(r.Context(), s, r.PathValue("id"), input, files)
	transport.Respond(w, r, h.Logger, product, err, http.StatusOK)
}

// DeleteProductHandler lida com DELETE /v1/products/{id}.
// @Summary Exclui um produto
// @Tags products
// @Param id path string true "ID do produto"
// @Success 204
// @Failure 403 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /products/{id} [delete]
func (h *Handler) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	err := h.Service.DeleteProduct(r.Context(), s, r.PathValue("id"))
	transport.Respond(w, r, h.Logger, nil, err, http.StatusNoContent)
}

// SetStatusHandler lida com PUT /v1/products/{id}/status (admin).
// @Summary Aprova ou reprova um produto
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do produto"
// @Param status body StatusRequest true "Novo status"
// @Success 200 {object} domain.Product
// @Failure 403 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /products/{id}/status [put]
func (h *Handler) SetStatusHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}
	product, err := h.Service.SetProductStatus(r.Context(), s, r.PathValue("id"), req.Status)
	transport.Respond(w, r, h.Logger, product, err, http.StatusOK)
}
