package productservice

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/imagepipe"
	"sitetrack/internal/pkg/events"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/policy"
	"sitetrack/internal/query"
	"sitetrack/internal/service/watch"
)

// ProductRepository define o contrato (interface) que este Serviço espera
// da camada de Persistência (DB, Cache).
type ProductRepository interface {
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	FindByID(ctx context.Context, id string) (domain.Product, error)
	FindAll(ctx context.Context, scope domain.ListScope) ([]domain.Product, error)
	Update(ctx context.Context, p domain.Product) (domain.Product, error)
	Delete(ctx context.Context, id string) error
}

// UserDirectory fornece nomes e e-mails dos donos para a busca de administradores.
type UserDirectory interface {
	FindAll(ctx context.Context) (domain.UserDirectory, error)
}

// ImageUploader é implementado por imagepipe.Pipeline.
type ImageUploader interface {
	UploadAll(ctx context.Context, files []imagepipe.File, basePath string) ([]string, error)
}

// Service implementa as operações de produto.
type Service struct {
	repo   ProductRepository
	users  UserDirectory
	images ImageUploader
	broker events.Broker
	logger logger.Logger
	now    func() time.Time
}

// NewService cria e retorna uma nova instância do Serviço de Produto.
func NewService(repo ProductRepository, users UserDirectory, images ImageUploader, broker events.Broker, logger logger.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		images: images,
		broker: broker,
		logger: logger,
		now:    time.Now,
	}
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("O ID do produto deve ser um UUID válido.")
	}
	return nil
}

func sanitizeWarranty(w *domain.WarrantyDetails) (domain.WarrantyDetails, error) {
	if w == nil {
		return domain.DefaultWarranty(), nil
	}
	out := w.Normalize()
	if !out.Type.Valid() {
		return domain.WarrantyDetails{}, apperror.NewValidationError(fmt.Sprintf("Tipo de garantia inválido: %q.", w.Type))
	}
	if out.Duration < 0 {
		return domain.WarrantyDetails{}, apperror.NewValidationError("A duração da garantia não pode ser negativa.")
	}
	return out, nil
}

// purchaseDate converte a data vazia ("") em ausência de data.
func purchaseDate(d *domain.Date) *domain.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

// keptImages retorna as imagens atuais que o cliente pediu para manter, na ordem atual.
// nil mantém todas.
func keptImages(current, keep []string) []string {
	if keep == nil {
		return slices.Clone(current)
	}
	out := make([]string, 0, len(current))
	for _, url := range current {
		if slices.Contains(keep, url) {
			out = append(out, url)
		}
	}
	return out
}

func (s *Service) publish(ctx context.Context, typ string, p domain.Product) {
	e := events.Event{Collection: events.CollectionProducts, Type: typ, ID: p.ID, OwnerID: p.UserID, At: s.now().UTC()}
	if err := s.broker.Publish(ctx, e); err != nil {
		s.logger.Warn("Falha ao publicar evento de produto.", map[string]interface{}{"product_id": p.ID, "type": typ, "error": err.Error()})
	}
}

// CreateProduct valida, envia as imagens e grava o produto. Não administradores
// sempre criam produtos não aprovados.
func (s *Service) CreateProduct(ctx context.Context, session domain.Session, input domain.ProductInput, files []imagepipe.File) (domain.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.Product{}, apperror.NewValidationError("O nome do produto é obrigatório.")
	}
	if len(files) == 0 {
		return domain.Product{}, apperror.NewValidationError("Adicione pelo menos uma imagem do produto.")
	}
	if len(files) > domain.MaxImagesPerEntity {
		return domain.Product{}, apperror.NewValidationError(fmt.Sprintf("No máximo %d imagens por produto.", domain.MaxImagesPerEntity))
	}

	status := domain.ProductUnapproved
	if session.IsAdmin() && input.Status != "" {
		if !input.Status.Valid() {
			return domain.Product{}, apperror.NewValidationError(fmt.Sprintf("Status inválido: %q.", input.Status))
		}
		status = input.Status
	}

	warranty, err := sanitizeWarranty(input.Warranty)
	if err != nil {
		return domain.Product{}, err
	}

	now := s.now().UTC()
	product := domain.Product{
		ID:            uuid.New().String(),
		Name:          name,
		Description:   strings.TrimSpace(input.Description),
		SerialNumber:  strings.TrimSpace(input.SerialNumber),
		PurchaseDate:  purchaseDate(input.PurchaseDate),
		Warranty:      warranty,
		UserID:        session.UserID,
		UploaderEmail: session.Email,
		Status:        status,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	urls, err := s.images.UploadAll(ctx, files, "products/"+session.UserID)
	if err != nil {
		return domain.Product{}, err
	}
	product.Images = urls

	// Uma vez enviadas as imagens, a gravação não é mais cancelável.
	created, err := s.repo.Create(context.WithoutCancel(ctx), product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.Info("Produto criado.", map[string]interface{}{"product_id": created.ID, "user_id": session.UserID, "images": len(urls)})
	s.publish(ctx, events.Created, created)
	return created, nil
}

// UpdateProduct aplica a edição. Apenas administradores mudam o status; as imagens
// finais são as existentes mantidas mais as novas.
func (s *Service) UpdateProduct(ctx context.Context, session domain.Session, id string, input domain.ProductInput, files []imagepipe.File) (domain.Product, error) {
	if err := validateID(id); err != nil {
		return domain.Product{}, err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if err := policy.RequireEditProduct(session, current); err != nil {
		return domain.Product{}, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.Product{}, apperror.NewValidationError("O nome do produto é obrigatório.")
	}

	updated := current
	if input.Status != "" && input.Status != current.Status {
		if !session.IsAdmin() {
			return domain.Product{}, apperror.NewPermissionDeniedError("Apenas administradores podem alterar o status do produto.")
		}
		if !input.Status.Valid() {
			return domain.Product{}, apperror.NewValidationError(fmt.Sprintf("Status inválido: %q.", input.Status))
		}
		updated.Status = input.Status
	}

	// Campos omitidos preservam o valor salvo; purchase_date "" remove a data.
	warranty := current.Warranty
	if input.Warranty != nil {
		if warranty, err = sanitizeWarranty(input.Warranty); err != nil {
			return domain.Product{}, err
		}
	}

	images := keptImages(current.Images, input.ExistingImages)
	if len(images)+len(files) > domain.MaxImagesPerEntity {
		return domain.Product{}, apperror.NewValidationError(fmt.Sprintf("No máximo %d imagens por produto.", domain.MaxImagesPerEntity))
	}

	updated.Name = name
	updated.Description = strings.TrimSpace(input.Description)
	updated.SerialNumber = strings.TrimSpace(input.SerialNumber)
	if input.PurchaseDate != nil {
		updated.PurchaseDate = purchaseDate(input.PurchaseDate)
	}
	updated.Warranty = warranty
	updated.UpdatedAt = s.now().UTC()
	if input.Version > 0 {
		updated.Version = input.Version
	}

	urls, err := s.images.UploadAll(ctx, files, "products/"+current.UserID)
	if err != nil {
		return domain.Product{}, err
	}
	updated.Images = append(images, urls...)

	saved, err := s.repo.Update(context.WithoutCancel(ctx), updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.Info("Produto atualizado.", map[string]interface{}{"product_id": id, "user_id": session.UserID, "version": saved.Version})
	s.publish(ctx, events.Updated, saved)
	return saved, nil
}

// DeleteProduct exclui o produto se a política permitir.
func (s *Service) DeleteProduct(ctx context.Context, session domain.Session, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.RequireDeleteProduct(session, current); err != nil {
		return err
	}
	if err := s.repo.Delete(context.WithoutCancel(ctx), id); err != nil {
		return err
	}

	s.logger.Info("Produto excluído.", map[string]interface{}{"product_id": id, "user_id": session.UserID})
	s.publish(ctx, events.Deleted, current)
	return nil
}

// GetProduct retorna um produto visível para a sessão.
func (s *Service) GetProduct(ctx context.Context, session domain.Session, id string) (domain.Product, error) {
	if err := validateID(id); err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if err := policy.RequireViewProduct(session, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// SetProductStatus é o fluxo de aprovação do administrador.
func (s *Service) SetProductStatus(ctx context.Context, session domain.Session, id string, status domain.ProductStatus) (domain.Product, error) {
	if err := policy.RequireSetApproval(session); err != nil {
		return domain.Product{}, err
	}
	if !status.Valid() {
		return domain.Product{}, apperror.NewValidationError(fmt.Sprintf("Status inválido: %q.", status))
	}
	if err := validateID(id); err != nil {
		return domain.Product{}, err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if current.Status == status {
		return current, nil
	}

	current.Status = status
	current.UpdatedAt = s.now().UTC()
	saved, err := s.repo.Update(context.WithoutCancel(ctx), current)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.Info("Status do produto alterado.", map[string]interface{}{"product_id": id, "status": status, "admin_id": session.UserID})
	s.publish(ctx, events.Updated, saved)
	return saved, nil
}

func (s *Service) viewer(ctx context.Context, session domain.Session) query.Viewer {
	v := query.Viewer{IsAdmin: session.IsAdmin()}
	if !v.IsAdmin {
		return v
	}
	dir, err := s.users.FindAll(ctx)
	if err != nil {
		// A busca segue sem nome/e-mail do dono.
		s.logger.Warn("Falha ao carregar diretório de usuários.", map[string]interface{}{"error": err.Error()})
		return v
	}
	v.Directory = dir
	return v
}

// ListProducts aplica busca, filtros, ordenação e paginação sobre os produtos do escopo da sessão.
func (s *Service) ListProducts(ctx context.Context, session domain.Session, params query.ProductParams) (query.Page[domain.Product], error) {
	items, err := s.repo.FindAll(ctx, domain.ScopeFor(session))
	if err != nil {
		return query.Page[domain.Product]{}, err
	}
	s.logger.Debug("Produtos listados.", map[string]interface{}{"user_id": session.UserID, "count": len(items)})
	return query.Products(items, params, s.viewer(ctx, session)), nil
}

// WatchProducts entrega a página atual e uma nova a cada alteração relevante.
func (s *Service) WatchProducts(ctx context.Context, session domain.Session, params query.ProductParams) (<-chan query.Page[domain.Product], error) {
	src := watch.Source[query.Page[domain.Product]]{
		Collection: events.CollectionProducts,
		Match: func(e events.Event) bool {
			return session.IsAdmin() || e.OwnerID == session.UserID
		},
		Fetch: func(ctx context.Context) (query.Page[domain.Product], error) {
			return s.ListProducts(ctx, session, params)
		},
	}
	return watch.Run(ctx, s.broker, src, s.logger)
}
