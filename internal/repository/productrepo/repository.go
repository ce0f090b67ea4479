package productrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"sitetrack/internal/domain"
	"sitetrack/internal/errors"
	"sitetrack/internal/pkg/cache"
	"sitetrack/internal/pkg/logger"
)

// Define a chave de cache para produtos.
const productCacheKey = "product:%s"

const productColumns = `id, user_id, name, description, serial_number, purchase_date, warranty,
	images, uploader_email, status, version, created_at, updated_at`

// ProductRepository persiste produtos no PostgreSQL com cache de leitura no Redis.
type ProductRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	CacheTTL  time.Duration
	logger    logger.Logger
}

// NewProductRepository cria e retorna uma nova instância do Repositório.
func NewProductRepository(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, logger logger.Logger) *ProductRepository {
	return &ProductRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		CacheTTL:  cacheTTL,
		logger:    logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p            domain.Product
		purchaseDate sql.NullTime
		warranty     []byte
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Description, &p.SerialNumber, &purchaseDate, &warranty,
		pq.Array(&p.Images), &p.UploaderEmail, &p.Status, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}
	if purchaseDate.Valid {
		d := domain.DateOf(purchaseDate.Time)
		p.PurchaseDate = &d
	}
	if err := json.Unmarshal(warranty, &p.Warranty); err != nil {
		return domain.Product{}, fmt.Errorf("garantia inválida no produto %s: %w", p.ID, err)
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return p, nil
}

func purchaseDateArg(d *domain.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.Time()
}

// Create persiste um novo produto. ID, versão e datas já vêm preenchidos pelo serviço.
func (r *ProductRepository) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	r.logger.Debug("Inserindo produto.", map[string]interface{}{"product_id": p.ID, "user_id": p.UserID})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	warranty, err := json.Marshal(p.Warranty)
	if err != nil {
		return domain.Product{}, errors.NewInternalError("falha ao serializar garantia", err)
	}

	query := `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.DB.ExecContext(ctxTimeout, query,
		p.ID, p.UserID, p.Name, p.Description, p.SerialNumber, purchaseDateArg(p.PurchaseDate), string(warranty),
		pq.Array(p.Images), p.UploaderEmail, p.Status, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir produto no DB.", err)
		return domain.Product{}, errors.NewDBError("Falha ao inserir produto", err)
	}

	r.logger.Info("Produto criado.", map[string]interface{}{"product_id": p.ID})
	return p, nil
}

// FindByID busca um produto pelo ID, utilizando a estratégia Cache-Aside.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(productCacheKey, id)

	// --- Cache-Aside (READ) ---
	cachedData, err := r.Cache.Get(ctxTimeout, key)
	if err == nil {
		var cached domain.Product
		if json.Unmarshal([]byte(cachedData), &cached) == nil {
			r.logger.Debug("Produto encontrado no cache.", map[string]interface{}{"product_id": id})
			return cached, nil
		}
		r.logger.Warn("Entrada de cache inválida, consultando o DB.", map[string]interface{}{"key": key})
	} else if err != cache.ErrCacheMiss {
		r.logger.Warn("Falha ao ler do cache Redis.", map[string]interface{}{"key": key, "error": err.Error()})
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	product, err := scanProduct(r.DB.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar produto no DB.", err)
		return domain.Product{}, errors.NewDBError("Falha ao buscar produto no DB", err)
	}

	// --- Cache-Aside (WRITE) ---
	if productJSON, marshalErr := json.Marshal(product); marshalErr == nil {
		if err := r.Cache.Set(ctxTimeout, key, productJSON, r.CacheTTL); err != nil {
			r.logger.Warn("Falha ao gravar produto no cache.", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}

	return product, nil
}

// FindAll lista os produtos do escopo, mais recentes primeiro.
func (r *ProductRepository) FindAll(ctx context.Context, scope domain.ListScope) ([]domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products`
	args := []any{}
	if !scope.All {
		query += ` WHERE user_id = $1`
		args = append(args, scope.OwnerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar produtos.", err)
		return nil, errors.NewDBError("Falha ao listar produtos", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error("Falha ao ler produto da listagem.", err)
			return nil, errors.NewDBError("Falha ao ler produto", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Falha ao iterar produtos", err)
	}

	r.logger.Debug("Produtos listados.", map[string]interface{}{"count": len(products), "all": scope.All})
	return products, nil
}

// Update grava o produto se a versão armazenada ainda for p.Version (OCC) e
// retorna o produto com a nova versão.
func (r *ProductRepository) Update(ctx context.Context, p domain.Product) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de produto.", err)
		return domain.Product{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctxTimeout, `SELECT version FROM products WHERE id = $1 FOR UPDATE`, p.ID).Scan(&current)
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", p.ID))
	}
	if err != nil {
		return domain.Product{}, errors.NewDBError("Falha ao bloquear produto", err)
	}
	if current != p.Version {
		r.logger.Warn("Conflito de versão no produto.", map[string]interface{}{
			"product_id": p.ID, "expected_version": p.Version, "current_version": current,
		})
		return domain.Product{}, errors.NewConflictError("O produto foi modificado por outra pessoa. Recarregue e tente novamente.")
	}

	warranty, err := json.Marshal(p.Warranty)
	if err != nil {
		return domain.Product{}, errors.NewInternalError("falha ao serializar garantia", err)
	}

	query := `
		UPDATE products
		SET name = $1, description = $2, serial_number = $3, purchase_date = $4, warranty = $5,
		    images = $6, status = $7, version = $8, updated_at = $9
		WHERE id = $10 AND version = $11`

	_, err = tx.ExecContext(ctxTimeout, query,
		p.Name, p.Description, p.SerialNumber, purchaseDateArg(p.PurchaseDate), string(warranty),
		pq.Array(p.Images), p.Status, p.Version+1, p.UpdatedAt,
		p.ID, p.Version,
	)
	if err != nil {
		r.logger.Error("Falha ao atualizar produto.", err)
		return domain.Product{}, errors.NewDBError("Falha ao atualizar produto", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Product{}, errors.NewDBError("Falha ao commitar transação", err)
	}

	r.invalidate(ctx, p.ID)
	p.Version++
	r.logger.Info("Produto atualizado.", map[string]interface{}{"product_id": p.ID, "version": p.Version})
	return p, nil
}

// Delete remove o produto.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := r.DB.ExecContext(ctxTimeout, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Falha ao excluir produto.", err)
		return errors.NewDBError("Falha ao excluir produto", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}

	r.invalidate(ctx, id)
	r.logger.Info("Produto excluído.", map[string]interface{}{"product_id": id})
	return nil
}

func (r *ProductRepository) invalidate(ctx context.Context, id string) {
	key := fmt.Sprintf(productCacheKey, id)
	if err := r.Cache.Delete(ctx, key); err != nil {
		r.logger.Warn("Falha ao invalidar cache do produto.", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
