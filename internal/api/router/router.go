package router

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"sitetrack/internal/api/draft"
	"sitetrack/internal/api/product"
	"sitetrack/internal/api/task"
	"sitetrack/internal/api/user"
	"sitetrack/internal/domain"
	"sitetrack/internal/pkg/middleware"
)

// Handlers reúne os Handlers já inicializados por injeção de dependências.
type Handlers struct {
	Product *product.Handler
	Task    *task.Handler
	Draft   *draft.Handler
	User    *user.Handler
}

// Middlewares recebe os middlewares montados no main.
type Middlewares struct {
	Auth      func(http.HandlerFunc) http.HandlerFunc
	RateLimit func(http.Handler) http.Handler
	Recover   func(http.Handler) http.Handler
}

// NewRouter configura e retorna o roteador HTTP principal.
// mediaDir, quando não vazio, é servido em /media/ (armazenamento local).
func NewRouter(h Handlers, mw Middlewares, mediaDir string) http.Handler {
	mux := http.NewServeMux()

	auth := mw.Auth
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.PermissionMiddleware(domain.RoleAdmin)(next))
	}

	// --- Health check e documentação ---
	mux.HandleFunc("GET /ping", PingHandler)
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	if mediaDir != "" {
		mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(mediaDir))))
	}

	// --- Usuários ---
	mux.HandleFunc("POST /v1/register", h.User.RegisterUserHandler)
	mux.HandleFunc("POST /v1/login", h.User.LoginUserHandler)
	mux.HandleFunc("POST /v1/logout", auth(h.User.LogoutUserHandler))
	mux.HandleFunc("GET /v1/me", auth(h.User.MeHandler))
	mux.HandleFunc("GET /v1/users", admin(h.User.SearchUsersHandler))

	// --- Produtos ---
	mux.HandleFunc("GET /v1/products", auth(h.Product.ListProductsHandler))
	mux.HandleFunc("POST /v1/products", auth(h.Product.CreateProductHandler))
	mux.HandleFunc("GET /v1/products/stream", auth(h.Product.StreamProductsHandler))
	mux.HandleFunc("GET /v1/products/{id}", auth(h.Product.GetProductHandler))
	mux.HandleFunc("PUT /v1/products/{id}", auth(h.Product.UpdateProductHandler))
	mux.HandleFunc("DELETE /v1/products/{id}", auth(h.Product.DeleteProductHandler))
	mux.HandleFunc("PUT /v1/products/{id}/status", admin(h.Product.SetStatusHandler))

	// --- Tarefas ---
	mux.HandleFunc("GET /v1/tasks", auth(h.Task.ListTasksHandler))
	mux.HandleFunc("POST /v1/tasks", auth(h.Task.CreateTaskHandler))
	mux.HandleFunc("GET /v1/tasks/stream", auth(h.Task.StreamTasksHandler))
	mux.HandleFunc("GET /v1/tasks/{id}", auth(h.Task.GetTaskHandler))
	mux.HandleFunc("PUT /v1/tasks/{id}", auth(h.Task.UpdateTaskHandler))
	mux.HandleFunc("DELETE /v1/tasks/{id}", auth(h.Task.DeleteTaskHandler))
	mux.HandleFunc("PUT /v1/tasks/{id}/status", admin(h.Task.SetStatusHandler))
	mux.HandleFunc("GET /v1/timeslots/start-options", auth(h.Task.StartOptionsHandler))
	mux.HandleFunc("GET /v1/timeslots/end-options", auth(h.Task.EndOptionsHandler))

	// --- Rascunhos de agenda ---
	mux.HandleFunc("POST /v1/drafts", auth(h.Draft.OpenDraftHandler))
	mux.HandleFunc("GET /v1/drafts/{id}", auth(h.Draft.GetDraftHandler))
	mux.HandleFunc("PUT /v1/drafts/{id}", auth(h.Draft.UpdateDraftHandler))
	mux.HandleFunc("DELETE /v1/drafts/{id}", auth(h.Draft.DiscardDraftHandler))
	mux.HandleFunc("POST /v1/drafts/{id}/slots", auth(h.Draft.AddSlotHandler))
	mux.HandleFunc("DELETE /v1/drafts/{id}/slots/{index}", auth(h.Draft.RemoveSlotHandler))
	mux.HandleFunc("PUT /v1/drafts/{id}/slots/{index}/start", auth(h.Draft.SetStartHandler))
	mux.HandleFunc("PUT /v1/drafts/{id}/slots/{index}/end", auth(h.Draft.SetEndHandler))
	mux.HandleFunc("PUT /v1/drafts/{id}/slots/{index}/approval", admin(h.Draft.SetApprovalHandler))
	mux.HandleFunc("POST /v1/drafts/{id}/commit", auth(h.Draft.CommitDraftHandler))

	var handler http.Handler = mux
	if mw.RateLimit != nil {
		handler = mw.RateLimit(handler)
	}
	if mw.Recover != nil {
		handler = mw.Recover(handler)
	}
	return handler
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
