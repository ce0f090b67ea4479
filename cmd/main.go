package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"sitetrack/config"
	_ "sitetrack/docs"
	"sitetrack/internal/imagepipe"
	"sitetrack/internal/pkg/cache"
	"sitetrack/internal/pkg/database"
	"sitetrack/internal/pkg/events"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/pkg/middleware"
	"sitetrack/internal/pkg/storage"
	"sitetrack/internal/pkg/token"

	"sitetrack/internal/api/draft"
	"sitetrack/internal/api/product"
	"sitetrack/internal/api/router"
	"sitetrack/internal/api/task"
	"sitetrack/internal/api/user"
	"sitetrack/internal/query"
	"sitetrack/internal/repository/draftrepo"
	"sitetrack/internal/repository/productrepo"
	"sitetrack/internal/repository/taskrepo"
	"sitetrack/internal/repository/userrepo"
	"sitetrack/internal/repository/viewrepo"
	"sitetrack/internal/service/productservice"
	"sitetrack/internal/service/taskservice"
	"sitetrack/internal/service/userservice"
)

// @title SiteTrack API
// @version 1.0
// @description Cadastro de produtos e tarefas de obra com agenda, fotos e aprovação por administradores.
// @host localhost:8080
// @BasePath /v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Digite "Bearer" seguido de um espaço e o token JWT.
func main() {
	log.Println("⚡ Inicializando serviço SiteTrack...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Configurações carregadas.", map[string]interface{}{"env": cfg.Environment, "storage": cfg.StorageDriver})

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			AttachStacktrace: true,
		}); err != nil {
			log.Error("Falha ao iniciar o Sentry.", err)
		} else {
			defer sentry.Flush(2 * time.Second)
			log.Info("Sentry habilitado.", nil)
		}
	}

	rootCtx := context.Background()

	// 1. Infraestrutura

	db, err := database.NewPostgresDB(rootCtx, cfg.DatabaseURL, database.DefaultPool)
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	log.Info("Conexão PostgreSQL estabelecida.", nil)

	rdb, err := cache.Connect(cfg.RedisAddr)
	if err != nil {
		log.Fatal("Falha ao conectar ao Redis.", err)
	}
	defer rdb.Close()
	cacheClient := cache.NewRedisClient(rdb)
	broker := events.NewRedisBroker(rdb, log)
	log.Info("Conexão Redis estabelecida.", nil)

	var store storage.ObjectStore
	mediaDir := ""
	switch cfg.StorageDriver {
	case "gcs":
		store, err = storage.NewGCSStore(rootCtx, cfg.GCSBucket, cfg.GCSCredentialsFile)
	default:
		store, err = storage.NewLocalStore(cfg.StorageLocalDir, cfg.StoragePublicBaseURL)
		mediaDir = cfg.StorageLocalDir
	}
	if err != nil {
		log.Fatal("Falha ao inicializar o armazenamento de imagens.", err)
	}

	pipeline := imagepipe.NewPipeline(store, imagepipe.Options{
		MaxBytes:       cfg.ImageMaxBytes,
		MaxDimension:   cfg.ImageMaxDimension,
		InitialQuality: cfg.ImageInitialQuality,
	}, log)

	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	revocations := token.NewRevocationStore(cacheClient)

	// 2. Repository -> Service -> Handler

	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, log)
	productRepo := productrepo.NewProductRepository(db, cacheClient, cfg.DBTimeout, cfg.CacheTTL, log)
	taskRepo := taskrepo.NewTaskRepository(db, cacheClient, cfg.DBTimeout, cfg.CacheTTL, log)
	draftRepo := draftrepo.NewDraftRepository(cacheClient, cfg.DraftTTL, cfg.CacheTimeout, log)
	productViews := viewrepo.New[query.ProductFilters](cacheClient, "products", cfg.ViewStateTTL, log)
	taskViews := viewrepo.New[query.TaskFilters](cacheClient, "tasks", cfg.ViewStateTTL, log)
	log.Debug("Repositórios inicializados.", nil)

	userSvc := userservice.NewService(userRepo, tokenSvc, revocations, userservice.SignupCodes{
		Admin: cfg.AdminSignupCode,
		User:  cfg.UserSignupCode,
	}, log)
	productSvc := productservice.NewService(productRepo, userRepo, pipeline, broker, log)
	taskSvc := taskservice.NewService(taskRepo, draftRepo, userRepo, pipeline, broker, cfg.Location(), log)
	log.Debug("Serviços inicializados.", nil)

	handlers := router.Handlers{
		Product: product.NewHandler(productSvc, productViews, cfg.MaxUploadBytes, log),
		Task:    task.NewHandler(taskSvc, taskViews, cfg.MaxUploadBytes, log),
		Draft:   draft.NewHandler(taskSvc, cfg.MaxUploadBytes, log),
		User:    user.NewHandler(userSvc, log),
	}

	// 3. Roteador e servidor

	r := router.NewRouter(handlers, router.Middlewares{
		Auth:      middleware.NewAuthMiddleware(tokenSvc, revocations, log),
		RateLimit: middleware.RateLimiter(cacheClient, cfg.RateLimitMaxRequests, cfg.RateLimitPeriod, log),
		Recover:   middleware.Recoverer(log),
	}, mediaDir)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("Servidor SiteTrack ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Streams SSE abertos só terminam quando o cliente desconecta; passado o prazo, são cortados.
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
		server.Close()
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
