package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config armazena todas as configurações do SiteTrack.
type Config struct {
	// Geral
	Port        string
	Environment string
	LogLevel    string
	Timezone    string // fuso usado para calcular "hoje" na agenda

	// Banco de Dados (PostgreSQL)
	DatabaseURL string
	DBTimeout   time.Duration

	// Cache (Redis)
	RedisAddr    string
	CacheTimeout time.Duration
	CacheTTL     time.Duration

	// Segurança (JWT)
	JWTSecretKey string
	TokenExpiry  time.Duration

	// Códigos secretos exigidos no cadastro, por papel
	AdminSignupCode string
	UserSignupCode  string

	// Rate Limiting
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration

	// Armazenamento de imagens
	StorageDriver        string // "local" ou "gcs"
	StorageLocalDir      string
	StoragePublicBaseURL string
	GCSBucket            string
	GCSCredentialsFile   string

	// Pipeline de imagens
	ImageMaxBytes       int
	ImageMaxDimension   int
	ImageInitialQuality int
	MaxUploadBytes      int64

	// Rascunhos de tarefa e estado das telas de listagem
	DraftTTL     time.Duration
	ViewStateTTL time.Duration

	// Observabilidade
	SentryDSN string
}

// LoadConfig carrega as configurações a partir das variáveis de ambiente.
func LoadConfig() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Timezone:    getEnv("TIMEZONE", "UTC"),

		// mustGetEnv garante que a aplicação não inicie sem credenciais de DB
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		DBTimeout:   getDurationEnv("DB_TIMEOUT_SEC", 5) * time.Second,

		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTimeout: getDurationEnv("CACHE_TIMEOUT_SEC", 10) * time.Second,
		CacheTTL:     getDurationEnv("CACHE_TTL_MIN", 5) * time.Minute,

		JWTSecretKey: mustGetEnv("JWT_SECRET_KEY"),
		TokenExpiry:  getDurationEnv("JWT_EXPIRY_MIN", 60) * time.Minute,

		AdminSignupCode: getEnv("ADMIN_SIGNUP_CODE", ""),
		UserSignupCode:  getEnv("USER_SIGNUP_CODE", ""),

		RateLimitMaxRequests: getIntEnv("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitPeriod:      getDurationEnv("RATE_LIMIT_PERIOD_MIN", 1) * time.Minute,

		StorageDriver:        getEnv("STORAGE_DRIVER", "local"),
		StorageLocalDir:      getEnv("STORAGE_LOCAL_DIR", "./media"),
		StoragePublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/media"),
		GCSBucket:            getEnv("GCS_BUCKET", ""),
		GCSCredentialsFile:   getEnv("GCS_CREDENTIALS_FILE", ""),

		ImageMaxBytes:       getIntEnv("IMAGE_MAX_BYTES", 2<<20),
		ImageMaxDimension:   getIntEnv("IMAGE_MAX_DIMENSION", 2048),
		ImageInitialQuality: getIntEnv("IMAGE_INITIAL_QUALITY", 80),
		MaxUploadBytes:      getInt64Env("MAX_UPLOAD_BYTES", 32<<20),

		DraftTTL:     getDurationEnv("DRAFT_TTL_MIN", 120) * time.Minute,
		ViewStateTTL: getDurationEnv("VIEW_STATE_TTL_HOURS", 720) * time.Hour,

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}

	if cfg.StorageDriver == "gcs" && cfg.GCSBucket == "" {
		log.Fatalf("❌ Erro de Configuração: GCS_BUCKET deve ser definido quando STORAGE_DRIVER=gcs.")
	}

	return cfg
}

// Location retorna o fuso configurado, com fallback para UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("⚠️ Aviso: TIMEZONE '%s' inválido. Usando UTC.", c.Timezone)
		return time.UTC
	}
	return loc
}

// Funções Helpers (Auxiliares)

// getEnv lê a variável de ambiente ou retorna um valor padrão.
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// mustGetEnv lê a variável de ambiente, fatal se não estiver presente.
func mustGetEnv(key string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Fatalf("❌ Erro de Configuração: A variável de ambiente %s deve ser definida.", key)
	return ""
}

// getDurationEnv lê uma variável de ambiente numérica e retorna-a como time.Duration.
func getDurationEnv(key string, defaultValue int) time.Duration {
	return time.Duration(getIntEnv(key, defaultValue))
}

// getIntEnv lê uma variável de ambiente numérica e retorna-a como int.
func getIntEnv(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("⚠️ Aviso: Valor de %s ('%s') não é um número inteiro válido. Usando padrão (%d).", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

func getInt64Env(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		log.Printf("⚠️ Aviso: Valor de %s ('%s') não é um número inteiro válido. Usando padrão (%d).", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
