package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gopharma/internal/domain"
)

// Fontes de registros aceitas em RECORD_SOURCE.
const (
	SourcePostgres = "postgres"
	SourceMemory   = "memory"
)

// Config armazena todas as configurações do aplicativo GoPharma.
type Config struct {
	// Geral
	Port        string
	Environment string
	LogLevel    string

	// Fonte de registros
	RecordSource string

	// Banco de Dados (PostgreSQL)
	DatabaseURL string
	DBTimeout   time.Duration

	// Cache (Redis). RedisAddr vazio desativa o cache e o rate limiting.
	RedisAddr string
	CacheTTL  time.Duration

	// Segurança (JWT). Chave vazia desativa a autenticação.
	JWTSecretKey string
	TokenExpiry  time.Duration

	// Rate Limiting
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration

	// Conciliação
	Currency          string
	MatchTolerancePct decimal.Decimal

	// Estoque. Location define o dia civil usado nas validades.
	Location         *time.Location
	LowStockQuantity int
}

// Load carrega as configurações a partir das variáveis de ambiente.
func Load() (*Config, error) {
	cfg := &Config{
		// 1. Geral
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// 2. Fonte de registros e Banco de Dados
		RecordSource: strings.ToLower(getEnv("RECORD_SOURCE", SourcePostgres)),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		DBTimeout:    getDurationEnv("DB_TIMEOUT_SEC", 5) * time.Second,

		// 3. Cache (Redis)
		RedisAddr: getEnv("REDIS_ADDR", ""),
		CacheTTL:  getDurationEnv("CACHE_TTL_SEC", 300) * time.Second,

		// 4. Segurança (JWT)
		JWTSecretKey: getEnv("JWT_SECRET_KEY", ""),
		TokenExpiry:  getDurationEnv("JWT_EXPIRY_MIN", 60) * time.Minute,

		// 5. Rate Limiting
		RateLimitMaxRequests: getIntEnv("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitPeriod:      getDurationEnv("RATE_LIMIT_PERIOD_MIN", 1) * time.Minute,

		// 6. Conciliação
		Currency: getEnv("CURRENCY", "PKR"),

		// 7. Estoque
		Location:         time.Local,
		LowStockQuantity: getIntEnv("LOW_STOCK_QUANTITY", domain.LowStockQuantity),
	}

	switch cfg.RecordSource {
	case SourcePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("a variável de ambiente DATABASE_URL deve ser definida quando RECORD_SOURCE=%s", SourcePostgres)
		}
	case SourceMemory:
	default:
		return nil, fmt.Errorf("RECORD_SOURCE inválido: %q (use %s ou %s)", cfg.RecordSource, SourcePostgres, SourceMemory)
	}

	tolerance, err := decimal.NewFromString(getEnv("MATCH_TOLERANCE_PCT", "2.0"))
	if err != nil || tolerance.IsNegative() {
		return nil, fmt.Errorf("MATCH_TOLERANCE_PCT inválido: %q", os.Getenv("MATCH_TOLERANCE_PCT"))
	}
	cfg.MatchTolerancePct = tolerance

	if tz := getEnv("TIMEZONE", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("TIMEZONE inválido: %q: %w", tz, err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

// LoadConfig é Load com falha fatal, usado pelos binários.
func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("❌ Erro de Configuração: %v", err)
	}
	return cfg
}

// Policy devolve a política padrão com os ajustes vindos do ambiente.
func (c *Config) Policy() domain.Policy {
	p := domain.DefaultPolicy()
	p.Currency = c.Currency
	p.TolerancePercentage = c.MatchTolerancePct
	p.Location = c.Location
	p.LowStockQuantity = c.LowStockQuantity
	return p
}

// Funções Helpers (Auxiliares)

// getEnv lê a variável de ambiente ou retorna um valor padrão.
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
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
