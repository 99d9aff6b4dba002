package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/joho/godotenv"

	// Nossos pacotes de infraestrutura e utilitários
	"gopharma/config"
	"gopharma/internal/domain"
	"gopharma/internal/pkg/cache"
	"gopharma/internal/pkg/database"
	"gopharma/internal/pkg/logger"
	"gopharma/internal/pkg/metrics"
	"gopharma/internal/pkg/middleware"
	"gopharma/internal/pkg/token"

	// Camadas para Injeção de Dependências
	"gopharma/internal/api/inventory"
	"gopharma/internal/api/pricing"
	"gopharma/internal/api/procurement"
	"gopharma/internal/api/router"
	"gopharma/internal/repository/cachedrepo"
	"gopharma/internal/repository/memoryrepo"
	"gopharma/internal/repository/recordrepo"
	"gopharma/internal/service/batchservice"
	"gopharma/internal/service/matchingservice"
	"gopharma/internal/service/pricingservice"
	"gopharma/internal/service/stockservice"
)

// recordStore é o que o main precisa da fonte de registros: leitura para os motores e escrita de estoque.
type recordStore interface {
	domain.RecordSource
	domain.BatchStockWriter
}

func main() {
	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	if err := godotenv.Load(); err != nil {
		// As variáveis essenciais podem estar no ambiente do sistema (ex: Docker).
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	// 1. Configuração e Inicialização
	cfg := config.LoadConfig()
	appLog := logger.NewLogger(cfg.LogLevel)
	appLog.Info("Inicializando serviço GoPharma...", map[string]interface{}{"env": cfg.Environment, "record_source": cfg.RecordSource})
	policy := cfg.Policy()

	// 2. Fonte de Registros
	var store recordStore
	switch cfg.RecordSource {
	case config.SourceMemory:
		store = memoryrepo.Fixture(time.Now(), policy)
		appLog.Warn("Usando fixture em memória. Os dados não são persistidos.", nil)
	default:
		db, err := database.NewPostgresDB(cfg.DatabaseURL, appLog)
		if err != nil {
			appLog.Fatal("Falha ao conectar ao banco de dados.", err)
		}
		defer db.Close()
		store = recordrepo.NewRecordRepository(db, cfg.DBTimeout, appLog)
	}

	// A. Cache (Redis) opcional: cache-aside dos dados de referência e contadores do rate limiter.
	var source domain.RecordSource = store
	var rateLimit func(http.Handler) http.Handler
	if cfg.RedisAddr != "" {
		cacheClient, err := cache.NewRedisClient(cfg.RedisAddr)
		if err != nil {
			appLog.Fatal("Falha ao conectar ao Redis.", err)
		}
		defer cacheClient.Close()
		appLog.Info("Conexão Redis estabelecida.", map[string]interface{}{"addr": cfg.RedisAddr})

		source = cachedrepo.NewCachedRepository(store, cacheClient, cfg.CacheTTL, appLog)
		rateLimit = middleware.RateLimiter(cacheClient, cfg.RateLimitMaxRequests, cfg.RateLimitPeriod, appLog)
	}

	// B. Serviço de Tokens (JWT) opcional
	var auth func(http.Handler) http.Handler
	if cfg.JWTSecretKey != "" {
		auth = middleware.NewAuthMiddleware(token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry))
		appLog.Debug("Autenticação JWT ativada.", nil)
	} else {
		appLog.Warn("JWT_SECRET_KEY vazio: rotas v1 sem autenticação.", nil)
	}

	// 3. INJEÇÃO DE DEPENDÊNCIAS
	// Ordem: Repository -> Service -> Handler
	m := metrics.New()

	batchSvc := batchservice.NewService(source, policy, appLog)
	stockSvc := stockservice.NewService(store, appLog)
	pricingSvc := pricingservice.NewService(source, policy, appLog)
	matchingSvc := matchingservice.NewService(source, policy, appLog)
	appLog.Debug("Serviços inicializados.", nil)

	r := router.NewRouter(router.Deps{
		Inventory:   inventory.NewHandler(batchSvc, stockSvc, m, appLog),
		Pricing:     pricing.NewHandler(pricingSvc, m, appLog),
		Procurement: procurement.NewHandler(matchingSvc, m, appLog),
		Metrics:     m,
		Logger:      appLog,
		Auth:        auth,
		RateLimit:   rateLimit,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 4. Execução e Graceful Shutdown
	go func() {
		appLog.Info("Servidor GoPharma ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}

	appLog.Info("Servidor encerrado com sucesso.", nil)
}
