package cachedrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gopharma/internal/domain"
	"gopharma/internal/pkg/cache"
	"gopharma/internal/pkg/logger"
)

var _ domain.RecordSource = (*CachedRepository)(nil)

// Chaves de cache dos dados de referência de preços.
const (
	basePriceKey = "price:base:%s:%s"
	tierKey      = "customer:tier:%s"
	overrideKey  = "price:override:%s:%s"
	volumeKey    = "price:volume:%s"
)

// CachedRepository decora um RecordSource com a estratégia Cache-Aside nos dados de referência de preços.
// Lotes, promoções e documentos de compra passam direto para a fonte.
type CachedRepository struct {
	domain.RecordSource
	Cache  cache.Client
	TTL    time.Duration
	logger logger.Logger
}

// NewCachedRepository cria o decorador sobre a fonte informada.
func NewCachedRepository(source domain.RecordSource, cacheClient cache.Client, ttl time.Duration, log logger.Logger) *CachedRepository {
	return &CachedRepository{
		RecordSource: source,
		Cache:        cacheClient,
		TTL:          ttl,
		logger:       log,
	}
}

// cacheAside tenta o cache, e em caso de ausência (ou falha do Redis) consulta a fonte e popula o cache.
// Erros da fonte, inclusive NotFound, nunca são armazenados.
func cacheAside[T any](ctx context.Context, r *CachedRepository, key string, load func() (T, error)) (T, error) {
	// --- 1. Leitura (Cache HIT) ---
	cached, err := r.Cache.Get(ctx, key)
	if err == nil {
		var value T
		if json.Unmarshal([]byte(cached), &value) == nil {
			return value, nil
		}
		r.logger.Warn("Entrada de cache corrompida, consultando a fonte.", map[string]interface{}{"key": key})
	} else if err != cache.ErrCacheMiss {
		r.logger.Warn("Falha ao ler do cache Redis.", map[string]interface{}{"key": key, "error": err.Error()})
	}

	// --- 2. Busca na fonte ---
	value, err := load()
	if err != nil {
		return value, err
	}

	// --- 3. Escrita (Cache-Aside WRITE) ---
	payload, marshalErr := json.Marshal(value)
	if marshalErr != nil {
		r.logger.Warn("Falha ao serializar valor para cache.", map[string]interface{}{"key": key, "error": marshalErr.Error()})
		return value, nil
	}
	if setErr := r.Cache.Set(ctx, key, payload, r.TTL); setErr != nil {
		r.logger.Warn("Falha ao gravar no cache Redis.", map[string]interface{}{"key": key, "error": setErr.Error()})
	}
	return value, nil
}

// BasePrice busca o preço base com Cache-Aside.
func (r *CachedRepository) BasePrice(ctx context.Context, productID, locationID string) (decimal.Decimal, error) {
	return cacheAside(ctx, r, fmt.Sprintf(basePriceKey, productID, locationID), func() (decimal.Decimal, error) {
		return r.RecordSource.BasePrice(ctx, productID, locationID)
	})
}

// CustomerTier busca o tier do cliente com Cache-Aside.
func (r *CachedRepository) CustomerTier(ctx context.Context, customerID string) (domain.CustomerTier, error) {
	return cacheAside(ctx, r, fmt.Sprintf(tierKey, customerID), func() (domain.CustomerTier, error) {
		return r.RecordSource.CustomerTier(ctx, customerID)
	})
}

// overrideEntry guarda também a ausência de preço negociado.
type overrideEntry struct {
	Price decimal.Decimal `json:"price"`
	Found bool            `json:"found"`
}

// CustomerOverride busca o preço negociado com Cache-Aside.
func (r *CachedRepository) CustomerOverride(ctx context.Context, productID, customerID string) (decimal.Decimal, bool, error) {
	entry, err := cacheAside(ctx, r, fmt.Sprintf(overrideKey, productID, customerID), func() (overrideEntry, error) {
		price, ok, err := r.RecordSource.CustomerOverride(ctx, productID, customerID)
		return overrideEntry{Price: price, Found: ok}, err
	})
	if err != nil {
		return decimal.Zero, false, err
	}
	return entry.Price, entry.Found, nil
}

// VolumeBreaks busca a tabela de volume com Cache-Aside.
func (r *CachedRepository) VolumeBreaks(ctx context.Context, productID string) ([]domain.VolumeBreak, error) {
	return cacheAside(ctx, r, fmt.Sprintf(volumeKey, productID), func() ([]domain.VolumeBreak, error) {
		return r.RecordSource.VolumeBreaks(ctx, productID)
	})
}

