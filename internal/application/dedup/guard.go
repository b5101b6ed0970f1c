package dedup

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/repository"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/logger"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/metrics"
)

// DefaultTTL ventana por defecto tras la cual un registro de deduplicación expira
// y una petición idéntica se trata como nueva.
const DefaultTTL = 24 * time.Hour

// Guard decide si una petición mutadora procede, se responde con el resultado
// cacheado o se rechaza por estar en proceso. Es una capa de optimización: sus
// fallas de contabilidad nunca deben hacer fallar la operación primaria.
type Guard struct {
	repo    repository.DedupRepository
	ttl     time.Duration
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewGuard construye la guardia. ttl <= 0 usa DefaultTTL.
func NewGuard(repo repository.DedupRepository, ttl time.Duration, log *logger.Logger, m *metrics.Metrics) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{repo: repo, ttl: ttl, log: log, metrics: m}
}

// TTL devuelve la ventana de expiración configurada.
func (g *Guard) TTL() time.Duration { return g.ttl }

// Check devuelve el registro vigente para la clave o nil. Lectura pura; un
// registro expirado se reporta como ausente.
func (g *Guard) Check(hash, endpoint, method string) (*entity.DeduplicationRecord, error) {
	return g.repo.Get(hash, endpoint, method)
}

// Begin intenta registrar el intento como in_progress. Devuelve
// domain.ErrDuplicateInProgress cuando otro intento vigente ya posee la clave;
// esa carrera es flujo de control esperado, no una condición excepcional.
func (g *Guard) Begin(hash, endpoint, method string) error {
	now := time.Now()
	rec := &entity.DeduplicationRecord{
		ID:          uuid.New().String(),
		RequestHash: hash,
		Endpoint:    endpoint,
		Method:      method,
		Status:      entity.DedupStatusInProgress,
		CreatedAt:   now,
		ExpiresAt:   now.Add(g.ttl),
	}
	return g.repo.Begin(rec)
}

// Complete transiciona el registro a completed cacheando el resultado para
// replays posteriores. Mejor esfuerzo: un error aquí se registra y se descarta,
// jamás se propaga — la mutación primaria ya se aplicó y perder el registro solo
// cuesta reprocesar un duplicado futuro.
func (g *Guard) Complete(hash, endpoint, method, resultID string, resultData []byte) {
	if err := g.repo.MarkCompleted(hash, endpoint, method, resultID, resultData); err != nil {
		g.metrics.RecordStorageError(endpoint, "mark_completed")
		g.log.Warn().Err(err).
			Str("endpoint", endpoint).
			Str("hash", hash).
			Msg("no se pudo marcar el registro de deduplicación como completed")
	}
}

// Fail transiciona el registro a failed; un reintento posterior idéntico se
// permitirá. Mejor esfuerzo, igual que Complete.
func (g *Guard) Fail(hash, endpoint, method, errMsg string) {
	if err := g.repo.MarkFailed(hash, endpoint, method, errMsg); err != nil {
		g.metrics.RecordStorageError(endpoint, "mark_failed")
		g.log.Warn().Err(err).
			Str("endpoint", endpoint).
			Str("hash", hash).
			Msg("no se pudo marcar el registro de deduplicación como failed")
	}
}

// PurgeExpired elimina registros vencidos; devuelve cuántos purgó.
func (g *Guard) PurgeExpired() (int64, error) {
	return g.repo.DeleteExpired(time.Now())
}

// StartPurgeLoop corre la purga periódica fuera de banda hasta que el contexto
// se cancele. Complementa la expiración en lectura: el TTL se cumple sin
// depender del barrido nativo del motor de almacenamiento.
func (g *Guard) StartPurgeLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := g.PurgeExpired()
				if err != nil {
					g.log.Warn().Err(err).Msg("purga de registros de deduplicación")
					continue
				}
				if n > 0 {
					g.log.Info().Int64("eliminados", n).Msg("registros de deduplicación expirados purgados")
				}
			}
		}
	}()
}
