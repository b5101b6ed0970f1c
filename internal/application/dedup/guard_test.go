package dedup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/logger"
)

// ─────────────────────────────────────────────────────────────
// Repositorio en memoria con la misma semántica que el adaptador
// de postgres: expiración en lectura y constraint único por clave.
// ─────────────────────────────────────────────────────────────

type dedupKey struct {
	hash, endpoint, method string
}

type memDedupRepo struct {
	mu      sync.Mutex
	records map[dedupKey]*entity.DeduplicationRecord
	failAll bool
}

func newMemDedupRepo() *memDedupRepo {
	return &memDedupRepo{records: make(map[dedupKey]*entity.DeduplicationRecord)}
}

func (r *memDedupRepo) Get(hash, endpoint, method string) (*entity.DeduplicationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errors.New("almacenamiento no disponible")
	}
	rec, ok := r.records[dedupKey{hash, endpoint, method}]
	if !ok || rec.IsExpired(time.Now()) {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *memDedupRepo) Begin(rec *entity.DeduplicationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errors.New("almacenamiento no disponible")
	}
	key := dedupKey{rec.RequestHash, rec.Endpoint, rec.Method}
	if prev, ok := r.records[key]; ok {
		if prev.Status != entity.DedupStatusFailed && !prev.IsExpired(rec.CreatedAt) {
			return domain.ErrDuplicateInProgress
		}
	}
	cp := *rec
	r.records[key] = &cp
	return nil
}

func (r *memDedupRepo) MarkCompleted(hash, endpoint, method, resultID string, resultData []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errors.New("almacenamiento no disponible")
	}
	rec, ok := r.records[dedupKey{hash, endpoint, method}]
	if !ok || rec.Status != entity.DedupStatusInProgress {
		return domain.ErrNotFound
	}
	rec.Status = entity.DedupStatusCompleted
	rec.ResultID = resultID
	rec.ResultData = append([]byte(nil), resultData...)
	return nil
}

func (r *memDedupRepo) MarkFailed(hash, endpoint, method, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errors.New("almacenamiento no disponible")
	}
	rec, ok := r.records[dedupKey{hash, endpoint, method}]
	if !ok || rec.Status != entity.DedupStatusInProgress {
		return domain.ErrNotFound
	}
	rec.Status = entity.DedupStatusFailed
	rec.Error = errMsg
	return nil
}

func (r *memDedupRepo) DeleteExpired(now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return 0, errors.New("almacenamiento no disponible")
	}
	var n int64
	for k, rec := range r.records {
		if rec.IsExpired(now) {
			delete(r.records, k)
			n++
		}
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────

func TestGuard_CicloCompleto(t *testing.T) {
	repo := newMemDedupRepo()
	g := NewGuard(repo, time.Hour, logger.Nop(), nil)

	rec, err := g.Check("h1", "/api/reports", "POST")
	require.NoError(t, err)
	assert.Nil(t, rec, "clave nueva no debe tener registro")

	require.NoError(t, g.Begin("h1", "/api/reports", "POST"))

	rec, err = g.Check("h1", "/api/reports", "POST")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, entity.DedupStatusInProgress, rec.Status)

	g.Complete("h1", "/api/reports", "POST", "rep-1", []byte(`{"id":"rep-1"}`))

	rec, err = g.Check("h1", "/api/reports", "POST")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, entity.DedupStatusCompleted, rec.Status)
	assert.Equal(t, "rep-1", rec.ResultID)
	assert.JSONEq(t, `{"id":"rep-1"}`, string(rec.ResultData))
}

// Dos Begin concurrentes sobre la misma clave: exactamente uno gana.
func TestGuard_CarreraDeBegin(t *testing.T) {
	repo := newMemDedupRepo()
	g := NewGuard(repo, time.Hour, logger.Nop(), nil)

	const corredores = 8
	errs := make([]error, corredores)
	var wg sync.WaitGroup
	for i := 0; i < corredores; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = g.Begin("h-race", "/api/reports", "POST")
		}(i)
	}
	wg.Wait()

	ganadores := 0
	for _, err := range errs {
		if err == nil {
			ganadores++
		} else {
			assert.ErrorIs(t, err, domain.ErrDuplicateInProgress)
		}
	}
	assert.Equal(t, 1, ganadores, "el constraint único admite exactamente un ganador")
}

// Un registro failed se reutiliza: el reintento idéntico procede.
func TestGuard_ReintentoTrasFallo(t *testing.T) {
	repo := newMemDedupRepo()
	g := NewGuard(repo, time.Hour, logger.Nop(), nil)

	require.NoError(t, g.Begin("h2", "/api/reports", "POST"))
	g.Fail("h2", "/api/reports", "POST", "500")

	assert.NoError(t, g.Begin("h2", "/api/reports", "POST"),
		"tras un fallo el siguiente intento debe poder registrarse")
}

// Pasado el TTL la clave se trata como nueva aunque el registro siga almacenado.
func TestGuard_ExpiracionEnLectura(t *testing.T) {
	repo := newMemDedupRepo()
	g := NewGuard(repo, 15*time.Millisecond, logger.Nop(), nil)

	require.NoError(t, g.Begin("h3", "/api/reports", "POST"))
	g.Complete("h3", "/api/reports", "POST", "rep-3", []byte(`{}`))

	time.Sleep(30 * time.Millisecond)

	rec, err := g.Check("h3", "/api/reports", "POST")
	require.NoError(t, err)
	assert.Nil(t, rec, "un registro expirado se reporta como ausente")

	assert.NoError(t, g.Begin("h3", "/api/reports", "POST"),
		"una clave expirada debe poder reutilizarse")
}

func TestGuard_PurgeExpired(t *testing.T) {
	repo := newMemDedupRepo()
	g := NewGuard(repo, 10*time.Millisecond, logger.Nop(), nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, g.Begin(fmt.Sprintf("h-purge-%d", i), "/api/reports", "POST"))
	}
	time.Sleep(25 * time.Millisecond)

	n, err := g.PurgeExpired()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

// Complete y Fail son mejor esfuerzo: un error de almacenamiento se traga.
func TestGuard_ContabilidadMejorEsfuerzo(t *testing.T) {
	repo := newMemDedupRepo()
	g := NewGuard(repo, time.Hour, logger.Nop(), nil)

	repo.failAll = true
	assert.NotPanics(t, func() {
		g.Complete("hx", "/api/reports", "POST", "rep-x", nil)
		g.Fail("hx", "/api/reports", "POST", "500")
	})
}

func TestGuard_TTLPorDefecto(t *testing.T) {
	g := NewGuard(newMemDedupRepo(), 0, logger.Nop(), nil)
	assert.Equal(t, DefaultTTL, g.TTL())
}

func TestGuard_PurgeLoopSeDetieneConElContexto(t *testing.T) {
	repo := newMemDedupRepo()
	g := NewGuard(repo, time.Hour, logger.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	g.StartPurgeLoop(ctx, 5*time.Millisecond)
	time.Sleep(15 * time.Millisecond)
	cancel()
	// sin aserción posible sobre la goroutine; basta con que no haya pánico ni fuga evidente
}
