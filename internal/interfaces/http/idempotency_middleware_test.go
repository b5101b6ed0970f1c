package http

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/dedup"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/logger"
)

// ─────────────────────────────────────────────────────────────
// Repositorio de deduplicación en memoria con la semántica del
// adaptador real: expiración en lectura y un único ganador por clave.
// ─────────────────────────────────────────────────────────────

type dedupKey struct{ hash, endpoint, method string }

type memDedupRepo struct {
	mu      sync.Mutex
	records map[dedupKey]*entity.DeduplicationRecord
}

func newMemDedupRepo() *memDedupRepo {
	return &memDedupRepo{records: make(map[dedupKey]*entity.DeduplicationRecord)}
}

func (r *memDedupRepo) Get(hash, endpoint, method string) (*entity.DeduplicationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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
// Aplicación de prueba: un endpoint mutador detrás del middleware.
// ─────────────────────────────────────────────────────────────

type testBackend struct {
	mu        sync.Mutex
	calls     int
	nextError error // si se fija, el handler devuelve este error una vez
	nextCode  int   // si se fija, el handler responde este status una vez
}

func (b *testBackend) handler(c *fiber.Ctx) error {
	b.mu.Lock()
	b.calls++
	err := b.nextError
	code := b.nextCode
	b.nextError, b.nextCode = nil, 0
	b.mu.Unlock()

	if err != nil {
		return err
	}
	if code != 0 {
		return c.Status(code).JSON(fiber.Map{"error": "rechazado"})
	}
	c.Locals(LocalResultID, "rep-1")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": "rep-1", "folio": "RPT-AB12CD34"})
}

func (b *testBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func newTestApp(ttl time.Duration, enabled bool) (*fiber.App, *testBackend, *memDedupRepo) {
	repo := newMemDedupRepo()
	guard := dedup.NewGuard(repo, ttl, logger.Nop(), nil)
	backend := &testBackend{}

	app := fiber.New()
	app.Post("/api/reports", IdempotencyMiddleware(IdempotencyConfig{
		Guard:             guard,
		Enabled:           enabled,
		RetryAfterSeconds: 7,
		Log:               logger.Nop(),
		Metrics:           nil,
	}), backend.handler)
	return app, backend, repo
}

func postJSON(t *testing.T, app *fiber.App, body string) (int, map[string][]string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/api/reports", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header, string(raw)
}

const payload = `{"report_type":"delivery","herramientas":[{"sku":"TAL-001","name":"Taladro","units":2}]}`

// ─────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────

// El duplicado de una petición completada se responde desde el caché: misma
// respuesta, sin segunda ejecución del handler.
func TestIdempotency_ReplayDeDuplicado(t *testing.T) {
	app, backend, _ := newTestApp(time.Hour, true)

	status1, headers1, body1 := postJSON(t, app, payload)
	assert.Equal(t, fiber.StatusCreated, status1)
	assert.Empty(t, headers1["X-Idempotent-Replay"])

	status2, headers2, body2 := postJSON(t, app, payload)
	assert.Equal(t, fiber.StatusOK, status2, "el replay responde 200 con el resultado cacheado")
	assert.Equal(t, []string{"true"}, headers2["X-Idempotent-Replay"])
	assert.JSONEq(t, body1, body2)

	assert.Equal(t, 1, backend.callCount(), "el handler debe ejecutarse exactamente una vez")
}

// La equivalencia es semántica: listas reordenadas y espacios incidentales
// cuentan como la misma petición.
func TestIdempotency_ReplayConPayloadNormalizado(t *testing.T) {
	app, backend, _ := newTestApp(time.Hour, true)

	multi := `{"report_type":"delivery","herramientas":[{"sku":"TAL-001","units":2},{"sku":"LLA-014","units":1}]}`
	reordenado := `{"herramientas":[{"sku":"LLA-014","units":1},{"units":2,"sku":"TAL-001"}],"report_type":" delivery "}`

	status1, _, _ := postJSON(t, app, multi)
	assert.Equal(t, fiber.StatusCreated, status1)

	status2, headers2, _ := postJSON(t, app, reordenado)
	assert.Equal(t, fiber.StatusOK, status2)
	assert.Equal(t, []string{"true"}, headers2["X-Idempotent-Replay"])
	assert.Equal(t, 1, backend.callCount())
}

// Payloads distintos nunca colisionan.
func TestIdempotency_PayloadsDistintosProceden(t *testing.T) {
	app, backend, _ := newTestApp(time.Hour, true)

	postJSON(t, app, payload)
	otro := `{"report_type":"delivery","herramientas":[{"sku":"TAL-001","name":"Taladro","units":3}]}`
	status, _, _ := postJSON(t, app, otro)

	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, 2, backend.callCount())
}

// Un intento en proceso responde 409 con Retry-After, sin ejecutar el handler.
func TestIdempotency_EnProcesoRespondeConflicto(t *testing.T) {
	app, backend, repo := newTestApp(time.Hour, true)

	now := time.Now()
	require.NoError(t, repo.Begin(&entity.DeduplicationRecord{
		ID:          "pre",
		RequestHash: dedup.Fingerprint([]byte(payload)),
		Endpoint:    "/api/reports",
		Method:      fiber.MethodPost,
		Status:      entity.DedupStatusInProgress,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}))

	status, headers, body := postJSON(t, app, payload)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, []string{"7"}, headers["Retry-After"])
	assert.Contains(t, body, "DUPLICATE_IN_PROGRESS")
	assert.Equal(t, 0, backend.callCount())
}

// Un error del handler marca el registro como failed; el reintento idéntico procede.
func TestIdempotency_ReintentoTrasErrorDelHandler(t *testing.T) {
	app, backend, _ := newTestApp(time.Hour, true)

	backend.nextError = errors.New("sin conexión al almacenamiento")
	status1, _, _ := postJSON(t, app, payload)
	assert.Equal(t, fiber.StatusInternalServerError, status1)

	status2, headers2, _ := postJSON(t, app, payload)
	assert.Equal(t, fiber.StatusCreated, status2, "tras un fallo el reintento se procesa de nuevo")
	assert.Empty(t, headers2["X-Idempotent-Replay"])
	assert.Equal(t, 2, backend.callCount())
}

// Una respuesta >= 400 también cuenta como fallo: no se cachea ni bloquea reintentos.
func TestIdempotency_RespuestaDeErrorNoSeCachea(t *testing.T) {
	app, backend, _ := newTestApp(time.Hour, true)

	backend.nextCode = fiber.StatusUnprocessableEntity
	status1, _, _ := postJSON(t, app, payload)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status1)

	status2, _, _ := postJSON(t, app, payload)
	assert.Equal(t, fiber.StatusCreated, status2)
	assert.Equal(t, 2, backend.callCount())
}

// Pasado el TTL el duplicado se trata como petición nueva.
func TestIdempotency_ExpiracionDelTTL(t *testing.T) {
	app, backend, _ := newTestApp(20*time.Millisecond, true)

	postJSON(t, app, payload)
	time.Sleep(40 * time.Millisecond)

	status, headers, _ := postJSON(t, app, payload)
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Empty(t, headers["X-Idempotent-Replay"])
	assert.Equal(t, 2, backend.callCount())
}

// Con la guardia deshabilitada todas las peticiones se procesan.
func TestIdempotency_Deshabilitada(t *testing.T) {
	app, backend, _ := newTestApp(time.Hour, false)

	postJSON(t, app, payload)
	status, headers, _ := postJSON(t, app, payload)

	assert.Equal(t, fiber.StatusCreated, status)
	assert.Empty(t, headers["X-Idempotent-Replay"])
	assert.Equal(t, 2, backend.callCount())
}

// Entrada malformada degrada a huella con nonce: cada intento se procesa.
func TestIdempotency_MalformadoNoDeduplica(t *testing.T) {
	app, backend, _ := newTestApp(time.Hour, true)

	malformado := `{"report_type": "delivery",`
	status1, _, _ := postJSON(t, app, malformado)
	status2, _, _ := postJSON(t, app, malformado)

	assert.Equal(t, fiber.StatusCreated, status1)
	assert.Equal(t, fiber.StatusCreated, status2)
	assert.Equal(t, 2, backend.callCount())
}
