package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/dedup"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/dto"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/logger"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/metrics"
)

// Local key donde el handler deja el ID del recurso creado para que la guardia
// lo asocie al resultado cacheado.
const LocalResultID = "dedup_result_id"

// HeaderIdempotentReplay marca una respuesta servida desde el caché de la guardia.
const HeaderIdempotentReplay = "X-Idempotent-Replay"

// IdempotencyConfig opciones del middleware de idempotencia.
type IdempotencyConfig struct {
	Guard             *dedup.Guard
	Enabled           bool
	RetryAfterSeconds int
	Log               *logger.Logger
	Metrics           *metrics.Metrics
}

// IdempotencyMiddleware envuelve un endpoint mutador con la guardia de
// deduplicación. Protocolo: huella del payload; replay si hay resultado
// cacheado; 409 con Retry-After si hay un intento en proceso; intento nuevo en
// cualquier otro caso. La contabilidad terminal (complete/fail) es mejor
// esfuerzo y nunca afecta la operación primaria.
func IdempotencyMiddleware(cfg IdempotencyConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.Enabled {
			return c.Next()
		}

		// El body de fasthttp se reutiliza entre peticiones: copiar antes de seguir.
		body := append([]byte(nil), c.Body()...)
		hash := dedup.Fingerprint(body)
		endpoint := c.Path()
		method := c.Method()

		rec, err := cfg.Guard.Check(hash, endpoint, method)
		if err != nil {
			// La guardia es una capa de optimización: si no responde, la
			// petición procede sin deduplicación.
			cfg.Log.Warn().Err(err).Str("endpoint", endpoint).Msg("guardia de idempotencia no disponible; se procede sin deduplicar")
			return c.Next()
		}
		if resp := resolveExisting(c, cfg, rec); resp != nil {
			return resp()
		}

		if err := cfg.Guard.Begin(hash, endpoint, method); err != nil {
			if errors.Is(err, domain.ErrDuplicateInProgress) {
				// Perdimos la carrera contra un Begin concurrente: re-verificar
				// por si el ganador ya terminó.
				rec, checkErr := cfg.Guard.Check(hash, endpoint, method)
				if checkErr == nil {
					if resp := resolveExisting(c, cfg, rec); resp != nil {
						return resp()
					}
				}
				return respondInProgress(c, cfg, endpoint, method)
			}
			cfg.Log.Warn().Err(err).Str("endpoint", endpoint).Msg("no se pudo iniciar registro de deduplicación; se procede sin deduplicar")
			return c.Next()
		}

		cfg.Metrics.RecordMiss(endpoint, method)

		if err := c.Next(); err != nil {
			cfg.Guard.Fail(hash, endpoint, method, err.Error())
			return err
		}

		status := c.Response().StatusCode()
		if status >= 400 {
			cfg.Guard.Fail(hash, endpoint, method, strconv.Itoa(status))
			return nil
		}
		resultID := localString(c, LocalResultID)
		resultData := append([]byte(nil), c.Response().Body()...)
		cfg.Guard.Complete(hash, endpoint, method, resultID, resultData)
		return nil
	}
}

// resolveExisting decide la respuesta para un registro vigente; nil = proceder.
func resolveExisting(c *fiber.Ctx, cfg IdempotencyConfig, rec *entity.DeduplicationRecord) func() error {
	if rec == nil {
		return nil
	}
	switch rec.Status {
	case entity.DedupStatusCompleted:
		return func() error {
			cfg.Metrics.RecordHit(c.Path(), c.Method())
			c.Set(HeaderIdempotentReplay, "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(fiber.StatusOK).Send(rec.ResultData)
		}
	case entity.DedupStatusInProgress:
		return func() error {
			return respondInProgress(c, cfg, c.Path(), c.Method())
		}
	default:
		// failed: se permite el reintento; Begin reutiliza la fila.
		return nil
	}
}

func respondInProgress(c *fiber.Ctx, cfg IdempotencyConfig, endpoint, method string) error {
	cfg.Metrics.RecordCollision(endpoint, method)
	retryAfter := cfg.RetryAfterSeconds
	if retryAfter <= 0 {
		retryAfter = 5
	}
	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
	return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
		Code:    "DUPLICATE_IN_PROGRESS",
		Message: "una petición idéntica está en proceso; reintente más tarde",
	})
}
