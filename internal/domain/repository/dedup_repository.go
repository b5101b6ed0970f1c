package repository

import (
	"time"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
)

// DedupRepository puerto de persistencia de registros de deduplicación.
type DedupRepository interface {
	// Get devuelve el registro vigente para la clave o nil si no existe.
	// Un registro cuyo ExpiresAt ya pasó se trata como ausente (expiración en lectura).
	Get(requestHash, endpoint, method string) (*entity.DeduplicationRecord, error)
	// Begin intenta registrar el intento como in_progress con su TTL. Si ya existe
	// un registro vigente in_progress o completed para la clave devuelve
	// domain.ErrDuplicateInProgress; un registro failed o expirado se reutiliza.
	// La carrera entre dos Begin concurrentes la resuelve el constraint único del
	// almacenamiento: exactamente uno gana.
	Begin(rec *entity.DeduplicationRecord) error
	// MarkCompleted transiciona a completed y cachea el resultado para replay.
	MarkCompleted(requestHash, endpoint, method, resultID string, resultData []byte) error
	// MarkFailed transiciona a failed conservando el mensaje de error.
	MarkFailed(requestHash, endpoint, method, errMsg string) error
	// DeleteExpired purga registros vencidos; devuelve cuántos eliminó.
	DeleteExpired(now time.Time) (int64, error)
}
