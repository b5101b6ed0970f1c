package entity

import "time"

// Estados del ciclo de vida de un registro de deduplicación.
const (
	DedupStatusInProgress = "in_progress"
	DedupStatusCompleted  = "completed"
	DedupStatusFailed     = "failed"
)

// DeduplicationRecord rastrea una petición mutadora lógica. Existe a lo sumo un
// registro por (RequestHash, Endpoint, Method) a la vez, garantizado por un
// constraint único en almacenamiento (los creadores concurrentes compiten y el
// perdedor observa la violación).
type DeduplicationRecord struct {
	ID          string
	RequestHash string
	Endpoint    string
	Method      string
	Status      string // in_progress | completed | failed
	ResultID    string
	ResultData  []byte // respuesta cacheada para replay
	Error       string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// IsExpired indica si el registro ya venció su TTL (se trata como ausente).
func (r *DeduplicationRecord) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
