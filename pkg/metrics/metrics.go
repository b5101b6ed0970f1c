package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics métricas Prometheus de la guardia de idempotencia y la conciliación.
// Un receptor nil es válido y no registra nada (útil en tests).
type Metrics struct {
	// DedupHits replays de respuesta cacheada. Labels: endpoint, method
	DedupHits *prometheus.CounterVec
	// DedupMisses peticiones nuevas procesadas. Labels: endpoint, method
	DedupMisses *prometheus.CounterVec
	// DedupCollisions duplicados concurrentes rechazados (en proceso). Labels: endpoint, method
	DedupCollisions *prometheus.CounterVec
	// DedupStorageErrors fallas de contabilidad de la guardia. Labels: endpoint, operation
	DedupStorageErrors *prometheus.CounterVec
	// ReconcileItems partidas conciliadas por resultado. Labels: report_type, outcome
	ReconcileItems *prometheus.CounterVec
}

// New registra las métricas en el registry dado (nil = registry por defecto).
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		DedupHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dedup_hits_total",
				Help: "Duplicados completados respondidos con la respuesta cacheada",
			},
			[]string{"endpoint", "method"},
		),
		DedupMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dedup_misses_total",
				Help: "Peticiones nuevas que pasaron la guardia de idempotencia",
			},
			[]string{"endpoint", "method"},
		),
		DedupCollisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dedup_collisions_total",
				Help: "Duplicados concurrentes rechazados por estar en proceso",
			},
			[]string{"endpoint", "method"},
		),
		DedupStorageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dedup_storage_errors_total",
				Help: "Errores de almacenamiento en la contabilidad de la guardia",
			},
			[]string{"endpoint", "operation"},
		),
		ReconcileItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconcile_items_total",
				Help: "Partidas de reportes conciliadas contra el libro mayor, por resultado",
			},
			[]string{"report_type", "outcome"},
		),
	}
}

// RecordHit registra un replay de respuesta cacheada.
func (m *Metrics) RecordHit(endpoint, method string) {
	if m != nil && m.DedupHits != nil {
		m.DedupHits.WithLabelValues(endpoint, method).Inc()
	}
}

// RecordMiss registra una petición nueva procesada.
func (m *Metrics) RecordMiss(endpoint, method string) {
	if m != nil && m.DedupMisses != nil {
		m.DedupMisses.WithLabelValues(endpoint, method).Inc()
	}
}

// RecordCollision registra un duplicado concurrente rechazado.
func (m *Metrics) RecordCollision(endpoint, method string) {
	if m != nil && m.DedupCollisions != nil {
		m.DedupCollisions.WithLabelValues(endpoint, method).Inc()
	}
}

// RecordStorageError registra una falla de contabilidad de la guardia.
func (m *Metrics) RecordStorageError(endpoint, operation string) {
	if m != nil && m.DedupStorageErrors != nil {
		m.DedupStorageErrors.WithLabelValues(endpoint, operation).Inc()
	}
}

// RecordReconcileOutcome registra el resultado de conciliar una partida.
func (m *Metrics) RecordReconcileOutcome(reportType, outcome string) {
	if m != nil && m.ReconcileItems != nil {
		m.ReconcileItems.WithLabelValues(reportType, outcome).Inc()
	}
}
