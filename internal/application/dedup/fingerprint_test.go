package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Dos envíos semánticamente idénticos con listas reordenadas y espacios
// incidentales deben producir la misma huella.
func TestFingerprint_ListasReordenadasMismaHuella(t *testing.T) {
	a := []byte(`{
		"report_type": "delivery",
		"herramientas": [
			{"sku": "TAL-001", "name": "Taladro", "units": 2},
			{"sku": "LLA-014", "name": "Llave inglesa", "units": 1}
		]
	}`)
	b := []byte(`{
		"herramientas": [
			{"sku": "LLA-014", "name": "  Llave inglesa  ", "units": 1},
			{"sku": "TAL-001", "name": "Taladro", "units": 2}
		],
		"report_type": " delivery "
	}`)

	assert.Equal(t, Fingerprint(a), Fingerprint(b),
		"reordenar sub-colecciones o agregar espacios no debe cambiar la huella")
}

// Los campos asignados por el servidor (ids, timestamps, folio) se excluyen de la huella.
func TestFingerprint_CamposDelServidorExcluidos(t *testing.T) {
	sin := []byte(`{"report_type":"delivery","note":"turno matutino"}`)
	con := []byte(`{"report_type":"delivery","note":"turno matutino","id":"abc","folio":"RPT-123","createdAt":"2026-01-01T00:00:00Z"}`)

	assert.Equal(t, Fingerprint(sin), Fingerprint(con))
}

// Payloads distintos deben producir huellas distintas.
func TestFingerprint_PayloadsDistintos(t *testing.T) {
	a := []byte(`{"report_type":"delivery","herramientas":[{"sku":"TAL-001","units":2}]}`)
	b := []byte(`{"report_type":"delivery","herramientas":[{"sku":"TAL-001","units":3}]}`)

	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

// La normalización Unicode (NFC) iguala strings compuestos y descompuestos.
func TestFingerprint_NormalizacionUnicode(t *testing.T) {
	composed := []byte(`{"note":"caf\u00e9"}`)
	decomposed := []byte(`{"note":"cafe\u0301"}`)

	assert.Equal(t, Fingerprint(composed), Fingerprint(decomposed))
}

// Entrada malformada degrada a hash con nonce: la deduplicación se derrota a
// propósito en vez de arriesgar normalizar mal dos payloads distintos.
func TestFingerprint_MalformadoDerrotaDeduplicacion(t *testing.T) {
	malformado := []byte(`{"report_type": "delivery",`)

	h1 := Fingerprint(malformado)
	h2 := Fingerprint(malformado)
	require.NotEmpty(t, h1)
	assert.NotEqual(t, h1, h2, "el nonce debe hacer única cada huella de entrada malformada")
}

// El orden de las claves de un objeto no altera la huella (marshal canónico).
func TestFingerprint_OrdenDeClavesIrrelevante(t *testing.T) {
	a := []byte(`{"x":1,"y":2}`)
	b := []byte(`{"y":2,"x":1}`)

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}
