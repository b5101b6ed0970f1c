package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// serverAssignedFields son campos que asigna el servidor y se excluyen de la
// huella: dos envíos semánticamente idénticos no deben diferir por ellos.
var serverAssignedFields = map[string]struct{}{
	"id":         {},
	"_id":        {},
	"folio":      {},
	"createdAt":  {},
	"updatedAt":  {},
	"created_at": {},
	"updated_at": {},
	"__v":        {},
}

// Fingerprint calcula un digest SHA-256 determinista de la proyección normalizada
// del payload: strings recortados y normalizados a NFC, campos asignados por el
// servidor excluidos, y arreglos ordenados por una clave estable, de modo que
// envíos semánticamente idénticos con listas reordenadas o espacios incidentales
// produzcan la misma huella.
//
// Si el payload no es JSON válido, la huella se degrada a hash del crudo más un
// nonce de reloj: deduplicar entrada malformada es peor que no deduplicarla.
func Fingerprint(payload []byte) string {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return rawFingerprint(payload)
	}
	normalized := normalizeValue(v)
	canonical, err := json.Marshal(normalized) // json.Marshal ordena las claves de map
	if err != nil {
		return rawFingerprint(payload)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// rawFingerprint hash del payload crudo más nonce: derrota la deduplicación a
// propósito para entrada que no se pudo normalizar.
func rawFingerprint(payload []byte) string {
	h := sha256.New()
	h.Write(payload)
	h.Write([]byte(fmt.Sprintf("|nonce:%d", time.Now().UnixNano())))
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeValue normaliza recursivamente un valor JSON decodificado.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return norm.NFC.String(strings.TrimSpace(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if _, drop := serverAssignedFields[k]; drop {
				continue
			}
			out[k] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = normalizeValue(el)
		}
		// Orden estable por la representación canónica de cada elemento:
		// las sub-colecciones sin orden semántico producen la misma huella.
		sort.SliceStable(out, func(i, j int) bool {
			bi, _ := json.Marshal(out[i])
			bj, _ := json.Marshal(out[j])
			return string(bi) < string(bj)
		})
		return out
	default:
		return v
	}
}
