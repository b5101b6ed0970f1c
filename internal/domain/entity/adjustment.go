package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Razones válidas de un ajuste de inventario.
const (
	AdjustmentReasonInitial    = "initial"
	AdjustmentReasonIncrease   = "increase"
	AdjustmentReasonDecrease   = "decrease"
	AdjustmentReasonCorrection = "correction"
	AdjustmentReasonDamage     = "damage"
	AdjustmentReasonAudit      = "audit"
)

// ValidAdjustmentReason valida la razón contra el conjunto cerrado.
func ValidAdjustmentReason(reason string) bool {
	switch reason {
	case AdjustmentReasonInitial, AdjustmentReasonIncrease, AdjustmentReasonDecrease,
		AdjustmentReasonCorrection, AdjustmentReasonDamage, AdjustmentReasonAudit:
		return true
	}
	return false
}

// Actor identifica a quien ejecuta un ajuste (identidad opaca del token).
type Actor struct {
	ID   string
	Name string
	Role string
}

// Adjustment es una entrada inmutable del libro mayor de inventario.
// La suma de los Delta de un artículo reconstruye su QuantityOnHand actual;
// las entradas nunca se editan ni se borran.
type Adjustment struct {
	ID                string
	ItemID            string
	Delta             decimal.Decimal // con signo, nunca cero
	Reason            string
	Note              string
	ActorID           string
	ActorName         string
	ActorRole         string
	ResultingQuantity decimal.Decimal // saldo después de aplicar Delta (redundante, para auditoría)
	CreatedAt         time.Time
}
