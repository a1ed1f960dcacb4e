package entity

import "time"

// Motivos de movimiento generados por el motor de compras.
const (
	ReasonPurchaseReceipt    = "PURCHASE_ORDER_RECEIPT"
	ReasonReturnFromEmployee = "RETURN_FROM_EMPLOYEE"
	ReasonReturnToSupplier   = "RETURN_TO_SUPPLIER"
)

// Movement es un asiento del libro de existencias (solo inserción, nunca se actualiza ni se borra).
// Delta positivo = entrada, negativo = salida.
type Movement struct {
	ID        string
	ItemID    string
	Delta     int
	Reason    string
	CreatedBy string
	CreatedAt time.Time
}
