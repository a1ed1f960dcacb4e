package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus estado de una orden de compra.
type OrderStatus string

// Estados del ciclo de vida de una orden de compra.
const (
	OrderStatusPending           OrderStatus = "PENDING"
	OrderStatusOrdered           OrderStatus = "ORDERED"
	OrderStatusPartiallyReceived OrderStatus = "PARTIALLY_RECEIVED"
	OrderStatusReceived          OrderStatus = "RECEIVED"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
)

// IsValid comprueba que el estado pertenezca al conjunto conocido.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusOrdered, OrderStatusPartiallyReceived,
		OrderStatusReceived, OrderStatusCancelled:
		return true
	}
	return false
}

// IsClosed informa si el estado es terminal (RECEIVED o CANCELLED).
func (s OrderStatus) IsClosed() bool {
	return s == OrderStatusReceived || s == OrderStatusCancelled
}

// CanTransitionTo indica si un cambio explícito de estado está permitido.
// PARTIALLY_RECEIVED y RECEIVED nunca se fijan a mano: se derivan de las líneas.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusOrdered || target == OrderStatusCancelled
	case OrderStatusOrdered:
		return target == OrderStatusCancelled
	}
	return false
}

// Tipos de línea.
const (
	LineTypeStandard    = "standard"
	LineTypeReplacement = "replacement"
)

// Estados de devolución de una línea de reemplazo.
const (
	ReturnStatusNone    = "none"
	ReturnStatusPending = "pending"
	ReturnStatusShipped = "shipped"
)

// PurchaseOrder cabecera de la orden de compra.
type PurchaseOrder struct {
	ID             string
	SupplierID     *string
	Status         OrderStatus
	Note           string
	AutoCreated    bool
	IdempotencyKey *string
	Archived       bool
	ArchivedAt     *time.Time
	ArchivedBy     string
	CreatedBy      string
	CreatedAt      time.Time
	LastSentAt     *time.Time
	LastSentTo     string
	LastSentBy     string
	Lines          []PurchaseOrderLine
}

// PurchaseOrderLine línea de la orden. 0 <= QuantityReceived <= QuantityOrdered siempre.
type PurchaseOrderLine struct {
	ID               string
	OrderID          string
	ItemID           string
	QuantityOrdered  int
	QuantityReceived int
	UnitPrice        decimal.Decimal
	LineType         string
	// Campos exclusivos de las líneas de reemplazo.
	BeneficiaryEmployeeID *string
	ReturnExpected        bool
	ReturnReason          string
	ReturnEmployeeItemID  *string
	ReturnQty             int
	ReturnStatus          string
}

// Outstanding devuelve la cantidad pendiente por recibir.
func (l *PurchaseOrderLine) Outstanding() int {
	return l.QuantityOrdered - l.QuantityReceived
}

// IsComplete informa si la línea está totalmente recibida.
func (l *PurchaseOrderLine) IsComplete() bool {
	return l.QuantityReceived == l.QuantityOrdered
}

// IsReplacement informa si la línea es de reemplazo de dotación.
func (l *PurchaseOrderLine) IsReplacement() bool {
	return l.LineType == LineTypeReplacement
}

// Total devuelve QuantityOrdered * UnitPrice.
func (l *PurchaseOrderLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.QuantityOrdered)))
}

// Total suma los totales de línea.
func (o *PurchaseOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Lines {
		total = total.Add(o.Lines[i].Total())
	}
	return total
}

// Line busca una línea por ID.
func (o *PurchaseOrder) Line(lineID string) *PurchaseOrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

// DeriveStatus calcula el estado a partir de las líneas:
//   - RECEIVED si todas las líneas están completas;
//   - PARTIALLY_RECEIVED si alguna línea tiene recepción y no todas están completas;
//   - en otro caso, el estado explícito (PENDING, ORDERED o CANCELLED).
func DeriveStatus(explicit OrderStatus, lines []PurchaseOrderLine) OrderStatus {
	if explicit == OrderStatusCancelled {
		return explicit
	}
	if len(lines) == 0 {
		return explicit
	}
	complete := true
	progressed := false
	for i := range lines {
		if lines[i].QuantityReceived > lines[i].QuantityOrdered {
			// sobre-recepción: nunca se considera progreso válido
			return explicit
		}
		if !lines[i].IsComplete() {
			complete = false
		}
		if lines[i].QuantityReceived > 0 {
			progressed = true
		}
	}
	switch {
	case complete:
		return OrderStatusReceived
	case progressed:
		return OrderStatusPartiallyReceived
	}
	if explicit == OrderStatusPartiallyReceived || explicit == OrderStatusReceived {
		return OrderStatusOrdered
	}
	return explicit
}

// OrderPatch actualización parcial tipada de la cabecera.
type OrderPatch struct {
	SupplierID    *string
	ClearSupplier bool
	Note          *string
	Status        *OrderStatus
}

// IsEmpty indica si el patch no contiene cambios.
func (p OrderPatch) IsEmpty() bool {
	return p.SupplierID == nil && !p.ClearSupplier && p.Note == nil && p.Status == nil
}
