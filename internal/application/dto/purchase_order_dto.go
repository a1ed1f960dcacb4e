package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatePurchaseOrderLineRequest línea de una nueva orden.
type CreatePurchaseOrderLineRequest struct {
	ItemID                string           `json:"item_id"`
	QuantityOrdered       int              `json:"quantity_ordered"`
	UnitPrice             *decimal.Decimal `json:"unit_price,omitempty"`
	LineType              string           `json:"line_type,omitempty"` // standard (defecto) | replacement
	BeneficiaryEmployeeID *string          `json:"beneficiary_employee_id,omitempty"`
	ReturnExpected        bool             `json:"return_expected,omitempty"`
	ReturnReason          string           `json:"return_reason,omitempty"`
	ReturnEmployeeItemID  *string          `json:"return_employee_item_id,omitempty"`
	ReturnQty             int              `json:"return_qty,omitempty"`
}

// CreatePurchaseOrderRequest body para POST /api/purchase-orders.
// IdempotencyKey puede llegar en el body o en el header Idempotency-Key.
type CreatePurchaseOrderRequest struct {
	SupplierID     *string                          `json:"supplier_id,omitempty"`
	Status         string                           `json:"status,omitempty"` // PENDING (defecto) | ORDERED
	Note           string                           `json:"note,omitempty"`
	IdempotencyKey string                           `json:"idempotency_key,omitempty"`
	Lines          []CreatePurchaseOrderLineRequest `json:"lines"`
}

// UpdatePurchaseOrderRequest body para PATCH /api/purchase-orders/:id.
type UpdatePurchaseOrderRequest struct {
	SupplierID    *string `json:"supplier_id,omitempty"`
	ClearSupplier bool    `json:"clear_supplier,omitempty"`
	Note          *string `json:"note,omitempty"`
	Status        *string `json:"status,omitempty"`
}

// ListPurchaseOrdersRequest filtros de GET /api/purchase-orders.
type ListPurchaseOrdersRequest struct {
	Archived string `query:"archived"` // active (defecto) | archived | all
	Status   string `query:"status"`
	PageRequest
}

// ReceiveLineRequest body para POST /api/purchase-orders/:id/receive.
type ReceiveLineRequest struct {
	LineID              string `json:"line_id"`
	ReceivedQty         int    `json:"received_qty"`
	ConformityStatus    string `json:"conformity_status,omitempty"` // conforme (defecto) | non_conforme
	NonconformityReason string `json:"nonconformity_reason,omitempty"`
	NonconformityAction string `json:"nonconformity_action,omitempty"`
}

// RequestReplacementRequest body para POST /api/purchase-orders/:id/request-replacement.
type RequestReplacementRequest struct {
	LineID    string `json:"line_id"`
	ReceiptID string `json:"receipt_id"`
}

// SupplierNotificationRequest resultado del envío externo al proveedor.
type SupplierNotificationRequest struct {
	Status    string `json:"status"` // sent | failed
	SentTo    string `json:"sent_to,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PurchaseOrderLineResponse snapshot de una línea.
type PurchaseOrderLineResponse struct {
	ID                    string          `json:"id"`
	ItemID                string          `json:"item_id"`
	QuantityOrdered       int             `json:"quantity_ordered"`
	QuantityReceived      int             `json:"quantity_received"`
	UnitPrice             decimal.Decimal `json:"unit_price"`
	LineTotal             decimal.Decimal `json:"line_total"`
	LineType              string          `json:"line_type"`
	BeneficiaryEmployeeID *string         `json:"beneficiary_employee_id,omitempty"`
	ReturnExpected        bool            `json:"return_expected"`
	ReturnReason          string          `json:"return_reason,omitempty"`
	ReturnEmployeeItemID  *string         `json:"return_employee_item_id,omitempty"`
	ReturnQty             int             `json:"return_qty"`
	ReturnStatus          string          `json:"return_status"`
}

// ReceiptResponse recepción registrada.
type ReceiptResponse struct {
	ID                  string    `json:"id"`
	LineID              string    `json:"line_id"`
	ReceivedQty         int       `json:"received_qty"`
	ConformityStatus    string    `json:"conformity_status"`
	NonconformityReason string    `json:"nonconformity_reason,omitempty"`
	NonconformityAction string    `json:"nonconformity_action,omitempty"`
	CreatedBy           string    `json:"created_by"`
	CreatedAt           time.Time `json:"created_at"`
}

// NonconformityResponse seguimiento de una recepción no conforme.
type NonconformityResponse struct {
	ID                   string    `json:"id"`
	LineID               string    `json:"line_id"`
	ReceiptID            string    `json:"receipt_id"`
	Reason               string    `json:"reason,omitempty"`
	Status               string    `json:"status"`
	RequestedReplacement bool      `json:"requested_replacement"`
	CreatedAt            time.Time `json:"created_at"`
}

// PendingAssignmentResponse asignación de reemplazo pendiente de validación.
type PendingAssignmentResponse struct {
	ID                   string     `json:"id"`
	LineID               string     `json:"line_id"`
	BeneficiaryID        string     `json:"beneficiary_employee_id"`
	NewItemID            string     `json:"new_item_id"`
	Quantity             int        `json:"qty"`
	ReturnEmployeeItemID *string    `json:"return_employee_item_id,omitempty"`
	ReturnQty            int        `json:"return_qty"`
	Status               string     `json:"status"`
	ValidatedBy          string     `json:"validated_by,omitempty"`
	ValidatedAt          *time.Time `json:"validated_at,omitempty"`
}

// PurchaseOrderResponse snapshot completo de la orden.
type PurchaseOrderResponse struct {
	ID                 string                      `json:"id"`
	SupplierID         *string                     `json:"supplier_id,omitempty"`
	Status             string                      `json:"status"`
	Note               string                      `json:"note,omitempty"`
	AutoCreated        bool                        `json:"auto_created"`
	IdempotencyKey     *string                     `json:"idempotency_key,omitempty"`
	Archived           bool                        `json:"archived"`
	ArchivedAt         *time.Time                  `json:"archived_at,omitempty"`
	ArchivedBy         string                      `json:"archived_by,omitempty"`
	CreatedBy          string                      `json:"created_by"`
	CreatedAt          time.Time                   `json:"created_at"`
	LastSentAt         *time.Time                  `json:"last_sent_at,omitempty"`
	LastSentTo         string                      `json:"last_sent_to,omitempty"`
	LastSentBy         string                      `json:"last_sent_by,omitempty"`
	Total              decimal.Decimal             `json:"total"`
	Lines              []PurchaseOrderLineResponse `json:"lines"`
	Receipts           []ReceiptResponse           `json:"receipts,omitempty"`
	Nonconformities    []NonconformityResponse     `json:"nonconformities,omitempty"`
	PendingAssignments []PendingAssignmentResponse `json:"pending_assignments,omitempty"`
}

// PurchaseOrderListResponse listado paginado de órdenes (sin recepciones).
type PurchaseOrderListResponse struct {
	Items []PurchaseOrderResponse `json:"items"`
	Page  PageResponse            `json:"page"`
}

// AuditEntryResponse entrada de bitácora.
type AuditEntryResponse struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Action    string    `json:"action"`
	Status    string    `json:"status"`
	Actor     string    `json:"actor"`
	MessageID string    `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
