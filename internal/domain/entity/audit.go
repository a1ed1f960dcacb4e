package entity

import "time"

// Acciones registradas en la bitácora de órdenes de compra.
const (
	AuditActionCreate             = "create"
	AuditActionAutoCreate         = "auto_create"
	AuditActionAutoRaise          = "auto_raise"
	AuditActionUpdate             = "update"
	AuditActionReceive            = "receive"
	AuditActionRequestReplacement = "request_replacement"
	AuditActionValidatePending    = "validate_pending"
	AuditActionArchive            = "archive"
	AuditActionUnarchive          = "unarchive"
	AuditActionDelete             = "delete"
	AuditActionSendEmail          = "send_email"
	AuditActionConvertSuggestion  = "convert_suggestion"
)

// Resultados de una acción auditada.
const (
	AuditStatusOK     = "ok"
	AuditStatusDenied = "denied"
	AuditStatusSent   = "sent"
	AuditStatusFailed = "failed"
)

// AuditEntry entrada de bitácora. OrderID no tiene FK: sobrevive al borrado de la orden.
type AuditEntry struct {
	ID        string
	OrderID   string
	Action    string
	Status    string
	Actor     string
	MessageID string
	Error     string
	Details   string
	CreatedAt time.Time
}
