package entity

import "time"

// Estados de una asignación pendiente.
const (
	PendingStatusPending   = "pending"
	PendingStatusValidated = "validated"
)

// PendingAssignment artículo de reemplazo recibido y conforme, a la espera de validación
// para intercambiarlo en la dotación del beneficiario.
type PendingAssignment struct {
	ID                   string
	OrderID              string
	LineID               string
	BeneficiaryID        string
	NewItemID            string
	Quantity             int
	ReturnEmployeeItemID *string
	ReturnQty            int
	Status               string
	CreatedAt            time.Time
	ValidatedBy          string
	ValidatedAt          *time.Time
}
