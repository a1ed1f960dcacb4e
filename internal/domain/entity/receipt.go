package entity

import "time"

// Estados de conformidad de una recepción.
const (
	ConformityConforme    = "conforme"
	ConformityNonConforme = "non_conforme"
)

// Receipt registro inmutable de un evento de recepción (se inserta siempre, sea conforme o no).
type Receipt struct {
	ID                  string
	OrderID             string
	LineID              string
	ReceivedQty         int
	ConformityStatus    string
	NonconformityReason string
	NonconformityAction string
	CreatedBy           string
	CreatedAt           time.Time
}

// Estados de una no conformidad.
const (
	NonconformityOpen                 = "open"
	NonconformityReplacementRequested = "replacement_requested"
	NonconformityClosed               = "closed"
)

// Nonconformity seguimiento de una recepción no conforme hasta su cierre.
type Nonconformity struct {
	ID                   string
	OrderID              string
	LineID               string
	ReceiptID            string
	Reason               string
	Status               string
	RequestedReplacement bool
	CreatedBy            string
	CreatedAt            time.Time
}

// IsOpen informa si la no conformidad sigue en curso.
func (n *Nonconformity) IsOpen() bool {
	return n.Status != NonconformityClosed
}
