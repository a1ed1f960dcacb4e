package entity

import "time"

// Estados de una sugerencia de compra.
const (
	SuggestionStatusDraft     = "draft"
	SuggestionStatusConverted = "converted"
)

// PurchaseSuggestion agrupa los faltantes de un (módulo, proveedor, sitio).
type PurchaseSuggestion struct {
	ID               string
	ModuleKey        string
	SupplierID       *string
	SiteKey          string
	Status           string
	ConvertedOrderID *string
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Lines            []PurchaseSuggestionLine
}

// PurchaseSuggestionLine una línea por artículo en faltante.
type PurchaseSuggestionLine struct {
	ID           string
	SuggestionID string
	ItemID       string
	SKU          string
	Label        string
	VariantLabel string
	QtySuggested int
	QtyFinal     *int
}

// EffectiveQty cantidad a pedir: la editada por el usuario o, si no existe, la sugerida.
func (l *PurchaseSuggestionLine) EffectiveQty() int {
	if l.QtyFinal != nil {
		return *l.QtyFinal
	}
	return l.QtySuggested
}

// SupplierKey clave de agrupación del proveedor ("" = sin proveedor).
func SupplierKey(supplierID *string) string {
	if supplierID == nil {
		return ""
	}
	return *supplierID
}
