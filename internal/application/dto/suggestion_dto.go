package dto

import "time"

// RefreshSuggestionsRequest body para POST /api/purchasing/suggestions/refresh.
// ModuleKeys vacío = todos los módulos editables por el llamador.
type RefreshSuggestionsRequest struct {
	ModuleKeys []string `json:"module_keys"`
	SiteKey    string   `json:"site_key,omitempty"`
}

// ListSuggestionsRequest filtros de GET /api/purchasing/suggestions.
type ListSuggestionsRequest struct {
	SiteKey   string `query:"site_key"`
	Status    string `query:"status"`
	ModuleKey string `query:"module_key"`
}

// SuggestionLineEdit edición de qty_final de una línea.
type SuggestionLineEdit struct {
	LineID   string `json:"line_id"`
	QtyFinal int    `json:"qty_final"`
}

// UpdateSuggestionRequest body para PATCH /api/purchasing/suggestions/:id.
type UpdateSuggestionRequest struct {
	Lines []SuggestionLineEdit `json:"lines"`
}

// SuggestionLineResponse línea de sugerencia.
type SuggestionLineResponse struct {
	ID           string `json:"id"`
	ItemID       string `json:"item_id"`
	SKU          string `json:"sku"`
	Label        string `json:"label"`
	VariantLabel string `json:"variant_label,omitempty"`
	QtySuggested int    `json:"qty_suggested"`
	QtyFinal     *int   `json:"qty_final,omitempty"`
}

// SuggestionResponse snapshot de una sugerencia con su estado de proveedor derivado.
type SuggestionResponse struct {
	ID               string                   `json:"id"`
	ModuleKey        string                   `json:"module_key"`
	SupplierID       *string                  `json:"supplier_id,omitempty"`
	SupplierName     string                   `json:"supplier_name,omitempty"`
	SupplierStatus   string                   `json:"supplier_status"`
	SiteKey          string                   `json:"site_key"`
	Status           string                   `json:"status"`
	ConvertedOrderID *string                  `json:"converted_order_id,omitempty"`
	CreatedBy        string                   `json:"created_by"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
	Lines            []SuggestionLineResponse `json:"lines"`
}

// RefreshSuggestionsResponse resultado del refresco.
type RefreshSuggestionsResponse struct {
	Suggestions []SuggestionResponse `json:"suggestions"`
	Removed     int                  `json:"removed"`
}

// ConvertSuggestionResponse orden creada a partir de la sugerencia.
type ConvertSuggestionResponse struct {
	Suggestion SuggestionResponse    `json:"suggestion"`
	Order      PurchaseOrderResponse `json:"order"`
}
