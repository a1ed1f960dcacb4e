package dto

import "time"

// CreateItemRequest body para POST /api/items.
type CreateItemRequest struct {
	Name              string  `json:"name"`
	SKU               string  `json:"sku"`
	ModuleKey         string  `json:"module_key"`
	Size              string  `json:"size,omitempty"`
	Quantity          int     `json:"quantity"`
	LowStockThreshold int     `json:"low_stock_threshold"`
	TrackLowStock     *bool   `json:"track_low_stock,omitempty"` // por defecto true
	SupplierID        *string `json:"supplier_id,omitempty"`
}

// UpdateItemRequest body para PATCH /api/items/:id. Solo los campos presentes se aplican.
type UpdateItemRequest struct {
	Name              *string `json:"name,omitempty"`
	SKU               *string `json:"sku,omitempty"`
	ModuleKey         *string `json:"module_key,omitempty"`
	Size              *string `json:"size,omitempty"`
	LowStockThreshold *int    `json:"low_stock_threshold,omitempty"`
	TrackLowStock     *bool   `json:"track_low_stock,omitempty"`
	SupplierID        *string `json:"supplier_id,omitempty"`
	ClearSupplier     bool    `json:"clear_supplier,omitempty"`
}

// ListItemsRequest filtros de GET /api/items.
type ListItemsRequest struct {
	Search    string `query:"search"`
	ModuleKey string `query:"module_key"`
	PageRequest
}

// ItemResponse snapshot de un artículo.
type ItemResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	SKU               string    `json:"sku"`
	ModuleKey         string    `json:"module_key"`
	Size              string    `json:"size,omitempty"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	TrackLowStock     bool      `json:"track_low_stock"`
	SupplierID        *string   `json:"supplier_id,omitempty"`
	Shortage          int       `json:"shortage"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ItemListResponse listado paginado de artículos.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// RecordMovementRequest body para POST /api/items/:id/movements.
type RecordMovementRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// MovementResponse asiento del libro de existencias.
type MovementResponse struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
