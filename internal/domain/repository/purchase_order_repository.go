package repository

import (
	"context"

	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
)

// Filtros de archivo para el listado de órdenes.
const (
	ArchivedActive = "active"
	ArchivedOnly   = "archived"
	ArchivedAll    = "all"
)

// OrderFilter filtros para listar órdenes de compra.
type OrderFilter struct {
	Archived string // active (por defecto), archived, all
	Status   entity.OrderStatus
	Limit    int
	Offset   int
}

// PurchaseOrderRepository puerto de persistencia del agregado orden/líneas.
// Los Get devuelven (nil, nil) si la orden no existe; las lecturas incluyen las líneas.
type PurchaseOrderRepository interface {
	// Create inserta cabecera y líneas. Devuelve domain.ErrDuplicate ante una violación de unicidad
	// (idempotency_key o borrador automático abierto) sin invalidar la transacción en curso.
	Create(ctx context.Context, order *entity.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.PurchaseOrder, error)
	// FindOpenAutoLine devuelve la línea del borrador automático abierto del artículo, bloqueada.
	FindOpenAutoLine(ctx context.Context, itemID string) (*entity.PurchaseOrderLine, error)
	// UpdateHeader persiste proveedor, nota, estado, archivo y último envío.
	UpdateHeader(ctx context.Context, order *entity.PurchaseOrder) error
	// UpdateLine persiste quantity_ordered, quantity_received y return_status.
	UpdateLine(ctx context.Context, line *entity.PurchaseOrderLine) error
	// ReleaseAutoSlots libera la marca de borrador automático abierto de las líneas de la orden.
	ReleaseAutoSlots(ctx context.Context, orderID string) error
	List(ctx context.Context, filter OrderFilter) ([]*entity.PurchaseOrder, error)
	// Delete elimina la orden con sus líneas, recepciones, no conformidades y asignaciones pendientes.
	Delete(ctx context.Context, id string) error
}
