package repository

import (
	"context"

	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
)

// ItemFilter filtros para listar artículos.
type ItemFilter struct {
	Search    string
	ModuleKey string
	Limit     int
	Offset    int
}

// ItemRepository define el puerto de persistencia para artículos (DIP).
// GetByID/GetForUpdate devuelven (nil, nil) si el artículo no existe.
type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) error
	GetByID(ctx context.Context, id string) (*entity.Item, error)
	// GetForUpdate obtiene el artículo bloqueando la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Item, error)
	// Update persiste los campos descriptivos (nombre, sku, módulo, talla, umbral, seguimiento, proveedor).
	Update(ctx context.Context, item *entity.Item) error
	UpdateQuantity(ctx context.Context, id string, quantity int) error
	List(ctx context.Context, filter ItemFilter) ([]*entity.Item, error)
	// ListShortages devuelve los artículos con seguimiento activo, umbral > 0 y cantidad < umbral.
	ListShortages(ctx context.Context, moduleKey string) ([]*entity.Item, error)
}
