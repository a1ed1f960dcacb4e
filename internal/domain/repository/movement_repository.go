package repository

import (
	"context"

	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
)

// MovementRepository puerto del libro de movimientos (solo inserción).
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	// ListByItem lista los movimientos de un artículo en orden de inserción.
	ListByItem(ctx context.Context, itemID string, limit, offset int) ([]*entity.Movement, error)
}
