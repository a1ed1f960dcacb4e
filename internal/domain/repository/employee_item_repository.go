package repository

import (
	"context"

	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
)

// EmployeeItemRepository puerto de dotaciones por colaborador.
type EmployeeItemRepository interface {
	Create(ctx context.Context, ei *entity.EmployeeItem) error
	// GetForUpdate obtiene la dotación bloqueando la fila; (nil, nil) si no existe.
	GetForUpdate(ctx context.Context, id string) (*entity.EmployeeItem, error)
	// FindForUpdate busca la dotación de un colaborador para un artículo; (nil, nil) si no existe.
	FindForUpdate(ctx context.Context, employeeID, itemID string) (*entity.EmployeeItem, error)
	UpdateQuantity(ctx context.Context, id string, quantity int) error
	Delete(ctx context.Context, id string) error
	ListByEmployee(ctx context.Context, employeeID string) ([]*entity.EmployeeItem, error)
}
