package repository

import (
	"context"

	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
)

// ReceiptRepository puerto de recepciones (inmutables).
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.Receipt) error
	GetByID(ctx context.Context, id string) (*entity.Receipt, error)
	ListByOrder(ctx context.Context, orderID string) ([]*entity.Receipt, error)
}

// NonconformityRepository puerto de no conformidades.
type NonconformityRepository interface {
	Create(ctx context.Context, nc *entity.Nonconformity) error
	GetByReceipt(ctx context.Context, receiptID string) (*entity.Nonconformity, error)
	Update(ctx context.Context, nc *entity.Nonconformity) error
	// CloseOpenForLine cierra las no conformidades abiertas de una línea.
	CloseOpenForLine(ctx context.Context, lineID string) error
	ListByOrder(ctx context.Context, orderID string) ([]*entity.Nonconformity, error)
}

// PendingAssignmentRepository puerto de asignaciones pendientes de reemplazo.
type PendingAssignmentRepository interface {
	Create(ctx context.Context, pa *entity.PendingAssignment) error
	GetForUpdate(ctx context.Context, id string) (*entity.PendingAssignment, error)
	FindByLine(ctx context.Context, lineID string) (*entity.PendingAssignment, error)
	Update(ctx context.Context, pa *entity.PendingAssignment) error
	ListByOrder(ctx context.Context, orderID string) ([]*entity.PendingAssignment, error)
}
