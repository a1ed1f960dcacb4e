package repository

import (
	"context"

	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
)

// AuditRepository bitácora de decisiones sobre órdenes de compra (solo inserción).
type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditEntry) error
	ListByOrder(ctx context.Context, orderID string) ([]*entity.AuditEntry, error)
}
