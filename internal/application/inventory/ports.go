package inventory

import (
	"context"

	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el libro de existencias.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.Set) error) error
}

// ReplenishmentTrigger evalúa el faltante de un artículo dentro de la transacción del movimiento
// y crea o ajusta su borrador automático de compra.
type ReplenishmentTrigger interface {
	EvaluateInTx(ctx context.Context, repos repository.Set, itemID, actor string) error
}
