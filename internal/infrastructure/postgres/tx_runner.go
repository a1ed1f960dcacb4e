package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Abastecimiento-api/internal/application/inventory"
	"github.com/jhoicas/Abastecimiento-api/internal/application/purchasing"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
)

// Ensure TxRunner implements inventory.TxRunner and purchasing.TxRunner.
var _ inventory.TxRunner = (*TxRunner)(nil)
var _ purchasing.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Repositories devuelve el conjunto de repositorios sobre q (pool o tx).
func Repositories(q Querier) repository.Set {
	return repository.Set{
		Items:           NewItemRepository(q),
		Movements:       NewMovementRepository(q),
		Suppliers:       NewSupplierRepository(q),
		EmployeeItems:   NewEmployeeItemRepository(q),
		Orders:          NewPurchaseOrderRepository(q),
		Receipts:        NewReceiptRepository(q),
		Nonconformities: NewNonconformityRepository(q),
		Pending:         NewPendingAssignmentRepository(q),
		Suggestions:     NewSuggestionRepository(q),
		Audit:           NewAuditRepository(q),
	}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los errores de serialización o bloqueo al confirmar se devuelven como domain.ErrTransient.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.Set) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(Repositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

// Ping comprueba la conexión (health check).
func (r *TxRunner) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
