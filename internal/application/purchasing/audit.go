package purchasing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
	"github.com/jhoicas/Abastecimiento-api/pkg/logger"
)

// audit agrega una entrada de bitácora dentro de la transacción en curso.
func audit(ctx context.Context, repos repository.Set, e entity.AuditEntry) error {
	e.ID = uuid.New().String()
	e.CreatedAt = time.Now()
	if e.Status == "" {
		e.Status = entity.AuditStatusOK
	}
	if err := repos.Audit.Append(ctx, &e); err != nil {
		return fmt.Errorf("audit %s: %w", e.Action, err)
	}
	return nil
}

// auditOutcome registra en una transacción propia el resultado de una operación que no se aplicó
// (denegada o fallida). Un error al auditar solo se registra en el log.
func auditOutcome(ctx context.Context, txRunner TxRunner, log *logger.Logger, e entity.AuditEntry) {
	err := txRunner.Run(ctx, func(repos repository.Set) error {
		return audit(ctx, repos, e)
	})
	if err != nil {
		log.Error().Err(err).Str("order_id", e.OrderID).Str("action", e.Action).Str("status", e.Status).
			Msg("no se pudo auditar el resultado")
	}
}
