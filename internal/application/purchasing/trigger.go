package purchasing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Abastecimiento-api/internal/application/inventory"
	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
	"github.com/jhoicas/Abastecimiento-api/pkg/logger"
)

var _ inventory.ReplenishmentTrigger = (*ReplenishmentTrigger)(nil)

// maxAutoDraftAttempts intentos de insertar-o-fusionar ante inserciones concurrentes del mismo borrador.
const maxAutoDraftAttempts = 3

// ReplenishmentTrigger mantiene a lo sumo un borrador automático abierto por artículo en faltante.
type ReplenishmentTrigger struct {
	metrics Metrics
	log     *logger.Logger
}

// NewReplenishmentTrigger construye el disparador. metrics puede ser nil.
func NewReplenishmentTrigger(metrics Metrics, log *logger.Logger) *ReplenishmentTrigger {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ReplenishmentTrigger{metrics: metrics, log: log.Component("replenishment")}
}

// EvaluateInTx crea o ajusta el borrador automático del artículo con los repositorios de la tx del llamador.
// Nunca reduce lo pedido. Si otra transacción inserta el borrador a la vez, vuelve a leer y fusiona.
func (t *ReplenishmentTrigger) EvaluateInTx(ctx context.Context, repos repository.Set, itemID, actor string) error {
	for attempt := 1; attempt <= maxAutoDraftAttempts; attempt++ {
		err := t.evaluate(ctx, repos, itemID, actor)
		if !errors.Is(err, domain.ErrDuplicate) {
			return err
		}
		t.log.Warn().Str("item_id", itemID).Int("attempt", attempt).Msg("borrador automático concurrente, se fusiona")
	}
	return fmt.Errorf("borrador automático de %s tras %d intentos: %w", itemID, maxAutoDraftAttempts, domain.ErrTransient)
}

func (t *ReplenishmentTrigger) evaluate(ctx context.Context, repos repository.Set, itemID, actor string) error {
	item, err := repos.Items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
	}
	if !item.HasSupplier() || !item.TrackLowStock || item.LowStockThreshold <= 0 {
		return nil
	}
	shortage := item.LowStockThreshold - item.Quantity
	if shortage <= 0 {
		return nil
	}

	line, err := repos.Orders.FindOpenAutoLine(ctx, item.ID)
	if err != nil {
		return err
	}
	if line != nil {
		if line.Outstanding() >= shortage {
			return nil
		}
		before := line.QuantityOrdered
		line.QuantityOrdered = line.QuantityReceived + shortage
		if err := repos.Orders.UpdateLine(ctx, line); err != nil {
			return err
		}
		t.metrics.AutoDraft(entity.AuditActionAutoRaise)
		t.log.Info().Str("order_id", line.OrderID).Str("item_id", item.ID).
			Int("from", before).Int("to", line.QuantityOrdered).Msg("borrador automático ajustado")
		return audit(ctx, repos, entity.AuditEntry{
			OrderID: line.OrderID,
			Action:  entity.AuditActionAutoRaise,
			Actor:   actor,
			Details: fmt.Sprintf("item=%s ordered %d->%d", item.ID, before, line.QuantityOrdered),
		})
	}

	supplierID := *item.SupplierID
	order := &entity.PurchaseOrder{
		ID:          uuid.New().String(),
		SupplierID:  &supplierID,
		Status:      entity.OrderStatusPending,
		Note:        autoNote(item),
		AutoCreated: true,
		CreatedBy:   actor,
		CreatedAt:   time.Now(),
		Lines: []entity.PurchaseOrderLine{{
			ID:              uuid.New().String(),
			ItemID:          item.ID,
			QuantityOrdered: shortage,
			UnitPrice:       decimal.Zero,
			LineType:        entity.LineTypeStandard,
			ReturnStatus:    entity.ReturnStatusNone,
		}},
	}
	if err := repos.Orders.Create(ctx, order); err != nil {
		return err
	}
	t.metrics.AutoDraft(entity.AuditActionAutoCreate)
	t.log.Info().Str("order_id", order.ID).Str("item_id", item.ID).Int("qty", shortage).Msg("borrador automático creado")
	return audit(ctx, repos, entity.AuditEntry{
		OrderID: order.ID,
		Action:  entity.AuditActionAutoCreate,
		Actor:   actor,
		Details: fmt.Sprintf("item=%s qty=%d", item.ID, shortage),
	})
}

func autoNote(item *entity.Item) string {
	label := strings.TrimSpace(item.Name)
	if item.SKU != "" {
		label = fmt.Sprintf("%s (%s)", label, item.SKU)
	}
	return "Reposición automática: " + label
}
