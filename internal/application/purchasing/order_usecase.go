package purchasing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Abastecimiento-api/internal/application/dto"
	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
	"github.com/jhoicas/Abastecimiento-api/pkg/logger"
)

// PurchaseOrderUseCase ciclo de vida de las órdenes de compra.
type PurchaseOrderUseCase struct {
	txRunner TxRunner
	log      *logger.Logger
}

// NewPurchaseOrderUseCase construye el caso de uso.
func NewPurchaseOrderUseCase(txRunner TxRunner, log *logger.Logger) *PurchaseOrderUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &PurchaseOrderUseCase{txRunner: txRunner, log: log.Component("purchase_orders")}
}

// Create inserta la orden con sus líneas en una transacción.
// Si la clave de idempotencia ya existe devuelve la orden guardada junto con domain.ErrAlreadyApplied
// (señal de repetición, no de fallo) sin escribir nada.
func (uc *PurchaseOrderUseCase) Create(ctx context.Context, in dto.CreatePurchaseOrderRequest, actor Actor) (*dto.PurchaseOrderResponse, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	var (
		resp     *dto.PurchaseOrderResponse
		replayed bool
	)
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		order, again, err := uc.CreateInTx(ctx, repos, in, actor)
		if err != nil {
			return err
		}
		replayed = again
		resp, err = orderSnapshot(ctx, repos, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if replayed {
		return resp, domain.ErrAlreadyApplied
	}
	return resp, nil
}

// CreateInTx crea la orden con los repositorios de una transacción abierta (conversión de sugerencias).
// El booleano indica que la clave de idempotencia ya existía y se devolvió la orden guardada.
func (uc *PurchaseOrderUseCase) CreateInTx(ctx context.Context, repos repository.Set, in dto.CreatePurchaseOrderRequest, actor Actor) (*entity.PurchaseOrder, bool, error) {
	if err := validateCreate(in); err != nil {
		return nil, false, err
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		existing, err := repos.Orders.GetByIdempotencyKey(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, true, nil
		}
	}

	supplierID := trimmed(in.SupplierID)
	if supplierID != nil {
		s, err := repos.Suppliers.GetByID(ctx, *supplierID)
		if err != nil {
			return nil, false, err
		}
		if s == nil {
			return nil, false, fmt.Errorf("supplier %s no existe: %w", *supplierID, domain.ErrValidation)
		}
	}

	status := entity.OrderStatusPending
	if in.Status != "" {
		status = entity.OrderStatus(strings.ToUpper(in.Status))
	}
	order := &entity.PurchaseOrder{
		ID:         uuid.New().String(),
		SupplierID: supplierID,
		Status:     status,
		Note:       strings.TrimSpace(in.Note),
		CreatedBy:  actor.ID,
		CreatedAt:  time.Now(),
		Lines:      make([]entity.PurchaseOrderLine, 0, len(in.Lines)),
	}
	if key != "" {
		order.IdempotencyKey = &key
	}
	for i, l := range in.Lines {
		item, err := repos.Items.GetByID(ctx, l.ItemID)
		if err != nil {
			return nil, false, err
		}
		if item == nil {
			return nil, false, fmt.Errorf("línea %d: item %s no existe: %w", i, l.ItemID, domain.ErrValidation)
		}
		order.Lines = append(order.Lines, newLine(order.ID, l))
	}

	if err := repos.Orders.Create(ctx, order); err != nil {
		if key != "" && errors.Is(err, domain.ErrDuplicate) {
			// otra transacción confirmó la misma clave: se repite su resultado
			existing, rerr := repos.Orders.GetByIdempotencyKey(ctx, key)
			if rerr != nil {
				return nil, false, rerr
			}
			if existing != nil {
				return existing, true, nil
			}
		}
		return nil, false, err
	}
	uc.log.Info().Str("order_id", order.ID).Int("lines", len(order.Lines)).Str("actor", actor.ID).Msg("orden de compra creada")
	if err := audit(ctx, repos, entity.AuditEntry{
		OrderID: order.ID,
		Action:  entity.AuditActionCreate,
		Actor:   actor.ID,
		Details: fmt.Sprintf("status=%s lines=%d", order.Status, len(order.Lines)),
	}); err != nil {
		return nil, false, err
	}
	return order, false, nil
}

func validateCreate(in dto.CreatePurchaseOrderRequest) error {
	if in.Status != "" {
		s := entity.OrderStatus(strings.ToUpper(in.Status))
		if s != entity.OrderStatusPending && s != entity.OrderStatusOrdered {
			return fmt.Errorf("status inicial debe ser PENDING u ORDERED: %w", domain.ErrValidation)
		}
	}
	if len(in.Lines) == 0 {
		return fmt.Errorf("la orden necesita al menos una línea: %w", domain.ErrValidation)
	}
	for i, l := range in.Lines {
		if strings.TrimSpace(l.ItemID) == "" {
			return fmt.Errorf("línea %d: item_id obligatorio: %w", i, domain.ErrValidation)
		}
		if l.QuantityOrdered <= 0 {
			return fmt.Errorf("línea %d: quantity_ordered debe ser > 0: %w", i, domain.ErrValidation)
		}
		if l.UnitPrice != nil && l.UnitPrice.IsNegative() {
			return fmt.Errorf("línea %d: unit_price negativo: %w", i, domain.ErrValidation)
		}
		switch l.LineType {
		case "", entity.LineTypeStandard:
			if l.ReturnExpected {
				return fmt.Errorf("línea %d: return_expected solo aplica a reemplazos: %w", i, domain.ErrValidation)
			}
		case entity.LineTypeReplacement:
			if trimmed(l.BeneficiaryEmployeeID) == nil {
				return fmt.Errorf("línea %d: reemplazo sin beneficiario: %w", i, domain.ErrValidation)
			}
			if l.ReturnExpected && (trimmed(l.ReturnEmployeeItemID) == nil || l.ReturnQty <= 0) {
				return fmt.Errorf("línea %d: devolución sin dotación o cantidad: %w", i, domain.ErrValidation)
			}
		default:
			return fmt.Errorf("línea %d: line_type %q inválido: %w", i, l.LineType, domain.ErrValidation)
		}
	}
	return nil
}

func newLine(orderID string, l dto.CreatePurchaseOrderLineRequest) entity.PurchaseOrderLine {
	line := entity.PurchaseOrderLine{
		ID:              uuid.New().String(),
		OrderID:         orderID,
		ItemID:          l.ItemID,
		QuantityOrdered: l.QuantityOrdered,
		UnitPrice:       decimal.Zero,
		LineType:        entity.LineTypeStandard,
		ReturnStatus:    entity.ReturnStatusNone,
	}
	if l.UnitPrice != nil {
		line.UnitPrice = *l.UnitPrice
	}
	if l.LineType == entity.LineTypeReplacement {
		line.LineType = entity.LineTypeReplacement
		line.BeneficiaryEmployeeID = trimmed(l.BeneficiaryEmployeeID)
		line.ReturnExpected = l.ReturnExpected
		if l.ReturnExpected {
			line.ReturnReason = strings.TrimSpace(l.ReturnReason)
			line.ReturnEmployeeItemID = trimmed(l.ReturnEmployeeItemID)
			line.ReturnQty = l.ReturnQty
		}
	}
	return line
}

// Get obtiene el snapshot de una orden.
func (uc *PurchaseOrderUseCase) Get(ctx context.Context, id string) (*dto.PurchaseOrderResponse, error) {
	var resp *dto.PurchaseOrderResponse
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		var err error
		resp, err = orderSnapshot(ctx, repos, id)
		return err
	})
	return resp, err
}

// List lista órdenes filtrando por archivo (active, archived, all) y estado.
func (uc *PurchaseOrderUseCase) List(ctx context.Context, in dto.ListPurchaseOrdersRequest) (*dto.PurchaseOrderListResponse, error) {
	in.DefaultPage()
	filter := repository.OrderFilter{Archived: strings.ToLower(in.Archived), Limit: in.Limit, Offset: in.Offset}
	switch filter.Archived {
	case "":
		filter.Archived = repository.ArchivedActive
	case repository.ArchivedActive, repository.ArchivedOnly, repository.ArchivedAll:
	default:
		return nil, fmt.Errorf("archived debe ser active, archived o all: %w", domain.ErrValidation)
	}
	if in.Status != "" {
		filter.Status = entity.OrderStatus(strings.ToUpper(in.Status))
		if !filter.Status.IsValid() {
			return nil, fmt.Errorf("status %q desconocido: %w", in.Status, domain.ErrValidation)
		}
	}
	var rows []*entity.PurchaseOrder
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		var err error
		rows, err = repos.Orders.List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := &dto.PurchaseOrderListResponse{
		Items: make([]dto.PurchaseOrderResponse, 0, len(rows)),
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset},
	}
	for _, o := range rows {
		out.Items = append(out.Items, toOrderResponse(o))
	}
	return out, nil
}

// Update aplica un patch tipado sobre la cabecera. Un cambio de estado pasa por la tabla de transiciones;
// cerrar la orden libera sus borradores automáticos.
func (uc *PurchaseOrderUseCase) Update(ctx context.Context, id string, patch entity.OrderPatch, actor Actor) (*dto.PurchaseOrderResponse, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("patch vacío: %w", domain.ErrValidation)
	}
	if patch.Status != nil {
		s := entity.OrderStatus(strings.ToUpper(string(*patch.Status)))
		if !s.IsValid() {
			return nil, fmt.Errorf("status %q desconocido: %w", *patch.Status, domain.ErrValidation)
		}
		patch.Status = &s
	}
	var resp *dto.PurchaseOrderResponse
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		order, err := lockOrder(ctx, repos, id)
		if err != nil {
			return err
		}
		changes := make([]string, 0, 3)
		if patch.Status != nil && *patch.Status != order.Status {
			if !order.Status.CanTransitionTo(*patch.Status) {
				return fmt.Errorf("transición %s -> %s no permitida: %w", order.Status, *patch.Status, domain.ErrConflict)
			}
			changes = append(changes, fmt.Sprintf("status %s->%s", order.Status, *patch.Status))
			order.Status = *patch.Status
		}
		switch {
		case patch.ClearSupplier:
			order.SupplierID = nil
			changes = append(changes, "supplier cleared")
		case patch.SupplierID != nil:
			sid := trimmed(patch.SupplierID)
			if sid == nil {
				order.SupplierID = nil
				changes = append(changes, "supplier cleared")
				break
			}
			s, err := repos.Suppliers.GetByID(ctx, *sid)
			if err != nil {
				return err
			}
			if s == nil {
				return fmt.Errorf("supplier %s no existe: %w", *sid, domain.ErrValidation)
			}
			order.SupplierID = sid
			changes = append(changes, "supplier="+*sid)
		}
		if patch.Note != nil {
			order.Note = strings.TrimSpace(*patch.Note)
			changes = append(changes, "note")
		}
		if err := repos.Orders.UpdateHeader(ctx, order); err != nil {
			return err
		}
		if order.Status.IsClosed() {
			if err := repos.Orders.ReleaseAutoSlots(ctx, order.ID); err != nil {
				return err
			}
		}
		if err := audit(ctx, repos, entity.AuditEntry{
			OrderID: order.ID,
			Action:  entity.AuditActionUpdate,
			Actor:   actor.ID,
			Details: strings.Join(changes, "; "),
		}); err != nil {
			return err
		}
		resp, err = orderSnapshot(ctx, repos, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Archive archiva una orden RECEIVED sin no conformidades abiertas ni asignaciones por validar.
func (uc *PurchaseOrderUseCase) Archive(ctx context.Context, id string, actor Actor) (*dto.PurchaseOrderResponse, error) {
	var resp *dto.PurchaseOrderResponse
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		order, err := lockOrder(ctx, repos, id)
		if err != nil {
			return err
		}
		if !order.Archived {
			if err := checkArchivable(ctx, repos, order); err != nil {
				return err
			}
			now := time.Now()
			order.Archived = true
			order.ArchivedAt = &now
			order.ArchivedBy = actor.ID
			if err := repos.Orders.UpdateHeader(ctx, order); err != nil {
				return err
			}
			if err := audit(ctx, repos, entity.AuditEntry{OrderID: order.ID, Action: entity.AuditActionArchive, Actor: actor.ID}); err != nil {
				return err
			}
		}
		resp, err = orderSnapshot(ctx, repos, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func checkArchivable(ctx context.Context, repos repository.Set, order *entity.PurchaseOrder) error {
	if order.Status != entity.OrderStatusReceived {
		return fmt.Errorf("solo se archivan órdenes RECEIVED (actual %s): %w", order.Status, domain.ErrConflict)
	}
	ncs, err := repos.Nonconformities.ListByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	for _, n := range ncs {
		if n.IsOpen() {
			return fmt.Errorf("la orden tiene no conformidades abiertas: %w", domain.ErrConflict)
		}
	}
	pending, err := repos.Pending.ListByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	for _, p := range pending {
		if p.Status == entity.PendingStatusPending {
			return fmt.Errorf("la orden tiene asignaciones pendientes de validar: %w", domain.ErrConflict)
		}
	}
	return nil
}

// Unarchive revierte el archivo de una orden.
func (uc *PurchaseOrderUseCase) Unarchive(ctx context.Context, id string, actor Actor) (*dto.PurchaseOrderResponse, error) {
	var resp *dto.PurchaseOrderResponse
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		order, err := lockOrder(ctx, repos, id)
		if err != nil {
			return err
		}
		if order.Archived {
			order.Archived = false
			order.ArchivedAt = nil
			order.ArchivedBy = ""
			if err := repos.Orders.UpdateHeader(ctx, order); err != nil {
				return err
			}
			if err := audit(ctx, repos, entity.AuditEntry{OrderID: order.ID, Action: entity.AuditActionUnarchive, Actor: actor.ID}); err != nil {
				return err
			}
		}
		resp, err = orderSnapshot(ctx, repos, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Delete elimina la orden y todo lo que depende de ella. Solo administradores;
// un intento denegado o fallido queda en la bitácora.
func (uc *PurchaseOrderUseCase) Delete(ctx context.Context, id string, actor Actor) error {
	if !actor.IsAdmin {
		auditOutcome(ctx, uc.txRunner, uc.log, entity.AuditEntry{
			OrderID: id,
			Action:  entity.AuditActionDelete,
			Status:  entity.AuditStatusDenied,
			Actor:   actor.ID,
		})
		return fmt.Errorf("borrar orden requiere administrador: %w", domain.ErrForbidden)
	}
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		order, err := lockOrder(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := repos.Orders.Delete(ctx, order.ID); err != nil {
			return err
		}
		return audit(ctx, repos, entity.AuditEntry{
			OrderID: order.ID,
			Action:  entity.AuditActionDelete,
			Actor:   actor.ID,
			Details: fmt.Sprintf("status=%s lines=%d", order.Status, len(order.Lines)),
		})
	})
	if err != nil {
		auditOutcome(ctx, uc.txRunner, uc.log, entity.AuditEntry{
			OrderID: id,
			Action:  entity.AuditActionDelete,
			Status:  entity.AuditStatusFailed,
			Actor:   actor.ID,
			Error:   err.Error(),
		})
		return err
	}
	uc.log.Info().Str("order_id", id).Str("actor", actor.ID).Msg("orden de compra eliminada")
	return nil
}

// RecordSupplierNotification registra el resultado del envío externo de la orden al proveedor.
func (uc *PurchaseOrderUseCase) RecordSupplierNotification(ctx context.Context, id string, in dto.SupplierNotificationRequest, actor Actor) (*dto.PurchaseOrderResponse, error) {
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status != entity.AuditStatusSent && status != entity.AuditStatusFailed {
		return nil, fmt.Errorf("status debe ser sent o failed: %w", domain.ErrValidation)
	}
	var resp *dto.PurchaseOrderResponse
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		order, err := lockOrder(ctx, repos, id)
		if err != nil {
			return err
		}
		if status == entity.AuditStatusSent {
			now := time.Now()
			order.LastSentAt = &now
			order.LastSentTo = strings.TrimSpace(in.SentTo)
			order.LastSentBy = actor.ID
			if err := repos.Orders.UpdateHeader(ctx, order); err != nil {
				return err
			}
		}
		if err := audit(ctx, repos, entity.AuditEntry{
			OrderID:   order.ID,
			Action:    entity.AuditActionSendEmail,
			Status:    status,
			Actor:     actor.ID,
			MessageID: in.MessageID,
			Error:     in.Error,
			Details:   "to=" + strings.TrimSpace(in.SentTo),
		}); err != nil {
			return err
		}
		resp, err = orderSnapshot(ctx, repos, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ListAudit devuelve la bitácora de una orden (también de órdenes ya borradas).
func (uc *PurchaseOrderUseCase) ListAudit(ctx context.Context, orderID string) ([]dto.AuditEntryResponse, error) {
	var rows []*entity.AuditEntry
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		var err error
		rows, err = repos.Audit.ListByOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]dto.AuditEntryResponse, 0, len(rows))
	for _, e := range rows {
		out = append(out, toAuditResponse(e))
	}
	return out, nil
}

func lockOrder(ctx context.Context, repos repository.Set, id string) (*entity.PurchaseOrder, error) {
	order, err := repos.Orders.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("purchase order %s: %w", id, domain.ErrNotFound)
	}
	return order, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
