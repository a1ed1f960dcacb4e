package purchasing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Abastecimiento-api/internal/application/dto"
	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
	"github.com/jhoicas/Abastecimiento-api/pkg/logger"
)

// ReceivingUseCase concilia entregas parciales o no conformes y los reemplazos de dotación.
type ReceivingUseCase struct {
	txRunner TxRunner
	ledger   Ledger
	metrics  Metrics
	log      *logger.Logger
}

// NewReceivingUseCase construye el motor de recepción. metrics puede ser nil.
func NewReceivingUseCase(txRunner TxRunner, ledger Ledger, metrics Metrics, log *logger.Logger) *ReceivingUseCase {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ReceivingUseCase{txRunner: txRunner, ledger: ledger, metrics: metrics, log: log.Component("receiving")}
}

// ReceiveLine registra una recepción sobre una línea. Una recepción conforme suma a lo recibido,
// genera el movimiento de entrada y re-deriva el estado; una no conforme solo deja la recepción
// y abre una no conformidad.
func (uc *ReceivingUseCase) ReceiveLine(ctx context.Context, orderID string, in dto.ReceiveLineRequest, actor Actor) (*dto.PurchaseOrderResponse, error) {
	if strings.TrimSpace(in.LineID) == "" {
		return nil, fmt.Errorf("line_id obligatorio: %w", domain.ErrValidation)
	}
	if in.ReceivedQty <= 0 {
		return nil, fmt.Errorf("received_qty debe ser > 0: %w", domain.ErrValidation)
	}
	conformity := strings.ToLower(strings.TrimSpace(in.ConformityStatus))
	switch conformity {
	case "":
		conformity = entity.ConformityConforme
	case entity.ConformityConforme, entity.ConformityNonConforme:
	default:
		return nil, fmt.Errorf("conformity_status %q inválido: %w", in.ConformityStatus, domain.ErrValidation)
	}

	var resp *dto.PurchaseOrderResponse
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		order, err := lockOrder(ctx, repos, orderID)
		if err != nil {
			return err
		}
		if order.Status == entity.OrderStatusCancelled {
			return fmt.Errorf("orden %s cancelada: %w", orderID, domain.ErrConflict)
		}
		line := order.Line(in.LineID)
		if line == nil {
			return fmt.Errorf("línea %s en orden %s: %w", in.LineID, orderID, domain.ErrNotFound)
		}

		receipt := &entity.Receipt{
			ID:                  uuid.New().String(),
			OrderID:             order.ID,
			LineID:              line.ID,
			ReceivedQty:         in.ReceivedQty,
			ConformityStatus:    conformity,
			NonconformityReason: strings.TrimSpace(in.NonconformityReason),
			NonconformityAction: strings.TrimSpace(in.NonconformityAction),
			CreatedBy:           actor.ID,
			CreatedAt:           time.Now(),
		}
		if err := repos.Receipts.Create(ctx, receipt); err != nil {
			return err
		}

		if conformity == entity.ConformityNonConforme {
			if err := repos.Nonconformities.Create(ctx, &entity.Nonconformity{
				ID:        uuid.New().String(),
				OrderID:   order.ID,
				LineID:    line.ID,
				ReceiptID: receipt.ID,
				Reason:    receipt.NonconformityReason,
				Status:    entity.NonconformityOpen,
				CreatedBy: actor.ID,
				CreatedAt: receipt.CreatedAt,
			}); err != nil {
				return err
			}
		} else if err := uc.applyConforme(ctx, repos, order, line, in.ReceivedQty, actor); err != nil {
			return err
		}

		if err := audit(ctx, repos, entity.AuditEntry{
			OrderID: order.ID,
			Action:  entity.AuditActionReceive,
			Actor:   actor.ID,
			Details: fmt.Sprintf("line=%s qty=%d conformity=%s", line.ID, in.ReceivedQty, conformity),
		}); err != nil {
			return err
		}
		resp, err = orderSnapshot(ctx, repos, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.Receipt(conformity, in.ReceivedQty)
	uc.log.Info().Str("order_id", orderID).Str("line_id", in.LineID).Int("qty", in.ReceivedQty).
		Str("conformity", conformity).Str("status", resp.Status).Msg("recepción registrada")
	return resp, nil
}

// applyConforme suma lo recibido, re-deriva el estado (liberando el borrador automático si la orden
// se cierra) y solo entonces mueve la existencia, para que el disparador vea el estado final.
func (uc *ReceivingUseCase) applyConforme(
	ctx context.Context,
	repos repository.Set,
	order *entity.PurchaseOrder,
	line *entity.PurchaseOrderLine,
	qty int,
	actor Actor,
) error {
	if line.QuantityReceived+qty > line.QuantityOrdered {
		return fmt.Errorf("sobre-recepción en línea %s: recibido %d + %d > pedido %d: %w",
			line.ID, line.QuantityReceived, qty, line.QuantityOrdered, domain.ErrConflict)
	}
	line.QuantityReceived += qty

	needsAssignment := line.IsReplacement() && line.ReturnExpected && line.IsComplete() &&
		line.ReturnStatus == entity.ReturnStatusNone
	if needsAssignment {
		line.ReturnStatus = entity.ReturnStatusPending
	}
	if err := repos.Orders.UpdateLine(ctx, line); err != nil {
		return err
	}
	if err := repos.Nonconformities.CloseOpenForLine(ctx, line.ID); err != nil {
		return err
	}
	if needsAssignment {
		if line.BeneficiaryEmployeeID == nil {
			return fmt.Errorf("línea de reemplazo %s sin beneficiario: %w", line.ID, domain.ErrConflict)
		}
		if err := repos.Pending.Create(ctx, &entity.PendingAssignment{
			ID:                   uuid.New().String(),
			OrderID:              order.ID,
			LineID:               line.ID,
			BeneficiaryID:        *line.BeneficiaryEmployeeID,
			NewItemID:            line.ItemID,
			Quantity:             line.QuantityOrdered,
			ReturnEmployeeItemID: line.ReturnEmployeeItemID,
			ReturnQty:            line.ReturnQty,
			Status:               entity.PendingStatusPending,
			CreatedAt:            time.Now(),
		}); err != nil {
			return err
		}
	}

	if next := entity.DeriveStatus(order.Status, order.Lines); next != order.Status {
		order.Status = next
		if err := repos.Orders.UpdateHeader(ctx, order); err != nil {
			return err
		}
		if next.IsClosed() {
			if err := repos.Orders.ReleaseAutoSlots(ctx, order.ID); err != nil {
				return err
			}
		}
	}

	_, err := uc.ledger.ApplyMovementInTx(ctx, repos, line.ItemID, qty, entity.ReasonPurchaseReceipt, actor.ID)
	return err
}

// RequestReplacement marca la no conformidad de una recepción como reemplazo solicitado.
// Repetir la solicitud sobre la misma recepción no cambia nada.
func (uc *ReceivingUseCase) RequestReplacement(ctx context.Context, orderID string, in dto.RequestReplacementRequest, actor Actor) (*dto.PurchaseOrderResponse, error) {
	if strings.TrimSpace(in.ReceiptID) == "" {
		return nil, fmt.Errorf("receipt_id obligatorio: %w", domain.ErrValidation)
	}
	var resp *dto.PurchaseOrderResponse
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		order, err := lockOrder(ctx, repos, orderID)
		if err != nil {
			return err
		}
		receipt, err := repos.Receipts.GetByID(ctx, in.ReceiptID)
		if err != nil {
			return err
		}
		if receipt == nil || receipt.OrderID != order.ID || (in.LineID != "" && receipt.LineID != in.LineID) {
			return fmt.Errorf("recepción %s en orden %s: %w", in.ReceiptID, orderID, domain.ErrNotFound)
		}
		if receipt.ConformityStatus == entity.ConformityConforme {
			return fmt.Errorf("la recepción %s es conforme: %w", receipt.ID, domain.ErrConflict)
		}
		nc, err := repos.Nonconformities.GetByReceipt(ctx, receipt.ID)
		if err != nil {
			return err
		}
		switch {
		case nc == nil:
			nc = &entity.Nonconformity{
				ID:                   uuid.New().String(),
				OrderID:              order.ID,
				LineID:               receipt.LineID,
				ReceiptID:            receipt.ID,
				Reason:               receipt.NonconformityReason,
				Status:               entity.NonconformityReplacementRequested,
				RequestedReplacement: true,
				CreatedBy:            actor.ID,
				CreatedAt:            time.Now(),
			}
			if err := repos.Nonconformities.Create(ctx, nc); err != nil {
				return err
			}
		case nc.Status == entity.NonconformityReplacementRequested:
			resp, err = orderSnapshot(ctx, repos, order.ID)
			return err
		case nc.Status == entity.NonconformityClosed:
			return fmt.Errorf("la no conformidad de %s ya está cerrada: %w", receipt.ID, domain.ErrConflict)
		default:
			nc.Status = entity.NonconformityReplacementRequested
			nc.RequestedReplacement = true
			if err := repos.Nonconformities.Update(ctx, nc); err != nil {
				return err
			}
		}
		if err := audit(ctx, repos, entity.AuditEntry{
			OrderID: order.ID,
			Action:  entity.AuditActionRequestReplacement,
			Actor:   actor.ID,
			Details: fmt.Sprintf("receipt=%s line=%s", receipt.ID, receipt.LineID),
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

// ValidatePendingAssignment entrega el artículo de reemplazo al beneficiario y registra la devolución
// del artículo anterior al proveedor. Solo administradores; un intento denegado queda en la bitácora.
func (uc *ReceivingUseCase) ValidatePendingAssignment(ctx context.Context, orderID, pendingID string, actor Actor) (*dto.PurchaseOrderResponse, error) {
	if !actor.IsAdmin {
		auditOutcome(ctx, uc.txRunner, uc.log, entity.AuditEntry{
			OrderID: orderID,
			Action:  entity.AuditActionValidatePending,
			Status:  entity.AuditStatusDenied,
			Actor:   actor.ID,
			Details: "pending=" + pendingID,
		})
		return nil, fmt.Errorf("validar reemplazos requiere administrador: %w", domain.ErrForbidden)
	}
	var resp *dto.PurchaseOrderResponse
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		order, err := lockOrder(ctx, repos, orderID)
		if err != nil {
			return err
		}
		pa, err := repos.Pending.GetForUpdate(ctx, pendingID)
		if err != nil {
			return err
		}
		if pa == nil || pa.OrderID != order.ID {
			return fmt.Errorf("asignación %s en orden %s: %w", pendingID, orderID, domain.ErrNotFound)
		}
		if pa.Status != entity.PendingStatusPending {
			return fmt.Errorf("asignación %s ya %s: %w", pa.ID, pa.Status, domain.ErrConflict)
		}
		line := order.Line(pa.LineID)
		if line == nil {
			return fmt.Errorf("línea %s de la asignación: %w", pa.LineID, domain.ErrNotFound)
		}
		if pa.ReturnEmployeeItemID == nil {
			return fmt.Errorf("asignación %s sin dotación a devolver: %w", pa.ID, domain.ErrConflict)
		}

		old, err := repos.EmployeeItems.GetForUpdate(ctx, *pa.ReturnEmployeeItemID)
		if err != nil {
			return err
		}
		if old == nil {
			return fmt.Errorf("dotación %s ya no existe: %w", *pa.ReturnEmployeeItemID, domain.ErrConflict)
		}
		if old.EmployeeID != pa.BeneficiaryID {
			return fmt.Errorf("dotación %s reasignada a otro colaborador: %w", old.ID, domain.ErrConflict)
		}
		if pa.ReturnQty > old.Quantity {
			return fmt.Errorf("devolución %d supera la dotación %d: %w", pa.ReturnQty, old.Quantity, domain.ErrConflict)
		}

		if err := uc.swapDotation(ctx, repos, pa, old, order.ID); err != nil {
			return err
		}
		if _, err := uc.ledger.ApplyMovementInTx(ctx, repos, old.ItemID, pa.ReturnQty, entity.ReasonReturnFromEmployee, actor.ID); err != nil {
			return err
		}
		if _, err := uc.ledger.ApplyMovementInTx(ctx, repos, old.ItemID, -pa.ReturnQty, entity.ReasonReturnToSupplier, actor.ID); err != nil {
			return err
		}

		line.ReturnStatus = entity.ReturnStatusShipped
		if err := repos.Orders.UpdateLine(ctx, line); err != nil {
			return err
		}
		now := time.Now()
		pa.Status = entity.PendingStatusValidated
		pa.ValidatedBy = actor.ID
		pa.ValidatedAt = &now
		if err := repos.Pending.Update(ctx, pa); err != nil {
			return err
		}
		if err := audit(ctx, repos, entity.AuditEntry{
			OrderID: order.ID,
			Action:  entity.AuditActionValidatePending,
			Actor:   actor.ID,
			Details: fmt.Sprintf("pending=%s beneficiary=%s qty=%d return_qty=%d", pa.ID, pa.BeneficiaryID, pa.Quantity, pa.ReturnQty),
		}); err != nil {
			return err
		}
		resp, err = orderSnapshot(ctx, repos, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("order_id", orderID).Str("pending_id", pendingID).Str("actor", actor.ID).Msg("reemplazo validado")
	return resp, nil
}

// swapDotation suma el artículo nuevo a la dotación del beneficiario y descuenta la devolución
// de la dotación anterior, eliminándola si queda en cero.
func (uc *ReceivingUseCase) swapDotation(ctx context.Context, repos repository.Set, pa *entity.PendingAssignment, old *entity.EmployeeItem, orderID string) error {
	current, err := repos.EmployeeItems.FindForUpdate(ctx, pa.BeneficiaryID, pa.NewItemID)
	if err != nil {
		return err
	}
	if current != nil && current.ID == old.ID {
		// mismo artículo: una sola fila absorbe entrega y devolución
		return setDotationQty(ctx, repos, old.ID, old.Quantity+pa.Quantity-pa.ReturnQty)
	}
	if current == nil {
		if err := repos.EmployeeItems.Create(ctx, &entity.EmployeeItem{
			ID:         uuid.New().String(),
			EmployeeID: pa.BeneficiaryID,
			ItemID:     pa.NewItemID,
			Quantity:   pa.Quantity,
			Notes:      "Reemplazo OC " + orderID,
			CreatedAt:  time.Now(),
		}); err != nil {
			return err
		}
	} else if err := repos.EmployeeItems.UpdateQuantity(ctx, current.ID, current.Quantity+pa.Quantity); err != nil {
		return err
	}
	return setDotationQty(ctx, repos, old.ID, old.Quantity-pa.ReturnQty)
}

func setDotationQty(ctx context.Context, repos repository.Set, id string, qty int) error {
	if qty <= 0 {
		return repos.EmployeeItems.Delete(ctx, id)
	}
	return repos.EmployeeItems.UpdateQuantity(ctx, id, qty)
}
