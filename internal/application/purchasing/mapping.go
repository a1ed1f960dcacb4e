package purchasing

import (
	"context"
	"fmt"

	"github.com/jhoicas/Abastecimiento-api/internal/application/dto"
	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
)

// orderSnapshot relee la orden con sus recepciones, no conformidades y asignaciones pendientes.
func orderSnapshot(ctx context.Context, repos repository.Set, orderID string) (*dto.PurchaseOrderResponse, error) {
	order, err := repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("purchase order %s: %w", orderID, domain.ErrNotFound)
	}
	receipts, err := repos.Receipts.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	ncs, err := repos.Nonconformities.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	pending, err := repos.Pending.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	resp := toOrderResponse(order)
	for _, r := range receipts {
		resp.Receipts = append(resp.Receipts, dto.ReceiptResponse{
			ID:                  r.ID,
			LineID:              r.LineID,
			ReceivedQty:         r.ReceivedQty,
			ConformityStatus:    r.ConformityStatus,
			NonconformityReason: r.NonconformityReason,
			NonconformityAction: r.NonconformityAction,
			CreatedBy:           r.CreatedBy,
			CreatedAt:           r.CreatedAt,
		})
	}
	for _, n := range ncs {
		resp.Nonconformities = append(resp.Nonconformities, dto.NonconformityResponse{
			ID:                   n.ID,
			LineID:               n.LineID,
			ReceiptID:            n.ReceiptID,
			Reason:               n.Reason,
			Status:               n.Status,
			RequestedReplacement: n.RequestedReplacement,
			CreatedAt:            n.CreatedAt,
		})
	}
	for _, p := range pending {
		resp.PendingAssignments = append(resp.PendingAssignments, dto.PendingAssignmentResponse{
			ID:                   p.ID,
			LineID:               p.LineID,
			BeneficiaryID:        p.BeneficiaryID,
			NewItemID:            p.NewItemID,
			Quantity:             p.Quantity,
			ReturnEmployeeItemID: p.ReturnEmployeeItemID,
			ReturnQty:            p.ReturnQty,
			Status:               p.Status,
			ValidatedBy:          p.ValidatedBy,
			ValidatedAt:          p.ValidatedAt,
		})
	}
	return &resp, nil
}

func toOrderResponse(o *entity.PurchaseOrder) dto.PurchaseOrderResponse {
	resp := dto.PurchaseOrderResponse{
		ID:             o.ID,
		SupplierID:     o.SupplierID,
		Status:         string(o.Status),
		Note:           o.Note,
		AutoCreated:    o.AutoCreated,
		IdempotencyKey: o.IdempotencyKey,
		Archived:       o.Archived,
		ArchivedAt:     o.ArchivedAt,
		ArchivedBy:     o.ArchivedBy,
		CreatedBy:      o.CreatedBy,
		CreatedAt:      o.CreatedAt,
		LastSentAt:     o.LastSentAt,
		LastSentTo:     o.LastSentTo,
		LastSentBy:     o.LastSentBy,
		Total:          o.Total(),
		Lines:          make([]dto.PurchaseOrderLineResponse, 0, len(o.Lines)),
	}
	for i := range o.Lines {
		l := &o.Lines[i]
		resp.Lines = append(resp.Lines, dto.PurchaseOrderLineResponse{
			ID:                    l.ID,
			ItemID:                l.ItemID,
			QuantityOrdered:       l.QuantityOrdered,
			QuantityReceived:      l.QuantityReceived,
			UnitPrice:             l.UnitPrice,
			LineTotal:             l.Total(),
			LineType:              l.LineType,
			BeneficiaryEmployeeID: l.BeneficiaryEmployeeID,
			ReturnExpected:        l.ReturnExpected,
			ReturnReason:          l.ReturnReason,
			ReturnEmployeeItemID:  l.ReturnEmployeeItemID,
			ReturnQty:             l.ReturnQty,
			ReturnStatus:          l.ReturnStatus,
		})
	}
	return resp
}

func toAuditResponse(e *entity.AuditEntry) dto.AuditEntryResponse {
	return dto.AuditEntryResponse{
		ID:        e.ID,
		OrderID:   e.OrderID,
		Action:    e.Action,
		Status:    e.Status,
		Actor:     e.Actor,
		MessageID: e.MessageID,
		Error:     e.Error,
		Details:   e.Details,
		CreatedAt: e.CreatedAt,
	}
}
