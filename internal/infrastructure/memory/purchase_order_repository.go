package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
)

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo órdenes de compra en memoria.
type PurchaseOrderRepo struct{ st *state }

// Create valida las restricciones de unicidad antes de escribir nada, lo que equivale al
// ROLLBACK TO SAVEPOINT del adaptador PostgreSQL.
func (r *PurchaseOrderRepo) Create(_ context.Context, order *entity.PurchaseOrder) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if _, ok := r.st.orders[order.ID]; ok {
		return fmt.Errorf("create purchase order: %w", domain.ErrDuplicate)
	}
	if order.IdempotencyKey != nil {
		if _, ok := r.st.idemKeys[*order.IdempotencyKey]; ok {
			return fmt.Errorf("create purchase order: idempotency key: %w", domain.ErrDuplicate)
		}
	}
	holdsSlot := order.AutoCreated && !order.Status.IsClosed()
	if holdsSlot {
		for _, l := range order.Lines {
			if _, ok := r.st.autoOpen[l.ItemID]; ok {
				return fmt.Errorf("create purchase order: open auto draft for item %s: %w", l.ItemID, domain.ErrDuplicate)
			}
		}
	}
	for _, l := range order.Lines {
		if _, ok := r.st.items[l.ItemID]; !ok {
			return fmt.Errorf("create purchase order: item %s: %w", l.ItemID, domain.ErrNotFound)
		}
		if l.QuantityReceived < 0 || l.QuantityReceived > l.QuantityOrdered {
			return fmt.Errorf("create purchase order: quantity_received fuera de rango: %w", domain.ErrConflict)
		}
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	for i := range order.Lines {
		l := &order.Lines[i]
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.OrderID = order.ID
		if l.LineType == "" {
			l.LineType = entity.LineTypeStandard
		}
		if l.ReturnStatus == "" {
			l.ReturnStatus = entity.ReturnStatusNone
		}
		if holdsSlot {
			r.st.autoOpen[l.ItemID] = l.ID
		}
	}
	if order.IdempotencyKey != nil {
		r.st.idemKeys[*order.IdempotencyKey] = order.ID
	}
	r.st.orders[order.ID] = copyOrder(order)
	r.st.orderSeq = append(r.st.orderSeq, order.ID)
	return nil
}

func (r *PurchaseOrderRepo) GetByID(_ context.Context, id string) (*entity.PurchaseOrder, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return nil, nil
	}
	return copyOrder(o), nil
}

func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.GetByID(ctx, id)
}

func (r *PurchaseOrderRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.PurchaseOrder, error) {
	id, ok := r.st.idemKeys[key]
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *PurchaseOrderRepo) FindOpenAutoLine(_ context.Context, itemID string) (*entity.PurchaseOrderLine, error) {
	lineID, ok := r.st.autoOpen[itemID]
	if !ok {
		return nil, nil
	}
	for _, o := range r.st.orders {
		if l := o.Line(lineID); l != nil {
			return copyLine(l), nil
		}
	}
	return nil, nil
}

func (r *PurchaseOrderRepo) UpdateHeader(_ context.Context, order *entity.PurchaseOrder) error {
	cur, ok := r.st.orders[order.ID]
	if !ok {
		return fmt.Errorf("update purchase order %s: %w", order.ID, domain.ErrNotFound)
	}
	next := copyOrder(order)
	next.Lines = cur.Lines
	next.IdempotencyKey = cur.IdempotencyKey
	next.AutoCreated = cur.AutoCreated
	next.CreatedAt = cur.CreatedAt
	next.CreatedBy = cur.CreatedBy
	r.st.orders[order.ID] = next
	return nil
}

func (r *PurchaseOrderRepo) UpdateLine(_ context.Context, line *entity.PurchaseOrderLine) error {
	o, ok := r.st.orders[line.OrderID]
	if !ok {
		return fmt.Errorf("update line %s: order %s: %w", line.ID, line.OrderID, domain.ErrNotFound)
	}
	cur := o.Line(line.ID)
	if cur == nil {
		return fmt.Errorf("update line %s: %w", line.ID, domain.ErrNotFound)
	}
	if line.QuantityReceived < 0 || line.QuantityReceived > line.QuantityOrdered {
		return fmt.Errorf("update line %s: quantity_received fuera de rango: %w", line.ID, domain.ErrConflict)
	}
	cur.QuantityOrdered = line.QuantityOrdered
	cur.QuantityReceived = line.QuantityReceived
	cur.ReturnStatus = line.ReturnStatus
	return nil
}

func (r *PurchaseOrderRepo) ReleaseAutoSlots(_ context.Context, orderID string) error {
	o, ok := r.st.orders[orderID]
	if !ok {
		return nil
	}
	for _, l := range o.Lines {
		if r.st.autoOpen[l.ItemID] == l.ID {
			delete(r.st.autoOpen, l.ItemID)
		}
	}
	return nil
}

func (r *PurchaseOrderRepo) List(_ context.Context, filter repository.OrderFilter) ([]*entity.PurchaseOrder, error) {
	out := make([]*entity.PurchaseOrder, 0)
	for i := len(r.st.orderSeq) - 1; i >= 0; i-- {
		o := r.st.orders[r.st.orderSeq[i]]
		switch filter.Archived {
		case repository.ArchivedAll:
		case repository.ArchivedOnly:
			if !o.Archived {
				continue
			}
		default:
			if o.Archived {
				continue
			}
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, copyOrder(o))
	}
	return page(out, filter.Limit, filter.Offset), nil
}

func (r *PurchaseOrderRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.st.orders[id]; !ok {
		return fmt.Errorf("delete purchase order %s: %w", id, domain.ErrNotFound)
	}
	_ = r.ReleaseAutoSlots(ctx, id)
	for k, v := range r.st.idemKeys {
		if v == id {
			delete(r.st.idemKeys, k)
		}
	}
	r.st.receipts = filterOut(r.st.receipts, func(x *entity.Receipt) bool { return x.OrderID == id })
	r.st.ncs = filterOut(r.st.ncs, func(x *entity.Nonconformity) bool { return x.OrderID == id })
	r.st.pending = filterOut(r.st.pending, func(x *entity.PendingAssignment) bool { return x.OrderID == id })
	delete(r.st.orders, id)
	seq := r.st.orderSeq[:0]
	for _, oid := range r.st.orderSeq {
		if oid != id {
			seq = append(seq, oid)
		}
	}
	r.st.orderSeq = seq
	return nil
}

func filterOut[T any](rows []T, drop func(T) bool) []T {
	out := rows[:0]
	for _, r := range rows {
		if !drop(r) {
			out = append(out, r)
		}
	}
	return out
}
