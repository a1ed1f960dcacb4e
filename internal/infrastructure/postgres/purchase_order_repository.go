package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
)

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo implementación del agregado orden/líneas sobre PostgreSQL.
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador (pool o tx).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

const orderColumns = `id, supplier_id, status, note, auto_created, idempotency_key, archived, archived_at,
	archived_by, created_by, created_at, last_sent_at, last_sent_to, last_sent_by`

const lineColumns = `id, order_id, item_id, quantity_ordered, quantity_received, unit_price, line_type,
	beneficiary_employee_id, return_expected, return_reason, return_employee_item_id, return_qty, return_status`

func scanOrder(row pgx.Row) (*entity.PurchaseOrder, error) {
	var o entity.PurchaseOrder
	var status string
	err := row.Scan(&o.ID, &o.SupplierID, &status, &o.Note, &o.AutoCreated, &o.IdempotencyKey,
		&o.Archived, &o.ArchivedAt, &o.ArchivedBy, &o.CreatedBy, &o.CreatedAt,
		&o.LastSentAt, &o.LastSentTo, &o.LastSentBy)
	if err != nil {
		return nil, err
	}
	o.Status = entity.OrderStatus(status)
	return &o, nil
}

func scanLine(row pgx.Row) (*entity.PurchaseOrderLine, error) {
	var l entity.PurchaseOrderLine
	err := row.Scan(&l.ID, &l.OrderID, &l.ItemID, &l.QuantityOrdered, &l.QuantityReceived, &l.UnitPrice,
		&l.LineType, &l.BeneficiaryEmployeeID, &l.ReturnExpected, &l.ReturnReason,
		&l.ReturnEmployeeItemID, &l.ReturnQty, &l.ReturnStatus)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserta cabecera y líneas bajo un savepoint: una violación de unicidad
// (idempotency_key, auto_open_item_id) devuelve ErrDuplicate y deja la tx utilizable.
func (r *PurchaseOrderRepo) Create(ctx context.Context, order *entity.PurchaseOrder) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	holdsSlot := order.AutoCreated && !order.Status.IsClosed()
	return withSavepoint(ctx, r.q, "sp_create_order", func() error {
		_, err := r.q.Exec(ctx, `
			INSERT INTO purchase_orders (`+orderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			order.ID, order.SupplierID, string(order.Status), order.Note, order.AutoCreated, order.IdempotencyKey,
			order.Archived, order.ArchivedAt, order.ArchivedBy, order.CreatedBy, order.CreatedAt,
			order.LastSentAt, order.LastSentTo, order.LastSentBy,
		)
		if err != nil {
			return classify("insert purchase order", err)
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
			var autoItem *string
			if holdsSlot {
				autoItem = &l.ItemID
			}
			_, err := r.q.Exec(ctx, `
				INSERT INTO purchase_order_items (`+lineColumns+`, position, auto_open_item_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
				l.ID, l.OrderID, l.ItemID, l.QuantityOrdered, l.QuantityReceived, l.UnitPrice, l.LineType,
				l.BeneficiaryEmployeeID, l.ReturnExpected, l.ReturnReason, l.ReturnEmployeeItemID,
				l.ReturnQty, l.ReturnStatus, i, autoItem,
			)
			if err != nil {
				return classify("insert purchase order line", err)
			}
		}
		return nil
	})
}

func (r *PurchaseOrderRepo) loadLines(ctx context.Context, orders ...*entity.PurchaseOrder) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*entity.PurchaseOrder, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Lines = make([]entity.PurchaseOrderLine, 0)
	}
	rows, err := r.q.Query(ctx, `SELECT `+lineColumns+` FROM purchase_order_items
		WHERE order_id = ANY($1) ORDER BY order_id, position`, ids)
	if err != nil {
		return classify("list purchase order lines", err)
	}
	lines, err := collect(rows, "scan purchase order line", scanLine)
	if err != nil {
		return err
	}
	for _, l := range lines {
		o := byID[l.OrderID]
		o.Lines = append(o.Lines, *l)
	}
	return nil
}

func (r *PurchaseOrderRepo) getOne(ctx context.Context, op, where string, arg any) (*entity.PurchaseOrder, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE `+where, arg))
	o, err = noRows(o, err, op)
	if err != nil || o == nil {
		return nil, err
	}
	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// GetByID obtiene la orden con sus líneas.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.getOne(ctx, "get purchase order", `id = $1`, id)
}

// GetForUpdate obtiene la orden bloqueando la cabecera hasta el fin de la transacción.
func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.getOne(ctx, "get purchase order for update", `id = $1 FOR UPDATE`, id)
}

// GetByIdempotencyKey busca la orden creada con la clave de idempotencia.
func (r *PurchaseOrderRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.PurchaseOrder, error) {
	return r.getOne(ctx, "get purchase order by idempotency key", `idempotency_key = $1`, key)
}

// FindOpenAutoLine devuelve la línea que ocupa el borrador automático del artículo.
func (r *PurchaseOrderRepo) FindOpenAutoLine(ctx context.Context, itemID string) (*entity.PurchaseOrderLine, error) {
	l, err := scanLine(r.q.QueryRow(ctx, `SELECT `+lineColumns+` FROM purchase_order_items
		WHERE auto_open_item_id = $1 FOR UPDATE`, itemID))
	return noRows(l, err, "find open auto line")
}

// UpdateHeader persiste proveedor, nota, estado, archivo y último envío.
func (r *PurchaseOrderRepo) UpdateHeader(ctx context.Context, order *entity.PurchaseOrder) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE purchase_orders SET supplier_id = $2, status = $3, note = $4, archived = $5, archived_at = $6,
			archived_by = $7, last_sent_at = $8, last_sent_to = $9, last_sent_by = $10
		WHERE id = $1`,
		order.ID, order.SupplierID, string(order.Status), order.Note, order.Archived, order.ArchivedAt,
		order.ArchivedBy, order.LastSentAt, order.LastSentTo, order.LastSentBy,
	)
	if err != nil {
		return classify("update purchase order", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update purchase order %s: %w", order.ID, domain.ErrNotFound)
	}
	return nil
}

// UpdateLine persiste cantidades y estado de devolución. chk_received_range rechaza la sobre-recepción.
func (r *PurchaseOrderRepo) UpdateLine(ctx context.Context, line *entity.PurchaseOrderLine) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE purchase_order_items SET quantity_ordered = $3, quantity_received = $4, return_status = $5
		WHERE id = $1 AND order_id = $2`,
		line.ID, line.OrderID, line.QuantityOrdered, line.QuantityReceived, line.ReturnStatus,
	)
	if err != nil {
		return classify("update purchase order line", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update purchase order line %s: %w", line.ID, domain.ErrNotFound)
	}
	return nil
}

// ReleaseAutoSlots libera la marca de borrador abierto de las líneas de la orden.
func (r *PurchaseOrderRepo) ReleaseAutoSlots(ctx context.Context, orderID string) error {
	_, err := r.q.Exec(ctx, `UPDATE purchase_order_items SET auto_open_item_id = NULL
		WHERE order_id = $1 AND auto_open_item_id IS NOT NULL`, orderID)
	return classify("release auto slots", err)
}

// List lista órdenes (más recientes primero) con sus líneas.
func (r *PurchaseOrderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]*entity.PurchaseOrder, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	archived := ""
	switch filter.Archived {
	case repository.ArchivedAll:
		archived = `TRUE`
	case repository.ArchivedOnly:
		archived = `archived`
	default:
		archived = `NOT archived`
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+orderColumns+` FROM purchase_orders
		WHERE `+archived+` AND ($1 = '' OR status = $1)
		ORDER BY seq DESC LIMIT $2 OFFSET $3`,
		string(filter.Status), limit, filter.Offset,
	)
	if err != nil {
		return nil, classify("list purchase orders", err)
	}
	orders, err := collect(rows, "scan purchase order", scanOrder)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, orders...); err != nil {
		return nil, err
	}
	return orders, nil
}

// Delete elimina la orden. Líneas, recepciones, no conformidades y asignaciones caen por ON DELETE CASCADE;
// la bitácora no tiene FK y se conserva.
func (r *PurchaseOrderRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id)
	if err != nil {
		return classify("delete purchase order", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("delete purchase order %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
