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

var _ repository.ReceiptRepository = (*ReceiptRepo)(nil)

// ReceiptRepo recepciones de órdenes de compra (inmutables).
type ReceiptRepo struct {
	q Querier
}

// NewReceiptRepository construye el adaptador de recepciones.
func NewReceiptRepository(q Querier) *ReceiptRepo {
	return &ReceiptRepo{q: q}
}

const receiptColumns = `id, order_id, line_id, received_qty, conformity_status, nonconformity_reason,
	nonconformity_action, created_by, created_at`

func scanReceipt(row pgx.Row) (*entity.Receipt, error) {
	var rc entity.Receipt
	err := row.Scan(&rc.ID, &rc.OrderID, &rc.LineID, &rc.ReceivedQty, &rc.ConformityStatus,
		&rc.NonconformityReason, &rc.NonconformityAction, &rc.CreatedBy, &rc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// Create inserta la recepción.
func (r *ReceiptRepo) Create(ctx context.Context, rc *entity.Receipt) error {
	if rc.ID == "" {
		rc.ID = uuid.New().String()
	}
	if rc.CreatedAt.IsZero() {
		rc.CreatedAt = time.Now()
	}
	_, err := r.q.Exec(ctx, `INSERT INTO purchase_order_receipts (`+receiptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rc.ID, rc.OrderID, rc.LineID, rc.ReceivedQty, rc.ConformityStatus, rc.NonconformityReason,
		rc.NonconformityAction, rc.CreatedBy, rc.CreatedAt)
	return classify("insert receipt", err)
}

// GetByID obtiene una recepción.
func (r *ReceiptRepo) GetByID(ctx context.Context, id string) (*entity.Receipt, error) {
	rc, err := scanReceipt(r.q.QueryRow(ctx, `SELECT `+receiptColumns+` FROM purchase_order_receipts WHERE id = $1`, id))
	return noRows(rc, err, "get receipt")
}

// ListByOrder lista las recepciones de la orden en orden de registro.
func (r *ReceiptRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.Receipt, error) {
	rows, err := r.q.Query(ctx, `SELECT `+receiptColumns+` FROM purchase_order_receipts WHERE order_id = $1 ORDER BY seq`, orderID)
	if err != nil {
		return nil, classify("list receipts", err)
	}
	return collect(rows, "scan receipt", scanReceipt)
}

var _ repository.NonconformityRepository = (*NonconformityRepo)(nil)

// NonconformityRepo no conformidades (una por recepción no conforme).
type NonconformityRepo struct {
	q Querier
}

// NewNonconformityRepository construye el adaptador de no conformidades.
func NewNonconformityRepository(q Querier) *NonconformityRepo {
	return &NonconformityRepo{q: q}
}

const ncColumns = `id, order_id, line_id, receipt_id, reason, status, requested_replacement, created_by, created_at`

func scanNonconformity(row pgx.Row) (*entity.Nonconformity, error) {
	var nc entity.Nonconformity
	err := row.Scan(&nc.ID, &nc.OrderID, &nc.LineID, &nc.ReceiptID, &nc.Reason, &nc.Status,
		&nc.RequestedReplacement, &nc.CreatedBy, &nc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &nc, nil
}

// Create inserta la no conformidad. receipt_id es único.
func (r *NonconformityRepo) Create(ctx context.Context, nc *entity.Nonconformity) error {
	if nc.ID == "" {
		nc.ID = uuid.New().String()
	}
	if nc.CreatedAt.IsZero() {
		nc.CreatedAt = time.Now()
	}
	_, err := r.q.Exec(ctx, `INSERT INTO purchase_order_nonconformities (`+ncColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		nc.ID, nc.OrderID, nc.LineID, nc.ReceiptID, nc.Reason, nc.Status, nc.RequestedReplacement,
		nc.CreatedBy, nc.CreatedAt)
	return classify("insert nonconformity", err)
}

// GetByReceipt obtiene la no conformidad de una recepción y la bloquea.
func (r *NonconformityRepo) GetByReceipt(ctx context.Context, receiptID string) (*entity.Nonconformity, error) {
	nc, err := scanNonconformity(r.q.QueryRow(ctx, `SELECT `+ncColumns+` FROM purchase_order_nonconformities
		WHERE receipt_id = $1 FOR UPDATE`, receiptID))
	return noRows(nc, err, "get nonconformity")
}

// Update persiste estado y solicitud de reemplazo.
func (r *NonconformityRepo) Update(ctx context.Context, nc *entity.Nonconformity) error {
	cmd, err := r.q.Exec(ctx, `UPDATE purchase_order_nonconformities SET status = $2, requested_replacement = $3 WHERE id = $1`,
		nc.ID, nc.Status, nc.RequestedReplacement)
	if err != nil {
		return classify("update nonconformity", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update nonconformity %s: %w", nc.ID, domain.ErrNotFound)
	}
	return nil
}

// CloseOpenForLine cierra las no conformidades en curso de la línea.
func (r *NonconformityRepo) CloseOpenForLine(ctx context.Context, lineID string) error {
	_, err := r.q.Exec(ctx, `UPDATE purchase_order_nonconformities SET status = $2
		WHERE line_id = $1 AND status <> $2`, lineID, entity.NonconformityClosed)
	return classify("close nonconformities", err)
}

// ListByOrder lista las no conformidades de la orden.
func (r *NonconformityRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.Nonconformity, error) {
	rows, err := r.q.Query(ctx, `SELECT `+ncColumns+` FROM purchase_order_nonconformities WHERE order_id = $1 ORDER BY seq`, orderID)
	if err != nil {
		return nil, classify("list nonconformities", err)
	}
	return collect(rows, "scan nonconformity", scanNonconformity)
}

var _ repository.PendingAssignmentRepository = (*PendingAssignmentRepo)(nil)

// PendingAssignmentRepo asignaciones pendientes de reemplazo de dotación.
type PendingAssignmentRepo struct {
	q Querier
}

// NewPendingAssignmentRepository construye el adaptador de asignaciones pendientes.
func NewPendingAssignmentRepository(q Querier) *PendingAssignmentRepo {
	return &PendingAssignmentRepo{q: q}
}

const pendingColumns = `id, order_id, line_id, beneficiary_employee_id, new_item_id, qty, return_employee_item_id,
	return_qty, status, created_at, validated_by, validated_at`

func scanPending(row pgx.Row) (*entity.PendingAssignment, error) {
	var pa entity.PendingAssignment
	err := row.Scan(&pa.ID, &pa.OrderID, &pa.LineID, &pa.BeneficiaryID, &pa.NewItemID, &pa.Quantity,
		&pa.ReturnEmployeeItemID, &pa.ReturnQty, &pa.Status, &pa.CreatedAt, &pa.ValidatedBy, &pa.ValidatedAt)
	if err != nil {
		return nil, err
	}
	return &pa, nil
}

// Create inserta la asignación pendiente. line_id es único.
func (r *PendingAssignmentRepo) Create(ctx context.Context, pa *entity.PendingAssignment) error {
	if pa.ID == "" {
		pa.ID = uuid.New().String()
	}
	if pa.CreatedAt.IsZero() {
		pa.CreatedAt = time.Now()
	}
	_, err := r.q.Exec(ctx, `INSERT INTO pending_equipment_assignments (`+pendingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		pa.ID, pa.OrderID, pa.LineID, pa.BeneficiaryID, pa.NewItemID, pa.Quantity, pa.ReturnEmployeeItemID,
		pa.ReturnQty, pa.Status, pa.CreatedAt, pa.ValidatedBy, pa.ValidatedAt)
	return classify("insert pending assignment", err)
}

// GetForUpdate obtiene la asignación bloqueando la fila.
func (r *PendingAssignmentRepo) GetForUpdate(ctx context.Context, id string) (*entity.PendingAssignment, error) {
	pa, err := scanPending(r.q.QueryRow(ctx, `SELECT `+pendingColumns+` FROM pending_equipment_assignments WHERE id = $1 FOR UPDATE`, id))
	return noRows(pa, err, "get pending assignment")
}

// FindByLine obtiene la asignación de una línea de reemplazo.
func (r *PendingAssignmentRepo) FindByLine(ctx context.Context, lineID string) (*entity.PendingAssignment, error) {
	pa, err := scanPending(r.q.QueryRow(ctx, `SELECT `+pendingColumns+` FROM pending_equipment_assignments WHERE line_id = $1`, lineID))
	return noRows(pa, err, "find pending assignment")
}

// Update persiste la validación.
func (r *PendingAssignmentRepo) Update(ctx context.Context, pa *entity.PendingAssignment) error {
	cmd, err := r.q.Exec(ctx, `UPDATE pending_equipment_assignments SET status = $2, validated_by = $3, validated_at = $4
		WHERE id = $1`, pa.ID, pa.Status, pa.ValidatedBy, pa.ValidatedAt)
	if err != nil {
		return classify("update pending assignment", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update pending assignment %s: %w", pa.ID, domain.ErrNotFound)
	}
	return nil
}

// ListByOrder lista las asignaciones de la orden.
func (r *PendingAssignmentRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.PendingAssignment, error) {
	rows, err := r.q.Query(ctx, `SELECT `+pendingColumns+` FROM pending_equipment_assignments WHERE order_id = $1 ORDER BY seq`, orderID)
	if err != nil {
		return nil, classify("list pending assignments", err)
	}
	return collect(rows, "scan pending assignment", scanPending)
}

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo bitácora de órdenes de compra (solo inserción).
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador de bitácora.
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

const auditColumns = `id, order_id, action, status, actor, message_id, error, details, created_at`

// Append agrega una entrada.
func (r *AuditRepo) Append(ctx context.Context, e *entity.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := r.q.Exec(ctx, `INSERT INTO purchase_order_audit (`+auditColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.OrderID, e.Action, e.Status, e.Actor, e.MessageID, e.Error, e.Details, e.CreatedAt)
	return classify("insert audit entry", err)
}

// ListByOrder lista la bitácora de una orden en orden de registro.
func (r *AuditRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.AuditEntry, error) {
	rows, err := r.q.Query(ctx, `SELECT `+auditColumns+` FROM purchase_order_audit WHERE order_id = $1 ORDER BY seq`, orderID)
	if err != nil {
		return nil, classify("list audit entries", err)
	}
	return collect(rows, "scan audit entry", func(row pgx.Row) (*entity.AuditEntry, error) {
		var e entity.AuditEntry
		if err := row.Scan(&e.ID, &e.OrderID, &e.Action, &e.Status, &e.Actor, &e.MessageID,
			&e.Error, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		return &e, nil
	})
}
