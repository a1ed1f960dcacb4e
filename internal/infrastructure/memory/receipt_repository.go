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

var (
	_ repository.ReceiptRepository           = (*ReceiptRepo)(nil)
	_ repository.NonconformityRepository     = (*NonconformityRepo)(nil)
	_ repository.PendingAssignmentRepository = (*PendingAssignmentRepo)(nil)
	_ repository.AuditRepository             = (*AuditRepo)(nil)
)

// ReceiptRepo recepciones en memoria.
type ReceiptRepo struct{ st *state }

func (r *ReceiptRepo) Create(_ context.Context, rc *entity.Receipt) error {
	o, ok := r.st.orders[rc.OrderID]
	if !ok || o.Line(rc.LineID) == nil {
		return fmt.Errorf("create receipt: line %s: %w", rc.LineID, domain.ErrNotFound)
	}
	if rc.ID == "" {
		rc.ID = uuid.New().String()
	}
	if rc.CreatedAt.IsZero() {
		rc.CreatedAt = time.Now()
	}
	c := *rc
	r.st.receipts = append(r.st.receipts, &c)
	return nil
}

func (r *ReceiptRepo) GetByID(_ context.Context, id string) (*entity.Receipt, error) {
	for _, rc := range r.st.receipts {
		if rc.ID == id {
			c := *rc
			return &c, nil
		}
	}
	return nil, nil
}

func (r *ReceiptRepo) ListByOrder(_ context.Context, orderID string) ([]*entity.Receipt, error) {
	out := make([]*entity.Receipt, 0)
	for _, rc := range r.st.receipts {
		if rc.OrderID == orderID {
			c := *rc
			out = append(out, &c)
		}
	}
	return out, nil
}

// NonconformityRepo no conformidades en memoria.
type NonconformityRepo struct{ st *state }

func (r *NonconformityRepo) Create(_ context.Context, nc *entity.Nonconformity) error {
	for _, n := range r.st.ncs {
		if n.ReceiptID == nc.ReceiptID {
			return fmt.Errorf("create nonconformity: receipt %s: %w", nc.ReceiptID, domain.ErrDuplicate)
		}
	}
	if nc.ID == "" {
		nc.ID = uuid.New().String()
	}
	if nc.CreatedAt.IsZero() {
		nc.CreatedAt = time.Now()
	}
	c := *nc
	r.st.ncs = append(r.st.ncs, &c)
	return nil
}

func (r *NonconformityRepo) GetByReceipt(_ context.Context, receiptID string) (*entity.Nonconformity, error) {
	for _, n := range r.st.ncs {
		if n.ReceiptID == receiptID {
			c := *n
			return &c, nil
		}
	}
	return nil, nil
}

func (r *NonconformityRepo) Update(_ context.Context, nc *entity.Nonconformity) error {
	for _, n := range r.st.ncs {
		if n.ID == nc.ID {
			n.Status = nc.Status
			n.RequestedReplacement = nc.RequestedReplacement
			return nil
		}
	}
	return fmt.Errorf("update nonconformity %s: %w", nc.ID, domain.ErrNotFound)
}

func (r *NonconformityRepo) CloseOpenForLine(_ context.Context, lineID string) error {
	for _, n := range r.st.ncs {
		if n.LineID == lineID && n.IsOpen() {
			n.Status = entity.NonconformityClosed
		}
	}
	return nil
}

func (r *NonconformityRepo) ListByOrder(_ context.Context, orderID string) ([]*entity.Nonconformity, error) {
	out := make([]*entity.Nonconformity, 0)
	for _, n := range r.st.ncs {
		if n.OrderID == orderID {
			c := *n
			out = append(out, &c)
		}
	}
	return out, nil
}

// PendingAssignmentRepo asignaciones pendientes en memoria.
type PendingAssignmentRepo struct{ st *state }

func (r *PendingAssignmentRepo) Create(_ context.Context, pa *entity.PendingAssignment) error {
	for _, p := range r.st.pending {
		if p.LineID == pa.LineID {
			return fmt.Errorf("create pending assignment: line %s: %w", pa.LineID, domain.ErrDuplicate)
		}
	}
	if pa.ID == "" {
		pa.ID = uuid.New().String()
	}
	if pa.CreatedAt.IsZero() {
		pa.CreatedAt = time.Now()
	}
	c := *pa
	c.ReturnEmployeeItemID = copyStr(pa.ReturnEmployeeItemID)
	r.st.pending = append(r.st.pending, &c)
	return nil
}

func (r *PendingAssignmentRepo) GetForUpdate(_ context.Context, id string) (*entity.PendingAssignment, error) {
	for _, p := range r.st.pending {
		if p.ID == id {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (r *PendingAssignmentRepo) FindByLine(_ context.Context, lineID string) (*entity.PendingAssignment, error) {
	for _, p := range r.st.pending {
		if p.LineID == lineID {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (r *PendingAssignmentRepo) Update(_ context.Context, pa *entity.PendingAssignment) error {
	for _, p := range r.st.pending {
		if p.ID == pa.ID {
			p.Status = pa.Status
			p.ValidatedBy = pa.ValidatedBy
			p.ValidatedAt = pa.ValidatedAt
			return nil
		}
	}
	return fmt.Errorf("update pending assignment %s: %w", pa.ID, domain.ErrNotFound)
}

func (r *PendingAssignmentRepo) ListByOrder(_ context.Context, orderID string) ([]*entity.PendingAssignment, error) {
	out := make([]*entity.PendingAssignment, 0)
	for _, p := range r.st.pending {
		if p.OrderID == orderID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

// AuditRepo bitácora en memoria.
type AuditRepo struct{ st *state }

func (r *AuditRepo) Append(_ context.Context, e *entity.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	c := *e
	r.st.audit = append(r.st.audit, &c)
	return nil
}

func (r *AuditRepo) ListByOrder(_ context.Context, orderID string) ([]*entity.AuditEntry, error) {
	out := make([]*entity.AuditEntry, 0)
	for _, e := range r.st.audit {
		if e.OrderID == orderID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}
