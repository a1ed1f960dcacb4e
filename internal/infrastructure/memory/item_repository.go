package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
)

var (
	_ repository.ItemRepository         = (*ItemRepo)(nil)
	_ repository.MovementRepository     = (*MovementRepo)(nil)
	_ repository.SupplierRepository     = (*SupplierRepo)(nil)
	_ repository.EmployeeItemRepository = (*EmployeeItemRepo)(nil)
)

// ItemRepo artículos en memoria.
type ItemRepo struct{ st *state }

func (r *ItemRepo) Create(_ context.Context, item *entity.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if _, ok := r.st.items[item.ID]; ok {
		return fmt.Errorf("create item: %w", domain.ErrDuplicate)
	}
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	r.st.items[item.ID] = copyItem(item)
	r.st.itemSeq = append(r.st.itemSeq, item.ID)
	return nil
}

func (r *ItemRepo) GetByID(_ context.Context, id string) (*entity.Item, error) {
	it, ok := r.st.items[id]
	if !ok {
		return nil, nil
	}
	return copyItem(it), nil
}

func (r *ItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.Item, error) {
	return r.GetByID(ctx, id)
}

func (r *ItemRepo) Update(_ context.Context, item *entity.Item) error {
	cur, ok := r.st.items[item.ID]
	if !ok {
		return fmt.Errorf("update item %s: %w", item.ID, domain.ErrNotFound)
	}
	qty := cur.Quantity
	next := copyItem(item)
	next.Quantity = qty
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = time.Now()
	r.st.items[item.ID] = next
	return nil
}

func (r *ItemRepo) UpdateQuantity(_ context.Context, id string, quantity int) error {
	cur, ok := r.st.items[id]
	if !ok {
		return fmt.Errorf("update quantity %s: %w", id, domain.ErrNotFound)
	}
	cur.Quantity = quantity
	cur.UpdatedAt = time.Now()
	return nil
}

func (r *ItemRepo) List(_ context.Context, filter repository.ItemFilter) ([]*entity.Item, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]*entity.Item, 0)
	for _, id := range r.st.itemSeq {
		it := r.st.items[id]
		if filter.ModuleKey != "" && it.ModuleKey != filter.ModuleKey {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(it.Name), search) &&
			!strings.Contains(strings.ToLower(it.SKU), search) {
			continue
		}
		out = append(out, copyItem(it))
	}
	return page(out, filter.Limit, filter.Offset), nil
}

func (r *ItemRepo) ListShortages(_ context.Context, moduleKey string) ([]*entity.Item, error) {
	out := make([]*entity.Item, 0)
	for _, id := range r.st.itemSeq {
		it := r.st.items[id]
		if moduleKey != "" && it.ModuleKey != moduleKey {
			continue
		}
		if it.Shortage() > 0 {
			out = append(out, copyItem(it))
		}
	}
	return out, nil
}

// MovementRepo libro de movimientos en memoria.
type MovementRepo struct{ st *state }

func (r *MovementRepo) Create(_ context.Context, m *entity.Movement) error {
	if _, ok := r.st.items[m.ItemID]; !ok {
		return fmt.Errorf("create movement: item %s: %w", m.ItemID, domain.ErrNotFound)
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	mv := *m
	r.st.movements = append(r.st.movements, &mv)
	return nil
}

func (r *MovementRepo) ListByItem(_ context.Context, itemID string, limit, offset int) ([]*entity.Movement, error) {
	out := make([]*entity.Movement, 0)
	for _, m := range r.st.movements {
		if m.ItemID == itemID {
			mv := *m
			out = append(out, &mv)
		}
	}
	return page(out, limit, offset), nil
}

// SupplierRepo proveedores en memoria.
type SupplierRepo struct{ st *state }

func (r *SupplierRepo) Create(_ context.Context, s *entity.Supplier) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	sp := *s
	r.st.suppliers[s.ID] = &sp
	return nil
}

func (r *SupplierRepo) GetByID(_ context.Context, id string) (*entity.Supplier, error) {
	s, ok := r.st.suppliers[id]
	if !ok {
		return nil, nil
	}
	sp := *s
	return &sp, nil
}

// EmployeeItemRepo dotaciones en memoria.
type EmployeeItemRepo struct{ st *state }

func (r *EmployeeItemRepo) Create(_ context.Context, ei *entity.EmployeeItem) error {
	if ei.ID == "" {
		ei.ID = uuid.New().String()
	}
	if ei.CreatedAt.IsZero() {
		ei.CreatedAt = time.Now()
	}
	c := *ei
	r.st.employeeItems[ei.ID] = &c
	return nil
}

func (r *EmployeeItemRepo) GetForUpdate(_ context.Context, id string) (*entity.EmployeeItem, error) {
	ei, ok := r.st.employeeItems[id]
	if !ok {
		return nil, nil
	}
	c := *ei
	return &c, nil
}

func (r *EmployeeItemRepo) FindForUpdate(_ context.Context, employeeID, itemID string) (*entity.EmployeeItem, error) {
	var found *entity.EmployeeItem
	for _, ei := range r.st.employeeItems {
		if ei.EmployeeID != employeeID || ei.ItemID != itemID {
			continue
		}
		if found == nil || ei.CreatedAt.Before(found.CreatedAt) {
			found = ei
		}
	}
	if found == nil {
		return nil, nil
	}
	c := *found
	return &c, nil
}

func (r *EmployeeItemRepo) UpdateQuantity(_ context.Context, id string, quantity int) error {
	ei, ok := r.st.employeeItems[id]
	if !ok {
		return fmt.Errorf("update employee item %s: %w", id, domain.ErrNotFound)
	}
	ei.Quantity = quantity
	return nil
}

func (r *EmployeeItemRepo) Delete(_ context.Context, id string) error {
	delete(r.st.employeeItems, id)
	return nil
}

func (r *EmployeeItemRepo) ListByEmployee(_ context.Context, employeeID string) ([]*entity.EmployeeItem, error) {
	out := make([]*entity.EmployeeItem, 0)
	for _, ei := range r.st.employeeItems {
		if ei.EmployeeID == employeeID {
			c := *ei
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
