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

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo implementación de ItemRepository sobre PostgreSQL (usable con pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador de artículos. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

const itemColumns = `id, name, sku, module_key, size, quantity, low_stock_threshold, track_low_stock, supplier_id, created_at, updated_at`

func scanItem(row pgx.Row) (*entity.Item, error) {
	var it entity.Item
	err := row.Scan(&it.ID, &it.Name, &it.SKU, &it.ModuleKey, &it.Size, &it.Quantity,
		&it.LowStockThreshold, &it.TrackLowStock, &it.SupplierID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Create persiste un artículo con su existencia inicial.
func (r *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	_, err := r.q.Exec(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		item.ID, item.Name, item.SKU, item.ModuleKey, item.Size, item.Quantity,
		item.LowStockThreshold, item.TrackLowStock, item.SupplierID, item.CreatedAt, item.UpdatedAt,
	)
	return classify("insert item", err)
}

// GetByID obtiene un artículo por ID.
func (r *ItemRepo) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	it, err := scanItem(r.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	return noRows(it, err, "get item")
}

// GetForUpdate obtiene el artículo y bloquea la fila (SELECT FOR UPDATE).
func (r *ItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.Item, error) {
	it, err := scanItem(r.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id))
	return noRows(it, err, "get item for update")
}

// Update actualiza los campos descriptivos. La cantidad solo cambia por UpdateQuantity.
func (r *ItemRepo) Update(ctx context.Context, item *entity.Item) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE items SET name = $2, sku = $3, module_key = $4, size = $5, low_stock_threshold = $6,
			track_low_stock = $7, supplier_id = $8, updated_at = now()
		WHERE id = $1`,
		item.ID, item.Name, item.SKU, item.ModuleKey, item.Size, item.LowStockThreshold,
		item.TrackLowStock, item.SupplierID,
	)
	if err != nil {
		return classify("update item", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update item %s: %w", item.ID, domain.ErrNotFound)
	}
	return nil
}

// UpdateQuantity persiste la existencia calculada por el libro.
func (r *ItemRepo) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	cmd, err := r.q.Exec(ctx, `UPDATE items SET quantity = $2, updated_at = now() WHERE id = $1`, id, quantity)
	if err != nil {
		return classify("update item quantity", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update item quantity %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List lista artículos por módulo y búsqueda en nombre o SKU.
func (r *ItemRepo) List(ctx context.Context, filter repository.ItemFilter) ([]*entity.Item, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE ($1 = '' OR module_key = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR sku ILIKE '%' || $2 || '%')
		ORDER BY seq LIMIT $3 OFFSET $4`,
		filter.ModuleKey, filter.Search, limit, filter.Offset,
	)
	if err != nil {
		return nil, classify("list items", err)
	}
	return collect(rows, "scan item", scanItem)
}

// ListShortages devuelve los artículos en faltante (seguimiento activo y cantidad < umbral).
func (r *ItemRepo) ListShortages(ctx context.Context, moduleKey string) ([]*entity.Item, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE track_low_stock AND low_stock_threshold > 0 AND quantity < low_stock_threshold
		  AND ($1 = '' OR module_key = $1)
		ORDER BY seq`, moduleKey)
	if err != nil {
		return nil, classify("list shortages", err)
	}
	return collect(rows, "scan item", scanItem)
}

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo libro de movimientos (solo inserción).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador del libro.
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create agrega un asiento al libro.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_movements (id, item_id, delta, reason, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.ItemID, m.Delta, m.Reason, m.CreatedBy, m.CreatedAt,
	)
	return classify("insert movement", err)
}

// ListByItem lista los movimientos del artículo en orden de inserción.
func (r *MovementRepo) ListByItem(ctx context.Context, itemID string, limit, offset int) ([]*entity.Movement, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, item_id, delta, reason, created_by, created_at
		FROM stock_movements WHERE item_id = $1 ORDER BY seq LIMIT $2 OFFSET $3`,
		itemID, limit, offset,
	)
	if err != nil {
		return nil, classify("list movements", err)
	}
	return collect(rows, "scan movement", func(row pgx.Row) (*entity.Movement, error) {
		var m entity.Movement
		if err := row.Scan(&m.ID, &m.ItemID, &m.Delta, &m.Reason, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		return &m, nil
	})
}

var _ repository.SupplierRepository = (*SupplierRepo)(nil)

// SupplierRepo lectura de proveedores.
type SupplierRepo struct {
	q Querier
}

// NewSupplierRepository construye el adaptador de proveedores.
func NewSupplierRepository(q Querier) *SupplierRepo {
	return &SupplierRepo{q: q}
}

// Create persiste un proveedor (importación de catálogo y pruebas).
func (r *SupplierRepo) Create(ctx context.Context, s *entity.Supplier) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `INSERT INTO suppliers (id, name, email) VALUES ($1, $2, $3)`, s.ID, s.Name, s.Email)
	return classify("insert supplier", err)
}

// GetByID obtiene un proveedor por ID.
func (r *SupplierRepo) GetByID(ctx context.Context, id string) (*entity.Supplier, error) {
	var s entity.Supplier
	err := r.q.QueryRow(ctx, `SELECT id, name, email FROM suppliers WHERE id = $1`, id).Scan(&s.ID, &s.Name, &s.Email)
	return noRows(&s, err, "get supplier")
}

var _ repository.EmployeeItemRepository = (*EmployeeItemRepo)(nil)

// EmployeeItemRepo dotaciones por colaborador.
type EmployeeItemRepo struct {
	q Querier
}

// NewEmployeeItemRepository construye el adaptador de dotaciones.
func NewEmployeeItemRepository(q Querier) *EmployeeItemRepo {
	return &EmployeeItemRepo{q: q}
}

const employeeItemColumns = `id, employee_id, item_id, quantity, notes, created_at`

func scanEmployeeItem(row pgx.Row) (*entity.EmployeeItem, error) {
	var ei entity.EmployeeItem
	if err := row.Scan(&ei.ID, &ei.EmployeeID, &ei.ItemID, &ei.Quantity, &ei.Notes, &ei.CreatedAt); err != nil {
		return nil, err
	}
	return &ei, nil
}

// Create asigna una dotación.
func (r *EmployeeItemRepo) Create(ctx context.Context, ei *entity.EmployeeItem) error {
	if ei.ID == "" {
		ei.ID = uuid.New().String()
	}
	if ei.CreatedAt.IsZero() {
		ei.CreatedAt = time.Now()
	}
	_, err := r.q.Exec(ctx, `INSERT INTO employee_items (`+employeeItemColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		ei.ID, ei.EmployeeID, ei.ItemID, ei.Quantity, ei.Notes, ei.CreatedAt)
	return classify("insert employee item", err)
}

// GetForUpdate obtiene la dotación bloqueando la fila.
func (r *EmployeeItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.EmployeeItem, error) {
	ei, err := scanEmployeeItem(r.q.QueryRow(ctx, `SELECT `+employeeItemColumns+` FROM employee_items WHERE id = $1 FOR UPDATE`, id))
	return noRows(ei, err, "get employee item")
}

// FindForUpdate busca la dotación más antigua del colaborador para el artículo.
func (r *EmployeeItemRepo) FindForUpdate(ctx context.Context, employeeID, itemID string) (*entity.EmployeeItem, error) {
	ei, err := scanEmployeeItem(r.q.QueryRow(ctx, `
		SELECT `+employeeItemColumns+` FROM employee_items
		WHERE employee_id = $1 AND item_id = $2
		ORDER BY created_at, id LIMIT 1 FOR UPDATE`, employeeID, itemID))
	return noRows(ei, err, "find employee item")
}

// UpdateQuantity fija la cantidad de una dotación.
func (r *EmployeeItemRepo) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	cmd, err := r.q.Exec(ctx, `UPDATE employee_items SET quantity = $2 WHERE id = $1`, id, quantity)
	if err != nil {
		return classify("update employee item", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update employee item %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete elimina la dotación.
func (r *EmployeeItemRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM employee_items WHERE id = $1`, id)
	return classify("delete employee item", err)
}

// ListByEmployee lista las dotaciones del colaborador por antigüedad.
func (r *EmployeeItemRepo) ListByEmployee(ctx context.Context, employeeID string) ([]*entity.EmployeeItem, error) {
	rows, err := r.q.Query(ctx, `SELECT `+employeeItemColumns+` FROM employee_items WHERE employee_id = $1 ORDER BY created_at, id`, employeeID)
	if err != nil {
		return nil, classify("list employee items", err)
	}
	return collect(rows, "scan employee item", scanEmployeeItem)
}
