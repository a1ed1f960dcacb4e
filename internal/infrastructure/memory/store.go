// Package memory implementa los repositorios en memoria con transacciones serializadas.
// Se usa en pruebas y con STORAGE_DRIVER=memory; aplica las mismas restricciones de unicidad que PostgreSQL.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
)

// Store guarda el estado completo y ejecuta cada transacción sobre una copia:
// si fn devuelve error la copia se descarta (rollback), si no, reemplaza al estado (commit).
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore construye un almacén vacío.
func NewStore() *Store {
	return &Store{state: newState()}
}

// Run ejecuta fn en exclusión mutua con repositorios atados a una copia del estado.
// No es reentrante: fn no debe llamar a Run.
func (s *Store) Run(ctx context.Context, fn func(repos repository.Set) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(work.repos()); err != nil {
		return err
	}
	s.state = work
	return nil
}

type state struct {
	items         map[string]*entity.Item
	itemSeq       []string
	movements     []*entity.Movement
	suppliers     map[string]*entity.Supplier
	employeeItems map[string]*entity.EmployeeItem
	orders        map[string]*entity.PurchaseOrder
	orderSeq      []string
	autoOpen      map[string]string // item_id -> line_id del borrador automático abierto
	idemKeys      map[string]string // idempotency_key -> order_id
	receipts      []*entity.Receipt
	ncs           []*entity.Nonconformity
	pending       []*entity.PendingAssignment
	suggestions   map[string]*entity.PurchaseSuggestion
	suggestionSeq []string
	audit         []*entity.AuditEntry
}

func newState() *state {
	return &state{
		items:         map[string]*entity.Item{},
		suppliers:     map[string]*entity.Supplier{},
		employeeItems: map[string]*entity.EmployeeItem{},
		orders:        map[string]*entity.PurchaseOrder{},
		autoOpen:      map[string]string{},
		idemKeys:      map[string]string{},
		suggestions:   map[string]*entity.PurchaseSuggestion{},
	}
}

func (st *state) repos() repository.Set {
	return repository.Set{
		Items:           &ItemRepo{st: st},
		Movements:       &MovementRepo{st: st},
		Suppliers:       &SupplierRepo{st: st},
		EmployeeItems:   &EmployeeItemRepo{st: st},
		Orders:          &PurchaseOrderRepo{st: st},
		Receipts:        &ReceiptRepo{st: st},
		Nonconformities: &NonconformityRepo{st: st},
		Pending:         &PendingAssignmentRepo{st: st},
		Suggestions:     &SuggestionRepo{st: st},
		Audit:           &AuditRepo{st: st},
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.items {
		c.items[k] = copyItem(v)
	}
	c.itemSeq = append([]string(nil), st.itemSeq...)
	for _, m := range st.movements {
		mv := *m
		c.movements = append(c.movements, &mv)
	}
	for k, v := range st.suppliers {
		sp := *v
		c.suppliers[k] = &sp
	}
	for k, v := range st.employeeItems {
		ei := *v
		c.employeeItems[k] = &ei
	}
	for k, v := range st.orders {
		c.orders[k] = copyOrder(v)
	}
	c.orderSeq = append([]string(nil), st.orderSeq...)
	for k, v := range st.autoOpen {
		c.autoOpen[k] = v
	}
	for k, v := range st.idemKeys {
		c.idemKeys[k] = v
	}
	for _, r := range st.receipts {
		rc := *r
		c.receipts = append(c.receipts, &rc)
	}
	for _, n := range st.ncs {
		nc := *n
		c.ncs = append(c.ncs, &nc)
	}
	for _, p := range st.pending {
		pa := *p
		c.pending = append(c.pending, &pa)
	}
	for k, v := range st.suggestions {
		c.suggestions[k] = copySuggestion(v)
	}
	c.suggestionSeq = append([]string(nil), st.suggestionSeq...)
	for _, a := range st.audit {
		ae := *a
		c.audit = append(c.audit, &ae)
	}
	return c
}

func copyItem(i *entity.Item) *entity.Item {
	c := *i
	c.SupplierID = copyStr(i.SupplierID)
	return &c
}

func copyOrder(o *entity.PurchaseOrder) *entity.PurchaseOrder {
	c := *o
	c.SupplierID = copyStr(o.SupplierID)
	c.IdempotencyKey = copyStr(o.IdempotencyKey)
	c.Lines = make([]entity.PurchaseOrderLine, len(o.Lines))
	for i := range o.Lines {
		c.Lines[i] = *copyLine(&o.Lines[i])
	}
	return &c
}

func copyLine(l *entity.PurchaseOrderLine) *entity.PurchaseOrderLine {
	c := *l
	c.BeneficiaryEmployeeID = copyStr(l.BeneficiaryEmployeeID)
	c.ReturnEmployeeItemID = copyStr(l.ReturnEmployeeItemID)
	return &c
}

func copySuggestion(s *entity.PurchaseSuggestion) *entity.PurchaseSuggestion {
	c := *s
	c.SupplierID = copyStr(s.SupplierID)
	c.ConvertedOrderID = copyStr(s.ConvertedOrderID)
	c.Lines = make([]entity.PurchaseSuggestionLine, len(s.Lines))
	for i, l := range s.Lines {
		if l.QtyFinal != nil {
			q := *l.QtyFinal
			l.QtyFinal = &q
		}
		c.Lines[i] = l
	}
	return &c
}

func copyStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func page[T any](rows []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(rows) {
			return rows[:0]
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// Ping siempre responde: el almacén vive en el proceso.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
