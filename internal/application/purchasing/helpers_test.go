package purchasing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Abastecimiento-api/internal/application/dto"
	"github.com/jhoicas/Abastecimiento-api/internal/application/inventory"
	"github.com/jhoicas/Abastecimiento-api/internal/application/purchasing"
	"github.com/jhoicas/Abastecimiento-api/internal/application/usecase"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
	"github.com/jhoicas/Abastecimiento-api/internal/infrastructure/memory"
)

var (
	admin    = purchasing.Actor{ID: "admin-1", Role: "admin", IsAdmin: true}
	buyer    = purchasing.Actor{ID: "buyer-1", Role: "compras"}
	readOnly = purchasing.Actor{ID: "viewer-1", Role: "bodeguero"}
)

type fixture struct {
	store       *memory.Store
	ledger      *inventory.LedgerUseCase
	trigger     *purchasing.ReplenishmentTrigger
	orders      *purchasing.PurchaseOrderUseCase
	receiving   *purchasing.ReceivingUseCase
	suggestions *purchasing.SuggestionUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	trigger := purchasing.NewReplenishmentTrigger(nil, nil)
	ledger := inventory.NewLedgerUseCase(store, trigger, nil)
	orders := purchasing.NewPurchaseOrderUseCase(store, nil)
	perms := usecase.NewModulePermissionService(
		map[string][]string{"clothing": {"bodeguero"}},
		map[string][]string{"clothing": {"compras"}, "inventory_remise": {"compras"}},
	)
	return &fixture{
		store:       store,
		ledger:      ledger,
		trigger:     trigger,
		orders:      orders,
		receiving:   purchasing.NewReceivingUseCase(store, ledger, nil, nil),
		suggestions: purchasing.NewSuggestionUseCase(store, orders, perms, nil, nil, nil),
	}
}

// seed escribe directamente en el almacén, sin disparador.
func (f *fixture) seed(t *testing.T, fn func(repos repository.Set) error) {
	t.Helper()
	require.NoError(t, f.store.Run(context.Background(), fn))
}

func (f *fixture) supplier(t *testing.T, name, email string) string {
	t.Helper()
	s := &entity.Supplier{Name: name, Email: email}
	f.seed(t, func(repos repository.Set) error { return repos.Suppliers.Create(context.Background(), s) })
	return s.ID
}

func (f *fixture) item(t *testing.T, it entity.Item) string {
	t.Helper()
	if it.ModuleKey == "" {
		it.ModuleKey = entity.ModuleClothing
	}
	f.seed(t, func(repos repository.Set) error { return repos.Items.Create(context.Background(), &it) })
	return it.ID
}

func (f *fixture) dotation(t *testing.T, employeeID, itemID string, qty int) string {
	t.Helper()
	ei := &entity.EmployeeItem{EmployeeID: employeeID, ItemID: itemID, Quantity: qty}
	f.seed(t, func(repos repository.Set) error { return repos.EmployeeItems.Create(context.Background(), ei) })
	return ei.ID
}

func (f *fixture) move(t *testing.T, itemID string, delta int) *dto.ItemResponse {
	t.Helper()
	it, err := f.ledger.RecordMovement(context.Background(), itemID, dto.RecordMovementRequest{Delta: delta, Reason: "CONSUMO"}, "tester")
	require.NoError(t, err)
	return it
}

func (f *fixture) stock(t *testing.T, itemID string) int {
	t.Helper()
	it, err := f.ledger.GetItem(context.Background(), itemID)
	require.NoError(t, err)
	return it.Quantity
}

// autoOrders devuelve las órdenes automáticas no cerradas que contienen el artículo.
func (f *fixture) autoOrders(t *testing.T, itemID string) []dto.PurchaseOrderResponse {
	t.Helper()
	list, err := f.orders.List(context.Background(), dto.ListPurchaseOrdersRequest{Archived: "all", PageRequest: dto.PageRequest{Limit: 100}})
	require.NoError(t, err)
	out := make([]dto.PurchaseOrderResponse, 0)
	for _, o := range list.Items {
		if !o.AutoCreated || entity.OrderStatus(o.Status).IsClosed() {
			continue
		}
		for _, l := range o.Lines {
			if l.ItemID == itemID {
				out = append(out, o)
				break
			}
		}
	}
	return out
}

func (f *fixture) movements(t *testing.T, itemID string) []dto.MovementResponse {
	t.Helper()
	ms, err := f.ledger.ListMovements(context.Background(), itemID, dto.PageRequest{Limit: 100})
	require.NoError(t, err)
	return ms
}

func (f *fixture) audit(t *testing.T, orderID string) []dto.AuditEntryResponse {
	t.Helper()
	entries, err := f.orders.ListAudit(context.Background(), orderID)
	require.NoError(t, err)
	return entries
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
