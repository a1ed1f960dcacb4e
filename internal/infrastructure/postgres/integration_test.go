package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Abastecimiento-api/internal/application/dto"
	"github.com/jhoicas/Abastecimiento-api/internal/application/inventory"
	"github.com/jhoicas/Abastecimiento-api/internal/application/purchasing"
	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
	"github.com/jhoicas/Abastecimiento-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Abastecimiento-api/pkg/config"
)

var actor = purchasing.Actor{ID: "admin-1", Role: "admin", IsAdmin: true}

// setupTestDB usa una base dedicada (TEST_DATABASE_URL): el esquema se migra y las tablas se vacían.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool := openPool(t, 5*time.Second)

	ctx := context.Background()
	require.NoError(t, postgres.Migrate(ctx, pool))
	_, err := pool.Exec(ctx, `TRUNCATE TABLE purchase_order_audit, purchase_suggestion_items, purchase_suggestions,
		pending_equipment_assignments, purchase_order_nonconformities, purchase_order_receipts,
		purchase_order_items, purchase_orders, employee_items, stock_movements, items, suppliers CASCADE`)
	require.NoError(t, err)
	return pool
}

// openPool abre un pool propio con el lock_timeout indicado; no toca el esquema.
func openPool(t *testing.T, lockTimeout time.Duration) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL no definido: se omite la prueba de integración")
	}
	pool, err := postgres.NewPool(context.Background(), config.DBConfig{
		DatabaseURL: dbURL,
		MaxConns:    10,
		MinConns:    1,
		LockTimeout: lockTimeout,
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

type services struct {
	tx        *postgres.TxRunner
	ledger    *inventory.LedgerUseCase
	orders    *purchasing.PurchaseOrderUseCase
	receiving *purchasing.ReceivingUseCase
}

func newServices(pool *pgxpool.Pool) services {
	tx := postgres.NewTxRunner(pool)
	trigger := purchasing.NewReplenishmentTrigger(nil, nil)
	ledger := inventory.NewLedgerUseCase(tx, trigger, nil)
	return services{
		tx:        tx,
		ledger:    ledger,
		orders:    purchasing.NewPurchaseOrderUseCase(tx, nil),
		receiving: purchasing.NewReceivingUseCase(tx, ledger, nil, nil),
	}
}

func TestMigrate_Idempotente(t *testing.T) {
	pool := setupTestDB(t)
	assert.NoError(t, postgres.Migrate(context.Background(), pool))
}

func TestLedger_DisparaBorradorAutomatico(t *testing.T) {
	pool := setupTestDB(t)
	s := newServices(pool)
	ctx := context.Background()

	supplier := &entity.Supplier{Name: "Textiles SA", Email: "ventas@textiles.co"}
	require.NoError(t, s.tx.Run(ctx, func(repos repository.Set) error {
		return repos.Suppliers.Create(ctx, supplier)
	}))
	item, err := s.ledger.CreateItem(ctx, dto.CreateItemRequest{
		Name: "Camisa", SKU: "CAM-M", ModuleKey: entity.ModuleClothing, Quantity: 10, LowStockThreshold: 5,
		SupplierID: &supplier.ID,
	}, actor.ID)
	require.NoError(t, err)

	_, err = s.ledger.RecordMovement(ctx, item.ID, dto.RecordMovementRequest{Delta: -7, Reason: "ENTREGA"}, actor.ID)
	require.NoError(t, err)
	_, err = s.ledger.RecordMovement(ctx, item.ID, dto.RecordMovementRequest{Delta: -1, Reason: "ENTREGA"}, actor.ID)
	require.NoError(t, err)

	list, err := s.orders.List(ctx, dto.ListPurchaseOrdersRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	o := list.Items[0]
	assert.True(t, o.AutoCreated)
	assert.Equal(t, string(entity.OrderStatusPending), o.Status)
	require.Len(t, o.Lines, 1)
	// faltante 2 tras el primer movimiento; el segundo lo sube a 3
	assert.Equal(t, 3, o.Lines[0].QuantityOrdered)
	require.NotNil(t, o.SupplierID)
	assert.Equal(t, supplier.ID, *o.SupplierID)

	movs, err := s.ledger.ListMovements(ctx, item.ID, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Equal(t, -7, movs[0].Delta)
}

func TestLedger_MovimientosConcurrentes(t *testing.T) {
	pool := setupTestDB(t)
	s := newServices(pool)
	ctx := context.Background()

	item, err := s.ledger.CreateItem(ctx, dto.CreateItemRequest{Name: "Guantes", ModuleKey: entity.ModuleClothing}, actor.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = purchasing.RetryOnce(ctx, 0, func() error {
				_, err := s.ledger.RecordMovement(ctx, item.ID, dto.RecordMovementRequest{Delta: 2, Reason: "COMPRA"}, actor.ID)
				return err
			})
		}()
	}
	wg.Wait()

	got, err := s.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Quantity)
}

func TestLocks_EsperaVencidaEsTransitoria(t *testing.T) {
	setupTestDB(t)
	pool := openPool(t, 150*time.Millisecond)
	s := newServices(pool)
	ctx := context.Background()

	item, err := s.ledger.CreateItem(ctx, dto.CreateItemRequest{Name: "Botas", ModuleKey: entity.ModuleClothing, Quantity: 4}, actor.ID)
	require.NoError(t, err)

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.tx.Run(ctx, func(repos repository.Set) error {
			_, err := repos.Items.GetForUpdate(ctx, item.ID)
			close(locked)
			if err != nil {
				return err
			}
			<-release
			return nil
		})
	}()
	<-locked

	_, err = s.ledger.RecordMovement(ctx, item.ID, dto.RecordMovementRequest{Delta: -1, Reason: "ENTREGA"}, actor.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.True(t, domain.IsRetryable(err))

	close(release)
	require.NoError(t, <-done)

	// liberado el bloqueo, el reintento se aplica una sola vez
	_, err = s.ledger.RecordMovement(ctx, item.ID, dto.RecordMovementRequest{Delta: -1, Reason: "ENTREGA"}, actor.ID)
	require.NoError(t, err)
	got, err := s.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
}

func TestOrders_IdempotenciaYRecepcion(t *testing.T) {
	pool := setupTestDB(t)
	s := newServices(pool)
	ctx := context.Background()

	item, err := s.ledger.CreateItem(ctx, dto.CreateItemRequest{Name: "Botas", ModuleKey: entity.ModuleClothing}, actor.ID)
	require.NoError(t, err)
	price := decimal.RequireFromString("12500.50")
	req := dto.CreatePurchaseOrderRequest{
		Status:         string(entity.OrderStatusOrdered),
		IdempotencyKey: "k-1",
		Lines:          []dto.CreatePurchaseOrderLineRequest{{ItemID: item.ID, QuantityOrdered: 3, UnitPrice: &price}},
	}
	first, err := s.orders.Create(ctx, req, actor)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("37501.50").Equal(first.Total))

	again, err := s.orders.Create(ctx, req, actor)
	assert.ErrorIs(t, err, domain.ErrAlreadyApplied)
	require.NotNil(t, again)
	assert.Equal(t, first.ID, again.ID)

	lineID := first.Lines[0].ID
	_, err = s.receiving.ReceiveLine(ctx, first.ID, dto.ReceiveLineRequest{LineID: lineID, ReceivedQty: 4}, actor)
	assert.ErrorIs(t, err, domain.ErrConflict)

	out, err := s.receiving.ReceiveLine(ctx, first.ID, dto.ReceiveLineRequest{LineID: lineID, ReceivedQty: 3}, actor)
	require.NoError(t, err)
	assert.Equal(t, string(entity.OrderStatusReceived), out.Status)

	got, err := s.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
}

func TestOrders_CheckSobreRecepcion(t *testing.T) {
	pool := setupTestDB(t)
	s := newServices(pool)
	ctx := context.Background()

	item, err := s.ledger.CreateItem(ctx, dto.CreateItemRequest{Name: "Chaleco", ModuleKey: entity.ModuleClothing}, actor.ID)
	require.NoError(t, err)
	o, err := s.orders.Create(ctx, dto.CreatePurchaseOrderRequest{
		Lines: []dto.CreatePurchaseOrderLineRequest{{ItemID: item.ID, QuantityOrdered: 2}},
	}, actor)
	require.NoError(t, err)

	err = s.tx.Run(ctx, func(repos repository.Set) error {
		return repos.Orders.UpdateLine(ctx, &entity.PurchaseOrderLine{
			ID: o.Lines[0].ID, OrderID: o.ID, QuantityOrdered: 2, QuantityReceived: 3, ReturnStatus: entity.ReturnStatusNone,
		})
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestOrders_BorradoConservaBitacora(t *testing.T) {
	pool := setupTestDB(t)
	s := newServices(pool)
	ctx := context.Background()

	item, err := s.ledger.CreateItem(ctx, dto.CreateItemRequest{Name: "Casco", ModuleKey: entity.ModuleClothing}, actor.ID)
	require.NoError(t, err)
	o, err := s.orders.Create(ctx, dto.CreatePurchaseOrderRequest{
		Lines: []dto.CreatePurchaseOrderLineRequest{{ItemID: item.ID, QuantityOrdered: 1}},
	}, actor)
	require.NoError(t, err)

	require.NoError(t, s.orders.Delete(ctx, o.ID, actor))

	_, err = s.orders.Get(ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	entries, err := s.orders.ListAudit(ctx, o.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2)
}

func TestSuggestions_UpsertConservaQtyFinal(t *testing.T) {
	pool := setupTestDB(t)
	tx := postgres.NewTxRunner(pool)
	ctx := context.Background()

	sug := &entity.PurchaseSuggestion{ModuleKey: entity.ModuleClothing, SiteKey: "default"}
	line := &entity.PurchaseSuggestionLine{ItemID: "item-1", QtySuggested: 3}
	require.NoError(t, tx.Run(ctx, func(repos repository.Set) error {
		if err := repos.Suggestions.Create(ctx, sug); err != nil {
			return err
		}
		line.SuggestionID = sug.ID
		if err := repos.Suggestions.UpsertLine(ctx, line); err != nil {
			return err
		}
		return repos.Suggestions.UpdateLineQtyFinal(ctx, line.ID, 12)
	}))

	again := &entity.PurchaseSuggestionLine{SuggestionID: sug.ID, ItemID: "item-1", QtySuggested: 5}
	require.NoError(t, tx.Run(ctx, func(repos repository.Set) error {
		dup := &entity.PurchaseSuggestion{ModuleKey: entity.ModuleClothing, SiteKey: "default"}
		if err := repos.Suggestions.Create(ctx, dup); !errors.Is(err, domain.ErrDuplicate) {
			return errors.New("se esperaba duplicado")
		}
		return repos.Suggestions.UpsertLine(ctx, again)
	}))
	assert.Equal(t, line.ID, again.ID)
	require.NotNil(t, again.QtyFinal)
	assert.Equal(t, 12, *again.QtyFinal)

	require.NoError(t, tx.Run(ctx, func(repos repository.Set) error {
		return repos.Suggestions.DeleteLinesExcept(ctx, sug.ID, nil)
	}))
	var got *entity.PurchaseSuggestion
	require.NoError(t, tx.Run(ctx, func(repos repository.Set) error {
		var err error
		got, err = repos.Suggestions.GetByID(ctx, sug.ID)
		return err
	}))
	require.NotNil(t, got)
	assert.Empty(t, got.Lines)
}
