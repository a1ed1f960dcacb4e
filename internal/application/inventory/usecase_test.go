package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Abastecimiento-api/internal/application/dto"
	"github.com/jhoicas/Abastecimiento-api/internal/application/inventory"
	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
	"github.com/jhoicas/Abastecimiento-api/internal/infrastructure/memory"
)

// recordingTrigger anota cada evaluación y la cantidad que ve dentro de la transacción.
type recordingTrigger struct {
	mu    sync.Mutex
	seen  []int
	fail  error
	items []string
}

func (r *recordingTrigger) EvaluateInTx(ctx context.Context, repos repository.Set, itemID, _ string) error {
	it, err := repos.Items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, it.Quantity)
	r.items = append(r.items, itemID)
	return r.fail
}

func newLedger(t *testing.T) (*inventory.LedgerUseCase, *recordingTrigger, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	trig := &recordingTrigger{}
	return inventory.NewLedgerUseCase(store, trig, nil), trig, store
}

func createItem(t *testing.T, uc *inventory.LedgerUseCase, qty int) *dto.ItemResponse {
	t.Helper()
	it, err := uc.CreateItem(context.Background(), dto.CreateItemRequest{
		Name:              "Camisa",
		SKU:               "CAM-01",
		ModuleKey:         entity.ModuleClothing,
		Quantity:          qty,
		LowStockThreshold: 3,
	}, "tester")
	require.NoError(t, err)
	return it
}

func TestCreateItem(t *testing.T) {
	uc, trig, _ := newLedger(t)
	it := createItem(t, uc, 1)

	assert.NotEmpty(t, it.ID)
	assert.True(t, it.TrackLowStock, "el seguimiento se activa por defecto")
	assert.Equal(t, 2, it.Shortage)
	assert.Equal(t, []int{1}, trig.seen, "el alta evalúa el faltante")

	ms, err := uc.ListMovements(context.Background(), it.ID, dto.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, ms, "la existencia inicial no genera movimiento")
}

func TestCreateItem_Validaciones(t *testing.T) {
	uc, _, _ := newLedger(t)
	off := false
	cases := []struct {
		name string
		in   dto.CreateItemRequest
	}{
		{"sin nombre", dto.CreateItemRequest{ModuleKey: entity.ModuleClothing}},
		{"módulo desconocido", dto.CreateItemRequest{Name: "x", ModuleKey: "armory"}},
		{"cantidad negativa", dto.CreateItemRequest{Name: "x", ModuleKey: entity.ModuleClothing, Quantity: -1}},
		{"umbral negativo", dto.CreateItemRequest{Name: "x", ModuleKey: entity.ModuleClothing, LowStockThreshold: -2, TrackLowStock: &off}},
		{"proveedor inexistente", dto.CreateItemRequest{Name: "x", ModuleKey: entity.ModuleClothing, SupplierID: strPtr("nadie")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.CreateItem(context.Background(), tc.in, "tester")
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRecordMovement(t *testing.T) {
	uc, trig, _ := newLedger(t)
	ctx := context.Background()
	it := createItem(t, uc, 5)

	got, err := uc.RecordMovement(ctx, it.ID, dto.RecordMovementRequest{Delta: -7, Reason: " CONSUMO "}, "bodega")
	require.NoError(t, err)
	assert.Equal(t, -2, got.Quantity, "el libro no rechaza existencias negativas")
	assert.Equal(t, []int{5, -2}, trig.seen, "el disparador ve la cantidad ya actualizada")

	_, err = uc.RecordMovement(ctx, it.ID, dto.RecordMovementRequest{Delta: 4, Reason: "AJUSTE"}, "bodega")
	require.NoError(t, err)

	ms, err := uc.ListMovements(ctx, it.ID, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, -7, ms[0].Delta)
	assert.Equal(t, "CONSUMO", ms[0].Reason)
	assert.Equal(t, "bodega", ms[0].CreatedBy)
	assert.Equal(t, 4, ms[1].Delta)

	cur, err := uc.GetItem(ctx, it.ID)
	require.NoError(t, err)
	sum := 5
	for _, m := range ms {
		sum += m.Delta
	}
	assert.Equal(t, sum, cur.Quantity, "existencia = inicial + suma del libro")
}

func TestRecordMovement_Rechazos(t *testing.T) {
	uc, _, _ := newLedger(t)
	ctx := context.Background()
	it := createItem(t, uc, 5)

	_, err := uc.RecordMovement(ctx, it.ID, dto.RecordMovementRequest{Delta: 0, Reason: "x"}, "u")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = uc.RecordMovement(ctx, it.ID, dto.RecordMovementRequest{Delta: 1, Reason: "  "}, "u")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = uc.RecordMovement(ctx, "no-existe", dto.RecordMovementRequest{Delta: 1, Reason: "x"}, "u")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordMovement_FalloDelDisparadorRevierte(t *testing.T) {
	uc, trig, _ := newLedger(t)
	ctx := context.Background()
	it := createItem(t, uc, 5)
	trig.fail = errors.New("disk full")

	_, err := uc.RecordMovement(ctx, it.ID, dto.RecordMovementRequest{Delta: -1, Reason: "CONSUMO"}, "u")
	require.Error(t, err)

	cur, err := uc.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, cur.Quantity)
	ms, err := uc.ListMovements(ctx, it.ID, dto.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, ms)
}

func TestRecordMovement_Concurrente(t *testing.T) {
	uc, _, _ := newLedger(t)
	ctx := context.Background()
	it := createItem(t, uc, 100)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			delta := -1
			if i%2 == 0 {
				delta = 2
			}
			_, err := uc.RecordMovement(ctx, it.ID, dto.RecordMovementRequest{Delta: delta, Reason: "CONCURRENTE"}, "u")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	cur, err := uc.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, cur.Quantity)
}

func TestUpdateItem(t *testing.T) {
	uc, trig, store := newLedger(t)
	ctx := context.Background()
	it := createItem(t, uc, 5)

	sup := &entity.Supplier{Name: "Textiles", Email: "t@x.co"}
	require.NoError(t, store.Run(ctx, func(repos repository.Set) error { return repos.Suppliers.Create(ctx, sup) }))

	got, err := uc.UpdateItem(ctx, it.ID, entity.ItemPatch{Name: strPtr("Camisa azul")}, "u")
	require.NoError(t, err)
	assert.Equal(t, "Camisa azul", got.Name)
	assert.Len(t, trig.seen, 1, "renombrar no re-evalúa el faltante")

	threshold := 9
	got, err = uc.UpdateItem(ctx, it.ID, entity.ItemPatch{LowStockThreshold: &threshold, SupplierID: &sup.ID}, "u")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Shortage)
	require.NotNil(t, got.SupplierID)
	assert.Equal(t, sup.ID, *got.SupplierID)
	assert.Len(t, trig.seen, 2)

	got, err = uc.UpdateItem(ctx, it.ID, entity.ItemPatch{SupplierID: strPtr(" ")}, "u")
	require.NoError(t, err)
	assert.Nil(t, got.SupplierID, "un proveedor vacío se interpreta como quitarlo")

	_, err = uc.UpdateItem(ctx, it.ID, entity.ItemPatch{}, "u")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = uc.UpdateItem(ctx, it.ID, entity.ItemPatch{SupplierID: strPtr("nadie")}, "u")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = uc.UpdateItem(ctx, "no-existe", entity.ItemPatch{Name: strPtr("x")}, "u")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListItems(t *testing.T) {
	uc, _, _ := newLedger(t)
	ctx := context.Background()
	createItem(t, uc, 1)
	_, err := uc.CreateItem(ctx, dto.CreateItemRequest{Name: "Jarabe", ModuleKey: entity.ModulePharmacy}, "u")
	require.NoError(t, err)

	all, err := uc.ListItems(ctx, dto.ListItemsRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	pharmacy, err := uc.ListItems(ctx, dto.ListItemsRequest{ModuleKey: entity.ModulePharmacy})
	require.NoError(t, err)
	require.Len(t, pharmacy.Items, 1)
	assert.Equal(t, "Jarabe", pharmacy.Items[0].Name)

	search, err := uc.ListItems(ctx, dto.ListItemsRequest{Search: "cam-0"})
	require.NoError(t, err)
	assert.Len(t, search.Items, 1)
}

func strPtr(s string) *string { return &s }
