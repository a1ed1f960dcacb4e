package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
	"github.com/jhoicas/Abastecimiento-api/internal/infrastructure/memory"
)

func seedItem(t *testing.T, s *memory.Store) *entity.Item {
	t.Helper()
	it := &entity.Item{Name: "Camisa", ModuleKey: entity.ModuleClothing, Quantity: 3}
	require.NoError(t, s.Run(context.Background(), func(repos repository.Set) error {
		return repos.Items.Create(context.Background(), it)
	}))
	return it
}

func autoOrder(itemID string, qty int) *entity.PurchaseOrder {
	return &entity.PurchaseOrder{
		Status:      entity.OrderStatusPending,
		AutoCreated: true,
		Lines:       []entity.PurchaseOrderLine{{ItemID: itemID, QuantityOrdered: qty}},
	}
}

func TestRun_RollbackAnteError(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	it := seedItem(t, s)
	boom := errors.New("boom")

	err := s.Run(ctx, func(repos repository.Set) error {
		if err := repos.Items.UpdateQuantity(ctx, it.ID, 99); err != nil {
			return err
		}
		if err := repos.Movements.Create(ctx, &entity.Movement{ItemID: it.ID, Delta: 96, Reason: "AJUSTE"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.Run(ctx, func(repos repository.Set) error {
		cur, err := repos.Items.GetByID(ctx, it.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, cur.Quantity)
		ms, err := repos.Movements.ListByItem(ctx, it.ID, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, ms)
		return nil
	}))
}

func TestRun_ContextoCancelado(t *testing.T) {
	s := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.Run(ctx, func(repository.Set) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestGetDevuelveCopias(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	it := seedItem(t, s)
	require.NoError(t, s.Run(ctx, func(repos repository.Set) error {
		cur, err := repos.Items.GetByID(ctx, it.ID)
		require.NoError(t, err)
		cur.Quantity = 500
		again, err := repos.Items.GetByID(ctx, it.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, again.Quantity)
		return nil
	}))
}

func TestOrders_UnBorradorAutomaticoPorArticulo(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	it := seedItem(t, s)

	first := autoOrder(it.ID, 2)
	require.NoError(t, s.Run(ctx, func(repos repository.Set) error { return repos.Orders.Create(ctx, first) }))

	err := s.Run(ctx, func(repos repository.Set) error { return repos.Orders.Create(ctx, autoOrder(it.ID, 5)) })
	require.ErrorIs(t, err, domain.ErrDuplicate)

	require.NoError(t, s.Run(ctx, func(repos repository.Set) error {
		line, err := repos.Orders.FindOpenAutoLine(ctx, it.ID)
		require.NoError(t, err)
		require.NotNil(t, line)
		assert.Equal(t, first.Lines[0].ID, line.ID)

		// una orden manual no ocupa la ranura
		return repos.Orders.Create(ctx, &entity.PurchaseOrder{
			Status: entity.OrderStatusPending,
			Lines:  []entity.PurchaseOrderLine{{ItemID: it.ID, QuantityOrdered: 1}},
		})
	}))

	require.NoError(t, s.Run(ctx, func(repos repository.Set) error {
		o, err := repos.Orders.GetForUpdate(ctx, first.ID)
		require.NoError(t, err)
		o.Status = entity.OrderStatusCancelled
		if err := repos.Orders.UpdateHeader(ctx, o); err != nil {
			return err
		}
		return repos.Orders.ReleaseAutoSlots(ctx, o.ID)
	}))
	require.NoError(t, s.Run(ctx, func(repos repository.Set) error {
		line, err := repos.Orders.FindOpenAutoLine(ctx, it.ID)
		require.NoError(t, err)
		assert.Nil(t, line)
		return repos.Orders.Create(ctx, autoOrder(it.ID, 5))
	}))
}

func TestOrders_ClaveDeIdempotenciaUnica(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	it := seedItem(t, s)
	key := "k-1"
	o := &entity.PurchaseOrder{Status: entity.OrderStatusPending, IdempotencyKey: &key,
		Lines: []entity.PurchaseOrderLine{{ItemID: it.ID, QuantityOrdered: 1}}}
	require.NoError(t, s.Run(ctx, func(repos repository.Set) error { return repos.Orders.Create(ctx, o) }))

	dup := &entity.PurchaseOrder{Status: entity.OrderStatusPending, IdempotencyKey: &key,
		Lines: []entity.PurchaseOrderLine{{ItemID: it.ID, QuantityOrdered: 1}}}
	err := s.Run(ctx, func(repos repository.Set) error { return repos.Orders.Create(ctx, dup) })
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	require.NoError(t, s.Run(ctx, func(repos repository.Set) error {
		got, err := repos.Orders.GetByIdempotencyKey(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, o.ID, got.ID)
		return nil
	}))
}

func TestOrders_RecibidoNuncaSuperaLoPedido(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	it := seedItem(t, s)
	o := autoOrder(it.ID, 2)
	require.NoError(t, s.Run(ctx, func(repos repository.Set) error { return repos.Orders.Create(ctx, o) }))

	err := s.Run(ctx, func(repos repository.Set) error {
		line := o.Lines[0]
		line.QuantityReceived = 3
		return repos.Orders.UpdateLine(ctx, &line)
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestOrders_DeleteEnCascada(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	it := seedItem(t, s)
	o := autoOrder(it.ID, 2)
	require.NoError(t, s.Run(ctx, func(repos repository.Set) error {
		if err := repos.Orders.Create(ctx, o); err != nil {
			return err
		}
		rc := &entity.Receipt{OrderID: o.ID, LineID: o.Lines[0].ID, ReceivedQty: 1, ConformityStatus: entity.ConformityNonConforme}
		if err := repos.Receipts.Create(ctx, rc); err != nil {
			return err
		}
		if err := repos.Nonconformities.Create(ctx, &entity.Nonconformity{OrderID: o.ID, LineID: rc.LineID, ReceiptID: rc.ID, Status: entity.NonconformityOpen}); err != nil {
			return err
		}
		return repos.Audit.Append(ctx, &entity.AuditEntry{OrderID: o.ID, Action: entity.AuditActionCreate})
	}))

	require.NoError(t, s.Run(ctx, func(repos repository.Set) error { return repos.Orders.Delete(ctx, o.ID) }))

	require.NoError(t, s.Run(ctx, func(repos repository.Set) error {
		rcs, err := repos.Receipts.ListByOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Empty(t, rcs)
		ncs, err := repos.Nonconformities.ListByOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Empty(t, ncs)
		line, err := repos.Orders.FindOpenAutoLine(ctx, it.ID)
		require.NoError(t, err)
		assert.Nil(t, line)
		entries, err := repos.Audit.ListByOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "la bitácora no se borra con la orden")
		return nil
	}))
}

func TestSuggestions_UnBorradorPorClave(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	newDraft := func(site string) *entity.PurchaseSuggestion {
		return &entity.PurchaseSuggestion{ModuleKey: entity.ModuleClothing, SiteKey: site, Status: entity.SuggestionStatusDraft}
	}
	first := newDraft("bogota")
	require.NoError(t, s.Run(ctx, func(repos repository.Set) error { return repos.Suggestions.Create(ctx, first) }))

	err := s.Run(ctx, func(repos repository.Set) error { return repos.Suggestions.Create(ctx, newDraft("bogota")) })
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	require.NoError(t, s.Run(ctx, func(repos repository.Set) error { return repos.Suggestions.Create(ctx, newDraft("cali")) }))

	// una convertida libera la clave
	require.NoError(t, s.Run(ctx, func(repos repository.Set) error {
		first.Status = entity.SuggestionStatusConverted
		if err := repos.Suggestions.Update(ctx, first); err != nil {
			return err
		}
		return repos.Suggestions.Create(ctx, newDraft("bogota"))
	}))
}

func TestSuggestions_UpsertConservaQtyFinal(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	draft := &entity.PurchaseSuggestion{ModuleKey: entity.ModuleClothing, SiteKey: "x"}
	require.NoError(t, s.Run(ctx, func(repos repository.Set) error {
		if err := repos.Suggestions.Create(ctx, draft); err != nil {
			return err
		}
		line := &entity.PurchaseSuggestionLine{SuggestionID: draft.ID, ItemID: "item-1", QtySuggested: 3}
		if err := repos.Suggestions.UpsertLine(ctx, line); err != nil {
			return err
		}
		return repos.Suggestions.UpdateLineQtyFinal(ctx, line.ID, 7)
	}))

	require.NoError(t, s.Run(ctx, func(repos repository.Set) error {
		again := &entity.PurchaseSuggestionLine{SuggestionID: draft.ID, ItemID: "item-1", QtySuggested: 5}
		require.NoError(t, repos.Suggestions.UpsertLine(ctx, again))
		got, err := repos.Suggestions.GetByID(ctx, draft.ID)
		require.NoError(t, err)
		require.Len(t, got.Lines, 1)
		assert.Equal(t, 5, got.Lines[0].QtySuggested)
		require.NotNil(t, got.Lines[0].QtyFinal)
		assert.Equal(t, 7, *got.Lines[0].QtyFinal)
		return nil
	}))
}
