package purchasing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Abastecimiento-api/internal/application/dto"
	"github.com/jhoicas/Abastecimiento-api/internal/application/purchasing"
	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
)

type catalog struct {
	withEmail, noEmail string
	a, b, c, d         string
}

// seedCatalog deja cuatro artículos de ropa en faltante repartidos en tres grupos de proveedor.
func seedCatalog(t *testing.T, f *fixture) catalog {
	t.Helper()
	c := catalog{
		withEmail: f.supplier(t, "Textiles SAS", "ventas@textiles.co"),
		noEmail:   f.supplier(t, "Confecciones", " "),
	}
	c.a = f.item(t, entity.Item{Name: "Camisa", SKU: "CAM-M", Size: "M", Quantity: 2, LowStockThreshold: 5, TrackLowStock: true, SupplierID: &c.withEmail})
	c.b = f.item(t, entity.Item{Name: "Pantalón", SKU: "PAN-32", Quantity: 8, LowStockThreshold: 10, TrackLowStock: true, SupplierID: &c.withEmail})
	c.c = f.item(t, entity.Item{Name: "Gorra", Quantity: 0, LowStockThreshold: 1, TrackLowStock: true, SupplierID: &c.noEmail})
	c.d = f.item(t, entity.Item{Name: "Chaleco", Quantity: 1, LowStockThreshold: 5, TrackLowStock: true})
	f.item(t, entity.Item{Name: "Botas", Quantity: 9, LowStockThreshold: 5, TrackLowStock: true, SupplierID: &c.withEmail})
	f.item(t, entity.Item{Name: "Jarabe", ModuleKey: entity.ModulePharmacy, Quantity: 0, LowStockThreshold: 3, TrackLowStock: true})
	return c
}

func bySupplier(list []dto.SuggestionResponse) map[string]dto.SuggestionResponse {
	out := make(map[string]dto.SuggestionResponse, len(list))
	for _, s := range list {
		out[entity.SupplierKey(s.SupplierID)] = s
	}
	return out
}

func lineFor(s dto.SuggestionResponse, itemID string) *dto.SuggestionLineResponse {
	for i := range s.Lines {
		if s.Lines[i].ItemID == itemID {
			return &s.Lines[i]
		}
	}
	return nil
}

func refresh(t *testing.T, f *fixture, site string, modules ...string) *dto.RefreshSuggestionsResponse {
	t.Helper()
	out, err := f.suggestions.Refresh(context.Background(), dto.RefreshSuggestionsRequest{ModuleKeys: modules, SiteKey: site}, buyer)
	require.NoError(t, err)
	return out
}

func TestRefresh_AgrupaPorProveedor(t *testing.T) {
	f := newFixture(t)
	c := seedCatalog(t, f)

	out := refresh(t, f, "bogota", entity.ModuleClothing)
	require.Len(t, out.Suggestions, 3)
	assert.Zero(t, out.Removed)

	groups := bySupplier(out.Suggestions)
	withEmail := groups[c.withEmail]
	require.Len(t, withEmail.Lines, 2)
	assert.Equal(t, entity.SupplierStatusOK, withEmail.SupplierStatus)
	assert.Equal(t, "Textiles SAS", withEmail.SupplierName)
	camisa := lineFor(withEmail, c.a)
	require.NotNil(t, camisa)
	assert.Equal(t, 3, camisa.QtySuggested)
	assert.Equal(t, "CAM-M", camisa.SKU)
	assert.Equal(t, "M", camisa.VariantLabel)
	assert.Nil(t, camisa.QtyFinal)
	assert.Equal(t, 2, lineFor(withEmail, c.b).QtySuggested)

	assert.Equal(t, entity.SupplierStatusNoEmail, groups[c.noEmail].SupplierStatus)
	assert.Equal(t, entity.SupplierStatusMissing, groups[""].SupplierStatus)
	assert.Equal(t, 4, lineFor(groups[""], c.d).QtySuggested)

	for _, s := range out.Suggestions {
		assert.Equal(t, entity.ModuleClothing, s.ModuleKey)
		assert.Equal(t, "bogota", s.SiteKey)
		assert.Equal(t, entity.SuggestionStatusDraft, s.Status)
	}
}

func TestRefresh_Idempotente(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f)

	first := bySupplier(refresh(t, f, "bogota").Suggestions)
	second := bySupplier(refresh(t, f, "bogota").Suggestions)
	require.Len(t, second, len(first))
	for key, s := range first {
		again, ok := second[key]
		require.True(t, ok)
		assert.Equal(t, s.ID, again.ID)
		require.Len(t, again.Lines, len(s.Lines))
		for i := range s.Lines {
			assert.Equal(t, s.Lines[i].ID, again.Lines[i].ID)
		}
	}

	list, err := f.suggestions.List(context.Background(), dto.ListSuggestionsRequest{SiteKey: "bogota"}, buyer)
	require.NoError(t, err)
	assert.Len(t, list, len(first))
}

func TestRefresh_ConservaQtyFinalYEliminaObsoletas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := seedCatalog(t, f)

	groups := bySupplier(refresh(t, f, "bogota", entity.ModuleClothing).Suggestions)
	withEmail := groups[c.withEmail]
	camisa := lineFor(withEmail, c.a)
	_, err := f.suggestions.UpdateLines(ctx, withEmail.ID, []dto.SuggestionLineEdit{{LineID: camisa.ID, QtyFinal: 12}}, buyer)
	require.NoError(t, err)

	// la camisa baja más, el pantalón sale del faltante y el chaleco también
	f.move(t, c.a, -1)
	f.move(t, c.b, 2)
	f.move(t, c.d, 4)

	out := refresh(t, f, "bogota", entity.ModuleClothing)
	assert.Equal(t, 1, out.Removed, "el grupo sin proveedor quedó vacío")
	groups = bySupplier(out.Suggestions)
	require.Len(t, groups, 2)

	withEmail = groups[c.withEmail]
	require.Len(t, withEmail.Lines, 1)
	camisa = lineFor(withEmail, c.a)
	require.NotNil(t, camisa)
	assert.Equal(t, 4, camisa.QtySuggested)
	require.NotNil(t, camisa.QtyFinal)
	assert.Equal(t, 12, *camisa.QtyFinal)
}

func TestRefresh_SitiosIndependientes(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f)
	bogota := refresh(t, f, "bogota", entity.ModuleClothing)
	cali := refresh(t, f, "cali", entity.ModuleClothing)
	require.Len(t, cali.Suggestions, len(bogota.Suggestions))
	assert.NotEqual(t, bogota.Suggestions[0].ID, cali.Suggestions[0].ID)
}

func TestRefresh_Permisos(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f)
	ctx := context.Background()

	cases := []struct {
		name    string
		actor   string
		in      dto.RefreshSuggestionsRequest
		wantErr error
	}{
		{"sin sitio", "buyer", dto.RefreshSuggestionsRequest{}, domain.ErrValidation},
		{"módulo desconocido", "buyer", dto.RefreshSuggestionsRequest{SiteKey: "x", ModuleKeys: []string{"armory"}}, domain.ErrValidation},
		{"sin edición", "buyer", dto.RefreshSuggestionsRequest{SiteKey: "x", ModuleKeys: []string{entity.ModulePharmacy}}, domain.ErrForbidden},
		{"solo lectura", "viewer", dto.RefreshSuggestionsRequest{SiteKey: "x", ModuleKeys: []string{entity.ModuleClothing}}, domain.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actor := buyer
			if tc.actor == "viewer" {
				actor = readOnly
			}
			_, err := f.suggestions.Refresh(ctx, tc.in, actor)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	// sin módulos pedidos solo se refrescan los editables
	out, err := f.suggestions.Refresh(ctx, dto.RefreshSuggestionsRequest{SiteKey: "x"}, readOnly)
	require.NoError(t, err)
	assert.Empty(t, out.Suggestions)

	out, err = f.suggestions.Refresh(ctx, dto.RefreshSuggestionsRequest{SiteKey: "x"}, admin)
	require.NoError(t, err)
	modules := map[string]bool{}
	for _, s := range out.Suggestions {
		modules[s.ModuleKey] = true
	}
	assert.True(t, modules[entity.ModulePharmacy], "el administrador refresca todos los módulos")
}

func TestList_FiltraPorLectura(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f)
	ctx := context.Background()
	_, err := f.suggestions.Refresh(ctx, dto.RefreshSuggestionsRequest{SiteKey: "x"}, admin)
	require.NoError(t, err)

	list, err := f.suggestions.List(ctx, dto.ListSuggestionsRequest{}, readOnly)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	for _, s := range list {
		assert.Equal(t, entity.ModuleClothing, s.ModuleKey)
	}

	_, err = f.suggestions.List(ctx, dto.ListSuggestionsRequest{ModuleKey: entity.ModulePharmacy}, readOnly)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.suggestions.List(ctx, dto.ListSuggestionsRequest{Status: "archived"}, readOnly)
	assert.ErrorIs(t, err, domain.ErrValidation)

	none, err := f.suggestions.List(ctx, dto.ListSuggestionsRequest{}, purchasing.Actor{ID: "otro-1", Role: "mantenimiento"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := seedCatalog(t, f)
	s := bySupplier(refresh(t, f, "bogota", entity.ModuleClothing).Suggestions)[c.withEmail]
	lineID := lineFor(s, c.a).ID

	_, err := f.suggestions.UpdateLines(ctx, s.ID, []dto.SuggestionLineEdit{{LineID: lineID, QtyFinal: -1}}, buyer)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.suggestions.UpdateLines(ctx, s.ID, nil, buyer)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.suggestions.UpdateLines(ctx, s.ID, []dto.SuggestionLineEdit{{LineID: "nada", QtyFinal: 1}}, buyer)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.suggestions.UpdateLines(ctx, "nada", []dto.SuggestionLineEdit{{LineID: lineID, QtyFinal: 1}}, buyer)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.suggestions.UpdateLines(ctx, s.ID, []dto.SuggestionLineEdit{{LineID: lineID, QtyFinal: 1}}, readOnly)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := f.suggestions.UpdateLines(ctx, s.ID, []dto.SuggestionLineEdit{{LineID: lineID, QtyFinal: 0}}, buyer)
	require.NoError(t, err)
	require.NotNil(t, lineFor(*got, c.a).QtyFinal)
	assert.Zero(t, *lineFor(*got, c.a).QtyFinal)
}

func TestConvert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := seedCatalog(t, f)
	s := bySupplier(refresh(t, f, "bogota", entity.ModuleClothing).Suggestions)[c.withEmail]

	// una línea en cero no pasa a la orden
	_, err := f.suggestions.UpdateLines(ctx, s.ID, []dto.SuggestionLineEdit{{LineID: lineFor(s, c.b).ID, QtyFinal: 0}}, buyer)
	require.NoError(t, err)

	out, err := f.suggestions.Convert(ctx, s.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, entity.SuggestionStatusConverted, out.Suggestion.Status)
	require.NotNil(t, out.Suggestion.ConvertedOrderID)
	assert.Equal(t, out.Order.ID, *out.Suggestion.ConvertedOrderID)

	order := out.Order
	assert.Equal(t, string(entity.OrderStatusPending), order.Status)
	assert.False(t, order.AutoCreated)
	require.NotNil(t, order.SupplierID)
	assert.Equal(t, c.withEmail, *order.SupplierID)
	require.NotNil(t, order.IdempotencyKey)
	assert.Equal(t, "suggestion-"+s.ID, *order.IdempotencyKey)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, c.a, order.Lines[0].ItemID)
	assert.Equal(t, 3, order.Lines[0].QuantityOrdered)

	_, err = f.suggestions.Convert(ctx, s.ID, buyer)
	assert.ErrorIs(t, err, domain.ErrAlreadyConverted)
	_, err = f.suggestions.UpdateLines(ctx, s.ID, []dto.SuggestionLineEdit{{LineID: lineFor(s, c.a).ID, QtyFinal: 1}}, buyer)
	assert.ErrorIs(t, err, domain.ErrAlreadyConverted)

	var converts int
	for _, e := range f.audit(t, order.ID) {
		if e.Action == entity.AuditActionConvertSuggestion {
			converts++
		}
	}
	assert.Equal(t, 1, converts)
}

func TestConvert_SinProveedor(t *testing.T) {
	f := newFixture(t)
	c := seedCatalog(t, f)
	s := bySupplier(refresh(t, f, "bogota", entity.ModuleClothing).Suggestions)[""]
	require.Equal(t, entity.SupplierStatusMissing, s.SupplierStatus)

	out, err := f.suggestions.Convert(context.Background(), s.ID, buyer)
	require.NoError(t, err)
	assert.Nil(t, out.Order.SupplierID)
	require.Len(t, out.Order.Lines, 1)
	assert.Equal(t, c.d, out.Order.Lines[0].ItemID)
}

func TestConvert_Rechazos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := seedCatalog(t, f)
	s := bySupplier(refresh(t, f, "bogota", entity.ModuleClothing).Suggestions)[c.noEmail]

	_, err := f.suggestions.Convert(ctx, s.ID, readOnly)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.suggestions.UpdateLines(ctx, s.ID, []dto.SuggestionLineEdit{{LineID: s.Lines[0].ID, QtyFinal: 0}}, buyer)
	require.NoError(t, err)
	_, err = f.suggestions.Convert(ctx, s.ID, buyer)
	assert.ErrorIs(t, err, domain.ErrValidation)

	list, err := f.suggestions.List(ctx, dto.ListSuggestionsRequest{Status: entity.SuggestionStatusDraft}, buyer)
	require.NoError(t, err)
	var stillDraft bool
	for _, l := range list {
		stillDraft = stillDraft || l.ID == s.ID
	}
	assert.True(t, stillDraft)

	_, err = f.suggestions.Convert(ctx, "nada", buyer)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
