package purchasing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Abastecimiento-api/internal/application/dto"
	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
	"github.com/jhoicas/Abastecimiento-api/pkg/logger"
)

// SuggestionUseCase agrupa los faltantes en sugerencias de compra por (módulo, proveedor, sitio)
// y las convierte en órdenes.
type SuggestionUseCase struct {
	txRunner TxRunner
	orders   *PurchaseOrderUseCase
	perms    ModulePermissions
	modules  []string
	metrics  Metrics
	log      *logger.Logger
}

// NewSuggestionUseCase construye el agregador. modules son los módulos habilitados para sugerencias
// (vacío = todos los conocidos); metrics puede ser nil.
func NewSuggestionUseCase(
	txRunner TxRunner,
	orders *PurchaseOrderUseCase,
	perms ModulePermissions,
	modules []string,
	metrics Metrics,
	log *logger.Logger,
) *SuggestionUseCase {
	if len(modules) == 0 {
		modules = entity.KnownModules
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SuggestionUseCase{
		txRunner: txRunner,
		orders:   orders,
		perms:    perms,
		modules:  modules,
		metrics:  metrics,
		log:      log.Component("suggestions"),
	}
}

func (uc *SuggestionUseCase) enabled(moduleKey string) bool {
	if !entity.IsKnownModule(moduleKey) {
		return false
	}
	for _, m := range uc.modules {
		if m == moduleKey {
			return true
		}
	}
	return false
}

func (uc *SuggestionUseCase) canEdit(actor Actor, moduleKey string) bool {
	return actor.IsAdmin || uc.perms.CanEdit(actor.Role, moduleKey)
}

func (uc *SuggestionUseCase) canView(actor Actor, moduleKey string) bool {
	return actor.IsAdmin || uc.perms.CanView(actor.Role, moduleKey)
}

// Refresh recalcula los borradores de los módulos pedidos (vacío = todos los editables).
// Repetirlo sin cambios de existencia deja el mismo conjunto de filas.
func (uc *SuggestionUseCase) Refresh(ctx context.Context, in dto.RefreshSuggestionsRequest, actor Actor) (*dto.RefreshSuggestionsResponse, error) {
	site := strings.TrimSpace(in.SiteKey)
	if site == "" {
		return nil, fmt.Errorf("site_key obligatorio: %w", domain.ErrValidation)
	}
	modules, err := uc.editableModules(in.ModuleKeys, actor)
	if err != nil {
		return nil, err
	}

	out := &dto.RefreshSuggestionsResponse{Suggestions: make([]dto.SuggestionResponse, 0)}
	err = uc.txRunner.Run(ctx, func(repos repository.Set) error {
		out.Suggestions = out.Suggestions[:0]
		out.Removed = 0
		for _, m := range modules {
			ids, removed, err := uc.refreshModule(ctx, repos, m, site, actor)
			if err != nil {
				return err
			}
			out.Removed += removed
			for _, id := range ids {
				s, err := repos.Suggestions.GetByID(ctx, id)
				if err != nil {
					return err
				}
				resp, err := suggestionResponse(ctx, repos, s)
				if err != nil {
					return err
				}
				out.Suggestions = append(out.Suggestions, resp)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Strs("modules", modules).Str("site_key", site).Int("drafts", len(out.Suggestions)).
		Int("removed", out.Removed).Msg("sugerencias refrescadas")
	return out, nil
}

func (uc *SuggestionUseCase) editableModules(requested []string, actor Actor) ([]string, error) {
	if len(requested) == 0 {
		out := make([]string, 0, len(uc.modules))
		for _, m := range uc.modules {
			if uc.canEdit(actor, m) {
				out = append(out, m)
			}
		}
		return out, nil
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(requested))
	for _, m := range requested {
		m = strings.TrimSpace(m)
		if !uc.enabled(m) {
			return nil, fmt.Errorf("módulo %q desconocido: %w", m, domain.ErrValidation)
		}
		if !uc.canEdit(actor, m) {
			return nil, fmt.Errorf("sin permiso de edición en %s: %w", m, domain.ErrForbidden)
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out, nil
}

// refreshModule devuelve los IDs de los borradores vigentes del módulo y cuántos se eliminaron.
func (uc *SuggestionUseCase) refreshModule(ctx context.Context, repos repository.Set, moduleKey, site string, actor Actor) ([]string, int, error) {
	items, err := repos.Items.ListShortages(ctx, moduleKey)
	if err != nil {
		return nil, 0, err
	}
	groups := map[string][]*entity.Item{}
	keys := make([]string, 0)
	for _, it := range items {
		k := entity.SupplierKey(it.SupplierID)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], it)
	}
	sort.Strings(keys)

	live := map[string]bool{}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		draft, err := uc.draftFor(ctx, repos, moduleKey, groups[k][0].SupplierID, site, actor)
		if err != nil {
			return nil, 0, err
		}
		keep := make([]string, 0, len(groups[k]))
		for _, it := range groups[k] {
			if err := repos.Suggestions.UpsertLine(ctx, &entity.PurchaseSuggestionLine{
				ID:           uuid.New().String(),
				SuggestionID: draft.ID,
				ItemID:       it.ID,
				SKU:          it.SKU,
				Label:        it.Name,
				VariantLabel: it.Size,
				QtySuggested: it.Shortage(),
			}); err != nil {
				return nil, 0, err
			}
			keep = append(keep, it.ID)
		}
		if err := repos.Suggestions.DeleteLinesExcept(ctx, draft.ID, keep); err != nil {
			return nil, 0, err
		}
		if err := repos.Suggestions.Update(ctx, draft); err != nil {
			return nil, 0, err
		}
		live[draft.ID] = true
		ids = append(ids, draft.ID)
	}

	drafts, err := repos.Suggestions.ListDrafts(ctx, moduleKey, site)
	if err != nil {
		return nil, 0, err
	}
	removed := 0
	for _, d := range drafts {
		if live[d.ID] {
			continue
		}
		if err := repos.Suggestions.Delete(ctx, d.ID); err != nil {
			return nil, 0, err
		}
		removed++
	}
	uc.metrics.SuggestionsRefreshed(moduleKey, len(ids))
	return ids, removed, nil
}

// draftFor busca el borrador de la clave o lo crea; ante una creación concurrente vuelve a leer.
func (uc *SuggestionUseCase) draftFor(ctx context.Context, repos repository.Set, moduleKey string, supplierID *string, site string, actor Actor) (*entity.PurchaseSuggestion, error) {
	key := entity.SupplierKey(supplierID)
	for attempt := 0; attempt < 2; attempt++ {
		draft, err := repos.Suggestions.FindDraftForUpdate(ctx, moduleKey, key, site)
		if err != nil {
			return nil, err
		}
		if draft != nil {
			return draft, nil
		}
		draft = &entity.PurchaseSuggestion{
			ID:         uuid.New().String(),
			ModuleKey:  moduleKey,
			SupplierID: supplierID,
			SiteKey:    site,
			Status:     entity.SuggestionStatusDraft,
			CreatedBy:  actor.ID,
			CreatedAt:  time.Now(),
		}
		err = repos.Suggestions.Create(ctx, draft)
		if err == nil {
			return draft, nil
		}
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("borrador de sugerencia %s/%s/%s: %w", moduleKey, key, site, domain.ErrTransient)
}

// List devuelve las sugerencias de los módulos que el llamador puede ver.
func (uc *SuggestionUseCase) List(ctx context.Context, in dto.ListSuggestionsRequest, actor Actor) ([]dto.SuggestionResponse, error) {
	filter := repository.SuggestionFilter{SiteKey: strings.TrimSpace(in.SiteKey), Status: strings.ToLower(in.Status)}
	switch filter.Status {
	case "", entity.SuggestionStatusDraft, entity.SuggestionStatusConverted:
	default:
		return nil, fmt.Errorf("status %q inválido: %w", in.Status, domain.ErrValidation)
	}
	if in.ModuleKey != "" {
		if !uc.enabled(in.ModuleKey) {
			return nil, fmt.Errorf("módulo %q desconocido: %w", in.ModuleKey, domain.ErrValidation)
		}
		if !uc.canView(actor, in.ModuleKey) {
			return nil, fmt.Errorf("sin permiso de lectura en %s: %w", in.ModuleKey, domain.ErrForbidden)
		}
		filter.ModuleKeys = []string{in.ModuleKey}
	} else {
		for _, m := range uc.modules {
			if uc.canView(actor, m) {
				filter.ModuleKeys = append(filter.ModuleKeys, m)
			}
		}
	}
	out := make([]dto.SuggestionResponse, 0)
	if len(filter.ModuleKeys) == 0 {
		return out, nil
	}
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		rows, err := repos.Suggestions.List(ctx, filter)
		if err != nil {
			return err
		}
		for _, s := range rows {
			resp, err := suggestionResponse(ctx, repos, s)
			if err != nil {
				return err
			}
			out = append(out, resp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateLines fija qty_final en líneas de un borrador.
func (uc *SuggestionUseCase) UpdateLines(ctx context.Context, id string, edits []dto.SuggestionLineEdit, actor Actor) (*dto.SuggestionResponse, error) {
	if len(edits) == 0 {
		return nil, fmt.Errorf("sin líneas a editar: %w", domain.ErrValidation)
	}
	for _, e := range edits {
		if e.QtyFinal < 0 {
			return nil, fmt.Errorf("qty_final debe ser >= 0: %w", domain.ErrValidation)
		}
	}
	var resp dto.SuggestionResponse
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		s, err := uc.lockSuggestion(ctx, repos, id, actor)
		if err != nil {
			return err
		}
		for _, e := range edits {
			if !hasLine(s, e.LineID) {
				return fmt.Errorf("línea %s en sugerencia %s: %w", e.LineID, id, domain.ErrNotFound)
			}
			if err := repos.Suggestions.UpdateLineQtyFinal(ctx, e.LineID, e.QtyFinal); err != nil {
				return err
			}
		}
		s, err = repos.Suggestions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		resp, err = suggestionResponse(ctx, repos, s)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Convert crea una orden de compra con las líneas de cantidad efectiva > 0, en la misma transacción
// que marca la sugerencia como convertida. No depende del estado del proveedor.
func (uc *SuggestionUseCase) Convert(ctx context.Context, id string, actor Actor) (*dto.ConvertSuggestionResponse, error) {
	var out dto.ConvertSuggestionResponse
	var moduleKey string
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		s, err := uc.lockSuggestion(ctx, repos, id, actor)
		if err != nil {
			return err
		}
		moduleKey = s.ModuleKey
		req := dto.CreatePurchaseOrderRequest{
			Status:         string(entity.OrderStatusPending),
			Note:           fmt.Sprintf("Sugerencia de compra %s / %s", s.ModuleKey, s.SiteKey),
			IdempotencyKey: "suggestion-" + s.ID,
		}
		if s.SupplierID != nil {
			sup, err := repos.Suppliers.GetByID(ctx, *s.SupplierID)
			if err != nil {
				return err
			}
			if sup != nil {
				req.SupplierID = s.SupplierID
			}
		}
		for i := range s.Lines {
			if q := s.Lines[i].EffectiveQty(); q > 0 {
				req.Lines = append(req.Lines, dto.CreatePurchaseOrderLineRequest{ItemID: s.Lines[i].ItemID, QuantityOrdered: q})
			}
		}
		if len(req.Lines) == 0 {
			return fmt.Errorf("la sugerencia %s no tiene líneas con cantidad: %w", id, domain.ErrValidation)
		}
		order, _, err := uc.orders.CreateInTx(ctx, repos, req, actor)
		if err != nil {
			return err
		}
		s.Status = entity.SuggestionStatusConverted
		s.ConvertedOrderID = &order.ID
		if err := repos.Suggestions.Update(ctx, s); err != nil {
			return err
		}
		if err := audit(ctx, repos, entity.AuditEntry{
			OrderID: order.ID,
			Action:  entity.AuditActionConvertSuggestion,
			Actor:   actor.ID,
			Details: "suggestion=" + s.ID,
		}); err != nil {
			return err
		}
		s, err = repos.Suggestions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if out.Suggestion, err = suggestionResponse(ctx, repos, s); err != nil {
			return err
		}
		o, err := orderSnapshot(ctx, repos, order.ID)
		if err != nil {
			return err
		}
		out.Order = *o
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.SuggestionConverted(moduleKey)
	uc.log.Info().Str("suggestion_id", id).Str("order_id", out.Order.ID).Int("lines", len(out.Order.Lines)).Msg("sugerencia convertida")
	return &out, nil
}

// lockSuggestion bloquea la sugerencia y exige can_edit sobre su módulo y estado draft.
func (uc *SuggestionUseCase) lockSuggestion(ctx context.Context, repos repository.Set, id string, actor Actor) (*entity.PurchaseSuggestion, error) {
	s, err := repos.Suggestions.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("sugerencia %s: %w", id, domain.ErrNotFound)
	}
	if !uc.canEdit(actor, s.ModuleKey) {
		return nil, fmt.Errorf("sin permiso de edición en %s: %w", s.ModuleKey, domain.ErrForbidden)
	}
	if s.Status == entity.SuggestionStatusConverted {
		return nil, domain.ErrAlreadyConverted
	}
	return s, nil
}

func hasLine(s *entity.PurchaseSuggestion, lineID string) bool {
	for i := range s.Lines {
		if s.Lines[i].ID == lineID {
			return true
		}
	}
	return false
}

func suggestionResponse(ctx context.Context, repos repository.Set, s *entity.PurchaseSuggestion) (dto.SuggestionResponse, error) {
	if s == nil {
		return dto.SuggestionResponse{}, fmt.Errorf("sugerencia: %w", domain.ErrNotFound)
	}
	resp := dto.SuggestionResponse{
		ID:               s.ID,
		ModuleKey:        s.ModuleKey,
		SupplierID:       s.SupplierID,
		SiteKey:          s.SiteKey,
		Status:           s.Status,
		ConvertedOrderID: s.ConvertedOrderID,
		CreatedBy:        s.CreatedBy,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
		Lines:            make([]dto.SuggestionLineResponse, 0, len(s.Lines)),
	}
	var supplier *entity.Supplier
	if s.SupplierID != nil {
		var err error
		if supplier, err = repos.Suppliers.GetByID(ctx, *s.SupplierID); err != nil {
			return resp, err
		}
	}
	resp.SupplierStatus = entity.SupplierStatusOf(supplier)
	if supplier != nil {
		resp.SupplierName = supplier.Name
	}
	for _, l := range s.Lines {
		resp.Lines = append(resp.Lines, dto.SuggestionLineResponse{
			ID:           l.ID,
			ItemID:       l.ItemID,
			SKU:          l.SKU,
			Label:        l.Label,
			VariantLabel: l.VariantLabel,
			QtySuggested: l.QtySuggested,
			QtyFinal:     l.QtyFinal,
		})
	}
	return resp, nil
}
