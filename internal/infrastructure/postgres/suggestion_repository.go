package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
)

var _ repository.SuggestionRepository = (*SuggestionRepo)(nil)

// SuggestionRepo sugerencias de compra sobre PostgreSQL.
type SuggestionRepo struct {
	q Querier
}

// NewSuggestionRepository construye el adaptador de sugerencias.
func NewSuggestionRepository(q Querier) *SuggestionRepo {
	return &SuggestionRepo{q: q}
}

const suggestionColumns = `id, module_key, supplier_id, site_key, status, converted_order_id, created_by, created_at, updated_at`

const suggestionLineColumns = `id, suggestion_id, item_id, sku, label, variant_label, qty_suggested, qty_final`

func scanSuggestion(row pgx.Row) (*entity.PurchaseSuggestion, error) {
	var s entity.PurchaseSuggestion
	err := row.Scan(&s.ID, &s.ModuleKey, &s.SupplierID, &s.SiteKey, &s.Status, &s.ConvertedOrderID,
		&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSuggestionLine(row pgx.Row) (*entity.PurchaseSuggestionLine, error) {
	var l entity.PurchaseSuggestionLine
	err := row.Scan(&l.ID, &l.SuggestionID, &l.ItemID, &l.SKU, &l.Label, &l.VariantLabel, &l.QtySuggested, &l.QtyFinal)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *SuggestionRepo) loadLines(ctx context.Context, list ...*entity.PurchaseSuggestion) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	byID := make(map[string]*entity.PurchaseSuggestion, len(list))
	for i, s := range list {
		ids[i] = s.ID
		byID[s.ID] = s
		s.Lines = make([]entity.PurchaseSuggestionLine, 0)
	}
	rows, err := r.q.Query(ctx, `SELECT `+suggestionLineColumns+` FROM purchase_suggestion_items
		WHERE suggestion_id = ANY($1) ORDER BY seq`, ids)
	if err != nil {
		return classify("list suggestion lines", err)
	}
	lines, err := collect(rows, "scan suggestion line", scanSuggestionLine)
	if err != nil {
		return err
	}
	for _, l := range lines {
		s := byID[l.SuggestionID]
		s.Lines = append(s.Lines, *l)
	}
	return nil
}

func (r *SuggestionRepo) getOne(ctx context.Context, op, where string, args ...any) (*entity.PurchaseSuggestion, error) {
	s, err := scanSuggestion(r.q.QueryRow(ctx, `SELECT `+suggestionColumns+` FROM purchase_suggestions WHERE `+where, args...))
	s, err = noRows(s, err, op)
	if err != nil || s == nil {
		return nil, err
	}
	if err := r.loadLines(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SuggestionRepo) listWhere(ctx context.Context, op, where string, args ...any) ([]*entity.PurchaseSuggestion, error) {
	rows, err := r.q.Query(ctx, `SELECT `+suggestionColumns+` FROM purchase_suggestions WHERE `+where, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	list, err := collect(rows, op, scanSuggestion)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, list...); err != nil {
		return nil, err
	}
	return list, nil
}

// FindDraftForUpdate busca el borrador de la clave (módulo, proveedor, sitio) y lo bloquea.
func (r *SuggestionRepo) FindDraftForUpdate(ctx context.Context, moduleKey, supplierKey, siteKey string) (*entity.PurchaseSuggestion, error) {
	return r.getOne(ctx, "find draft suggestion",
		`status = 'draft' AND module_key = $1 AND supplier_key = $2 AND site_key = $3 FOR UPDATE`,
		moduleKey, supplierKey, siteKey)
}

// Create inserta la cabecera bajo savepoint; uq_purchase_suggestions_draft produce ErrDuplicate.
func (r *SuggestionRepo) Create(ctx context.Context, s *entity.PurchaseSuggestion) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = entity.SuggestionStatusDraft
	}
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	return withSavepoint(ctx, r.q, "sp_create_suggestion", func() error {
		_, err := r.q.Exec(ctx, `INSERT INTO purchase_suggestions (`+suggestionColumns+`, supplier_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			s.ID, s.ModuleKey, s.SupplierID, s.SiteKey, s.Status, s.ConvertedOrderID, s.CreatedBy,
			s.CreatedAt, s.UpdatedAt, entity.SupplierKey(s.SupplierID))
		return classify("insert suggestion", err)
	})
}

// Update persiste estado y orden convertida.
func (r *SuggestionRepo) Update(ctx context.Context, s *entity.PurchaseSuggestion) error {
	cmd, err := r.q.Exec(ctx, `UPDATE purchase_suggestions SET status = $2, converted_order_id = $3, updated_at = now()
		WHERE id = $1`, s.ID, s.Status, s.ConvertedOrderID)
	if err != nil {
		return classify("update suggestion", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update suggestion %s: %w", s.ID, domain.ErrNotFound)
	}
	return nil
}

// GetByID obtiene la sugerencia con sus líneas.
func (r *SuggestionRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseSuggestion, error) {
	return r.getOne(ctx, "get suggestion", `id = $1`, id)
}

// GetForUpdate obtiene la sugerencia bloqueando la cabecera.
func (r *SuggestionRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseSuggestion, error) {
	return r.getOne(ctx, "get suggestion for update", `id = $1 FOR UPDATE`, id)
}

// List lista sugerencias visibles (más recientes primero).
func (r *SuggestionRepo) List(ctx context.Context, filter repository.SuggestionFilter) ([]*entity.PurchaseSuggestion, error) {
	modules := filter.ModuleKeys
	if modules == nil {
		modules = []string{}
	}
	return r.listWhere(ctx, "list suggestions",
		`module_key = ANY($1) AND ($2 = '' OR site_key = $2) AND ($3 = '' OR status = $3) ORDER BY seq DESC`,
		modules, filter.SiteKey, filter.Status)
}

// ListDrafts devuelve los borradores de un módulo y sitio.
func (r *SuggestionRepo) ListDrafts(ctx context.Context, moduleKey, siteKey string) ([]*entity.PurchaseSuggestion, error) {
	return r.listWhere(ctx, "list draft suggestions",
		`status = 'draft' AND module_key = $1 AND site_key = $2 ORDER BY seq`, moduleKey, siteKey)
}

// UpsertLine inserta o refresca la línea del artículo; qty_final editado se conserva y se devuelve en line.
func (r *SuggestionRepo) UpsertLine(ctx context.Context, line *entity.PurchaseSuggestionLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO purchase_suggestion_items (`+suggestionLineColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (suggestion_id, item_id) DO UPDATE SET
			sku = EXCLUDED.sku, label = EXCLUDED.label, variant_label = EXCLUDED.variant_label,
			qty_suggested = EXCLUDED.qty_suggested
		RETURNING id, qty_final`,
		line.ID, line.SuggestionID, line.ItemID, line.SKU, line.Label, line.VariantLabel, line.QtySuggested, line.QtyFinal,
	).Scan(&line.ID, &line.QtyFinal)
	if err != nil {
		return classify("upsert suggestion line", err)
	}
	_, err = r.q.Exec(ctx, `UPDATE purchase_suggestions SET updated_at = now() WHERE id = $1`, line.SuggestionID)
	return classify("touch suggestion", err)
}

// DeleteLinesExcept borra las líneas de artículos que ya no están en faltante.
func (r *SuggestionRepo) DeleteLinesExcept(ctx context.Context, suggestionID string, keepItemIDs []string) error {
	if keepItemIDs == nil {
		keepItemIDs = []string{}
	}
	_, err := r.q.Exec(ctx, `DELETE FROM purchase_suggestion_items
		WHERE suggestion_id = $1 AND NOT (item_id = ANY($2))`, suggestionID, keepItemIDs)
	return classify("delete suggestion lines", err)
}

// UpdateLineQtyFinal fija la cantidad editada de una línea.
func (r *SuggestionRepo) UpdateLineQtyFinal(ctx context.Context, lineID string, qtyFinal int) error {
	var suggestionID string
	err := r.q.QueryRow(ctx, `UPDATE purchase_suggestion_items SET qty_final = $2 WHERE id = $1 RETURNING suggestion_id`,
		lineID, qtyFinal).Scan(&suggestionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update suggestion line %s: %w", lineID, domain.ErrNotFound)
		}
		return classify("update suggestion line", err)
	}
	_, err = r.q.Exec(ctx, `UPDATE purchase_suggestions SET updated_at = now() WHERE id = $1`, suggestionID)
	return classify("touch suggestion", err)
}

// Delete elimina la sugerencia y sus líneas (cascade).
func (r *SuggestionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM purchase_suggestions WHERE id = $1`, id)
	return classify("delete suggestion", err)
}
