package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
)

var _ repository.SuggestionRepository = (*SuggestionRepo)(nil)

// SuggestionRepo sugerencias de compra en memoria.
type SuggestionRepo struct{ st *state }

func (r *SuggestionRepo) findDraft(moduleKey, supplierKey, siteKey string) *entity.PurchaseSuggestion {
	for _, id := range r.st.suggestionSeq {
		s := r.st.suggestions[id]
		if s.Status == entity.SuggestionStatusDraft && s.ModuleKey == moduleKey &&
			entity.SupplierKey(s.SupplierID) == supplierKey && s.SiteKey == siteKey {
			return s
		}
	}
	return nil
}

func (r *SuggestionRepo) FindDraftForUpdate(_ context.Context, moduleKey, supplierKey, siteKey string) (*entity.PurchaseSuggestion, error) {
	s := r.findDraft(moduleKey, supplierKey, siteKey)
	if s == nil {
		return nil, nil
	}
	return copySuggestion(s), nil
}

func (r *SuggestionRepo) Create(_ context.Context, s *entity.PurchaseSuggestion) error {
	if s.Status == "" {
		s.Status = entity.SuggestionStatusDraft
	}
	if s.Status == entity.SuggestionStatusDraft && r.findDraft(s.ModuleKey, entity.SupplierKey(s.SupplierID), s.SiteKey) != nil {
		return fmt.Errorf("create suggestion: %w", domain.ErrDuplicate)
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	c := copySuggestion(s)
	c.Lines = nil
	r.st.suggestions[s.ID] = c
	r.st.suggestionSeq = append(r.st.suggestionSeq, s.ID)
	return nil
}

func (r *SuggestionRepo) Update(_ context.Context, s *entity.PurchaseSuggestion) error {
	cur, ok := r.st.suggestions[s.ID]
	if !ok {
		return fmt.Errorf("update suggestion %s: %w", s.ID, domain.ErrNotFound)
	}
	cur.Status = s.Status
	cur.ConvertedOrderID = copyStr(s.ConvertedOrderID)
	cur.UpdatedAt = time.Now()
	return nil
}

func (r *SuggestionRepo) GetByID(_ context.Context, id string) (*entity.PurchaseSuggestion, error) {
	s, ok := r.st.suggestions[id]
	if !ok {
		return nil, nil
	}
	return copySuggestion(s), nil
}

func (r *SuggestionRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseSuggestion, error) {
	return r.GetByID(ctx, id)
}

func (r *SuggestionRepo) List(_ context.Context, filter repository.SuggestionFilter) ([]*entity.PurchaseSuggestion, error) {
	visible := make(map[string]bool, len(filter.ModuleKeys))
	for _, m := range filter.ModuleKeys {
		visible[m] = true
	}
	out := make([]*entity.PurchaseSuggestion, 0)
	for i := len(r.st.suggestionSeq) - 1; i >= 0; i-- {
		s := r.st.suggestions[r.st.suggestionSeq[i]]
		if !visible[s.ModuleKey] {
			continue
		}
		if filter.SiteKey != "" && s.SiteKey != filter.SiteKey {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, copySuggestion(s))
	}
	return out, nil
}

func (r *SuggestionRepo) ListDrafts(_ context.Context, moduleKey, siteKey string) ([]*entity.PurchaseSuggestion, error) {
	out := make([]*entity.PurchaseSuggestion, 0)
	for _, id := range r.st.suggestionSeq {
		s := r.st.suggestions[id]
		if s.Status == entity.SuggestionStatusDraft && s.ModuleKey == moduleKey && s.SiteKey == siteKey {
			out = append(out, copySuggestion(s))
		}
	}
	return out, nil
}

func (r *SuggestionRepo) UpsertLine(_ context.Context, line *entity.PurchaseSuggestionLine) error {
	s, ok := r.st.suggestions[line.SuggestionID]
	if !ok {
		return fmt.Errorf("upsert suggestion line: suggestion %s: %w", line.SuggestionID, domain.ErrNotFound)
	}
	for i := range s.Lines {
		cur := &s.Lines[i]
		if cur.ItemID != line.ItemID {
			continue
		}
		cur.QtySuggested = line.QtySuggested
		cur.SKU = line.SKU
		cur.Label = line.Label
		cur.VariantLabel = line.VariantLabel
		line.ID = cur.ID
		line.QtyFinal = cur.QtyFinal
		s.UpdatedAt = time.Now()
		return nil
	}
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	c := *line
	if line.QtyFinal != nil {
		q := *line.QtyFinal
		c.QtyFinal = &q
	}
	s.Lines = append(s.Lines, c)
	s.UpdatedAt = time.Now()
	return nil
}

func (r *SuggestionRepo) DeleteLinesExcept(_ context.Context, suggestionID string, keepItemIDs []string) error {
	s, ok := r.st.suggestions[suggestionID]
	if !ok {
		return nil
	}
	keep := make(map[string]bool, len(keepItemIDs))
	for _, id := range keepItemIDs {
		keep[id] = true
	}
	lines := s.Lines[:0]
	for _, l := range s.Lines {
		if keep[l.ItemID] {
			lines = append(lines, l)
		}
	}
	s.Lines = lines
	return nil
}

func (r *SuggestionRepo) UpdateLineQtyFinal(_ context.Context, lineID string, qtyFinal int) error {
	for _, s := range r.st.suggestions {
		for i := range s.Lines {
			if s.Lines[i].ID == lineID {
				q := qtyFinal
				s.Lines[i].QtyFinal = &q
				s.UpdatedAt = time.Now()
				return nil
			}
		}
	}
	return fmt.Errorf("update suggestion line %s: %w", lineID, domain.ErrNotFound)
}

func (r *SuggestionRepo) Delete(_ context.Context, id string) error {
	delete(r.st.suggestions, id)
	seq := r.st.suggestionSeq[:0]
	for _, sid := range r.st.suggestionSeq {
		if sid != id {
			seq = append(seq, sid)
		}
	}
	r.st.suggestionSeq = seq
	return nil
}
