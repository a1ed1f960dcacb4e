package repository

import (
	"context"

	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
)

// SuggestionFilter filtros de listado de sugerencias.
type SuggestionFilter struct {
	SiteKey    string
	Status     string
	ModuleKeys []string // módulos visibles para el llamador; vacío = ninguno
}

// SuggestionRepository puerto de sugerencias de compra. Las lecturas incluyen las líneas.
type SuggestionRepository interface {
	// FindDraftForUpdate busca el borrador de la clave (módulo, proveedor, sitio); (nil, nil) si no existe.
	FindDraftForUpdate(ctx context.Context, moduleKey, supplierKey, siteKey string) (*entity.PurchaseSuggestion, error)
	// Create inserta la cabecera; domain.ErrDuplicate si ya existe un borrador con la misma clave.
	Create(ctx context.Context, s *entity.PurchaseSuggestion) error
	// Update persiste estado, orden convertida y updated_at.
	Update(ctx context.Context, s *entity.PurchaseSuggestion) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseSuggestion, error)
	GetForUpdate(ctx context.Context, id string) (*entity.PurchaseSuggestion, error)
	List(ctx context.Context, filter SuggestionFilter) ([]*entity.PurchaseSuggestion, error)
	// ListDrafts devuelve los borradores de un módulo y sitio.
	ListDrafts(ctx context.Context, moduleKey, siteKey string) ([]*entity.PurchaseSuggestion, error)
	// UpsertLine inserta o actualiza la línea (suggestion_id, item_id); conserva qty_final.
	UpsertLine(ctx context.Context, line *entity.PurchaseSuggestionLine) error
	// DeleteLinesExcept borra las líneas cuyo artículo no está en keepItemIDs.
	DeleteLinesExcept(ctx context.Context, suggestionID string, keepItemIDs []string) error
	UpdateLineQtyFinal(ctx context.Context, lineID string, qtyFinal int) error
	Delete(ctx context.Context, id string) error
}
