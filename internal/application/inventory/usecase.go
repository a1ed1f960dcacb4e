package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Abastecimiento-api/internal/application/dto"
	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/repository"
	"github.com/jhoicas/Abastecimiento-api/pkg/logger"
)

// LedgerUseCase registra movimientos de existencias de forma transaccional con bloqueo de fila
// (SELECT FOR UPDATE) y ejecuta el disparador de reposición en la misma transacción.
type LedgerUseCase struct {
	txRunner TxRunner
	trigger  ReplenishmentTrigger
	log      *logger.Logger
}

// NewLedgerUseCase construye el caso de uso. trigger puede ser nil (sin reposición automática).
func NewLedgerUseCase(txRunner TxRunner, trigger ReplenishmentTrigger, log *logger.Logger) *LedgerUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &LedgerUseCase{txRunner: txRunner, trigger: trigger, log: log.Component("ledger")}
}

// RecordMovement aplica delta sobre la existencia del artículo en una sola transacción.
// No rechaza resultados negativos: quien no deba sobre-asignar valida antes.
func (uc *LedgerUseCase) RecordMovement(ctx context.Context, itemID string, in dto.RecordMovementRequest, actor string) (*dto.ItemResponse, error) {
	if in.Delta == 0 || strings.TrimSpace(in.Reason) == "" {
		return nil, fmt.Errorf("delta distinto de cero y reason obligatorios: %w", domain.ErrValidation)
	}
	var out *entity.Item
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		item, err := uc.ApplyMovementInTx(ctx, repos, itemID, in.Delta, strings.TrimSpace(in.Reason), actor)
		if err != nil {
			return err
		}
		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := ToItemResponse(out)
	return &resp, nil
}

// ApplyMovementInTx ejecuta el movimiento con los repositorios de la transacción del llamador
// (motor de recepción, validación de reemplazos). Devuelve el artículo actualizado.
func (uc *LedgerUseCase) ApplyMovementInTx(
	ctx context.Context,
	repos repository.Set,
	itemID string,
	delta int,
	reason, actor string,
) (*entity.Item, error) {
	// Bloquea la fila del artículo para serializar movimientos concurrentes
	item, err := repos.Items.GetForUpdate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
	}
	before := item.Quantity
	item.Quantity = before + delta

	mov := &entity.Movement{
		ID:        uuid.New().String(),
		ItemID:    itemID,
		Delta:     delta,
		Reason:    reason,
		CreatedBy: actor,
		CreatedAt: time.Now(),
	}
	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	if err := repos.Items.UpdateQuantity(ctx, itemID, item.Quantity); err != nil {
		return nil, err
	}
	uc.log.Debug().Str("item_id", itemID).Int("delta", delta).Int("before", before).
		Int("after", item.Quantity).Str("reason", reason).Msg("movimiento registrado")

	if uc.trigger != nil {
		if err := uc.trigger.EvaluateInTx(ctx, repos, itemID, actor); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// CreateItem da de alta un artículo con su existencia inicial (no genera movimiento)
// y evalúa el faltante en la misma transacción.
func (uc *LedgerUseCase) CreateItem(ctx context.Context, in dto.CreateItemRequest, actor string) (*dto.ItemResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("name obligatorio: %w", domain.ErrValidation)
	}
	if !entity.IsKnownModule(in.ModuleKey) {
		return nil, fmt.Errorf("module_key %q desconocido: %w", in.ModuleKey, domain.ErrValidation)
	}
	if in.Quantity < 0 || in.LowStockThreshold < 0 {
		return nil, fmt.Errorf("quantity y low_stock_threshold deben ser >= 0: %w", domain.ErrValidation)
	}
	track := true
	if in.TrackLowStock != nil {
		track = *in.TrackLowStock
	}
	item := &entity.Item{
		ID:                uuid.New().String(),
		Name:              name,
		SKU:               strings.TrimSpace(in.SKU),
		ModuleKey:         in.ModuleKey,
		Size:              strings.TrimSpace(in.Size),
		Quantity:          in.Quantity,
		LowStockThreshold: in.LowStockThreshold,
		TrackLowStock:     track,
		SupplierID:        nonEmpty(in.SupplierID),
	}
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		if err := checkSupplier(ctx, repos, item.SupplierID); err != nil {
			return err
		}
		if err := repos.Items.Create(ctx, item); err != nil {
			return err
		}
		if uc.trigger != nil {
			return uc.trigger.EvaluateInTx(ctx, repos, item.ID, actor)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := ToItemResponse(item)
	return &resp, nil
}

// GetItem obtiene un artículo por ID.
func (uc *LedgerUseCase) GetItem(ctx context.Context, id string) (*dto.ItemResponse, error) {
	var out *entity.Item
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		item, err := repos.Items.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
		}
		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := ToItemResponse(out)
	return &resp, nil
}

// ListItems lista artículos con filtros y paginación.
func (uc *LedgerUseCase) ListItems(ctx context.Context, in dto.ListItemsRequest) (*dto.ItemListResponse, error) {
	in.DefaultPage()
	var rows []*entity.Item
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		var err error
		rows, err = repos.Items.List(ctx, repository.ItemFilter{
			Search:    in.Search,
			ModuleKey: in.ModuleKey,
			Limit:     in.Limit,
			Offset:    in.Offset,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	out := &dto.ItemListResponse{
		Items: make([]dto.ItemResponse, 0, len(rows)),
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset},
	}
	for _, it := range rows {
		out.Items = append(out.Items, ToItemResponse(it))
	}
	return out, nil
}

// ListMovements lista el libro de un artículo en orden de inserción.
func (uc *LedgerUseCase) ListMovements(ctx context.Context, itemID string, page dto.PageRequest) ([]dto.MovementResponse, error) {
	page.DefaultPage()
	var rows []*entity.Movement
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		item, err := repos.Items.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
		}
		rows, err = repos.Movements.ListByItem(ctx, itemID, page.Limit, page.Offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovementResponse, 0, len(rows))
	for _, m := range rows {
		out = append(out, dto.MovementResponse{
			ID:        m.ID,
			ItemID:    m.ItemID,
			Delta:     m.Delta,
			Reason:    m.Reason,
			CreatedBy: m.CreatedBy,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

// UpdateItem aplica un patch tipado. La cantidad no es editable por aquí.
// Un cambio de umbral, seguimiento o proveedor vuelve a evaluar el faltante.
func (uc *LedgerUseCase) UpdateItem(ctx context.Context, id string, patch entity.ItemPatch, actor string) (*dto.ItemResponse, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("patch vacío: %w", domain.ErrValidation)
	}
	if patch.SupplierID != nil && nonEmpty(patch.SupplierID) == nil {
		patch.SupplierID = nil
		patch.ClearSupplier = true
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("name no puede ser vacío: %w", domain.ErrValidation)
	}
	if patch.ModuleKey != nil && !entity.IsKnownModule(*patch.ModuleKey) {
		return nil, fmt.Errorf("module_key %q desconocido: %w", *patch.ModuleKey, domain.ErrValidation)
	}
	if patch.LowStockThreshold != nil && *patch.LowStockThreshold < 0 {
		return nil, fmt.Errorf("low_stock_threshold debe ser >= 0: %w", domain.ErrValidation)
	}
	var out *entity.Item
	err := uc.txRunner.Run(ctx, func(repos repository.Set) error {
		item, err := repos.Items.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
		}
		if !patch.ClearSupplier {
			if err := checkSupplier(ctx, repos, nonEmpty(patch.SupplierID)); err != nil {
				return err
			}
		}
		patch.Apply(item)
		if err := repos.Items.Update(ctx, item); err != nil {
			return err
		}
		if uc.trigger != nil && patch.AffectsShortage() {
			if err := uc.trigger.EvaluateInTx(ctx, repos, id, actor); err != nil {
				return err
			}
		}
		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := ToItemResponse(out)
	return &resp, nil
}

// ToItemResponse mapea la entidad al snapshot público.
func ToItemResponse(it *entity.Item) dto.ItemResponse {
	return dto.ItemResponse{
		ID:                it.ID,
		Name:              it.Name,
		SKU:               it.SKU,
		ModuleKey:         it.ModuleKey,
		Size:              it.Size,
		Quantity:          it.Quantity,
		LowStockThreshold: it.LowStockThreshold,
		TrackLowStock:     it.TrackLowStock,
		SupplierID:        it.SupplierID,
		Shortage:          it.Shortage(),
		CreatedAt:         it.CreatedAt,
		UpdatedAt:         it.UpdatedAt,
	}
}

func checkSupplier(ctx context.Context, repos repository.Set, supplierID *string) error {
	if supplierID == nil {
		return nil
	}
	s, err := repos.Suppliers.GetByID(ctx, *supplierID)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("supplier %s no existe: %w", *supplierID, domain.ErrValidation)
	}
	return nil
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
