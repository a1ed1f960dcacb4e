package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Abastecimiento-api/internal/application/dto"
	"github.com/jhoicas/Abastecimiento-api/internal/application/inventory"
	"github.com/jhoicas/Abastecimiento-api/internal/application/purchasing"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
)

// InventoryHandler maneja artículos y el libro de movimientos (protegido).
type InventoryHandler struct {
	uc    *inventory.LedgerUseCase
	perms purchasing.ModulePermissions
	errs  errorWriter
	retry retrier
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(uc *inventory.LedgerUseCase, perms purchasing.ModulePermissions, errs errorWriter, retry retrier) *InventoryHandler {
	return &InventoryHandler{uc: uc, perms: perms, errs: errs, retry: retry}
}

// CreateItem godoc
// @Summary      Crear artículo
// @Description  La cantidad inicial no genera movimiento; el faltante se evalúa en la misma transacción.
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateItemRequest  true  "Datos del artículo"
// @Success      201   {object}  dto.ItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/items [post]
func (h *InventoryHandler) CreateItem(c *fiber.Ctx) error {
	var in dto.CreateItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if ok, err := canEditModule(c, h.perms, in.ModuleKey); !ok {
		return err
	}
	var out *dto.ItemResponse
	err := h.retry.do(c, func() error {
		var err error
		out, err = h.uc.CreateItem(c.UserContext(), in, GetUserID(c))
		return err
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetItem godoc
// @Summary      Obtener artículo
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del artículo"
// @Success      200  {object}  dto.ItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id} [get]
func (h *InventoryHandler) GetItem(c *fiber.Ctx) error {
	out, err := h.uc.GetItem(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// ListItems godoc
// @Summary      Listar artículos
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        module_key  query  string  false  "Módulo"
// @Param        search      query  string  false  "Texto en nombre o SKU"
// @Param        limit       query  int     false  "Límite"  default(20)
// @Param        offset      query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.ItemListResponse
// @Router       /api/items [get]
func (h *InventoryHandler) ListItems(c *fiber.Ctx) error {
	in := dto.ListItemsRequest{
		Search:      c.Query("search"),
		ModuleKey:   c.Query("module_key"),
		PageRequest: pageFrom(c),
	}
	out, err := h.uc.ListItems(c.UserContext(), in)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// UpdateItem godoc
// @Summary      Actualizar artículo
// @Description  Patch parcial; la cantidad solo cambia con movimientos.
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del artículo"
// @Param        body  body  dto.UpdateItemRequest  true  "Campos a modificar"
// @Success      200   {object}  dto.ItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/items/{id} [patch]
func (h *InventoryHandler) UpdateItem(c *fiber.Ctx) error {
	var in dto.UpdateItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	id := c.Params("id")
	if ok, err := h.authorizeItem(c, id); !ok {
		return err
	}
	if in.ModuleKey != nil {
		if ok, err := canEditModule(c, h.perms, *in.ModuleKey); !ok {
			return err
		}
	}
	patch := entity.ItemPatch{
		Name:              in.Name,
		SKU:               in.SKU,
		ModuleKey:         in.ModuleKey,
		Size:              in.Size,
		LowStockThreshold: in.LowStockThreshold,
		TrackLowStock:     in.TrackLowStock,
		SupplierID:        in.SupplierID,
		ClearSupplier:     in.ClearSupplier,
	}
	var out *dto.ItemResponse
	err := h.retry.do(c, func() error {
		var err error
		out, err = h.uc.UpdateItem(c.UserContext(), id, patch, GetUserID(c))
		return err
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// RecordMovement godoc
// @Summary      Registrar movimiento de existencias
// @Description  Aplica delta (positivo entrada, negativo salida) y evalúa la reposición automática.
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del artículo"
// @Param        body  body  dto.RecordMovementRequest  true  "delta y reason"
// @Success      201   {object}  dto.ItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/items/{id}/movements [post]
func (h *InventoryHandler) RecordMovement(c *fiber.Ctx) error {
	var in dto.RecordMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	id := c.Params("id")
	if ok, err := h.authorizeItem(c, id); !ok {
		return err
	}
	var out *dto.ItemResponse
	err := h.retry.do(c, func() error {
		var err error
		out, err = h.uc.RecordMovement(c.UserContext(), id, in, GetUserID(c))
		return err
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListMovements godoc
// @Summary      Libro de movimientos de un artículo
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del artículo"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {array}   dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	out, err := h.uc.ListMovements(c.UserContext(), c.Params("id"), pageFrom(c))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// authorizeItem exige can_edit sobre el módulo actual del artículo.
func (h *InventoryHandler) authorizeItem(c *fiber.Ctx, id string) (bool, error) {
	var item *dto.ItemResponse
	err := h.retry.do(c, func() error {
		var err error
		item, err = h.uc.GetItem(c.UserContext(), id)
		return err
	})
	if err != nil {
		return false, h.errs.write(c, err)
	}
	return canEditModule(c, h.perms, item.ModuleKey)
}

func pageFrom(c *fiber.Ctx) dto.PageRequest {
	p := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	if p.Limit > 100 {
		p.Limit = 100
	}
	p.DefaultPage()
	return p
}
