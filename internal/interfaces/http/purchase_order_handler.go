package http

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Abastecimiento-api/internal/application/dto"
	"github.com/jhoicas/Abastecimiento-api/internal/application/purchasing"
	"github.com/jhoicas/Abastecimiento-api/internal/domain"
	"github.com/jhoicas/Abastecimiento-api/internal/domain/entity"
)

// HeaderIdempotencyKey cabecera opcional de POST /api/purchase-orders.
const HeaderIdempotencyKey = "Idempotency-Key"

// PurchaseOrderHandler maneja el ciclo de vida y la recepción de órdenes de compra (protegido).
type PurchaseOrderHandler struct {
	orders    *purchasing.PurchaseOrderUseCase
	receiving *purchasing.ReceivingUseCase
	errs      errorWriter
	retry     retrier
}

// NewPurchaseOrderHandler construye el handler.
func NewPurchaseOrderHandler(orders *purchasing.PurchaseOrderUseCase, receiving *purchasing.ReceivingUseCase, errs errorWriter, retry retrier) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{orders: orders, receiving: receiving, errs: errs, retry: retry}
}

// Create godoc
// @Summary      Crear orden de compra
// @Description  Con Idempotency-Key (header o body) una repetición devuelve 200 con la orden original.
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "Clave de idempotencia"
// @Param        body  body  dto.CreatePurchaseOrderRequest  true  "Cabecera y líneas"
// @Success      201   {object}  dto.PurchaseOrderResponse
// @Success      200   {object}  dto.PurchaseOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/purchase-orders [post]
func (h *PurchaseOrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreatePurchaseOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if key := strings.TrimSpace(c.Get(HeaderIdempotencyKey)); key != "" {
		in.IdempotencyKey = key
	}
	var out *dto.PurchaseOrderResponse
	err := h.retry.do(c, func() error {
		var err error
		out, err = h.orders.Create(c.UserContext(), in, ActorFrom(c))
		return err
	})
	if errors.Is(err, domain.ErrAlreadyApplied) {
		return c.Status(fiber.StatusOK).JSON(out)
	}
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar órdenes de compra
// @Tags         purchase-orders
// @Security     Bearer
// @Produce      json
// @Param        archived  query  string  false  "active | archived | all"  default(active)
// @Param        status    query  string  false  "Estado"
// @Param        limit     query  int     false  "Límite"  default(20)
// @Param        offset    query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.PurchaseOrderListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders [get]
func (h *PurchaseOrderHandler) List(c *fiber.Ctx) error {
	in := dto.ListPurchaseOrdersRequest{
		Archived:    c.Query("archived"),
		Status:      c.Query("status"),
		PageRequest: pageFrom(c),
	}
	out, err := h.orders.List(c.UserContext(), in)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Obtener orden de compra
// @Description  Incluye líneas, recepciones, no conformidades y asignaciones pendientes.
// @Tags         purchase-orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) Get(c *fiber.Ctx) error {
	out, err := h.orders.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar cabecera de la orden
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la orden"
// @Param        body  body  dto.UpdatePurchaseOrderRequest  true  "Campos a modificar"
// @Success      200   {object}  dto.PurchaseOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id} [patch]
func (h *PurchaseOrderHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdatePurchaseOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	patch := entity.OrderPatch{
		SupplierID:    in.SupplierID,
		ClearSupplier: in.ClearSupplier,
		Note:          in.Note,
	}
	if in.Status != nil {
		st := entity.OrderStatus(strings.ToUpper(strings.TrimSpace(*in.Status)))
		patch.Status = &st
	}
	var out *dto.PurchaseOrderResponse
	err := h.retry.do(c, func() error {
		var err error
		out, err = h.orders.Update(c.UserContext(), c.Params("id"), patch, ActorFrom(c))
		return err
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// Archive godoc
// @Summary      Archivar orden
// @Tags         purchase-orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/archive [post]
func (h *PurchaseOrderHandler) Archive(c *fiber.Ctx) error {
	return h.lifecycle(c, h.orders.Archive)
}

// Unarchive godoc
// @Summary      Desarchivar orden
// @Tags         purchase-orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/unarchive [post]
func (h *PurchaseOrderHandler) Unarchive(c *fiber.Ctx) error {
	return h.lifecycle(c, h.orders.Unarchive)
}

// Delete godoc
// @Summary      Eliminar orden
// @Description  La bitácora se conserva.
// @Tags         purchase-orders
// @Security     Bearer
// @Param        id   path  string  true  "ID de la orden"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id} [delete]
func (h *PurchaseOrderHandler) Delete(c *fiber.Ctx) error {
	err := h.retry.do(c, func() error {
		return h.orders.Delete(c.UserContext(), c.Params("id"), ActorFrom(c))
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Receive godoc
// @Summary      Recibir cantidad en una línea
// @Description  conforme suma existencias; non_conforme abre seguimiento sin tocar existencias.
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la orden"
// @Param        body  body  dto.ReceiveLineRequest  true  "Línea y cantidad"
// @Success      200   {object}  dto.PurchaseOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/receive [post]
func (h *PurchaseOrderHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveLineRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	var out *dto.PurchaseOrderResponse
	err := h.retry.do(c, func() error {
		var err error
		out, err = h.receiving.ReceiveLine(c.UserContext(), c.Params("id"), in, ActorFrom(c))
		return err
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// RequestReplacement godoc
// @Summary      Solicitar reposición de una recepción no conforme
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la orden"
// @Param        body  body  dto.RequestReplacementRequest  true  "Línea y recepción"
// @Success      200   {object}  dto.PurchaseOrderResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/request-replacement [post]
func (h *PurchaseOrderHandler) RequestReplacement(c *fiber.Ctx) error {
	var in dto.RequestReplacementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	var out *dto.PurchaseOrderResponse
	err := h.retry.do(c, func() error {
		var err error
		out, err = h.receiving.RequestReplacement(c.UserContext(), c.Params("id"), in, ActorFrom(c))
		return err
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// ValidatePending godoc
// @Summary      Validar asignación de reemplazo
// @Description  Entrega la dotación nueva al beneficiario y retira la devuelta.
// @Tags         purchase-orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Param        pid  path  string  true  "ID de la asignación pendiente"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/pending-assignments/{pid}/validate [post]
func (h *PurchaseOrderHandler) ValidatePending(c *fiber.Ctx) error {
	var out *dto.PurchaseOrderResponse
	err := h.retry.do(c, func() error {
		var err error
		out, err = h.receiving.ValidatePendingAssignment(c.UserContext(), c.Params("id"), c.Params("pid"), ActorFrom(c))
		return err
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// RecordNotification godoc
// @Summary      Registrar envío al proveedor
// @Description  El envío lo hace un servicio externo; aquí se guarda el resultado en la bitácora.
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la orden"
// @Param        body  body  dto.SupplierNotificationRequest  true  "Resultado del envío"
// @Success      200   {object}  dto.PurchaseOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/notifications [post]
func (h *PurchaseOrderHandler) RecordNotification(c *fiber.Ctx) error {
	var in dto.SupplierNotificationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	var out *dto.PurchaseOrderResponse
	err := h.retry.do(c, func() error {
		var err error
		out, err = h.orders.RecordSupplierNotification(c.UserContext(), c.Params("id"), in, ActorFrom(c))
		return err
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// ListAudit godoc
// @Summary      Bitácora de la orden
// @Tags         purchase-orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {array}  dto.AuditEntryResponse
// @Router       /api/purchase-orders/{id}/audit [get]
func (h *PurchaseOrderHandler) ListAudit(c *fiber.Ctx) error {
	out, err := h.orders.ListAudit(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

type orderAction func(ctx context.Context, id string, actor purchasing.Actor) (*dto.PurchaseOrderResponse, error)

func (h *PurchaseOrderHandler) lifecycle(c *fiber.Ctx, action orderAction) error {
	var out *dto.PurchaseOrderResponse
	err := h.retry.do(c, func() error {
		var err error
		out, err = action(c.UserContext(), c.Params("id"), ActorFrom(c))
		return err
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}
