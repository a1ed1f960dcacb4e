package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Abastecimiento-api/internal/application/dto"
	"github.com/jhoicas/Abastecimiento-api/internal/application/purchasing"
)

// HeaderSiteKey sitio explícito de la petición; tiene prioridad sobre el claim site_key.
const HeaderSiteKey = "X-Site-Key"

// SuggestionHandler maneja las sugerencias de compra por módulo y proveedor (protegido).
type SuggestionHandler struct {
	uc          *purchasing.SuggestionUseCase
	defaultSite string
	errs        errorWriter
	retry       retrier
}

// NewSuggestionHandler construye el handler. defaultSite se usa si ni la cabecera ni el token traen sitio.
func NewSuggestionHandler(uc *purchasing.SuggestionUseCase, defaultSite string, errs errorWriter, retry retrier) *SuggestionHandler {
	return &SuggestionHandler{uc: uc, defaultSite: defaultSite, errs: errs, retry: retry}
}

func (h *SuggestionHandler) siteKey(c *fiber.Ctx, explicit string) string {
	for _, s := range []string{explicit, c.Get(HeaderSiteKey), GetSiteKey(c)} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return h.defaultSite
}

// List godoc
// @Summary      Listar sugerencias de compra
// @Tags         suggestions
// @Security     Bearer
// @Produce      json
// @Param        X-Site-Key  header  string  false  "Sitio"
// @Param        module_key  query   string  false  "Módulo"
// @Param        status      query   string  false  "draft | converted"
// @Success      200  {array}   dto.SuggestionResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/purchasing/suggestions [get]
func (h *SuggestionHandler) List(c *fiber.Ctx) error {
	in := dto.ListSuggestionsRequest{
		SiteKey:   h.siteKey(c, c.Query("site_key")),
		Status:    c.Query("status"),
		ModuleKey: c.Query("module_key"),
	}
	out, err := h.uc.List(c.UserContext(), in, ActorFrom(c))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// Refresh godoc
// @Summary      Recalcular borradores de sugerencia
// @Description  Agrupa los faltantes por módulo y proveedor; conserva qty_final editado.
// @Tags         suggestions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        X-Site-Key  header  string  false  "Sitio"
// @Param        body  body  dto.RefreshSuggestionsRequest  false  "Módulos a refrescar"
// @Success      200   {object}  dto.RefreshSuggestionsResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/purchasing/suggestions/refresh [post]
func (h *SuggestionHandler) Refresh(c *fiber.Ctx) error {
	var in dto.RefreshSuggestionsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	in.SiteKey = h.siteKey(c, in.SiteKey)
	var out *dto.RefreshSuggestionsResponse
	err := h.retry.do(c, func() error {
		var err error
		out, err = h.uc.Refresh(c.UserContext(), in, ActorFrom(c))
		return err
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// UpdateLines godoc
// @Summary      Editar cantidades finales
// @Tags         suggestions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la sugerencia"
// @Param        body  body  dto.UpdateSuggestionRequest  true  "Líneas"
// @Success      200   {object}  dto.SuggestionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/purchasing/suggestions/{id} [patch]
func (h *SuggestionHandler) UpdateLines(c *fiber.Ctx) error {
	var in dto.UpdateSuggestionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	var out *dto.SuggestionResponse
	err := h.retry.do(c, func() error {
		var err error
		out, err = h.uc.UpdateLines(c.UserContext(), c.Params("id"), in.Lines, ActorFrom(c))
		return err
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// Convert godoc
// @Summary      Convertir sugerencia en orden de compra
// @Description  Crea la orden con las cantidades finales; una segunda conversión responde 409.
// @Tags         suggestions
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sugerencia"
// @Success      201  {object}  dto.ConvertSuggestionResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/purchasing/suggestions/{id}/convert [post]
func (h *SuggestionHandler) Convert(c *fiber.Ctx) error {
	var out *dto.ConvertSuggestionResponse
	err := h.retry.do(c, func() error {
		var err error
		out, err = h.uc.Convert(c.UserContext(), c.Params("id"), ActorFrom(c))
		return err
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}
