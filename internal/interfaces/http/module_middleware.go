package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Abastecimiento-api/internal/application/dto"
	"github.com/jhoicas/Abastecimiento-api/internal/application/purchasing"
)

// RequireModuleQuery exige can_view sobre el módulo indicado en ?module_key= cuando viene informado.
// Debe usarse DESPUÉS de AuthMiddleware (necesita LocalRole).
func RequireModuleQuery(perms purchasing.ModulePermissions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		moduleKey := c.Query("module_key")
		if moduleKey == "" || perms.CanView(GetRole(c), moduleKey) {
			return c.Next()
		}
		return moduleForbidden(c, moduleKey)
	}
}

// canEditModule responde 403 y devuelve false si el rol no puede modificar el módulo.
func canEditModule(c *fiber.Ctx, perms purchasing.ModulePermissions, moduleKey string) (bool, error) {
	if perms.CanEdit(GetRole(c), moduleKey) {
		return true, nil
	}
	return false, moduleForbidden(c, moduleKey)
}

func moduleForbidden(c *fiber.Ctx, moduleKey string) error {
	return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
		Code:    "MODULE_FORBIDDEN",
		Message: "el rol no tiene acceso al módulo '" + moduleKey + "'",
	})
}
