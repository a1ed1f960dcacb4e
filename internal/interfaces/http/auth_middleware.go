package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Abastecimiento-api/internal/application/dto"
	"github.com/jhoicas/Abastecimiento-api/internal/application/purchasing"
	"github.com/jhoicas/Abastecimiento-api/pkg/jwt"
	"github.com/jhoicas/Abastecimiento-api/pkg/logger"
)

// Locals keys para los claims del token en Fiber.
const (
	LocalUserID  = "user_id"
	LocalRole    = "role"
	LocalSiteKey = "site_key"
	LocalIsAdmin = "is_admin"
)

// AuthMiddleware valida el Bearer Token JWT y deja UserID, Role y SiteKey en c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalRole, strings.ToLower(claims.Role))
		c.Locals(LocalSiteKey, claims.SiteKey)
		c.Locals(LocalIsAdmin, claims.IsAdmin())
		return c.Next()
	}
}

// RequireRole deja pasar a los roles indicados y a cualquier token administrador.
// Va después de AuthMiddleware; un rechazo se registra con usuario, rol y ruta.
func RequireRole(log *logger.Logger, roles ...string) fiber.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no incluye rol"})
		}
		if admin, _ := c.Locals(LocalIsAdmin).(bool); admin {
			return c.Next()
		}
		for _, r := range roles {
			if strings.EqualFold(r, role) {
				return c.Next()
			}
		}
		log.Warn().Str("user_id", GetUserID(c)).Str("role", role).Str("path", c.Path()).Msg("rol sin acceso")
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "rol sin acceso a este recurso"})
	}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalUserID).(string)
	return s
}

// GetRole devuelve el rol del token.
func GetRole(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalRole).(string)
	return s
}

// GetSiteKey devuelve el sitio del token (puede ser vacío).
func GetSiteKey(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalSiteKey).(string)
	return s
}

// ActorFrom construye el actor de los casos de uso a partir de los claims.
func ActorFrom(c *fiber.Ctx) purchasing.Actor {
	admin, _ := c.Locals(LocalIsAdmin).(bool)
	return purchasing.Actor{ID: GetUserID(c), Role: GetRole(c), IsAdmin: admin}
}
