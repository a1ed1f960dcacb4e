package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Abastecimiento-api/internal/application/inventory"
	"github.com/jhoicas/Abastecimiento-api/internal/application/purchasing"
	"github.com/jhoicas/Abastecimiento-api/pkg/logger"
)

// AuditReaderRoles pueden leer la bitácora de una orden, además de los administradores.
var AuditReaderRoles = []string{"compras"}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger         *inventory.LedgerUseCase
	Orders         *purchasing.PurchaseOrderUseCase
	Receiving      *purchasing.ReceivingUseCase
	Suggestions    *purchasing.SuggestionUseCase
	Permissions    purchasing.ModulePermissions
	JWTSecret      string
	DefaultSiteKey string
	RetryDelay     time.Duration
	Log            *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	errs := errorWriter{log: log.Component("http")}
	retry := retrier{delay: deps.RetryDelay}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Artículos y libro de movimientos
	items := api.Group("/items")
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.Permissions, errs, retry)
	items.Post("/", inventoryHandler.CreateItem)
	items.Get("/", RequireModuleQuery(deps.Permissions), inventoryHandler.ListItems)
	items.Get("/:id", inventoryHandler.GetItem)
	items.Patch("/:id", inventoryHandler.UpdateItem)
	items.Post("/:id/movements", inventoryHandler.RecordMovement)
	items.Get("/:id/movements", inventoryHandler.ListMovements)

	// Órdenes de compra
	orders := api.Group("/purchase-orders")
	orderHandler := NewPurchaseOrderHandler(deps.Orders, deps.Receiving, errs, retry)
	orders.Post("/", orderHandler.Create)
	orders.Get("/", orderHandler.List)
	orders.Get("/:id", orderHandler.Get)
	orders.Patch("/:id", orderHandler.Update)
	orders.Delete("/:id", orderHandler.Delete)
	orders.Post("/:id/archive", orderHandler.Archive)
	orders.Post("/:id/unarchive", orderHandler.Unarchive)
	orders.Post("/:id/receive", orderHandler.Receive)
	orders.Post("/:id/request-replacement", orderHandler.RequestReplacement)
	orders.Post("/:id/pending-assignments/:pid/validate", orderHandler.ValidatePending)
	orders.Post("/:id/notifications", orderHandler.RecordNotification)
	orders.Get("/:id/audit", RequireRole(log.Component("auth"), AuditReaderRoles...), orderHandler.ListAudit)

	// Sugerencias de compra
	suggestions := api.Group("/purchasing/suggestions")
	suggestionHandler := NewSuggestionHandler(deps.Suggestions, deps.DefaultSiteKey, errs, retry)
	suggestions.Get("/", suggestionHandler.List)
	suggestions.Post("/refresh", suggestionHandler.Refresh)
	suggestions.Patch("/:id", suggestionHandler.UpdateLines)
	suggestions.Post("/:id/convert", suggestionHandler.Convert)
}
