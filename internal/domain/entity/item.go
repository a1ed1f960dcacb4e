package entity

import "time"

// Módulos de inventario que pueden generar faltantes y sugerencias de compra.
const (
	ModuleClothing = "clothing"
	ModulePharmacy = "pharmacy"
	ModuleRemise   = "inventory_remise"
	ModuleVehicle  = "vehicle"
)

// KnownModules lista los módulos de inventario soportados por el motor de compras.
var KnownModules = []string{ModuleClothing, ModulePharmacy, ModuleRemise, ModuleVehicle}

// IsKnownModule informa si moduleKey es un módulo soportado.
func IsKnownModule(moduleKey string) bool {
	for _, m := range KnownModules {
		if m == moduleKey {
			return true
		}
	}
	return false
}

// Item representa un artículo del catálogo con su existencia actual.
// Quantity solo cambia a través del libro de movimientos (Movement).
type Item struct {
	ID                string
	Name              string
	SKU               string
	ModuleKey         string
	Size              string // talla o variante (puede ser vacío)
	Quantity          int
	LowStockThreshold int
	TrackLowStock     bool
	SupplierID        *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Shortage devuelve el faltante respecto al umbral (0 si no hay faltante o el seguimiento está desactivado).
func (i *Item) Shortage() int {
	if !i.TrackLowStock || i.LowStockThreshold <= 0 {
		return 0
	}
	if s := i.LowStockThreshold - i.Quantity; s > 0 {
		return s
	}
	return 0
}

// HasSupplier informa si el artículo tiene proveedor asignado.
func (i *Item) HasSupplier() bool {
	return i.SupplierID != nil && *i.SupplierID != ""
}

// ItemPatch es la actualización parcial tipada de un artículo.
// Solo los campos no nil se aplican; la cantidad nunca se modifica por aquí (usar movimientos).
type ItemPatch struct {
	Name              *string
	SKU               *string
	ModuleKey         *string
	Size              *string
	LowStockThreshold *int
	TrackLowStock     *bool
	SupplierID        *string
	ClearSupplier     bool
}

// IsEmpty indica si el patch no contiene cambios.
func (p ItemPatch) IsEmpty() bool {
	return p.Name == nil && p.SKU == nil && p.ModuleKey == nil && p.Size == nil &&
		p.LowStockThreshold == nil && p.TrackLowStock == nil && p.SupplierID == nil && !p.ClearSupplier
}

// AffectsShortage indica si el patch puede cambiar el estado de faltante del artículo.
func (p ItemPatch) AffectsShortage() bool {
	return p.LowStockThreshold != nil || p.TrackLowStock != nil || p.SupplierID != nil || p.ClearSupplier
}

// Apply aplica el patch sobre el artículo campo por campo.
func (p ItemPatch) Apply(item *Item) {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.SKU != nil {
		item.SKU = *p.SKU
	}
	if p.ModuleKey != nil {
		item.ModuleKey = *p.ModuleKey
	}
	if p.Size != nil {
		item.Size = *p.Size
	}
	if p.LowStockThreshold != nil {
		item.LowStockThreshold = *p.LowStockThreshold
	}
	if p.TrackLowStock != nil {
		item.TrackLowStock = *p.TrackLowStock
	}
	if p.ClearSupplier {
		item.SupplierID = nil
	} else if p.SupplierID != nil {
		id := *p.SupplierID
		item.SupplierID = &id
	}
}
