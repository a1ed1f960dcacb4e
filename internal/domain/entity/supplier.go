package entity

import "strings"

// Supplier proveedor de artículos (solo lectura para el motor de compras).
type Supplier struct {
	ID    string
	Name  string
	Email string
}

// Estados de proveedor derivados para las sugerencias de compra.
const (
	SupplierStatusOK      = "ok"
	SupplierStatusMissing = "missing"
	SupplierStatusNoEmail = "no_email"
)

// SupplierStatusOf deriva el estado del proveedor: nil = inexistente, sin e-mail utilizable = no_email.
func SupplierStatusOf(s *Supplier) string {
	if s == nil {
		return SupplierStatusMissing
	}
	if strings.TrimSpace(s.Email) == "" {
		return SupplierStatusNoEmail
	}
	return SupplierStatusOK
}
