package entity

import "time"

// EmployeeItem (dotación) es la asignación de una cantidad de un artículo a un colaborador.
type EmployeeItem struct {
	ID         string
	EmployeeID string
	ItemID     string
	Quantity   int
	Notes      string
	CreatedAt  time.Time
}
