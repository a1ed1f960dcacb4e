package repository

// Set agrupa los repositorios atados a una misma transacción.
type Set struct {
	Items           ItemRepository
	Movements       MovementRepository
	Suppliers       SupplierRepository
	EmployeeItems   EmployeeItemRepository
	Orders          PurchaseOrderRepository
	Receipts        ReceiptRepository
	Nonconformities NonconformityRepository
	Pending         PendingAssignmentRepository
	Suggestions     SuggestionRepository
	Audit           AuditRepository
}
