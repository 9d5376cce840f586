package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusOpen      = "OPEN"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"
)

const (
	WriteOffReasonSpoilage  = "SPOILAGE"
	WriteOffReasonUsage     = "USAGE"
	WriteOffReasonInventory = "INVENTORY"
	WriteOffReasonOther     = "OTHER"
)

// ── Group B: Roles (CHECK constrained in DB) ──

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleWaiter  = "WAITER"
)

// ── Group C: Configurable labels (CHECK constrained in DB) ──

const (
	PaymentTypeCash  = "CASH"
	PaymentTypeCard  = "CARD"
	PaymentTypeQR    = "QR"
	PaymentTypeOther = "OTHER"
)
