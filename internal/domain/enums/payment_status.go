package enums

// PaymentStatus is the terminal state of a ledger record.
type PaymentStatus string

const (
	PaymentPaid   PaymentStatus = "paid"
	PaymentFailed PaymentStatus = "failed"
)
