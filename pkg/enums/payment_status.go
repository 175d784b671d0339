package enums

// PaymentStatus is the provider-reported status of a PIX charge. Only
// approved and pending are meaningful to the checkout flow; anything else is
// treated as not authorized.
type PaymentStatus string

const (
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusPending  PaymentStatus = "pending"
)

// String implements fmt.Stringer.
func (s PaymentStatus) String() string {
	return string(s)
}
