package rules

// Provider-side fee deduction can shave up to 10% off the nominal price,
// and users occasionally overpay; both are accepted.
const (
	amountLowerPercent = 90
	amountUpperPercent = 110
)

// AmountWithinTolerance reports whether a received amount (kopecks) falls
// inside the accepted band around the expected product price. Bounds are
// inclusive.
func AmountWithinTolerance(receivedKopecks, expectedKopecks int) bool {
	if expectedKopecks <= 0 {
		return false
	}
	min := expectedKopecks * amountLowerPercent / 100
	max := expectedKopecks * amountUpperPercent / 100
	return receivedKopecks >= min && receivedKopecks <= max
}
