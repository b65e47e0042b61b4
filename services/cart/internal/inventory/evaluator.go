// Package inventory decides whether a cart quantity change is allowed for
// a given product and requester. It performs no I/O.
package inventory

type Reason string

const (
	ReasonNone        Reason = ""
	ReasonNotVerified Reason = "NOT_VERIFIED"
	ReasonVIPOnly     Reason = "VIP_ONLY"
	ReasonMaxExceeded Reason = "MAX_EXCEEDED"
	ReasonOutOfStock  Reason = "OUT_OF_STOCK"
)

type Limits struct {
	Stock       int
	VIPOnly     bool
	MaxPurchase *int
}

type Requester struct {
	Verified bool
	VIP      bool
}

type Decision struct {
	Allowed     bool
	NewQuantity int
	Reason      Reason
	// Limit is the bound that was hit: max purchase for MAX_EXCEEDED,
	// stock for OUT_OF_STOCK.
	Limit int
}

// Evaluate checks existing+delta against the product's rules. The first
// failing rule wins: verification, VIP, max purchase, then stock.
func Evaluate(p Limits, r Requester, delta, existing int) Decision {
	if !r.Verified {
		return Decision{Reason: ReasonNotVerified}
	}
	if p.VIPOnly && !r.VIP {
		return Decision{Reason: ReasonVIPOnly}
	}

	candidate := existing + delta

	if p.MaxPurchase != nil && candidate > *p.MaxPurchase {
		return Decision{Reason: ReasonMaxExceeded, Limit: *p.MaxPurchase}
	}
	if candidate > p.Stock {
		return Decision{Reason: ReasonOutOfStock, Limit: p.Stock}
	}

	return Decision{Allowed: true, NewQuantity: candidate}
}

// Ceiling is the largest quantity a single cart line may hold.
func Ceiling(p Limits) int {
	ceiling := p.Stock
	if p.MaxPurchase != nil && *p.MaxPurchase < ceiling {
		ceiling = *p.MaxPurchase
	}
	if ceiling < 0 {
		return 0
	}
	return ceiling
}

// MaxAdditional is the largest delta Evaluate would allow on top of
// existing. Zero when the requester may not buy the product at all.
func MaxAdditional(p Limits, r Requester, existing int) int {
	if !r.Verified || (p.VIPOnly && !r.VIP) {
		return 0
	}
	n := Ceiling(p) - existing
	if n < 0 {
		return 0
	}
	return n
}
