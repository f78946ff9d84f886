package order

import (
	"math"

	"github.com/madhubanicraft/commerce-backend/internal/modules/catalog"
	"github.com/madhubanicraft/commerce-backend/internal/modules/inventory"
)

// Business pricing rules. All arithmetic stays in major currency units;
// conversion to the gateway's integer minor unit happens only at the gateway
// boundary.
const (
	TaxRate               = 0.10
	FreeShippingThreshold = 100.0
	ShippingCost          = 10.0

	// amountTolerance absorbs client-side floating point drift when
	// cross-checking the declared total.
	amountTolerance = 0.01
)

// Totals is the server-side recomputation of an order's money fields.
// Total = Subtotal + Tax + Shipping holds exactly.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

// ValidateItems checks the structural invariants of a cart: every item needs
// a product id and a positive quantity.
func ValidateItems(items []ItemRequest) error {
	if len(items) == 0 {
		return ValidationError("order must contain at least one item")
	}
	for _, item := range items {
		if item.ID == "" || item.Quantity <= 0 {
			return ValidationError("invalid item structure: each item must have id and positive quantity")
		}
	}
	return nil
}

// CheckStock returns one issue per item whose requested quantity exceeds the
// available stock. A non-empty result blocks order creation; shortages are
// reported, never retried or substituted.
func CheckStock(items []ItemRequest, prices map[string]catalog.PriceInfo) []inventory.StockIssue {
	var issues []inventory.StockIssue
	for _, item := range items {
		info := prices[item.ID]
		if info.Stock < item.Quantity {
			issues = append(issues, inventory.StockIssue{
				ProductID:   item.ID,
				ProductName: info.Name,
				Requested:   item.Quantity,
				Available:   info.Stock,
			})
		}
	}
	return issues
}

// ComputeTotals prices the cart from authoritative catalog prices: 10% tax on
// the subtotal, flat shipping waived at the free-shipping threshold.
func ComputeTotals(items []ItemRequest, prices map[string]catalog.PriceInfo) Totals {
	var subtotal float64
	for _, item := range items {
		subtotal += prices[item.ID].Price * float64(item.Quantity)
	}
	subtotal = round2(subtotal)

	tax := round2(subtotal * TaxRate)
	shipping := ShippingCost
	if subtotal >= FreeShippingThreshold {
		shipping = 0
	}
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    round2(subtotal + tax + shipping),
	}
}

// CheckAmount compares the client-declared total against the computed one.
func CheckAmount(declared float64, totals Totals) error {
	if math.Abs(declared-totals.Total) > amountTolerance {
		return &AmountMismatchError{Declared: declared, Calculated: totals.Total}
	}
	return nil
}

// toMinorUnits converts a major-unit amount to the gateway's integer minor
// unit (rupees to paise).
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
