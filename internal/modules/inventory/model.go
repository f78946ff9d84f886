package inventory

import (
	"fmt"
	"strings"
)

// Line is one product/quantity pair in a reservation batch.
type Line struct {
	ProductID string `json:"id"`
	Quantity  int    `json:"quantity"`
}

// StockIssue describes one product whose available stock cannot cover the
// requested quantity.
type StockIssue struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName,omitempty"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// StockConflictError aborts a reservation batch. No partial decrement is ever
// applied when it is returned.
type StockConflictError struct {
	Issues []StockIssue
}

func (e *StockConflictError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", i.ProductID, i.Requested, i.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}
