package orders

import (
	"strings"

	"vendordesk/internal/domain"

	"github.com/shopspring/decimal"
)

// Statistics are derived from the cached orders and never persisted.
// Revenue only counts the vendor's own line items; GrossRevenue counts every item of every order.
// Both money fields encode as JSON decimal strings such as "250".
type Statistics struct {
	Total        int             `json:"total"`
	Pending      int             `json:"pending"`
	Revenue      decimal.Decimal `json:"revenue"`
	GrossRevenue decimal.Decimal `json:"grossRevenue"`
}

// Compute derives statistics for vendorID over orders.
func Compute(orders []domain.Order, vendorID string) Statistics {
	st := Statistics{Total: len(orders), Revenue: decimal.Zero, GrossRevenue: decimal.Zero}
	for _, o := range orders {
		if o.Status.Actionable() {
			st.Pending++
		}
		st.Revenue = st.Revenue.Add(VendorTotal(o, vendorID))
		st.GrossRevenue = st.GrossRevenue.Add(GrossTotal(o))
	}
	return st
}

// VendorTotal sums quantity*price over the items of o that belong to vendorID.
func VendorTotal(o domain.Order, vendorID string) decimal.Decimal {
	total := decimal.Zero
	if vendorID == "" {
		return total
	}
	for _, it := range o.Items {
		if it.VendorID == vendorID {
			total = total.Add(lineTotal(it))
		}
	}
	return total
}

// GrossTotal sums quantity*price over every item of o.
func GrossTotal(o domain.Order) decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(lineTotal(it))
	}
	return total
}

func lineTotal(it domain.OrderItem) decimal.Decimal {
	return decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// FilterOrders keeps orders whose status equals status ("" or "all" keeps every status)
// and whose id or customer name contains query, case-insensitively.
func FilterOrders(orders []domain.Order, status, query string) []domain.Order {
	status = strings.ToLower(strings.TrimSpace(status))
	anyStatus := status == "" || status == "all"
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if !anyStatus && string(o.Status) != status {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(o.ID), q) &&
			!strings.Contains(strings.ToLower(o.Customer.Name), q) {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	return out
}
