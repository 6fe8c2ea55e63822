package httpserver

import (
	"net/http"

	"vendordesk/internal/directions"
	"vendordesk/internal/domain"
	"vendordesk/internal/service/orders"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type orderView struct {
	domain.Order
	VendorTotal decimal.Decimal `json:"vendorTotal"`
}

type ordersPayload struct {
	Orders       []orderView       `json:"orders"`
	Statistics   orders.Statistics `json:"statistics"`
	FetchStatus  orders.OpStatus   `json:"fetchStatus"`
	UpdateStatus orders.OpStatus   `json:"updateStatus"`
	Error        string            `json:"error,omitempty"`
}

func newOrdersPayload(store *orders.Store, status, query string) ordersPayload {
	st := store.State()
	filtered := orders.FilterOrders(st.Orders, status, query)
	views := make([]orderView, 0, len(filtered))
	for _, o := range filtered {
		views = append(views, orderView{Order: o, VendorTotal: orders.VendorTotal(o, st.VendorID)})
	}
	return ordersPayload{
		Orders:       views,
		Statistics:   orders.Compute(st.Orders, st.VendorID),
		FetchStatus:  st.FetchStatus,
		UpdateStatus: st.UpdateStatus,
		Error:        st.Error,
	}
}

// listOrders returns the cached orders through the status and search filters.
// Statistics always cover the whole cached list.
func (h *handlers) listOrders(c *gin.Context) {
	sess := sessionFrom(c)
	c.JSON(http.StatusOK, newOrdersPayload(sess.Orders, c.Query("status"), c.Query("q")))
}

func (h *handlers) refreshOrders(c *gin.Context) {
	sess := sessionFrom(c)
	if err := sess.Orders.Fetch(c.Request.Context(), sess.Profile.VendorID()); err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":  newErrorResponse(err).Error,
			"orders": newOrdersPayload(sess.Orders, "", ""),
		})
		return
	}
	c.JSON(http.StatusOK, newOrdersPayload(sess.Orders, "", ""))
}

type updateStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Confirm bool   `json:"confirm"`
}

type updateStatusResponse struct {
	Order *orderView `json:"order,omitempty"`
	Error string     `json:"error,omitempty"`
}

// updateOrderStatus applies a status change the user has already confirmed in the UI.
// Without confirm the change is declined and the unchanged order is echoed back.
func (h *handlers) updateOrderStatus(c *gin.Context) {
	sess := sessionFrom(c)
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("status required", "status"))
		return
	}

	vendorID := sess.Orders.State().VendorID
	order, err := sess.Orders.UpdateStatus(c.Request.Context(), c.Param("orderId"), req.Status, orders.Answer(req.Confirm))
	var resp updateStatusResponse
	if order != nil {
		resp.Order = &orderView{Order: *order, VendorTotal: orders.VendorTotal(*order, vendorID)}
	}
	if err != nil {
		resp.Error = newErrorResponse(err).Error
		c.JSON(statusFor(err), resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) clearOrderError(c *gin.Context) {
	sessionFrom(c).Orders.ClearError()
	c.Status(http.StatusNoContent)
}

// orderDirections links the vendor's shop to the order's delivery address.
func (h *handlers) orderDirections(c *gin.Context) {
	sess := sessionFrom(c)
	vendor, ok := sess.Profile.Vendor()
	if !ok {
		writeError(c, domain.ErrNotLoaded)
		return
	}
	order, ok := sess.Orders.Order(c.Param("orderId"))
	if !ok {
		writeError(c, domain.ErrNotFound)
		return
	}
	url, err := directions.URL(h.deps.MapsBaseURL, directions.FromVendor(vendor), directions.FromDelivery(order.DeliveryAddress))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
