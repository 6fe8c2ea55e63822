package domain

import (
	"strings"
	"time"
)

// OrderStatus is the overall order lifecycle state.
type OrderStatus string

const (
	StatusPlaced     OrderStatus = "placed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every known status in lifecycle order.
var OrderStatuses = []OrderStatus{StatusPlaced, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

// ParseOrderStatus normalizes s and reports whether it is a known status.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range OrderStatuses {
		if st == known {
			return st, true
		}
	}
	return st, false
}

// Actionable reports whether the vendor still has work to do on an order in this status.
func (s OrderStatus) Actionable() bool {
	switch OrderStatus(strings.ToLower(string(s))) {
	case StatusPlaced, StatusProcessing:
		return true
	}
	return false
}

// CustomerRef is the customer as embedded in an order.
type CustomerRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// ProductRef is the product as embedded in a line item.
type ProductRef struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// OrderItem is a single line of an order, possibly belonging to another vendor.
type OrderItem struct {
	Product  ProductRef `json:"product"`
	VendorID string     `json:"vendorId"`
	Quantity int        `json:"quantity"`
	Price    float64    `json:"price"`
}

// DeliveryAddress is where the order ships to.
type DeliveryAddress struct {
	Street    string   `json:"street,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Pincode   string   `json:"pincode,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Order is a backend-owned order as cached for a vendor.
type Order struct {
	ID              string          `json:"_id"`
	Customer        CustomerRef     `json:"customer"`
	Items           []OrderItem     `json:"items"`
	Status          OrderStatus     `json:"status"`
	DeliveryAddress DeliveryAddress `json:"deliveryAddress"`
	DeliveryAgent   *string         `json:"deliveryAgent,omitempty"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt,omitzero"`
}
