// Package directions builds map links between a vendor and a customer.
package directions

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"vendordesk/internal/domain"
)

// ErrNoLocation is returned when a place has neither coordinates nor address text.
var ErrNoLocation = errors.New("place has no coordinates or address")

// Place is one end of a route.
type Place struct {
	Latitude  *float64
	Longitude *float64
	Parts     []string
}

// String renders coordinates when both are present, else the non-empty address parts.
func (p Place) String() string {
	if p.Latitude != nil && p.Longitude != nil {
		return strconv.FormatFloat(*p.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(*p.Longitude, 'f', -1, 64)
	}
	var parts []string
	for _, s := range p.Parts {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// FromVendor builds the route origin from a vendor's shop address.
func FromVendor(v domain.Vendor) Place {
	return Place{
		Latitude:  v.Address.Latitude,
		Longitude: v.Address.Longitude,
		Parts:     []string{v.ShopName, v.Address.District, v.Address.State, v.Address.Pincode, v.Address.Country},
	}
}

// FromDelivery builds the route destination from an order's delivery address.
func FromDelivery(a domain.DeliveryAddress) Place {
	return Place{
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
		Parts:     []string{a.Street, a.City, a.State, a.Pincode},
	}
}

// URL returns {base}/dir/{origin}/{destination}.
func URL(base string, origin, destination Place) (string, error) {
	o, d := origin.String(), destination.String()
	if o == "" || d == "" {
		return "", ErrNoLocation
	}
	return strings.TrimRight(base, "/") + "/dir/" + segment(o) + "/" + segment(d), nil
}

// segment path-escapes s but keeps commas, which are valid sub-delimiters inside a segment.
func segment(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), "%2C", ",")
}
