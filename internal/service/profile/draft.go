package profile

import (
	"strconv"
	"strings"

	"vendordesk/internal/domain"
)

// DefaultCountry fills the draft when the vendor record has no country.
const DefaultCountry = "India"

// Draft is the editable form copy of a vendor profile. Every field holds raw form input.
type Draft struct {
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone"`
	ShopName      string       `json:"shopName"`
	ShopImage     string       `json:"shopImage"`
	BusinessType  string       `json:"businessType"`
	GSTNo         string       `json:"gstNo"`
	DeliveryRange string       `json:"deliveryRange"`
	Address       DraftAddress `json:"address"`
}

// DraftAddress is the editable address block.
type DraftAddress struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Pincode   string `json:"pincode"`
	State     string `json:"state"`
	District  string `json:"district"`
	Country   string `json:"country"`
}

func draftFromVendor(v domain.Vendor) Draft {
	country := v.Address.Country
	if country == "" {
		country = DefaultCountry
	}
	return Draft{
		Name:          v.Name,
		Email:         v.Email,
		Phone:         v.Phone,
		ShopName:      v.ShopName,
		ShopImage:     v.ShopImage,
		BusinessType:  v.BusinessType,
		GSTNo:         v.GSTNo,
		DeliveryRange: formatOptional(v.DeliveryRange),
		Address: DraftAddress{
			Latitude:  formatOptional(v.Address.Latitude),
			Longitude: formatOptional(v.Address.Longitude),
			Pincode:   v.Address.Pincode,
			State:     v.Address.State,
			District:  v.Address.District,
			Country:   country,
		},
	}
}

// field returns a pointer to the draft field addressed by path, or nil for unknown paths.
// shopImage is not addressable; it changes only through an image upload.
func (d *Draft) field(path string) *string {
	if rest, ok := strings.CutPrefix(path, "address."); ok {
		switch rest {
		case "latitude":
			return &d.Address.Latitude
		case "longitude":
			return &d.Address.Longitude
		case "pincode":
			return &d.Address.Pincode
		case "state":
			return &d.Address.State
		case "district":
			return &d.Address.District
		case "country":
			return &d.Address.Country
		}
		return nil
	}
	switch path {
	case "name":
		return &d.Name
	case "email":
		return &d.Email
	case "phone":
		return &d.Phone
	case "shopName":
		return &d.ShopName
	case "businessType":
		return &d.BusinessType
	case "gstNo":
		return &d.GSTNo
	case "deliveryRange":
		return &d.DeliveryRange
	}
	return nil
}

// requiredFields are checked, in order, before a save reaches the network.
var requiredFields = []string{"name", "email", "shopName", "address.latitude", "address.longitude", "address.pincode"}

// toUpdate validates the draft and converts it to the submission payload.
func (d Draft) toUpdate() (domain.ProfileUpdate, *domain.ValidationError) {
	var missing []string
	for _, path := range requiredFields {
		if strings.TrimSpace(*d.field(path)) == "" {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return domain.ProfileUpdate{}, domain.NewValidationError("", missing...)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(d.Address.Latitude), 64)
	if err != nil {
		return domain.ProfileUpdate{}, domain.NewValidationError("latitude must be a number", "address.latitude")
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(d.Address.Longitude), 64)
	if err != nil {
		return domain.ProfileUpdate{}, domain.NewValidationError("longitude must be a number", "address.longitude")
	}

	var deliveryRange *float64
	if raw := strings.TrimSpace(d.DeliveryRange); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.ProfileUpdate{}, domain.NewValidationError("delivery range must be a number", "deliveryRange")
		}
		deliveryRange = &v
	}

	return domain.ProfileUpdate{
		Name:          strings.TrimSpace(d.Name),
		Email:         strings.TrimSpace(d.Email),
		Phone:         strings.TrimSpace(d.Phone),
		ShopName:      strings.TrimSpace(d.ShopName),
		BusinessType:  d.BusinessType,
		GSTNo:         strings.TrimSpace(d.GSTNo),
		DeliveryRange: deliveryRange,
		Address: domain.Address{
			Latitude:  &lat,
			Longitude: &lon,
			Pincode:   strings.TrimSpace(d.Address.Pincode),
			State:     d.Address.State,
			District:  d.Address.District,
			Country:   d.Address.Country,
		},
	}, nil
}

func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
