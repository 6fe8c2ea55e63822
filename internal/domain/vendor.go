package domain

// Address is the vendor's shop location.
type Address struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Pincode   string   `json:"pincode,omitempty"`
	State     string   `json:"state,omitempty"`
	District  string   `json:"district,omitempty"`
	Country   string   `json:"country,omitempty"`
}

// Vendor is the canonical remote vendor record.
type Vendor struct {
	ID            string   `json:"_id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone,omitempty"`
	ShopName      string   `json:"shopName"`
	ShopImage     string   `json:"shopImage,omitempty"`
	BusinessType  string   `json:"businessType,omitempty"`
	GSTNo         string   `json:"gstNo,omitempty"`
	DeliveryRange *float64 `json:"deliveryRange,omitempty"`
	IsOnline      bool     `json:"isOnline"`
	Address       Address  `json:"address"`
}

// Clone returns a deep copy so callers never share pointer fields with the canonical record.
func (v Vendor) Clone() Vendor {
	out := v
	out.DeliveryRange = cloneFloat(v.DeliveryRange)
	out.Address.Latitude = cloneFloat(v.Address.Latitude)
	out.Address.Longitude = cloneFloat(v.Address.Longitude)
	return out
}

// ProfileUpdate is the payload submitted on save.
type ProfileUpdate struct {
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	ShopName      string   `json:"shopName"`
	BusinessType  string   `json:"businessType"`
	GSTNo         string   `json:"gstNo"`
	DeliveryRange *float64 `json:"deliveryRange,omitempty"`
	Address       Address  `json:"address"`
}

// Upload is a file staged for a multipart request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
