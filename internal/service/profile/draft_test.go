package profile

import "testing"

func TestDraftFromVendor_KeepsCountry(t *testing.T) {
	v := sampleVendor()
	v.Address.Country = "Nepal"
	if got := draftFromVendor(v).Address.Country; got != "Nepal" {
		t.Fatalf("expected Nepal, got %q", got)
	}
}

func TestToUpdate_ParsesNumbers(t *testing.T) {
	d := draftFromVendor(sampleVendor())
	d.Address.Latitude = " 19.076 "
	d.DeliveryRange = "7.5"

	up, verr := d.toUpdate()
	if verr != nil {
		t.Fatalf("unexpected validation error %v", verr)
	}
	if *up.Address.Latitude != 19.076 || *up.Address.Longitude != 73.8567 {
		t.Fatalf("unexpected coordinates %v,%v", *up.Address.Latitude, *up.Address.Longitude)
	}
	if up.DeliveryRange == nil || *up.DeliveryRange != 7.5 {
		t.Fatalf("unexpected delivery range %v", up.DeliveryRange)
	}
	if up.Address.Country != DefaultCountry {
		t.Fatalf("expected default country, got %q", up.Address.Country)
	}
}

func TestToUpdate_ReportsAllMissingFields(t *testing.T) {
	_, verr := Draft{}.toUpdate()
	if verr == nil {
		t.Fatalf("expected validation error")
	}
	if len(verr.Fields) != len(requiredFields) {
		t.Fatalf("expected %d fields, got %v", len(requiredFields), verr.Fields)
	}
	want := "please fill in the required fields: name, email, shopName, address.latitude, address.longitude, address.pincode"
	if verr.Error() != want {
		t.Fatalf("unexpected message %q", verr.Error())
	}
}

func TestToUpdate_BadDeliveryRange(t *testing.T) {
	d := draftFromVendor(sampleVendor())
	d.DeliveryRange = "five"
	_, verr := d.toUpdate()
	if verr == nil || len(verr.Fields) != 1 || verr.Fields[0] != "deliveryRange" {
		t.Fatalf("unexpected result %v", verr)
	}
}

func TestField_Paths(t *testing.T) {
	var d Draft
	for _, path := range append([]string{"phone", "businessType", "gstNo", "deliveryRange", "address.state", "address.district", "address.country"}, requiredFields...) {
		if d.field(path) == nil {
			t.Fatalf("expected %s addressable", path)
		}
	}
	if d.field("shopImage") != nil || d.field("address.") != nil {
		t.Fatalf("unexpected addressable path")
	}
}
