package nominatim

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vendordesk/internal/domain"
)

func newTestClient(url string) *Client {
	return New(url, "vendordesk-test/1.0", time.Second, 1000, nil)
}

func TestReverse_MapsAddressAndSendsUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("lat") != "19.076" || q.Get("lon") != "72.8777" || q.Get("format") != "json" || q.Get("addressdetails") != "1" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") != "vendordesk-test/1.0" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		_, _ = io.WriteString(w, `{"address":{"postcode":"400001","state":"Maharashtra","state_district":"Mumbai City","city":"Mumbai","country":"India"}}`)
	}))
	defer srv.Close()

	addr, err := newTestClient(srv.URL).Reverse(context.Background(), 19.0760, 72.8777)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.Address{Pincode: "400001", State: "Maharashtra", District: "Mumbai City", Country: "India"}
	if addr.Pincode != want.Pincode || addr.State != want.State || addr.District != want.District || addr.Country != want.Country {
		t.Fatalf("unexpected address %+v", addr)
	}
	if addr.Latitude != nil || addr.Longitude != nil {
		t.Fatalf("expected coordinates to be left unset, got %+v", addr)
	}
}

func TestReverse_ErrorBodyIsLookupFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":"Unable to geocode"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Reverse(context.Background(), 0, 0)
	if !errors.Is(err, domain.ErrGeocodeLookupFailed) {
		t.Fatalf("expected lookup failure, got %v", err)
	}
}

func TestSearchPostalCode_RestrictsCountryAndFallsBackToCounty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/search" || q.Get("postalcode") != "560001" || q.Get("countrycodes") != "in" {
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `[{"address":{"postcode":"560001","state":"Karnataka","county":"Bengaluru Urban","country":"India"}}]`)
	}))
	defer srv.Close()

	addrs, err := newTestClient(srv.URL).SearchPostalCode(context.Background(), "560001", "IN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addrs) != 1 || addrs[0].District != "Bengaluru Urban" || addrs[0].State != "Karnataka" {
		t.Fatalf("unexpected addresses %+v", addrs)
	}
}

func TestSearchPostalCode_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	addrs, err := newTestClient(srv.URL).SearchPostalCode(context.Background(), "999999", "in")
	if err != nil || len(addrs) != 0 {
		t.Fatalf("expected empty result, got %+v err=%v", addrs, err)
	}
}

func TestServerErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).SearchPostalCode(context.Background(), "400001", "in"); err == nil {
		t.Fatalf("expected error on 503")
	}
}
