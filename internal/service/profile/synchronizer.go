// Package profile keeps an editable draft of the vendor profile in step with the vendor record.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"vendordesk/internal/domain"
	"vendordesk/internal/geocode"
	"vendordesk/internal/geolocation"
	"vendordesk/internal/preview"
)

const (
	noticeGeocodeFailed = "Location captured, but the address could not be auto-filled. Please fill it in or try again."
	noticePincodeFailed = "Could not look up this pincode. Please try again."
	noticeSaveFailed    = "Failed to update profile"
	noticeStatusFailed  = "Failed to update online status"
	noticeReloadFailed  = "Profile saved, but reloading it failed. Refresh to see the latest version."
)

var pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// API is the slice of the vendor API the synchronizer needs.
type API interface {
	Profile(ctx context.Context, token string) (*domain.Vendor, error)
	UpdateProfile(ctx context.Context, token string, in domain.ProfileUpdate, image *domain.Upload) (*domain.Vendor, error)
	SetOnline(ctx context.Context, token string, online bool) (*domain.Vendor, error)
}

// TokenSource yields the vendor bearer token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Previews creates and releases local image previews.
type Previews interface {
	Create(data []byte) (preview.Preview, error)
	Release(id string) bool
}

// Options tune the address resolution flows.
type Options struct {
	GeolocationTimeout time.Duration
	CountryCode        string
}

// View is a snapshot of the synchronizer for rendering.
type View struct {
	Vendor      *domain.Vendor    `json:"vendor,omitempty"`
	Draft       Draft             `json:"draft"`
	Editing     bool              `json:"editing"`
	PreviewID   string            `json:"previewId,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Notice      string            `json:"notice,omitempty"`
}

type stagedImage struct {
	upload    domain.Upload
	previewID string
}

// Synchronizer owns one session's profile draft.
type Synchronizer struct {
	api      API
	tokens   TokenSource
	geocoder geocode.Provider
	previews Previews
	logger   *log.Logger
	opts     Options

	mu          sync.Mutex
	canonical   *domain.Vendor
	draft       Draft
	editing     bool
	staged      *stagedImage
	fieldErrors map[string]string
	notice      string
	// generation changes whenever the draft is rebuilt from the canonical record.
	generation uint64
	refreshSeq uint64
}

func New(api API, tokens TokenSource, geocoder geocode.Provider, previews Previews, opts Options, logger *log.Logger) *Synchronizer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.GeolocationTimeout <= 0 {
		opts.GeolocationTimeout = geolocation.DefaultTimeout
	}
	if opts.CountryCode == "" {
		opts.CountryCode = "in"
	}
	return &Synchronizer{
		api:      api,
		tokens:   tokens,
		geocoder: geocoder,
		previews: previews,
		logger:   logger,
		opts:     opts,
	}
}

// Load replaces the canonical record and rebuilds the draft from it, leaving edit mode.
func (s *Synchronizer) Load(v domain.Vendor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(v)
}

func (s *Synchronizer) loadLocked(v domain.Vendor) {
	c := v.Clone()
	s.canonical = &c
	s.draft = draftFromVendor(c)
	s.editing = false
	s.releaseStagedLocked()
	s.fieldErrors = nil
	s.notice = ""
	s.generation++
}

// Refresh fetches the vendor record and loads it. Only the latest started refresh applies.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.refreshSeq++
	seq := s.refreshSeq
	s.mu.Unlock()

	v, err := s.api.Profile(ctx, token)
	if err != nil {
		s.logger.Printf("profile: refresh error=%v", err)
		return fmt.Errorf("fetch profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.refreshSeq {
		return domain.ErrSuperseded
	}
	s.loadLocked(*v)
	s.logger.Printf("profile: refresh vendor_id=%s", v.ID)
	return nil
}

// Edit enters edit mode.
func (s *Synchronizer) Edit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canonical == nil {
		return domain.ErrNotLoaded
	}
	s.editing = true
	return nil
}

// Cancel discards the draft, rebuilding it from the canonical record.
func (s *Synchronizer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canonical != nil {
		s.loadLocked(*s.canonical)
		return
	}
	s.editing = false
	s.releaseStagedLocked()
	s.generation++
}

// Reset forgets the vendor entirely, as on logout.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canonical = nil
	s.draft = Draft{}
	s.editing = false
	s.releaseStagedLocked()
	s.fieldErrors = nil
	s.notice = ""
	s.generation++
}

// SetField updates one draft field addressed by a flat or address.-prefixed path.
func (s *Synchronizer) SetField(path, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ptr := s.draft.field(path)
	if ptr == nil {
		return domain.NewValidationError(fmt.Sprintf("unknown field %q", path), path)
	}
	*ptr = value
	s.fieldErrors = nil
	s.notice = ""
	return nil
}

// SelectImage stages an image for the next save and returns its local preview.
func (s *Synchronizer) SelectImage(filename, contentType string, data []byte) (preview.Preview, error) {
	p, err := s.previews.Create(data)
	if err != nil {
		return preview.Preview{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseStagedLocked()
	s.staged = &stagedImage{
		upload: domain.Upload{
			Filename:    filename,
			ContentType: contentType,
			Data:        data,
		},
		previewID: p.ID,
	}
	return p, nil
}

// LocateAddress stores the device coordinates, then fills the rest of the address by reverse geocoding.
// A failed lookup keeps the coordinates and returns an error wrapping domain.ErrGeocodeLookupFailed.
func (s *Synchronizer) LocateAddress(ctx context.Context, locator geolocation.Locator) error {
	s.mu.Lock()
	gen := s.generation
	s.notice = ""
	s.mu.Unlock()

	pos, err := geolocation.Locate(ctx, locator, s.opts.GeolocationTimeout)
	if err != nil {
		var geoErr *domain.GeolocationError
		if errors.As(err, &geoErr) {
			s.setNotice(gen, geoErr.Error())
		}
		return err
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return domain.ErrSuperseded
	}
	s.draft.Address.Latitude = formatFloat(pos.Latitude)
	s.draft.Address.Longitude = formatFloat(pos.Longitude)
	s.mu.Unlock()

	addr, err := s.geocoder.Reverse(ctx, pos.Latitude, pos.Longitude)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return domain.ErrSuperseded
	}
	if err != nil {
		s.notice = noticeGeocodeFailed
		s.logger.Printf("profile: reverse geocode lat=%f lon=%f error=%v", pos.Latitude, pos.Longitude, err)
		return fmt.Errorf("%w: %w", domain.ErrGeocodeLookupFailed, err)
	}
	fillIfSet(&s.draft.Address.Pincode, addr.Pincode)
	fillIfSet(&s.draft.Address.State, addr.State)
	fillIfSet(&s.draft.Address.District, addr.District)
	fillIfSet(&s.draft.Address.Country, addr.Country)
	return nil
}

// ResolvePincode runs when the pincode field loses focus. It fills state, district and
// country from a postal code lookup; coordinates are left untouched.
func (s *Synchronizer) ResolvePincode(ctx context.Context) error {
	s.mu.Lock()
	gen := s.generation
	code := strings.TrimSpace(s.draft.Address.Pincode)
	if !pincodePattern.MatchString(code) {
		s.fieldErrors = map[string]string{"address.pincode": "Pincode must be exactly 6 digits"}
		s.mu.Unlock()
		return domain.NewValidationError("pincode must be exactly 6 digits", "address.pincode")
	}
	s.notice = ""
	s.mu.Unlock()

	addrs, err := s.geocoder.SearchPostalCode(ctx, code, s.opts.CountryCode)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || strings.TrimSpace(s.draft.Address.Pincode) != code {
		return domain.ErrSuperseded
	}
	if err != nil {
		s.notice = noticePincodeFailed
		s.logger.Printf("profile: postal lookup pincode=%s error=%v", code, err)
		return fmt.Errorf("%w: %w", domain.ErrGeocodeLookupFailed, err)
	}
	if len(addrs) == 0 {
		s.notice = domain.ErrNoAddressFound.Error()
		return domain.ErrNoAddressFound
	}
	first := addrs[0]
	fillIfSet(&s.draft.Address.State, first.State)
	fillIfSet(&s.draft.Address.District, first.District)
	fillIfSet(&s.draft.Address.Country, first.Country)
	return nil
}

// Save validates the draft locally, submits it with any staged image, and reloads the record.
// On failure the draft and edit mode are left as they were.
func (s *Synchronizer) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.canonical == nil {
		s.mu.Unlock()
		return domain.ErrNotLoaded
	}
	update, verr := s.draft.toUpdate()
	if verr != nil {
		s.fieldErrors = make(map[string]string, len(verr.Fields))
		msg := verr.Message
		if msg == "" {
			msg = "required"
		}
		for _, f := range verr.Fields {
			s.fieldErrors[f] = msg
		}
		s.notice = verr.Error()
		s.mu.Unlock()
		return verr
	}
	var image *domain.Upload
	stagedID := ""
	if s.staged != nil {
		up := s.staged.upload
		image = &up
		stagedID = s.staged.previewID
	}
	gen := s.generation
	s.mu.Unlock()

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return err
	}

	if _, err := s.api.UpdateProfile(ctx, token, update, image); err != nil {
		s.setNotice(gen, domain.UserMessage(err, noticeSaveFailed))
		s.logger.Printf("profile: save error=%v", err)
		return fmt.Errorf("%w: %w", domain.ErrRemoteMutationFailed, err)
	}

	s.mu.Lock()
	s.editing = false
	if s.staged != nil && s.staged.previewID == stagedID {
		s.releaseStagedLocked()
	}
	s.mu.Unlock()

	if err := s.Refresh(ctx); err != nil && !errors.Is(err, domain.ErrSuperseded) {
		s.mu.Lock()
		s.notice = noticeReloadFailed
		s.mu.Unlock()
		s.logger.Printf("profile: reload after save error=%v", err)
	}
	return nil
}

// ToggleOnline flips the vendor's online flag once the server confirms it.
// The draft and edit mode are not affected.
func (s *Synchronizer) ToggleOnline(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.canonical == nil {
		s.mu.Unlock()
		return false, domain.ErrNotLoaded
	}
	want := !s.canonical.IsOnline
	vendorID := s.canonical.ID
	s.mu.Unlock()

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return !want, err
	}

	v, err := s.api.SetOnline(ctx, token, want)
	if err != nil {
		s.mu.Lock()
		s.notice = domain.UserMessage(err, noticeStatusFailed)
		s.mu.Unlock()
		return !want, fmt.Errorf("%w: %w", domain.ErrRemoteMutationFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canonical == nil || s.canonical.ID != vendorID {
		return v.IsOnline, domain.ErrSuperseded
	}
	s.canonical.IsOnline = v.IsOnline
	return v.IsOnline, nil
}

// View returns a copy of the current state.
func (s *Synchronizer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := View{
		Draft:   s.draft,
		Editing: s.editing,
		Notice:  s.notice,
	}
	if s.canonical != nil {
		c := s.canonical.Clone()
		out.Vendor = &c
	}
	if s.staged != nil {
		out.PreviewID = s.staged.previewID
	}
	if len(s.fieldErrors) > 0 {
		out.FieldErrors = make(map[string]string, len(s.fieldErrors))
		for k, v := range s.fieldErrors {
			out.FieldErrors[k] = v
		}
	}
	return out
}

// Vendor returns a copy of the canonical record.
func (s *Synchronizer) Vendor() (domain.Vendor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canonical == nil {
		return domain.Vendor{}, false
	}
	return s.canonical.Clone(), true
}

// VendorID returns the canonical vendor id, or "" before the first load.
func (s *Synchronizer) VendorID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canonical == nil {
		return ""
	}
	return s.canonical.ID
}

// PreviewID returns the id of the staged image preview, if any.
func (s *Synchronizer) PreviewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged == nil {
		return ""
	}
	return s.staged.previewID
}

func (s *Synchronizer) setNotice(gen uint64, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation {
		s.notice = msg
	}
}

// releaseStagedLocked must be called with mu held.
func (s *Synchronizer) releaseStagedLocked() {
	if s.staged == nil {
		return
	}
	s.previews.Release(s.staged.previewID)
	s.staged = nil
}

func fillIfSet(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
