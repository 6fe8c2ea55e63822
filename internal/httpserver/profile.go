package httpserver

import (
	"errors"
	"io"
	"maps"
	"net/http"
	"slices"

	"vendordesk/internal/domain"
	"vendordesk/internal/geolocation"
	"vendordesk/internal/preview"
	"vendordesk/internal/service/profile"
	"vendordesk/internal/session"

	"github.com/gin-gonic/gin"
)

const previewPath = "/api/v1/profile/image/preview"

type profileView struct {
	profile.View
	PreviewURL string `json:"previewUrl,omitempty"`
}

func newProfileView(v profile.View) profileView {
	out := profileView{View: v}
	if v.PreviewID != "" {
		out.PreviewURL = previewPath + "?id=" + v.PreviewID
	}
	return out
}

type profileErrorResponse struct {
	errorResponse
	Profile profileView `json:"profile"`
}

// writeProfileError reports err along with the current view, so the form can show
// field errors and keep whatever partial progress was made.
func writeProfileError(c *gin.Context, sess *session.Session, err error) {
	c.JSON(statusFor(err), profileErrorResponse{
		errorResponse: newErrorResponse(err),
		Profile:       newProfileView(sess.Profile.View()),
	})
}

func writeProfile(c *gin.Context, sess *session.Session) {
	c.JSON(http.StatusOK, newProfileView(sess.Profile.View()))
}

func (h *handlers) getProfile(c *gin.Context) {
	writeProfile(c, sessionFrom(c))
}

func (h *handlers) refreshProfile(c *gin.Context) {
	sess := sessionFrom(c)
	if err := sess.Profile.Refresh(c.Request.Context()); err != nil {
		writeProfileError(c, sess, err)
		return
	}
	writeProfile(c, sess)
}

func (h *handlers) editProfile(c *gin.Context) {
	sess := sessionFrom(c)
	if err := sess.Profile.Edit(); err != nil {
		writeProfileError(c, sess, err)
		return
	}
	writeProfile(c, sess)
}

func (h *handlers) cancelEdit(c *gin.Context) {
	sess := sessionFrom(c)
	sess.Profile.Cancel()
	writeProfile(c, sess)
}

type setFieldsRequest struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

func (h *handlers) setFields(c *gin.Context) {
	sess := sessionFrom(c)
	var req setFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("fields required", "fields"))
		return
	}
	for _, path := range slices.Sorted(maps.Keys(req.Fields)) {
		if err := sess.Profile.SetField(path, req.Fields[path]); err != nil {
			writeProfileError(c, sess, err)
			return
		}
	}
	writeProfile(c, sess)
}

type imageResponse struct {
	Preview    preview.Preview `json:"preview"`
	PreviewURL string          `json:"previewUrl"`
}

// selectImage stages the multipart "shopImage" file for the next save.
func (h *handlers) selectImage(c *gin.Context) {
	sess := sessionFrom(c)
	fh, err := c.FormFile("shopImage")
	if err != nil {
		writeError(c, domain.NewValidationError("shop image file required", "shopImage"))
		return
	}
	if fh.Size > h.deps.MaxUploadBytes {
		writeError(c, domain.NewValidationError("shop image is too large", "shopImage"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.deps.MaxUploadBytes+1))
	if err != nil {
		writeError(c, err)
		return
	}
	if int64(len(data)) > h.deps.MaxUploadBytes {
		writeError(c, domain.NewValidationError("shop image is too large", "shopImage"))
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	p, err := sess.Profile.SelectImage(fh.Filename, contentType, data)
	if err != nil {
		writeProfileError(c, sess, err)
		return
	}
	c.JSON(http.StatusCreated, imageResponse{Preview: p, PreviewURL: previewPath + "?id=" + p.ID})
}

// imagePreview serves the thumbnail of the staged image.
func (h *handlers) imagePreview(c *gin.Context) {
	sess := sessionFrom(c)
	id := sess.Profile.PreviewID()
	if want := c.Query("id"); want != "" && want != id {
		writeError(c, domain.ErrNotFound)
		return
	}
	p, ok := h.deps.Previews.Get(id)
	if id == "" || !ok {
		writeError(c, domain.ErrNotFound)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, p.ContentType, p.Data)
}

// locateAddress takes the position the browser reported and fills the address from it.
func (h *handlers) locateAddress(c *gin.Context) {
	sess := sessionFrom(c)
	var reported geolocation.Reported
	if err := c.ShouldBindJSON(&reported); err != nil {
		writeError(c, domain.NewValidationError("invalid position", "latitude", "longitude"))
		return
	}
	if err := sess.Profile.LocateAddress(c.Request.Context(), reported); err != nil {
		writeProfileError(c, sess, err)
		return
	}
	writeProfile(c, sess)
}

type pincodeRequest struct {
	Pincode *string `json:"pincode"`
}

// resolvePincode looks up the draft pincode, optionally setting it first.
func (h *handlers) resolvePincode(c *gin.Context) {
	sess := sessionFrom(c)
	var req pincodeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(c, domain.NewValidationError("invalid pincode payload", "address.pincode"))
			return
		}
	}
	if req.Pincode != nil {
		if err := sess.Profile.SetField("address.pincode", *req.Pincode); err != nil {
			writeProfileError(c, sess, err)
			return
		}
	}
	if err := sess.Profile.ResolvePincode(c.Request.Context()); err != nil {
		writeProfileError(c, sess, err)
		return
	}
	writeProfile(c, sess)
}

func (h *handlers) saveProfile(c *gin.Context) {
	sess := sessionFrom(c)
	if err := sess.Profile.Save(c.Request.Context()); err != nil {
		writeProfileError(c, sess, err)
		return
	}
	writeProfile(c, sess)
}

func (h *handlers) toggleOnline(c *gin.Context) {
	sess := sessionFrom(c)
	online, err := sess.Profile.ToggleOnline(c.Request.Context())
	if err != nil {
		writeProfileError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isOnline": online})
}
