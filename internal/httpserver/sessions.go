package httpserver

import (
	"errors"
	"log"
	"net/http"

	"vendordesk/internal/domain"

	"github.com/gin-gonic/gin"
)

type handlers struct {
	deps   Deps
	logger *log.Logger
}

type startSessionRequest struct {
	Token string `json:"token" binding:"required"`
}

type sessionResponse struct {
	SessionID string        `json:"sessionId"`
	Profile   profileView   `json:"profile"`
	Orders    ordersPayload `json:"orders"`
	Warning   string        `json:"warning,omitempty"`
}

// startSession stores the vendor token and loads the dashboard.
func (h *handlers) startSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("token required", "token"))
		return
	}
	ctx := c.Request.Context()
	sess, err := h.deps.Sessions.Start(ctx, req.Token)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := sessionResponse{SessionID: sess.ID}
	if err := sess.Bootstrap(ctx); err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			if endErr := h.deps.Sessions.End(ctx, sess.ID); endErr != nil {
				h.logger.Printf("session: discard session_id=%s error=%v", sess.ID, endErr)
			}
			writeError(c, err)
			return
		}
		h.logger.Printf("session: bootstrap session_id=%s error=%v", sess.ID, err)
		resp.Warning = domain.UserMessage(err, "Could not load the vendor profile. Please refresh.")
	}
	resp.Profile = newProfileView(sess.Profile.View())
	resp.Orders = newOrdersPayload(sess.Orders, "", "")

	c.Header(SessionHeader, sess.ID)
	c.JSON(http.StatusCreated, resp)
}

// endSession logs out.
func (h *handlers) endSession(c *gin.Context) {
	sess := sessionFrom(c)
	if err := h.deps.Sessions.End(c.Request.Context(), sess.ID); err != nil {
		h.logger.Printf("session: end session_id=%s error=%v", sess.ID, err)
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
