package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"vendordesk/internal/domain"
	"vendordesk/internal/preview"
	"vendordesk/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionHeader carries the dashboard session id on every authenticated request.
const SessionHeader = "X-Session-ID"

type ctxKey string

const sessionCtxKey ctxKey = "session"

// Sessions manages dashboard sessions.
type Sessions interface {
	Start(ctx context.Context, vendorToken string) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	End(ctx context.Context, id string) error
	Len() int
}

// PreviewSource serves staged image thumbnails.
type PreviewSource interface {
	Get(id string) (preview.Preview, bool)
	Len() int
}

// Deps are the collaborators the router needs.
type Deps struct {
	Sessions    Sessions
	Previews    PreviewSource
	MapsBaseURL string
	CORSOrigins []string
	// MaxUploadBytes bounds shop image uploads; zero means 5 MiB.
	MaxUploadBytes int64
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.Sessions == nil {
		return nil, errors.New("httpserver: sessions are required")
	}
	if deps.Previews == nil {
		return nil, errors.New("httpserver: preview source is required")
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 5 << 20
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowHeaders:     []string{"Origin", "Content-Type", SessionHeader},
			ExposeHeaders:    []string{SessionHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler(deps.Sessions, deps.Previews))
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger}
	v1 := router.Group("/api/v1")
	v1.POST("/sessions", h.startSession)

	authed := v1.Group("")
	authed.Use(sessionMiddleware(deps.Sessions))
	authed.DELETE("/sessions", h.endSession)

	authed.GET("/profile", h.getProfile)
	authed.POST("/profile/refresh", h.refreshProfile)
	authed.POST("/profile/edit", h.editProfile)
	authed.POST("/profile/cancel", h.cancelEdit)
	authed.PATCH("/profile/fields", h.setFields)
	authed.POST("/profile/image", h.selectImage)
	authed.GET("/profile/image/preview", h.imagePreview)
	authed.POST("/profile/locate", h.locateAddress)
	authed.POST("/profile/pincode", h.resolvePincode)
	authed.POST("/profile/save", h.saveProfile)
	authed.POST("/profile/online", h.toggleOnline)

	authed.GET("/orders", h.listOrders)
	authed.POST("/orders/refresh", h.refreshOrders)
	authed.PUT("/orders/:orderId/status", h.updateOrderStatus)
	authed.DELETE("/orders/error", h.clearOrderError)
	authed.GET("/orders/:orderId/directions", h.orderDirections)

	return router, nil
}

// sessionMiddleware resolves the session named by the X-Session-ID header.
func sessionMiddleware(sessions Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			abortWithError(c, domain.ErrUnauthenticated)
			return
		}
		sess, err := sessions.Get(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		ctx := context.WithValue(c.Request.Context(), sessionCtxKey, sess)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *session.Session {
	sess, _ := c.Request.Context().Value(sessionCtxKey).(*session.Session)
	return sess
}
