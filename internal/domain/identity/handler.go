package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
)

// Handler serves the user profile endpoint.
type Handler struct {
	svc *Service
}

// NewHandler creates the identity handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts identity routes on the admin API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/users/profile", h.Profile)
}

// Profile returns the authenticated user's account.
func (h *Handler) Profile(c echo.Context) error {
	p := auth.FromContext(c.Request().Context())
	if p == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	u, err := h.svc.Profile(c.Request().Context(), p.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, u)
}
