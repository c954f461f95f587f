package organization

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/internal/platform/httperr"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

// Handler serves the admin organization API.
type Handler struct {
	svc *Service
}

// NewHandler creates the organization handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts organization routes on the admin API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/organizations", h.List)
	api.GET("/organizations/:id", h.Get)
	api.GET("/organizations/:id/children", h.Children)
	api.POST("/organizations", h.Create, auth.RequireRole(auth.RolePractitioner))
}

func (h *Handler) Create(c echo.Context) error {
	var o Organization
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	caller := auth.FromContext(c.Request().Context())
	if err := h.svc.Create(c.Request().Context(), caller, &o); err != nil {
		return httperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) Children(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	children, err := h.svc.Children(c.Request().Context(), id)
	if err != nil {
		return httperr.ToHTTP(err)
	}
	if children == nil {
		children = []*Organization{}
	}
	return c.JSON(http.StatusOK, children)
}

func (h *Handler) List(c echo.Context) error {
	caller := auth.FromContext(c.Request().Context())
	seq := h.svc.List(caller)
	page, err := pagination.Paginate(c.Request().Context(), seq, pagination.Admin.FromContext(c))
	if err != nil {
		return httperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewEnvelope(page, pagination.RequestURL(c), page.Items))
}
