package study

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/internal/platform/httperr"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

// Handler serves the admin study API.
type Handler struct {
	svc *Service
}

// NewHandler creates the study handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts study routes on the admin API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/studies", h.List)
	api.GET("/studies/:id", h.Get)
	api.GET("/studies/:id/scope-requests", h.ScopeRequests)
	practitioner := api.Group("", auth.RequireRole(auth.RolePractitioner))
	practitioner.POST("/studies", h.Create)
	practitioner.POST("/studies/:id/scope-requests", h.RequestScope)
	practitioner.POST("/studies/:id/patients", h.Enroll)
}

func (h *Handler) Create(c echo.Context) error {
	var st Study
	if err := c.Bind(&st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	caller := auth.FromContext(c.Request().Context())
	if err := h.svc.Create(c.Request().Context(), caller, &st); err != nil {
		return httperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	caller := auth.FromContext(c.Request().Context())
	st, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return httperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) List(c echo.Context) error {
	caller := auth.FromContext(c.Request().Context())
	page, err := pagination.Paginate(c.Request().Context(), h.svc.List(caller), pagination.Admin.FromContext(c))
	if err != nil {
		return httperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewEnvelope(page, pagination.RequestURL(c), page.Items))
}

func (h *Handler) ScopeRequests(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	caller := auth.FromContext(c.Request().Context())
	reqs, err := h.svc.ScopeRequests(c.Request().Context(), caller, id)
	if err != nil {
		return httperr.ToHTTP(err)
	}
	if reqs == nil {
		reqs = []*ScopeRequest{}
	}
	return c.JSON(http.StatusOK, reqs)
}

type scopeRequestBody struct {
	CodingSystem string `json:"coding_system"`
	CodingCode   string `json:"coding_code"`
}

func (h *Handler) RequestScope(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body scopeRequestBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	caller := auth.FromContext(c.Request().Context())
	sr, err := h.svc.RequestScope(c.Request().Context(), caller, id, body.CodingSystem, body.CodingCode)
	if err != nil {
		return httperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, sr)
}

type enrollBody struct {
	PatientID int64 `json:"patient_id"`
	Consent   bool  `json:"consent"`
}

func (h *Handler) Enroll(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body enrollBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	caller := auth.FromContext(c.Request().Context())
	sp, err := h.svc.Enroll(c.Request().Context(), caller, id, body.PatientID, body.Consent)
	if err != nil {
		return httperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, sp)
}
