package patient

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/internal/platform/fhir"
	"github.com/jupyterhealth/exchange/internal/platform/httperr"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

// Handler serves the admin patient API and the FHIR Patient search.
type Handler struct {
	svc *Service
}

// NewHandler creates the patient handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts admin patient routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.List)
	api.GET("/patients/:id", h.Get)
	api.POST("/patients", h.Create, auth.RequireRole(auth.RolePractitioner))
}

// RegisterFHIRRoutes mounts the FHIR R5 Patient search.
func (h *Handler) RegisterFHIRRoutes(api *echo.Group) {
	api.GET("/Patient", h.Search)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	caller := auth.FromContext(c.Request().Context())
	p, err := h.svc.Create(c.Request().Context(), caller, &in)
	if err != nil {
		return httperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	caller := auth.FromContext(c.Request().Context())
	p, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return httperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	caller := auth.FromContext(c.Request().Context())
	page, err := pagination.Paginate(c.Request().Context(), h.svc.List(caller), pagination.Admin.FromContext(c))
	if err != nil {
		return httperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewEnvelope(page, pagination.RequestURL(c), page.Items))
}

// Search serves GET /fhir/r5/Patient as a paginated searchset Bundle.
func (h *Handler) Search(c echo.Context) error {
	caller := auth.FromContext(c.Request().Context())
	page, err := pagination.Paginate(c.Request().Context(), h.svc.List(caller), pagination.FHIR.FromContext(c))
	if err != nil {
		return httperr.RenderOutcome(c, err)
	}
	resources := make([]any, 0, len(page.Items))
	for _, p := range page.Items {
		resources = append(resources, p.ToFHIR())
	}
	bundle := fhir.NewSearchBundle(page, page.Links(pagination.RequestURL(c)), resources)
	return c.JSON(http.StatusOK, bundle)
}
