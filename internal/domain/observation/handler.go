package observation

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/internal/platform/fhir"
	"github.com/jupyterhealth/exchange/internal/platform/httperr"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

// Handler serves the admin observation API and the FHIR Observation
// endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates the observation handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts admin observation routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/observations", h.List)
	api.GET("/observations/:id", h.Get)
}

// RegisterFHIRRoutes mounts the FHIR R5 Observation endpoints.
func (h *Handler) RegisterFHIRRoutes(api *echo.Group) {
	api.GET("/Observation", h.Search)
	api.POST("/Observation", h.Create)
}

func (h *Handler) List(c echo.Context) error {
	caller := auth.FromContext(c.Request().Context())

	var studyID, patientID int64
	var err error
	if raw := c.QueryParam("study"); raw != "" {
		if studyID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid study id")
		}
	}
	if raw := c.QueryParam("patient"); raw != "" {
		if patientID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
		}
	}

	seq, err := h.svc.AdminList(c.Request().Context(), caller, studyID, patientID)
	if err != nil {
		return httperr.ToHTTP(err)
	}
	page, err := pagination.Paginate(c.Request().Context(), seq, pagination.Admin.FromContext(c))
	if err != nil {
		return httperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewEnvelope(page, pagination.RequestURL(c), page.Items))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	caller := auth.FromContext(c.Request().Context())
	o, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return httperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

// studyParam reads the group-membership reverse-chain parameter. Clients in
// the wild send both the standard spelling and a lowercase variant, so both
// are accepted.
func studyParam(c echo.Context) string {
	if v := c.QueryParam("_has:Group:member:_id"); v != "" {
		return v
	}
	return c.QueryParam("_has:_group:member:_id")
}

// Search serves GET /fhir/r5/Observation. Errors render as
// OperationOutcome resources.
func (h *Handler) Search(c echo.Context) error {
	caller := auth.FromContext(c.Request().Context())

	var p SearchParams
	if raw := studyParam(c); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return httperr.RenderOutcome(c, fmt.Errorf("%w: invalid study reference %q", httperr.ErrInvalid, raw))
		}
		p.StudyID = id
	}
	if raw := c.QueryParam("patient"); raw != "" {
		id, err := strconv.ParseInt(strings.TrimPrefix(raw, "Patient/"), 10, 64)
		if err != nil {
			return httperr.RenderOutcome(c, fmt.Errorf("%w: invalid patient reference %q", httperr.ErrInvalid, raw))
		}
		p.PatientID = id
	}
	p.PatientIdentifier = c.QueryParam("patient.identifier")
	p.Code = c.QueryParam("code")

	seq, err := h.svc.FHIRSearch(c.Request().Context(), caller, p)
	if err != nil {
		return httperr.RenderOutcome(c, err)
	}
	page, err := pagination.Paginate(c.Request().Context(), seq, pagination.FHIR.FromContext(c))
	if err != nil {
		return httperr.RenderOutcome(c, err)
	}

	resources := make([]any, 0, len(page.Items))
	for _, o := range page.Items {
		resources = append(resources, o.ToFHIR())
	}
	bundle := fhir.NewSearchBundle(page, page.Links(pagination.RequestURL(c)), resources)
	return c.JSON(http.StatusOK, bundle)
}

// createBody is the accepted subset of a FHIR Observation resource.
type createBody struct {
	ResourceType    string               `json:"resourceType"`
	Status          string               `json:"status"`
	Code            fhir.CodeableConcept `json:"code"`
	Subject         fhir.Reference       `json:"subject"`
	ValueAttachment fhir.Attachment      `json:"valueAttachment"`
}

// Create serves POST /fhir/r5/Observation.
func (h *Handler) Create(c echo.Context) error {
	var body createBody
	if err := c.Bind(&body); err != nil {
		return httperr.RenderOutcome(c, fmt.Errorf("%w: %s", httperr.ErrInvalid, err.Error()))
	}
	if body.ResourceType != "Observation" {
		return httperr.RenderOutcome(c, fmt.Errorf("%w: resourceType must be Observation", httperr.ErrInvalid))
	}
	if len(body.Code.Coding) == 0 {
		return httperr.RenderOutcome(c, fmt.Errorf("%w: code.coding is required", httperr.ErrInvalid))
	}

	subjectID, err := strconv.ParseInt(strings.TrimPrefix(body.Subject.Reference, "Patient/"), 10, 64)
	if err != nil {
		return httperr.RenderOutcome(c, fmt.Errorf("%w: subject must reference a Patient", httperr.ErrInvalid))
	}
	data, err := base64.StdEncoding.DecodeString(body.ValueAttachment.Data)
	if err != nil {
		return httperr.RenderOutcome(c, fmt.Errorf("%w: valueAttachment.data is not valid base64", httperr.ErrInvalid))
	}

	caller := auth.FromContext(c.Request().Context())
	in := CreateInput{
		SubjectPatientID: subjectID,
		CodingSystem:     body.Code.Coding[0].System,
		CodingCode:       body.Code.Coding[0].Code,
		Status:           body.Status,
		Data:             data,
	}
	o, err := h.svc.Create(c.Request().Context(), caller, &in)
	if err != nil {
		return httperr.RenderOutcome(c, err)
	}
	return c.JSON(http.StatusCreated, o.ToFHIR())
}
