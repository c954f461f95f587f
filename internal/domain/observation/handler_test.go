package observation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
)

func doRequest(t *testing.T, svc *Service, method, target, body string, caller *auth.Principal) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := NewHandler(svc)
	api := e.Group("/api/v1")
	fhirR5 := e.Group("/fhir/r5")
	h.RegisterRoutes(api)
	h.RegisterFHIRRoutes(fhirR5)

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req = req.WithContext(auth.WithPrincipal(req.Context(), caller))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestSearchReturnsSearchsetBundle(t *testing.T) {
	svc, _ := fixtureService()
	caller := &auth.Principal{UserID: practitionerUID, Role: auth.RolePractitioner}

	rec := doRequest(t, svc, http.MethodGet,
		"/fhir/r5/Observation?_has:Group:member:_id=1&_count=2", "", caller)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	bundle := decode(t, rec)
	if bundle["resourceType"] != "Bundle" || bundle["type"] != "searchset" {
		t.Errorf("bundle envelope = %v %v", bundle["resourceType"], bundle["type"])
	}
	if bundle["total"] != float64(5) {
		t.Errorf("total = %v, want 5", bundle["total"])
	}
	entries := bundle["entry"].([]any)
	if len(entries) != 2 {
		t.Errorf("entry count = %d, want 2 (page size)", len(entries))
	}

	resource := entries[0].(map[string]any)["resource"].(map[string]any)
	if resource["resourceType"] != "Observation" {
		t.Errorf("entry resourceType = %v", resource["resourceType"])
	}
	if _, ok := resource["valueAttachment"]; !ok {
		t.Error("entry missing valueAttachment")
	}

	meta := bundle["meta"].(map[string]any)["pagination"].(map[string]any)
	if meta["totalPages"] != float64(3) {
		t.Errorf("totalPages = %v, want 3", meta["totalPages"])
	}

	links := bundle["link"].([]any)
	if len(links) != 1 {
		t.Fatalf("links = %v, want next only on page 1", links)
	}
	link := links[0].(map[string]any)
	if link["relation"] != "next" || !strings.Contains(link["url"].(string), "_page=2") {
		t.Errorf("link = %v", link)
	}
}

func TestSearchAcceptsLowercaseGroupSpelling(t *testing.T) {
	svc, _ := fixtureService()
	caller := &auth.Principal{UserID: practitionerUID, Role: auth.RolePractitioner}

	rec := doRequest(t, svc, http.MethodGet,
		"/fhir/r5/Observation?_has:_group:member:_id=2", "", caller)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if total := decode(t, rec)["total"]; total != float64(3) {
		t.Errorf("total = %v, want 3", total)
	}
}

func TestSearchEmptyBundleHasOnePage(t *testing.T) {
	svc, _ := fixtureService()
	caller := &auth.Principal{UserID: practitionerUID, Role: auth.RolePractitioner}

	// Enrolled patient filter on the heart-rate study narrowed to a code
	// with no rows for that study.
	rec := doRequest(t, svc, http.MethodGet,
		"/fhir/r5/Observation?_has:Group:member:_id=1&code=https://w3id.org/openmhealth%7Comh:blood-pressure:4.0", "", caller)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	bundle := decode(t, rec)
	if bundle["total"] != float64(0) {
		t.Errorf("total = %v, want 0", bundle["total"])
	}
	entries, ok := bundle["entry"].([]any)
	if !ok || len(entries) != 0 {
		t.Errorf("entry = %v, want empty array, not null", bundle["entry"])
	}
	meta := bundle["meta"].(map[string]any)["pagination"].(map[string]any)
	if meta["totalPages"] != float64(1) {
		t.Errorf("empty bundle totalPages = %v, want 1", meta["totalPages"])
	}
}

func TestSearchWithoutFiltersIsOperationOutcome(t *testing.T) {
	svc, _ := fixtureService()
	caller := &auth.Principal{UserID: practitionerUID, Role: auth.RolePractitioner}

	rec := doRequest(t, svc, http.MethodGet, "/fhir/r5/Observation", "", caller)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	outcome := decode(t, rec)
	if outcome["resourceType"] != "OperationOutcome" {
		t.Errorf("error body = %v, want OperationOutcome", outcome)
	}
}

func TestSearchUnauthorizedStudyIs403Outcome(t *testing.T) {
	svc, _ := fixtureService()
	caller := &auth.Principal{UserID: practitionerUID, Role: auth.RolePractitioner}

	rec := doRequest(t, svc, http.MethodGet,
		"/fhir/r5/Observation?_has:Group:member:_id=99", "", caller)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if decode(t, rec)["resourceType"] != "OperationOutcome" {
		t.Errorf("error body is not an OperationOutcome: %s", rec.Body.String())
	}
}

func TestSearchPageOutOfRangeIs404(t *testing.T) {
	svc, _ := fixtureService()
	caller := &auth.Principal{UserID: practitionerUID, Role: auth.RolePractitioner}

	rec := doRequest(t, svc, http.MethodGet,
		"/fhir/r5/Observation?_has:Group:member:_id=1&_page=12", "", caller)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAdminListEnvelope(t *testing.T) {
	svc, _ := fixtureService()
	caller := &auth.Principal{UserID: practitionerUID, Role: auth.RolePractitioner}

	rec := doRequest(t, svc, http.MethodGet, "/api/v1/observations?page_size=3", "", caller)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	env := decode(t, rec)
	if env["count"] != float64(8) {
		t.Errorf("count = %v, want 8", env["count"])
	}
	if env["next"] == nil {
		t.Error("next link missing on first of three pages")
	}
	if env["previous"] != nil {
		t.Errorf("previous = %v on page 1, want null", env["previous"])
	}
	if results := env["results"].([]any); len(results) != 3 {
		t.Errorf("results len = %d, want 3", len(results))
	}
}

func TestCreateObservationEndpoint(t *testing.T) {
	svc, _ := fixtureService()
	caller := &auth.Principal{UserID: patientOneUID, Role: auth.RolePatient}

	body := `{
		"resourceType": "Observation",
		"status": "final",
		"code": {"coding": [{"system": "https://w3id.org/openmhealth", "code": "omh:heart-rate:2.0"}]},
		"subject": {"reference": "Patient/100"},
		"valueAttachment": {"contentType": "application/json", "data": "eyJib2R5Ijp7InZhbHVlIjo2MX19"}
	}`
	rec := doRequest(t, svc, http.MethodPost, "/fhir/r5/Observation", body, caller)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	resource := decode(t, rec)
	if resource["resourceType"] != "Observation" {
		t.Errorf("resourceType = %v", resource["resourceType"])
	}
	if resource["subject"].(map[string]any)["reference"] != "Patient/100" {
		t.Errorf("subject = %v", resource["subject"])
	}
}

func TestCreateObservationWrongResourceType(t *testing.T) {
	svc, _ := fixtureService()
	caller := &auth.Principal{UserID: patientOneUID, Role: auth.RolePatient}

	rec := doRequest(t, svc, http.MethodPost, "/fhir/r5/Observation",
		`{"resourceType": "Patient"}`, caller)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
