package observation

import (
	"strings"
	"testing"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
)

var (
	superuser    = &auth.Principal{UserID: 1, Role: auth.RoleSuperuser}
	practitioner = &auth.Principal{UserID: 2, Role: auth.RolePractitioner}
	patientUser  = &auth.Principal{UserID: 3, Role: auth.RolePatient}
)

func TestBuildSearchSuperuserUnfiltered(t *testing.T) {
	text, args := BuildSearch(superuser, Filter{}).Statement()

	if strings.Contains(text, "WHERE") {
		t.Errorf("superuser query has WHERE clause: %s", text)
	}
	if len(args) != 0 {
		t.Errorf("superuser query args = %v, want none", args)
	}
	if !strings.HasSuffix(text, "ORDER BY o.id") {
		t.Errorf("query missing stable order: %s", text)
	}
}

func TestBuildSearchPatientOwnRows(t *testing.T) {
	text, args := BuildSearch(patientUser, Filter{}).Statement()

	if !strings.Contains(text, "p.jhe_user_id = $1") {
		t.Errorf("patient query missing own-rows predicate: %s", text)
	}
	if len(args) != 1 || args[0] != int64(3) {
		t.Errorf("patient query args = %v, want [3]", args)
	}
}

func TestBuildSearchPractitionerOrgMembership(t *testing.T) {
	text, args := BuildSearch(practitioner, Filter{}).Statement()

	for _, table := range []string{"patient_organization", "practitioner_organization", "practitioner pr"} {
		if !strings.Contains(text, table) {
			t.Errorf("practitioner predicate missing %s: %s", table, text)
		}
	}
	if strings.Contains(text, "study_patient") {
		t.Errorf("unfiltered practitioner query joins study tables: %s", text)
	}
	if len(args) != 1 || args[0] != int64(2) {
		t.Errorf("practitioner query args = %v, want [2]", args)
	}
}

func TestBuildSearchStudyFilterAddsScopeMatch(t *testing.T) {
	text, args := BuildSearch(practitioner, Filter{StudyID: 7}).Statement()

	if !strings.Contains(text, "study_patient sp") {
		t.Errorf("study filter missing enrollment join: %s", text)
	}
	if !strings.Contains(text, "ssr.scope_code_id = o.codeable_concept_id") {
		t.Errorf("study filter missing scope-request match: %s", text)
	}
	if strings.Contains(text, "study_patient_scope_consent") {
		t.Errorf("admin study filter must not require consent: %s", text)
	}
	if len(args) != 2 || args[0] != int64(2) || args[1] != int64(7) {
		t.Errorf("study filter args = %v, want [2 7]", args)
	}
}

func TestBuildSearchConsentGateOnlyInsideStudyClause(t *testing.T) {
	withStudy, _ := BuildSearch(practitioner, Filter{StudyID: 7, RequireConsent: true}).Statement()
	if !strings.Contains(withStudy, "study_patient_scope_consent") {
		t.Errorf("consented study filter missing consent clause: %s", withStudy)
	}
	if !strings.Contains(withStudy, "spsc.consented") {
		t.Errorf("consent clause does not check the consented flag: %s", withStudy)
	}

	noStudy, _ := BuildSearch(practitioner, Filter{RequireConsent: true}).Statement()
	if strings.Contains(noStudy, "study_patient_scope_consent") {
		t.Errorf("consent clause leaked outside the study filter: %s", noStudy)
	}
}

func TestBuildSearchPatientAndCodeFilters(t *testing.T) {
	text, args := BuildSearch(superuser, Filter{
		PatientID:    5,
		CodingSystem: "https://w3id.org/openmhealth",
		CodingCode:   "omh:heart-rate:2.0",
	}).Statement()

	if !strings.Contains(text, "o.subject_patient_id = $1") {
		t.Errorf("patient filter missing: %s", text)
	}
	if !strings.Contains(text, "cc.coding_system = $2") || !strings.Contains(text, "cc.coding_code = $3") {
		t.Errorf("code filter missing: %s", text)
	}
	if len(args) != 3 {
		t.Errorf("args = %v, want 3", args)
	}
}

func TestBuildSearchPlaceholderNumbering(t *testing.T) {
	text, args := BuildSearch(practitioner, Filter{
		StudyID:        7,
		PatientID:      5,
		CodingSystem:   "https://w3id.org/openmhealth",
		CodingCode:     "omh:blood-pressure:4.0",
		RequireConsent: true,
	}).Statement()

	want := []any{int64(2), int64(5), int64(7), "https://w3id.org/openmhealth", "omh:blood-pressure:4.0"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %v, want %v", i, args[i], want[i])
		}
	}
	for _, ph := range []string{"$1", "$2", "$3", "$4", "$5"} {
		if !strings.Contains(text, ph) {
			t.Errorf("query missing placeholder %s: %s", ph, text)
		}
	}
	if strings.Contains(text, "$6") {
		t.Errorf("query has stray placeholder: %s", text)
	}
}
