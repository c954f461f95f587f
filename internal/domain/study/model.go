// Package study manages studies, the scopes they request, patient enrollment
// and per-scope consent. Consent rows gate what the FHIR API surfaces.
package study

import "time"

// Study is a research study run by one organization.
type Study struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	OrganizationID int64     `json:"organization_id"`
	CreatedTime    time.Time `json:"created_time"`
}

// ScopeRequest is one data category a study asks its patients to share.
type ScopeRequest struct {
	ID           int64  `json:"id"`
	StudyID      int64  `json:"study_id"`
	ScopeCodeID  int64  `json:"scope_code_id"`
	CodingSystem string `json:"coding_system"`
	CodingCode   string `json:"coding_code"`
	Text         string `json:"text,omitempty"`
}

// StudyPatient is a patient's enrollment in a study.
type StudyPatient struct {
	ID        int64 `json:"id"`
	StudyID   int64 `json:"study_id"`
	PatientID int64 `json:"patient_id"`
}

// ScopeConsent is a patient's consent decision for one scope of one study.
type ScopeConsent struct {
	ID             int64      `json:"id"`
	StudyPatientID int64      `json:"study_patient_id"`
	ScopeCodeID    int64      `json:"scope_code_id"`
	Consented      bool       `json:"consented"`
	ConsentedTime  *time.Time `json:"consented_time,omitempty"`
}
