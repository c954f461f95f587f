// Package observation stores and serves consented health observations. The
// search path is the heart of the exchange: a caller-scoped raw SQL query,
// filtered by study enrollment, scope requests and consent, paginated without
// cursors.
package observation

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/jupyterhealth/exchange/internal/platform/fhir"
)

// Observation statuses this server accepts.
const (
	StatusFinal     = "final"
	StatusAmended   = "amended"
	StatusCorrected = "corrected"
)

// Observation is one health data point. The payload is an opaque JSON
// attachment (Open mHealth for device data); the exchange indexes only the
// code and the subject.
type Observation struct {
	ID                  int64     `json:"id"`
	SubjectPatientID    int64     `json:"subject_patient_id"`
	PatientIdentifier   string    `json:"patient_identifier"`
	CodeableConceptID   int64     `json:"codeable_concept_id"`
	CodingSystem        string    `json:"coding_system"`
	CodingCode          string    `json:"coding_code"`
	Status              string    `json:"status"`
	ValueAttachmentData []byte    `json:"-"`
	CreatedTime         time.Time `json:"created_time"`
	ModifiedTime        time.Time `json:"modified_time"`
}

// FHIRObservation is the R5 Observation resource shape this server emits.
type FHIRObservation struct {
	ResourceType    string               `json:"resourceType"`
	ID              string               `json:"id"`
	Status          string               `json:"status"`
	Code            fhir.CodeableConcept `json:"code"`
	Subject         fhir.Reference       `json:"subject"`
	ValueAttachment fhir.Attachment      `json:"valueAttachment"`
	Identifier      []fhir.Identifier    `json:"identifier,omitempty"`
}

// ToFHIR renders the observation as an R5 Observation resource. The
// attachment payload is base64-encoded per FHIR.
func (o *Observation) ToFHIR() *FHIRObservation {
	out := &FHIRObservation{
		ResourceType: "Observation",
		ID:           fmt.Sprintf("%d", o.ID),
		Status:       o.Status,
		Code: fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: o.CodingSystem, Code: o.CodingCode}},
		},
		Subject: fhir.Reference{Reference: fmt.Sprintf("Patient/%d", o.SubjectPatientID)},
		ValueAttachment: fhir.Attachment{
			ContentType: "application/json",
			Data:        base64.StdEncoding.EncodeToString(o.ValueAttachmentData),
		},
	}
	return out
}
