// Package patient manages patient demographic records and their FHIR
// rendering. Every patient is backed by a jhe_user row and linked to the
// organizations that care for them.
package patient

import (
	"fmt"
	"time"

	"github.com/jupyterhealth/exchange/internal/platform/fhir"
)

// Patient is a demographic record linked to a portal user.
type Patient struct {
	ID               int64      `json:"id"`
	JheUserID        int64      `json:"jhe_user_id"`
	IdentifierSystem string     `json:"identifier_system"`
	Identifier       string     `json:"identifier"`
	NameFamily       string     `json:"name_family"`
	NameGiven        string     `json:"name_given"`
	BirthDate        *time.Time `json:"birth_date,omitempty"`
	TelecomPhone     string     `json:"telecom_phone,omitempty"`
}

// FHIRPatient is the R5 Patient resource shape this server emits.
type FHIRPatient struct {
	ResourceType string            `json:"resourceType"`
	ID           string            `json:"id"`
	Identifier   []fhir.Identifier `json:"identifier,omitempty"`
	Name         []fhirHumanName   `json:"name,omitempty"`
	BirthDate    string            `json:"birthDate,omitempty"`
	Telecom      []fhirContact     `json:"telecom,omitempty"`
}

type fhirHumanName struct {
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

type fhirContact struct {
	System string `json:"system"`
	Value  string `json:"value"`
}

// ToFHIR renders the patient as an R5 Patient resource.
func (p *Patient) ToFHIR() *FHIRPatient {
	out := &FHIRPatient{
		ResourceType: "Patient",
		ID:           fmt.Sprintf("%d", p.ID),
	}
	if p.Identifier != "" {
		out.Identifier = []fhir.Identifier{{System: p.IdentifierSystem, Value: p.Identifier}}
	}
	if p.NameFamily != "" || p.NameGiven != "" {
		name := fhirHumanName{Family: p.NameFamily}
		if p.NameGiven != "" {
			name.Given = []string{p.NameGiven}
		}
		out.Name = []fhirHumanName{name}
	}
	if p.BirthDate != nil {
		out.BirthDate = p.BirthDate.Format("2006-01-02")
	}
	if p.TelecomPhone != "" {
		out.Telecom = []fhirContact{{System: "phone", Value: p.TelecomPhone}}
	}
	return out
}
