// Package seed loads a small demo dataset: one organization tree, a
// practitioner, patients, two studies with scope requests and consents, and
// Open mHealth observations. Intended for development databases only.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/jupyterhealth/exchange/internal/domain/coding"
	"github.com/jupyterhealth/exchange/internal/domain/identity"
	"github.com/jupyterhealth/exchange/internal/domain/observation"
	"github.com/jupyterhealth/exchange/internal/domain/organization"
	"github.com/jupyterhealth/exchange/internal/domain/patient"
	"github.com/jupyterhealth/exchange/internal/domain/study"
)

// ExamplePatientSystem is the identifier system the demo patients use.
const ExamplePatientSystem = "https://ehr.example.com"

// Run loads the demo dataset. Inserts use upsert semantics where the schema
// allows, but Run is not idempotent for observations; run it against a fresh
// database.
func Run(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	users := identity.NewRepoPG(pool)
	orgs := organization.NewRepoPG(pool)
	codes := coding.NewRepoPG(pool)
	studies := study.NewRepoPG(pool)
	patients := patient.NewRepoPG(pool)
	observations := observation.NewRepoPG(pool)

	// Organization tree
	root := organization.Organization{Name: "Demo Health System", Type: "prov"}
	if err := orgs.Create(ctx, &root); err != nil {
		return fmt.Errorf("seed root organization: %w", err)
	}
	clinic := organization.Organization{Name: "Demo Cardiology Clinic", Type: "dept", PartOfID: &root.ID}
	if err := orgs.Create(ctx, &clinic); err != nil {
		return fmt.Errorf("seed clinic: %w", err)
	}

	// Practitioner
	pracUser := identity.JheUser{Email: "practitioner@example.com", UserType: identity.UserTypePractitioner}
	if err := users.CreateUser(ctx, &pracUser); err != nil {
		return fmt.Errorf("seed practitioner user: %w", err)
	}
	family := "Grant"
	prac := identity.Practitioner{JheUserID: pracUser.ID, NameFamily: &family}
	if err := users.CreatePractitioner(ctx, &prac); err != nil {
		return fmt.Errorf("seed practitioner: %w", err)
	}
	if err := orgs.AddPractitioner(ctx, clinic.ID, prac.ID, "member"); err != nil {
		return fmt.Errorf("seed practitioner membership: %w", err)
	}

	// Superuser
	admin := identity.JheUser{Email: "admin@example.com", UserType: identity.UserTypePractitioner, IsSuperuser: true}
	if err := users.CreateUser(ctx, &admin); err != nil {
		return fmt.Errorf("seed superuser: %w", err)
	}

	// Scope codes
	heartRate := coding.CodeableConcept{CodingSystem: coding.OpenMHealthSystem, CodingCode: "omh:heart-rate:2.0", Text: "Heart rate"}
	bloodPressure := coding.CodeableConcept{CodingSystem: coding.OpenMHealthSystem, CodingCode: "omh:blood-pressure:4.0", Text: "Blood pressure"}
	for _, cc := range []*coding.CodeableConcept{&heartRate, &bloodPressure} {
		if err := codes.Upsert(ctx, cc); err != nil {
			return fmt.Errorf("seed code %s: %w", cc.CodingCode, err)
		}
	}

	// Patients
	names := []struct{ given, family string }{
		{"Ada", "Ruiz"},
		{"Ben", "Okafor"},
		{"Cleo", "Tanaka"},
	}
	var pats []*patient.Patient
	for i, n := range names {
		u := identity.JheUser{Email: fmt.Sprintf("patient%d@example.com", i+1), UserType: identity.UserTypePatient}
		if err := users.CreateUser(ctx, &u); err != nil {
			return fmt.Errorf("seed patient user: %w", err)
		}
		p := patient.Patient{
			JheUserID:        u.ID,
			IdentifierSystem: ExamplePatientSystem,
			Identifier:       fmt.Sprintf("MRN-%04d", i+1),
			NameFamily:       n.family,
			NameGiven:        n.given,
		}
		if err := patients.Create(ctx, &p); err != nil {
			return fmt.Errorf("seed patient: %w", err)
		}
		if err := orgs.AddPatient(ctx, clinic.ID, p.ID); err != nil {
			return fmt.Errorf("seed patient membership: %w", err)
		}
		pats = append(pats, &p)
	}

	// Studies: one asking for heart rate, one for blood pressure.
	hrStudy := study.Study{Name: "Resting Heart Rate Study", OrganizationID: clinic.ID}
	bpStudy := study.Study{Name: "Hypertension Monitoring Study", OrganizationID: clinic.ID}
	for _, st := range []*study.Study{&hrStudy, &bpStudy} {
		if err := studies.Create(ctx, st); err != nil {
			return fmt.Errorf("seed study %s: %w", st.Name, err)
		}
	}
	if err := studies.AddScopeRequest(ctx, hrStudy.ID, heartRate.ID); err != nil {
		return err
	}
	if err := studies.AddScopeRequest(ctx, bpStudy.ID, bloodPressure.ID); err != nil {
		return err
	}

	// Enroll the first two patients in both studies with consent; the third
	// patient stays unenrolled so unfiltered and study-filtered results differ.
	for _, p := range pats[:2] {
		for _, pair := range []struct {
			st   *study.Study
			code *coding.CodeableConcept
		}{{&hrStudy, &heartRate}, {&bpStudy, &bloodPressure}} {
			sp, err := studies.AddPatient(ctx, pair.st.ID, p.ID)
			if err != nil {
				return fmt.Errorf("seed enrollment: %w", err)
			}
			if err := studies.AddConsent(ctx, sp.ID, pair.code.ID, true); err != nil {
				return fmt.Errorf("seed consent: %w", err)
			}
		}
	}

	// Observations. Each payload is a minimal Open mHealth data point.
	plan := []struct {
		pat  *patient.Patient
		code *coding.CodeableConcept
		n    int
	}{
		{pats[0], &heartRate, 3},
		{pats[1], &heartRate, 2},
		{pats[0], &bloodPressure, 2},
		{pats[1], &bloodPressure, 1},
		{pats[2], &heartRate, 2},
	}
	total := 0
	for _, item := range plan {
		for i := 0; i < item.n; i++ {
			payload, err := json.Marshal(map[string]any{
				"header": map[string]any{
					"uuid":          uuid.NewString(),
					"schema_id":     item.code.CodingCode,
					"creation_time": time.Now().UTC().Format(time.RFC3339),
				},
				"body": map[string]any{"value": 60 + i},
			})
			if err != nil {
				return err
			}
			o := observation.Observation{
				SubjectPatientID:    item.pat.ID,
				CodeableConceptID:   item.code.ID,
				Status:              observation.StatusFinal,
				ValueAttachmentData: payload,
			}
			if err := observations.Create(ctx, &o); err != nil {
				return fmt.Errorf("seed observation: %w", err)
			}
			total++
		}
	}

	logger.Info().
		Int("patients", len(pats)).
		Int("studies", 2).
		Int("observations", total).
		Msg("seed complete")
	return nil
}
