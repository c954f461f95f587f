package observation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jupyterhealth/exchange/internal/domain/coding"
	"github.com/jupyterhealth/exchange/internal/domain/patient"
	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/internal/platform/httperr"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

// StudyGate is the slice of the study service the observation search needs:
// authorization and enrollment checks run before any data query is built.
type StudyGate interface {
	Authorize(ctx context.Context, caller *auth.Principal, studyID int64) error
	HasPatient(ctx context.Context, studyID, patientID int64) (bool, error)
}

// PatientDirectory resolves patients by business identifier or portal user.
type PatientDirectory interface {
	Resolve(ctx context.Context, system, value string) (*patient.Patient, error)
	ByUser(ctx context.Context, jheUserID int64) (*patient.Patient, error)
}

// Service runs pre-query authorization, then hands a scoped query to the
// paginator. Failed authorization is an error response, never an empty page.
type Service struct {
	repo     Repository
	studies  StudyGate
	patients PatientDirectory
	codes    coding.Repository
}

// NewService creates the observation service.
func NewService(repo Repository, studies StudyGate, patients PatientDirectory, codes coding.Repository) *Service {
	return &Service{repo: repo, studies: studies, patients: patients, codes: codes}
}

// SearchParams carries raw FHIR search parameters. Token parameters keep
// their "system|value" form; parsing and validation happen here so handlers
// stay thin.
type SearchParams struct {
	StudyID           int64
	PatientID         int64
	PatientIdentifier string
	Code              string
}

// parseToken splits a FHIR token parameter into system and value.
func parseToken(raw string) (system, value string, err error) {
	system, value, ok := strings.Cut(raw, "|")
	if !ok || system == "" || value == "" {
		return "", "", fmt.Errorf("%w: token parameter must be system|value, got %q", httperr.ErrInvalid, raw)
	}
	return system, value, nil
}

// FHIRSearch validates and authorizes a FHIR observation search, then returns
// the consent-gated sequence. At least one of study, patient or
// patient.identifier is required; an unauthorized study is forbidden before
// anything touches the observation table, and a patient filter on a study the
// patient is not enrolled in is invalid rather than silently empty.
func (s *Service) FHIRSearch(ctx context.Context, caller *auth.Principal, p SearchParams) (pagination.Sequence[*Observation], error) {
	if p.StudyID == 0 && p.PatientID == 0 && p.PatientIdentifier == "" {
		return nil, fmt.Errorf("%w: one of patient, patient.identifier or _has:Group:member:_id is required", httperr.ErrInvalid)
	}

	if p.StudyID != 0 {
		if err := s.studies.Authorize(ctx, caller, p.StudyID); err != nil {
			return nil, err
		}
	}

	patientID := p.PatientID
	if p.PatientIdentifier != "" {
		system, value, err := parseToken(p.PatientIdentifier)
		if err != nil {
			return nil, err
		}
		pat, err := s.patients.Resolve(ctx, system, value)
		if err != nil {
			return nil, err
		}
		if patientID != 0 && patientID != pat.ID {
			return nil, fmt.Errorf("%w: patient and patient.identifier refer to different patients", httperr.ErrInvalid)
		}
		patientID = pat.ID
	}

	if p.StudyID != 0 && patientID != 0 {
		enrolled, err := s.studies.HasPatient(ctx, p.StudyID, patientID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, fmt.Errorf("%w: patient %d is not part of study %d", httperr.ErrInvalid, patientID, p.StudyID)
		}
	}

	f := Filter{StudyID: p.StudyID, PatientID: patientID, RequireConsent: true}
	if p.Code != "" {
		system, value, err := parseToken(p.Code)
		if err != nil {
			return nil, err
		}
		f.CodingSystem, f.CodingCode = system, value
	}

	return s.repo.Search(caller, f), nil
}

// AdminList returns the caller-scoped observations for the admin API. Consent
// is not required here: study staff can see what enrolled patients have not
// consented to share yet. A study filter still requires authorization.
func (s *Service) AdminList(ctx context.Context, caller *auth.Principal, studyID, patientID int64) (pagination.Sequence[*Observation], error) {
	if studyID != 0 {
		if err := s.studies.Authorize(ctx, caller, studyID); err != nil {
			return nil, err
		}
	}
	return s.repo.Search(caller, Filter{StudyID: studyID, PatientID: patientID}), nil
}

// Get returns one observation if the caller's scoped query can see it.
// Out-of-scope and nonexistent ids are indistinguishable to the caller.
func (s *Service) Get(ctx context.Context, caller *auth.Principal, id int64) (*Observation, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: observation %d", httperr.ErrNotFound, id)
		}
		return nil, err
	}
	if caller.Role == auth.RoleSuperuser {
		return o, nil
	}
	visible, err := s.repo.Search(caller, Filter{PatientID: o.SubjectPatientID}).Count(ctx)
	if err != nil {
		return nil, err
	}
	if visible == 0 {
		return nil, fmt.Errorf("%w: observation %d", httperr.ErrNotFound, id)
	}
	return o, nil
}

// CreateInput is a decoded observation submission.
type CreateInput struct {
	SubjectPatientID int64
	CodingSystem     string
	CodingCode       string
	Status           string
	Data             []byte
}

// Create stores an observation. Patients may only submit data about
// themselves; the observation code must already be registered as a codeable
// concept, which keeps free-form codes out of the scope-matching joins.
func (s *Service) Create(ctx context.Context, caller *auth.Principal, in *CreateInput) (*Observation, error) {
	if in.SubjectPatientID == 0 {
		return nil, fmt.Errorf("%w: subject patient is required", httperr.ErrInvalid)
	}
	if in.CodingSystem == "" || in.CodingCode == "" {
		return nil, fmt.Errorf("%w: observation code is required", httperr.ErrInvalid)
	}
	switch in.Status {
	case "":
		in.Status = StatusFinal
	case StatusFinal, StatusAmended, StatusCorrected:
	default:
		return nil, fmt.Errorf("%w: unsupported status %q", httperr.ErrInvalid, in.Status)
	}

	if caller.Role == auth.RolePatient {
		self, err := s.patients.ByUser(ctx, caller.UserID)
		if err != nil {
			return nil, err
		}
		if self.ID != in.SubjectPatientID {
			return nil, fmt.Errorf("%w: patients may only submit their own observations", httperr.ErrForbidden)
		}
	}

	cc, err := s.codes.GetBySystemCode(ctx, in.CodingSystem, in.CodingCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: unknown observation code %s|%s", httperr.ErrInvalid, in.CodingSystem, in.CodingCode)
		}
		return nil, err
	}

	o := Observation{
		SubjectPatientID:    in.SubjectPatientID,
		CodeableConceptID:   cc.ID,
		CodingSystem:        cc.CodingSystem,
		CodingCode:          cc.CodingCode,
		Status:              in.Status,
		ValueAttachmentData: in.Data,
	}
	if err := s.repo.Create(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
