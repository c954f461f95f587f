package study

import (
	"context"
	"fmt"

	"github.com/jupyterhealth/exchange/internal/domain/coding"
	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/internal/platform/httperr"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

// Service enforces study-level authorization ahead of the repository.
type Service struct {
	repo  Repository
	codes coding.Repository
}

// NewService creates the study service.
func NewService(repo Repository, codes coding.Repository) *Service {
	return &Service{repo: repo, codes: codes}
}

func (s *Service) Create(ctx context.Context, caller *auth.Principal, st *Study) error {
	if caller.Role == auth.RolePatient {
		return fmt.Errorf("%w: patients cannot create studies", httperr.ErrForbidden)
	}
	if st.Name == "" {
		return fmt.Errorf("%w: name is required", httperr.ErrInvalid)
	}
	if st.OrganizationID == 0 {
		return fmt.Errorf("%w: organization_id is required", httperr.ErrInvalid)
	}
	return s.repo.Create(ctx, st)
}

// Get returns a study the caller is authorized for. Ambiguity between
// missing and forbidden is reported as forbidden.
func (s *Service) Get(ctx context.Context, caller *auth.Principal, id int64) (*Study, error) {
	if err := s.Authorize(ctx, caller, id); err != nil {
		return nil, err
	}
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: study %d", httperr.ErrForbidden, id)
	}
	return st, nil
}

// Authorize checks study access for the caller before any data query runs.
func (s *Service) Authorize(ctx context.Context, caller *auth.Principal, studyID int64) error {
	if caller.Role == auth.RoleSuperuser {
		return nil
	}
	ok, err := s.repo.PractitionerAuthorized(ctx, caller.UserID, studyID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no authorization for study %d", httperr.ErrForbidden, studyID)
	}
	return nil
}

// List returns the caller-visible studies as a paginatable sequence.
func (s *Service) List(caller *auth.Principal) pagination.Sequence[*Study] {
	return s.repo.ForCaller(caller)
}

// RequestScope registers a scope request for the study, creating the
// codeable concept if needed.
func (s *Service) RequestScope(ctx context.Context, caller *auth.Principal, studyID int64, system, code string) (*ScopeRequest, error) {
	if err := s.Authorize(ctx, caller, studyID); err != nil {
		return nil, err
	}
	if system == "" || code == "" {
		return nil, fmt.Errorf("%w: coding system and code are required", httperr.ErrInvalid)
	}
	cc := coding.CodeableConcept{CodingSystem: system, CodingCode: code, Text: code}
	if err := s.codes.Upsert(ctx, &cc); err != nil {
		return nil, err
	}
	if err := s.repo.AddScopeRequest(ctx, studyID, cc.ID); err != nil {
		return nil, err
	}
	return &ScopeRequest{StudyID: studyID, ScopeCodeID: cc.ID, CodingSystem: system, CodingCode: code, Text: cc.Text}, nil
}

// ScopeRequests lists the scopes a study asks for.
func (s *Service) ScopeRequests(ctx context.Context, caller *auth.Principal, studyID int64) ([]*ScopeRequest, error) {
	if err := s.Authorize(ctx, caller, studyID); err != nil {
		return nil, err
	}
	return s.repo.ScopeRequests(ctx, studyID)
}

// HasPatient reports whether the patient is enrolled in the study.
func (s *Service) HasPatient(ctx context.Context, studyID, patientID int64) (bool, error) {
	return s.repo.HasPatient(ctx, studyID, patientID)
}

// Enroll adds a patient to a study and, when consent is given, records a
// consent row for every scope the study requests.
func (s *Service) Enroll(ctx context.Context, caller *auth.Principal, studyID, patientID int64, consent bool) (*StudyPatient, error) {
	if err := s.Authorize(ctx, caller, studyID); err != nil {
		return nil, err
	}
	sp, err := s.repo.AddPatient(ctx, studyID, patientID)
	if err != nil {
		return nil, err
	}
	if consent {
		reqs, err := s.repo.ScopeRequests(ctx, studyID)
		if err != nil {
			return nil, err
		}
		for _, req := range reqs {
			if err := s.repo.AddConsent(ctx, sp.ID, req.ScopeCodeID, true); err != nil {
				return nil, err
			}
		}
	}
	return sp, nil
}
