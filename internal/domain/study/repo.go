package study

import (
	"context"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

// Repository is the persistence boundary for studies, enrollment and consent.
type Repository interface {
	Create(ctx context.Context, s *Study) error
	GetByID(ctx context.Context, id int64) (*Study, error)
	ForCaller(caller *auth.Principal) pagination.Sequence[*Study]

	AddScopeRequest(ctx context.Context, studyID, scopeCodeID int64) error
	ScopeRequests(ctx context.Context, studyID int64) ([]*ScopeRequest, error)

	AddPatient(ctx context.Context, studyID, patientID int64) (*StudyPatient, error)
	AddConsent(ctx context.Context, studyPatientID, scopeCodeID int64, consented bool) error

	// PractitionerAuthorized reports whether the user holds a practitioner
	// link in the organization administering the study. Checked before any
	// data query runs.
	PractitionerAuthorized(ctx context.Context, jheUserID, studyID int64) (bool, error)
	// HasPatient reports whether the patient is enrolled in the study.
	HasPatient(ctx context.Context, studyID, patientID int64) (bool, error)
}
