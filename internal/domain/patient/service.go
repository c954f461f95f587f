package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jupyterhealth/exchange/internal/domain/identity"
	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/internal/platform/httperr"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

// Service handles patient registration and caller-scoped lookups.
type Service struct {
	repo  Repository
	users identity.Repository
}

// NewService creates the patient service.
func NewService(repo Repository, users identity.Repository) *Service {
	return &Service{repo: repo, users: users}
}

// CreateInput carries a new patient with the portal account to create for it.
type CreateInput struct {
	Email            string `json:"email"`
	IdentifierSystem string `json:"identifier_system"`
	Identifier       string `json:"identifier"`
	NameFamily       string `json:"name_family"`
	NameGiven        string `json:"name_given"`
	TelecomPhone     string `json:"telecom_phone"`
}

// Create registers a patient together with its backing user account.
func (s *Service) Create(ctx context.Context, caller *auth.Principal, in *CreateInput) (*Patient, error) {
	if caller.Role == auth.RolePatient {
		return nil, fmt.Errorf("%w: patients cannot register patients", httperr.ErrForbidden)
	}
	if in.Email == "" {
		return nil, fmt.Errorf("%w: email is required", httperr.ErrInvalid)
	}
	if in.Identifier == "" || in.IdentifierSystem == "" {
		return nil, fmt.Errorf("%w: identifier and identifier_system are required", httperr.ErrInvalid)
	}
	u := identity.JheUser{Email: in.Email, UserType: identity.UserTypePatient}
	if err := s.users.CreateUser(ctx, &u); err != nil {
		return nil, err
	}
	p := Patient{
		JheUserID:        u.ID,
		IdentifierSystem: in.IdentifierSystem,
		Identifier:       in.Identifier,
		NameFamily:       in.NameFamily,
		NameGiven:        in.NameGiven,
		TelecomPhone:     in.TelecomPhone,
	}
	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Get returns one patient if the caller may see it. Patients can only fetch
// their own record; a lookup outside the caller's scope reports forbidden.
func (s *Service) Get(ctx context.Context, caller *auth.Principal, id int64) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: patient %d", httperr.ErrNotFound, id)
		}
		return nil, err
	}
	if caller.Role == auth.RolePatient && p.JheUserID != caller.UserID {
		return nil, fmt.Errorf("%w: patient %d", httperr.ErrForbidden, id)
	}
	return p, nil
}

// Resolve maps a business identifier (system|value) to the patient row.
func (s *Service) Resolve(ctx context.Context, system, value string) (*Patient, error) {
	p, err := s.repo.GetByIdentifier(ctx, system, value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: unknown patient identifier", httperr.ErrInvalid)
		}
		return nil, err
	}
	return p, nil
}

// ByUser maps a portal account to its patient record.
func (s *Service) ByUser(ctx context.Context, jheUserID int64) (*Patient, error) {
	p, err := s.repo.GetByUser(ctx, jheUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no patient record for caller", httperr.ErrForbidden)
		}
		return nil, err
	}
	return p, nil
}

// List returns the caller-visible patients as a paginatable sequence.
func (s *Service) List(caller *auth.Principal) pagination.Sequence[*Patient] {
	return s.repo.ForCaller(caller)
}
