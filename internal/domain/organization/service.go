package organization

import (
	"context"
	"fmt"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/internal/platform/httperr"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

// Service applies validation and scoping ahead of the repository.
type Service struct {
	repo Repository
}

// NewService creates the organization service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, caller *auth.Principal, o *Organization) error {
	if caller.Role == auth.RolePatient {
		return fmt.Errorf("%w: patients cannot create organizations", httperr.ErrForbidden)
	}
	if o.Name == "" {
		return fmt.Errorf("%w: name is required", httperr.ErrInvalid)
	}
	if !ValidTypes[o.Type] {
		return fmt.Errorf("%w: invalid organization type %q", httperr.ErrInvalid, o.Type)
	}
	return s.repo.Create(ctx, o)
}

func (s *Service) Get(ctx context.Context, id int64) (*Organization, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: organization %d", httperr.ErrNotFound, id)
	}
	return o, nil
}

func (s *Service) Children(ctx context.Context, parentID int64) ([]*Organization, error) {
	return s.repo.Children(ctx, parentID)
}

// List returns the caller-visible organizations as a paginatable sequence.
func (s *Service) List(caller *auth.Principal) pagination.Sequence[*Organization] {
	return s.repo.ForCaller(caller)
}
