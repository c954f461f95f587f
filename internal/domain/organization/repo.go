package organization

import (
	"context"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

// Repository is the persistence boundary for organizations.
type Repository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id int64) (*Organization, error)
	Children(ctx context.Context, parentID int64) ([]*Organization, error)
	// ForCaller returns the caller-visible organizations as a lazy,
	// paginatable sequence.
	ForCaller(caller *auth.Principal) pagination.Sequence[*Organization]
	AddPractitioner(ctx context.Context, organizationID, practitionerID int64, role string) error
	AddPatient(ctx context.Context, organizationID, patientID int64) error
}
