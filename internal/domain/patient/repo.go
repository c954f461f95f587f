package patient

import (
	"context"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

// Repository is the persistence boundary for patient records.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	GetByIdentifier(ctx context.Context, system, value string) (*Patient, error)
	GetByUser(ctx context.Context, jheUserID int64) (*Patient, error)

	// ForCaller scopes the patient list to what the caller may see:
	// practitioners see patients of their organizations, patients see
	// themselves, superusers see everything.
	ForCaller(caller *auth.Principal) pagination.Sequence[*Patient]
}
