package observation

import (
	"context"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

// Repository is the persistence boundary for observations.
type Repository interface {
	Create(ctx context.Context, o *Observation) error
	GetByID(ctx context.Context, id int64) (*Observation, error)

	// Search returns the caller-scoped, filtered observations as a lazy
	// sequence. Nothing executes until the paginator counts or windows it.
	Search(caller *auth.Principal, f Filter) pagination.Sequence[*Observation]
}
