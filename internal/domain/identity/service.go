package identity

import (
	"context"
	"fmt"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
)

// Service resolves callers and serves user profile lookups.
type Service struct {
	repo Repository
}

// NewService creates the identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ResolveCaller implements auth.Resolver. Role precedence: superuser flag,
// then the account's user type. An unknown id is an error, not an empty
// principal.
func (s *Service) ResolveCaller(ctx context.Context, userID int64) (*auth.Principal, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user %d", auth.ErrUnresolvable, userID)
	}
	role := u.UserType
	if u.IsSuperuser {
		role = auth.RoleSuperuser
	}
	return &auth.Principal{UserID: u.ID, Role: role, Email: u.Email}, nil
}

// Profile returns the account row for the authenticated user.
func (s *Service) Profile(ctx context.Context, userID int64) (*JheUser, error) {
	return s.repo.GetUser(ctx, userID)
}
