package identity

import "context"

// Repository is the persistence boundary for users and practitioners.
type Repository interface {
	GetUser(ctx context.Context, id int64) (*JheUser, error)
	GetUserByEmail(ctx context.Context, email string) (*JheUser, error)
	GetUsersByEHRID(ctx context.Context, identifier string) ([]*JheUser, error)
	CreateUser(ctx context.Context, u *JheUser) error
	GetPractitionerByUser(ctx context.Context, jheUserID int64) (*Practitioner, error)
	CreatePractitioner(ctx context.Context, p *Practitioner) error
}
