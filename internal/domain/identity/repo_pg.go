package identity

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the PostgreSQL-backed identity repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const userCols = `id, email, identifier, user_type, is_superuser, created_time`

func scanUser(row pgx.Row) (*JheUser, error) {
	var u JheUser
	err := row.Scan(&u.ID, &u.Email, &u.Identifier, &u.UserType, &u.IsSuperuser, &u.CreatedTime)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repoPG) GetUser(ctx context.Context, id int64) (*JheUser, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM jhe_user WHERE id = $1`, id))
}

func (r *repoPG) GetUserByEmail(ctx context.Context, email string) (*JheUser, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM jhe_user WHERE email = $1`, email))
}

// GetUsersByEHRID finds accounts by the external EHR identifier.
func (r *repoPG) GetUsersByEHRID(ctx context.Context, identifier string) ([]*JheUser, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userCols+` FROM jhe_user WHERE identifier = $1 ORDER BY id`, identifier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []*JheUser
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *repoPG) CreateUser(ctx context.Context, u *JheUser) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO jhe_user (email, identifier, user_type, is_superuser)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_time`,
		u.Email, u.Identifier, u.UserType, u.IsSuperuser).Scan(&u.ID, &u.CreatedTime)
}

func (r *repoPG) GetPractitionerByUser(ctx context.Context, jheUserID int64) (*Practitioner, error) {
	var p Practitioner
	err := r.pool.QueryRow(ctx, `
		SELECT id, jhe_user_id, identifier, name_family, name_given, telecom_phone
		FROM practitioner WHERE jhe_user_id = $1`, jheUserID).
		Scan(&p.ID, &p.JheUserID, &p.Identifier, &p.NameFamily, &p.NameGiven, &p.TelecomPhone)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) CreatePractitioner(ctx context.Context, p *Practitioner) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO practitioner (jhe_user_id, identifier, name_family, name_given, telecom_phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		p.JheUserID, p.Identifier, p.NameFamily, p.NameGiven, p.TelecomPhone).Scan(&p.ID)
}
