package patient

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/internal/platform/rawsql"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the PostgreSQL-backed patient repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const patientCols = `p.id, p.jhe_user_id, p.identifier_system, p.identifier, p.name_family, p.name_given, p.birth_date, p.telecom_phone`

func scanPatient(rows pgx.Rows) (*Patient, error) {
	var p Patient
	if err := rows.Scan(&p.ID, &p.JheUserID, &p.IdentifierSystem, &p.Identifier,
		&p.NameFamily, &p.NameGiven, &p.BirthDate, &p.TelecomPhone); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO patient (jhe_user_id, identifier_system, identifier, name_family, name_given, birth_date, telecom_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		p.JheUserID, p.IdentifierSystem, p.Identifier, p.NameFamily, p.NameGiven, p.BirthDate, p.TelecomPhone).
		Scan(&p.ID)
}

func (r *repoPG) get(ctx context.Context, where string, args ...any) (*Patient, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+patientCols+` FROM patient p WHERE `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	return scanPatient(rows)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	return r.get(ctx, `p.id = $1`, id)
}

func (r *repoPG) GetByIdentifier(ctx context.Context, system, value string) (*Patient, error) {
	return r.get(ctx, `p.identifier_system = $1 AND p.identifier = $2`, system, value)
}

func (r *repoPG) GetByUser(ctx context.Context, jheUserID int64) (*Patient, error) {
	return r.get(ctx, `p.jhe_user_id = $1`, jheUserID)
}

// ForCaller builds the role-scoped patient query. Practitioner scope is
// organization co-membership via patient_organization and
// practitioner_organization.
func (r *repoPG) ForCaller(caller *auth.Principal) pagination.Sequence[*Patient] {
	var q rawsql.Query
	switch caller.Role {
	case auth.RoleSuperuser:
		q = rawsql.NewQuery(`SELECT ` + patientCols + ` FROM patient p`)
	case auth.RolePatient:
		q = rawsql.NewQuery(`
			SELECT `+patientCols+` FROM patient p
			WHERE p.jhe_user_id = $1`, caller.UserID)
	default:
		q = rawsql.NewQuery(`
			SELECT `+patientCols+` FROM patient p
			WHERE EXISTS (
				SELECT 1 FROM patient_organization pao
				JOIN practitioner_organization po ON po.organization_id = pao.organization_id
				JOIN practitioner pr ON pr.id = po.practitioner_id
				WHERE pao.patient_id = p.id AND pr.jhe_user_id = $1
			)`, caller.UserID)
	}
	return rawsql.NewResultSet(r.pool, q.WithOrderBy("p.id"), scanPatient)
}
