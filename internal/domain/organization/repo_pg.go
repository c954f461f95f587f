package organization

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/internal/platform/rawsql"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the PostgreSQL-backed organization repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const orgCols = `o.id, o.name, o.type, o.part_of_id`

func scanOrganization(rows pgx.Rows) (*Organization, error) {
	var o Organization
	if err := rows.Scan(&o.ID, &o.Name, &o.Type, &o.PartOfID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repoPG) Create(ctx context.Context, o *Organization) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO organization (name, type, part_of_id)
		VALUES ($1, $2, $3)
		RETURNING id`,
		o.Name, o.Type, o.PartOfID).Scan(&o.ID)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Organization, error) {
	var o Organization
	err := r.pool.QueryRow(ctx, `SELECT id, name, type, part_of_id FROM organization WHERE id = $1`, id).
		Scan(&o.ID, &o.Name, &o.Type, &o.PartOfID)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repoPG) Children(ctx context.Context, parentID int64) ([]*Organization, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, type, part_of_id FROM organization
		WHERE part_of_id = $1 ORDER BY id`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orgs []*Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

// ForCaller builds the scoped raw query: superusers see every organization,
// practitioners the ones they hold a membership in, patients the ones they
// belong to.
func (r *repoPG) ForCaller(caller *auth.Principal) pagination.Sequence[*Organization] {
	var q rawsql.Query
	switch caller.Role {
	case auth.RoleSuperuser:
		q = rawsql.NewQuery(`SELECT ` + orgCols + ` FROM organization o`)
	case auth.RolePatient:
		q = rawsql.NewQuery(`
			SELECT `+orgCols+` FROM organization o
			WHERE EXISTS (
				SELECT 1 FROM patient_organization po
				JOIN patient p ON p.id = po.patient_id
				WHERE po.organization_id = o.id AND p.jhe_user_id = $1
			)`, caller.UserID)
	default:
		q = rawsql.NewQuery(`
			SELECT `+orgCols+` FROM organization o
			WHERE EXISTS (
				SELECT 1 FROM practitioner_organization po
				JOIN practitioner pr ON pr.id = po.practitioner_id
				WHERE po.organization_id = o.id AND pr.jhe_user_id = $1
			)`, caller.UserID)
	}
	return rawsql.NewResultSet(r.pool, q.WithOrderBy("o.id"), scanOrganization)
}

func (r *repoPG) AddPractitioner(ctx context.Context, organizationID, practitionerID int64, role string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO practitioner_organization (practitioner_id, organization_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (practitioner_id, organization_id) DO NOTHING`,
		practitionerID, organizationID, role)
	return err
}

func (r *repoPG) AddPatient(ctx context.Context, organizationID, patientID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient_organization (patient_id, organization_id)
		VALUES ($1, $2)
		ON CONFLICT (patient_id, organization_id) DO NOTHING`,
		patientID, organizationID)
	return err
}
