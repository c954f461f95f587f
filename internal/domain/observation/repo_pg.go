package observation

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/internal/platform/rawsql"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the PostgreSQL-backed observation repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func scanObservation(rows pgx.Rows) (*Observation, error) {
	var o Observation
	if err := rows.Scan(&o.ID, &o.SubjectPatientID, &o.PatientIdentifier, &o.CodeableConceptID,
		&o.CodingSystem, &o.CodingCode, &o.Status, &o.ValueAttachmentData,
		&o.CreatedTime, &o.ModifiedTime); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repoPG) Create(ctx context.Context, o *Observation) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO observation (subject_patient_id, codeable_concept_id, status, value_attachment_data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_time, modified_time`,
		o.SubjectPatientID, o.CodeableConceptID, o.Status, o.ValueAttachmentData).
		Scan(&o.ID, &o.CreatedTime, &o.ModifiedTime)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Observation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+observationCols+observationFrom+`
		WHERE o.id = $1`, id)
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
	return scanObservation(rows)
}

func (r *repoPG) Search(caller *auth.Principal, f Filter) pagination.Sequence[*Observation] {
	return rawsql.NewResultSet(r.pool, BuildSearch(caller, f), scanObservation)
}
