package study

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/internal/platform/rawsql"
	"github.com/jupyterhealth/exchange/pkg/pagination"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the PostgreSQL-backed study repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const studyCols = `s.id, s.name, s.description, s.organization_id, s.created_time`

func scanStudy(rows pgx.Rows) (*Study, error) {
	var s Study
	if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.OrganizationID, &s.CreatedTime); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) Create(ctx context.Context, s *Study) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO study (name, description, organization_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_time`,
		s.Name, s.Description, s.OrganizationID).Scan(&s.ID, &s.CreatedTime)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Study, error) {
	var s Study
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, organization_id, created_time
		FROM study WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Description, &s.OrganizationID, &s.CreatedTime)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ForCaller scopes the study list: practitioners see studies run by their
// organizations, patients the studies they are enrolled in, superusers all.
func (r *repoPG) ForCaller(caller *auth.Principal) pagination.Sequence[*Study] {
	var q rawsql.Query
	switch caller.Role {
	case auth.RoleSuperuser:
		q = rawsql.NewQuery(`SELECT ` + studyCols + ` FROM study s`)
	case auth.RolePatient:
		q = rawsql.NewQuery(`
			SELECT `+studyCols+` FROM study s
			WHERE EXISTS (
				SELECT 1 FROM study_patient sp
				JOIN patient p ON p.id = sp.patient_id
				WHERE sp.study_id = s.id AND p.jhe_user_id = $1
			)`, caller.UserID)
	default:
		q = rawsql.NewQuery(`
			SELECT `+studyCols+` FROM study s
			WHERE EXISTS (
				SELECT 1 FROM practitioner_organization po
				JOIN practitioner pr ON pr.id = po.practitioner_id
				WHERE po.organization_id = s.organization_id AND pr.jhe_user_id = $1
			)`, caller.UserID)
	}
	return rawsql.NewResultSet(r.pool, q.WithOrderBy("s.id"), scanStudy)
}

func (r *repoPG) AddScopeRequest(ctx context.Context, studyID, scopeCodeID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO study_scope_request (study_id, scope_code_id)
		VALUES ($1, $2)
		ON CONFLICT (study_id, scope_code_id) DO NOTHING`,
		studyID, scopeCodeID)
	return err
}

func (r *repoPG) ScopeRequests(ctx context.Context, studyID int64) ([]*ScopeRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ssr.id, ssr.study_id, ssr.scope_code_id, cc.coding_system, cc.coding_code, cc.text
		FROM study_scope_request ssr
		JOIN codeable_concept cc ON cc.id = ssr.scope_code_id
		WHERE ssr.study_id = $1
		ORDER BY ssr.id`, studyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reqs []*ScopeRequest
	for rows.Next() {
		var sr ScopeRequest
		if err := rows.Scan(&sr.ID, &sr.StudyID, &sr.ScopeCodeID, &sr.CodingSystem, &sr.CodingCode, &sr.Text); err != nil {
			return nil, err
		}
		reqs = append(reqs, &sr)
	}
	return reqs, rows.Err()
}

func (r *repoPG) AddPatient(ctx context.Context, studyID, patientID int64) (*StudyPatient, error) {
	sp := StudyPatient{StudyID: studyID, PatientID: patientID}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO study_patient (study_id, patient_id)
		VALUES ($1, $2)
		ON CONFLICT (study_id, patient_id) DO UPDATE SET study_id = EXCLUDED.study_id
		RETURNING id`,
		studyID, patientID).Scan(&sp.ID)
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (r *repoPG) AddConsent(ctx context.Context, studyPatientID, scopeCodeID int64, consented bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO study_patient_scope_consent (study_patient_id, scope_code_id, consented, consented_time)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (study_patient_id, scope_code_id)
		DO UPDATE SET consented = EXCLUDED.consented, consented_time = NOW()`,
		studyPatientID, scopeCodeID, consented)
	return err
}

func (r *repoPG) PractitionerAuthorized(ctx context.Context, jheUserID, studyID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM study s
			JOIN practitioner_organization po ON po.organization_id = s.organization_id
			JOIN practitioner pr ON pr.id = po.practitioner_id
			WHERE s.id = $1 AND pr.jhe_user_id = $2
		)`, studyID, jheUserID).Scan(&ok)
	return ok, err
}

func (r *repoPG) HasPatient(ctx context.Context, studyID, patientID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM study_patient WHERE study_id = $1 AND patient_id = $2
		)`, studyID, patientID).Scan(&ok)
	return ok, err
}
