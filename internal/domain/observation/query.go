package observation

import (
	"fmt"
	"strings"

	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/internal/platform/rawsql"
)

// Filter narrows an observation search. Zero values mean "not filtered".
// Identifier-based patient lookup is resolved to a PatientID before the query
// is built, so the builder only ever sees row ids.
type Filter struct {
	StudyID   int64
	PatientID int64

	CodingSystem string
	CodingCode   string

	// RequireConsent additionally demands a consented scope row inside the
	// study clause. The FHIR API sets it; the admin API does not, so study
	// staff can see what enrolled patients have not consented to yet.
	RequireConsent bool
}

const observationCols = `o.id, o.subject_patient_id, p.identifier, o.codeable_concept_id,
	cc.coding_system, cc.coding_code, o.status, o.value_attachment_data,
	o.created_time, o.modified_time`

const observationFrom = `
	FROM observation o
	JOIN patient p ON p.id = o.subject_patient_id
	JOIN codeable_concept cc ON cc.id = o.codeable_concept_id`

// queryBuilder accumulates WHERE predicates with positional arguments.
type queryBuilder struct {
	preds []string
	args  []any
}

func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) where(pred string) {
	b.preds = append(b.preds, pred)
}

func (b *queryBuilder) build() rawsql.Query {
	text := "SELECT " + observationCols + observationFrom
	if len(b.preds) > 0 {
		text += "\n\tWHERE " + strings.Join(b.preds, "\n\tAND ")
	}
	return rawsql.NewQuery(text, b.args...).WithOrderBy("o.id")
}

// BuildSearch constructs the caller-scoped observation query. The caller's
// role sets the base predicate: superusers are unrestricted, patients see
// their own rows, practitioners see rows of patients who share an
// organization with them. The study filter is an EXISTS over enrollment plus
// a matching scope request, optionally gated by consent.
func BuildSearch(caller *auth.Principal, f Filter) rawsql.Query {
	b := &queryBuilder{}

	switch caller.Role {
	case auth.RoleSuperuser:
		// unrestricted
	case auth.RolePatient:
		b.where(`p.jhe_user_id = ` + b.arg(caller.UserID))
	default:
		b.where(`EXISTS (
		SELECT 1 FROM patient_organization pao
		JOIN practitioner_organization po ON po.organization_id = pao.organization_id
		JOIN practitioner pr ON pr.id = po.practitioner_id
		WHERE pao.patient_id = o.subject_patient_id AND pr.jhe_user_id = ` + b.arg(caller.UserID) + `
	)`)
	}

	if f.PatientID != 0 {
		b.where(`o.subject_patient_id = ` + b.arg(f.PatientID))
	}

	if f.StudyID != 0 {
		consent := ""
		if f.RequireConsent {
			consent = `
			AND EXISTS (
				SELECT 1 FROM study_patient_scope_consent spsc
				WHERE spsc.study_patient_id = sp.id
				AND spsc.scope_code_id = o.codeable_concept_id
				AND spsc.consented
			)`
		}
		b.where(`EXISTS (
		SELECT 1 FROM study_patient sp
		JOIN study_scope_request ssr ON ssr.study_id = sp.study_id
		WHERE sp.study_id = ` + b.arg(f.StudyID) + `
		AND sp.patient_id = o.subject_patient_id
		AND ssr.scope_code_id = o.codeable_concept_id` + consent + `
	)`)
	}

	if f.CodingSystem != "" || f.CodingCode != "" {
		b.where(`cc.coding_system = ` + b.arg(f.CodingSystem))
		b.where(`cc.coding_code = ` + b.arg(f.CodingCode))
	}

	return b.build()
}
