// Package coding stores the CodeableConcept rows that scope codes and
// observation codes reference. Scope codes are Open mHealth schema ids, e.g.
// "omh:blood-pressure:4.0" under the https://w3id.org/openmhealth system.
package coding

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenMHealthSystem is the coding system for Open mHealth schema ids.
const OpenMHealthSystem = "https://w3id.org/openmhealth"

// CodeableConcept is one coded concept.
type CodeableConcept struct {
	ID           int64  `json:"id"`
	CodingSystem string `json:"coding_system"`
	CodingCode   string `json:"coding_code"`
	Text         string `json:"text"`
}

// Repository is the persistence boundary for codeable concepts.
type Repository interface {
	Upsert(ctx context.Context, c *CodeableConcept) error
	GetBySystemCode(ctx context.Context, system, code string) (*CodeableConcept, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the PostgreSQL-backed coding repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

// Upsert creates the concept or refreshes its display text, filling in ID
// either way.
func (r *repoPG) Upsert(ctx context.Context, c *CodeableConcept) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO codeable_concept (coding_system, coding_code, text)
		VALUES ($1, $2, $3)
		ON CONFLICT (coding_system, coding_code) DO UPDATE SET text = EXCLUDED.text
		RETURNING id`,
		c.CodingSystem, c.CodingCode, c.Text).Scan(&c.ID)
}

func (r *repoPG) GetBySystemCode(ctx context.Context, system, code string) (*CodeableConcept, error) {
	var c CodeableConcept
	err := r.pool.QueryRow(ctx, `
		SELECT id, coding_system, coding_code, text FROM codeable_concept
		WHERE coding_system = $1 AND coding_code = $2`, system, code).
		Scan(&c.ID, &c.CodingSystem, &c.CodingCode, &c.Text)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
