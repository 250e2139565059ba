package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const profileCols = `id, name, age, gender, diagnosis, discharge_date,
	medications, follow_up_notes, risk_factors, comorbidities,
	treatment_plan, created_at, updated_at`

func scanProfile(row pgx.Row) (*PatientProfile, error) {
	var p PatientProfile
	err := row.Scan(&p.ID, &p.Name, &p.Age, &p.Gender, &p.Diagnosis, &p.DischargeDate,
		&p.Medications, &p.FollowUpNotes, &p.RiskFactors, &p.Comorbidities,
		&p.TreatmentPlan, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan patient profile: %w", err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *PatientProfile, embedding []float64) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient_profiles (id, name, age, gender, diagnosis, discharge_date,
			medications, follow_up_notes, risk_factors, comorbidities,
			treatment_plan, embedding)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.Name, p.Age, p.Gender, p.Diagnosis, p.DischargeDate,
		p.Medications, p.FollowUpNotes, p.RiskFactors, p.Comorbidities,
		p.TreatmentPlan, embedding)
	if err != nil {
		return fmt.Errorf("insert patient profile: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*PatientProfile, error) {
	return scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileCols+` FROM patient_profiles WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *PatientProfile, embedding []float64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patient_profiles SET name=$2, age=$3, gender=$4, diagnosis=$5,
			discharge_date=$6, medications=$7, follow_up_notes=$8,
			risk_factors=$9, comorbidities=$10, treatment_plan=$11,
			embedding=$12, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Age, p.Gender, p.Diagnosis,
		p.DischargeDate, p.Medications, p.FollowUpNotes,
		p.RiskFactors, p.Comorbidities, p.TreatmentPlan, embedding)
	if err != nil {
		return fmt.Errorf("update patient profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patient_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByDiagnosis(ctx context.Context, diagnosis string, limit int) ([]*PatientProfile, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+profileCols+` FROM patient_profiles
		 WHERE diagnosis ILIKE '%' || $1 || '%'
		 ORDER BY discharge_date DESC LIMIT $2`, diagnosis, limit)
	if err != nil {
		return nil, fmt.Errorf("list profiles by diagnosis: %w", err)
	}
	defer rows.Close()

	var out []*PatientProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}

func (r *repoPG) AllEmbeddings(ctx context.Context) (map[uuid.UUID][]float64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, embedding FROM patient_profiles`)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]float64)
	for rows.Next() {
		var id uuid.UUID
		var emb []float64
		if err := rows.Scan(&id, &emb); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		out[id] = emb
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return out, nil
}
