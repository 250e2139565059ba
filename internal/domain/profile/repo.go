package profile

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists patient profiles together with their embeddings.
type Repository interface {
	Create(ctx context.Context, p *PatientProfile, embedding []float64) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientProfile, error)
	Update(ctx context.Context, p *PatientProfile, embedding []float64) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDiagnosis(ctx context.Context, diagnosis string, limit int) ([]*PatientProfile, error)
	// AllEmbeddings returns every stored profile id with its embedding for
	// in-process similarity ranking.
	AllEmbeddings(ctx context.Context) (map[uuid.UUID][]float64, error)
}
