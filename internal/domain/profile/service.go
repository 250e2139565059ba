package profile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service validates profiles, maintains their embeddings, and answers
// similarity queries.
type Service struct {
	repo     Repository
	embedder Embedder
	logger   zerolog.Logger
}

func NewService(repo Repository, embedder Embedder, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		embedder: embedder,
		logger:   logger.With().Str("component", "profile").Logger(),
	}
}

func validateProfile(p *PatientProfile) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if p.Age < 0 || p.Age > 150 {
		return fmt.Errorf("%w: age %d out of range", ErrValidation, p.Age)
	}
	if strings.TrimSpace(p.Diagnosis) == "" {
		return fmt.Errorf("%w: diagnosis is required", ErrValidation)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *PatientProfile) error {
	if err := validateProfile(p); err != nil {
		return err
	}
	embedding, err := s.embedder.Embed(ctx, p.SearchText())
	if err != nil {
		return fmt.Errorf("embed profile: %w", err)
	}
	if err := s.repo.Create(ctx, p, embedding); err != nil {
		return err
	}
	s.logger.Info().Str("profile_id", p.ID.String()).Str("diagnosis", p.Diagnosis).Msg("patient profile stored")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PatientProfile, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, p *PatientProfile) error {
	if err := validateProfile(p); err != nil {
		return err
	}
	embedding, err := s.embedder.Embed(ctx, p.SearchText())
	if err != nil {
		return fmt.Errorf("embed profile: %w", err)
	}
	return s.repo.Update(ctx, p, embedding)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListByDiagnosis(ctx context.Context, diagnosis string, limit int) ([]*PatientProfile, error) {
	if strings.TrimSpace(diagnosis) == "" {
		return nil, fmt.Errorf("%w: diagnosis query is required", ErrValidation)
	}
	return s.repo.ListByDiagnosis(ctx, diagnosis, limit)
}

// SearchSimilar embeds the query and ranks all stored profiles by cosine
// similarity, returning the top n matches.
func (s *Service) SearchSimilar(ctx context.Context, query string, n int) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}
	if n <= 0 {
		n = 5
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	embeddings, err := s.repo.AllEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		id    uuid.UUID
		score float64
	}
	ranked := make([]scored, 0, len(embeddings))
	for id, emb := range embeddings {
		ranked = append(ranked, scored{id: id, score: CosineSimilarity(queryVec, emb)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	matches := make([]Match, 0, len(ranked))
	for _, r := range ranked {
		p, err := s.repo.GetByID(ctx, r.id)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{Profile: p, Similarity: r.score})
	}
	return matches, nil
}
