package profile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// memRepo is an in-memory Repository double.
type memRepo struct {
	mu         sync.Mutex
	profiles   map[uuid.UUID]*PatientProfile
	embeddings map[uuid.UUID][]float64
}

func newMemRepo() *memRepo {
	return &memRepo{
		profiles:   make(map[uuid.UUID]*PatientProfile),
		embeddings: make(map[uuid.UUID][]float64),
	}
}

func (r *memRepo) Create(_ context.Context, p *PatientProfile, embedding []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	r.profiles[p.ID] = &cp
	r.embeddings[p.ID] = embedding
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*PatientProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) Update(_ context.Context, p *PatientProfile, embedding []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	cp := *p
	r.profiles[p.ID] = &cp
	r.embeddings[p.ID] = embedding
	return nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[id]; !ok {
		return ErrNotFound
	}
	delete(r.profiles, id)
	delete(r.embeddings, id)
	return nil
}

func (r *memRepo) ListByDiagnosis(_ context.Context, diagnosis string, limit int) ([]*PatientProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*PatientProfile
	for _, p := range r.profiles {
		if strings.Contains(strings.ToLower(p.Diagnosis), strings.ToLower(diagnosis)) {
			cp := *p
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memRepo) AllEmbeddings(_ context.Context) (map[uuid.UUID][]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID][]float64, len(r.embeddings))
	for id, emb := range r.embeddings {
		cp := make([]float64, len(emb))
		copy(cp, emb)
		out[id] = cp
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	return NewService(repo, FakeEmbedder{}, zerolog.Nop()), repo
}

func testProfile(name, diagnosis string, meds []string) *PatientProfile {
	return &PatientProfile{
		Name:          name,
		Age:           67,
		Gender:        "female",
		Diagnosis:     diagnosis,
		DischargeDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Medications:   meds,
		TreatmentPlan: "standard care",
	}
}

func TestService_CreateStoresEmbedding(t *testing.T) {
	svc, repo := newTestService(t)
	p := testProfile("Jane Roe", "community acquired pneumonia", []string{"amoxicillin"})

	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Fatal("id not assigned")
	}
	emb, ok := repo.embeddings[p.ID]
	if !ok || len(emb) == 0 {
		t.Fatal("embedding not stored")
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []struct {
		name    string
		profile *PatientProfile
	}{
		{"missing name", &PatientProfile{Diagnosis: "flu", Age: 30}},
		{"missing diagnosis", &PatientProfile{Name: "x", Age: 30}},
		{"negative age", &PatientProfile{Name: "x", Diagnosis: "flu", Age: -1}},
		{"implausible age", &PatientProfile{Name: "x", Diagnosis: "flu", Age: 200}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Create(context.Background(), tc.profile); !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestService_SearchSimilarRanksByOverlap(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pneumonia := testProfile("A", "community acquired pneumonia", []string{"amoxicillin", "azithromycin"})
	fracture := testProfile("B", "femur fracture surgical repair", []string{"oxycodone"})
	heart := testProfile("C", "congestive heart failure", []string{"furosemide", "lisinopril"})
	for _, p := range []*PatientProfile{pneumonia, fracture, heart} {
		if err := svc.Create(ctx, p); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	matches, err := svc.SearchSimilar(ctx, "Diagnosis: community acquired pneumonia\nMedications: amoxicillin", 2)
	if err != nil {
		t.Fatalf("SearchSimilar: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Profile.ID != pneumonia.ID {
		t.Errorf("top match = %s, want pneumonia profile", matches[0].Profile.Diagnosis)
	}
	if matches[0].Similarity < matches[1].Similarity {
		t.Errorf("matches not sorted: %f < %f", matches[0].Similarity, matches[1].Similarity)
	}
}

func TestService_SearchSimilarEmptyQuery(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.SearchSimilar(context.Background(), "  ", 5); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestService_UpdateReembeds(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	p := testProfile("Jane Roe", "pneumonia", []string{"amoxicillin"})
	if err := svc.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	before := make([]float64, len(repo.embeddings[p.ID]))
	copy(before, repo.embeddings[p.ID])

	p.Diagnosis = "congestive heart failure"
	if err := svc.Update(ctx, p); err != nil {
		t.Fatalf("Update: %v", err)
	}
	after := repo.embeddings[p.ID]
	same := len(before) == len(after)
	if same {
		for i := range before {
			if before[i] != after[i] {
				same = false
				break
			}
		}
	}
	if same {
		t.Error("embedding unchanged after diagnosis update")
	}
}

func TestService_GetAndDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p := testProfile("Jane Roe", "pneumonia", nil)
	if err := svc.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Jane Roe" {
		t.Errorf("name = %q", got.Name)
	}

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: err = %v", err)
	}
	if err := svc.Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}
