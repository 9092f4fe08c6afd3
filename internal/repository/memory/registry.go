package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

// Registry is an in-process identity registry for development and tests
type Registry struct {
	mu    sync.RWMutex
	items map[string]domain.EnrolledIdentity
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]domain.EnrolledIdentity)}
}

// UpsertIdentity stores identity, replacing any previous enrollment with the same id
func (r *Registry) UpsertIdentity(ctx context.Context, identity *domain.EnrolledIdentity) error {
	if identity.ID == "" {
		return domain.ErrInvalidIdentity
	}
	if identity.EnrolledAt.IsZero() {
		identity.EnrolledAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[identity.ID] = cloneIdentity(*identity)
	return nil
}

// ListIdentities returns a snapshot ordered by enrollment time, then id
func (r *Registry) ListIdentities(ctx context.Context) ([]domain.EnrolledIdentity, error) {
	r.mu.RLock()
	out := make([]domain.EnrolledIdentity, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, cloneIdentity(it))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].EnrolledAt.Equal(out[j].EnrolledAt) {
			return out[i].EnrolledAt.Before(out[j].EnrolledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Registry) GetIdentity(ctx context.Context, id string) (*domain.EnrolledIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	c := cloneIdentity(it)
	return &c, nil
}

func (r *Registry) DeleteIdentity(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrIdentityNotFound
	}
	delete(r.items, id)
	return nil
}

func cloneIdentity(it domain.EnrolledIdentity) domain.EnrolledIdentity {
	it.Embedding = append(domain.Embedding(nil), it.Embedding...)
	return it
}

func (r *Registry) CountIdentities(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}
