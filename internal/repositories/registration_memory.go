package repositories

import (
	"context"
	"sync"
	"time"

	"registrar/internal/models"
)

// InMemoryRegistrationRepository: для тестов и запуска без БД.
// Один мьютекс на всё хранилище: все UpdateBy* строго последовательны.
type InMemoryRegistrationRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.Registration
}

func NewInMemoryRegistrationRepository() *InMemoryRegistrationRepository {
	return &InMemoryRegistrationRepository{byID: make(map[int64]*models.Registration)}
}

func (r *InMemoryRegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	reg.ID = r.nextID
	now := time.Now().UTC()
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = now
	}
	reg.UpdatedAt = now
	r.byID[reg.ID] = reg.Clone()
	return nil
}

func (r *InMemoryRegistrationRepository) GetByID(ctx context.Context, id int64) (*models.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id].Clone(), nil
}

func (r *InMemoryRegistrationRepository) GetByAccessToken(ctx context.Context, token string) (*models.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByToken(token).Clone(), nil
}

func (r *InMemoryRegistrationRepository) UpdateByID(ctx context.Context, id int64, fn MutateFunc) (*models.Registration, error) {
	return r.update(ctx, func() *models.Registration { return r.byID[id] }, fn)
}

func (r *InMemoryRegistrationRepository) UpdateByAccessToken(ctx context.Context, token string, fn MutateFunc) (*models.Registration, error) {
	return r.update(ctx, func() *models.Registration { return r.findByToken(token) }, fn)
}

func (r *InMemoryRegistrationRepository) update(ctx context.Context, find func() *models.Registration, fn MutateFunc) (*models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := find()
	if stored == nil {
		return nil, ErrNotFound
	}
	working := stored.Clone()
	save, err := fn(working)
	if err != nil {
		return nil, err
	}
	// отмена до "коммита": изменения не видны
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if save {
		working.UpdatedAt = time.Now().UTC()
		r.byID[working.ID] = working.Clone()
	}
	return working, nil
}

func (r *InMemoryRegistrationRepository) findByToken(token string) *models.Registration {
	if token == "" {
		return nil
	}
	for _, reg := range r.byID {
		if reg.AccessToken != nil && *reg.AccessToken == token {
			return reg
		}
	}
	return nil
}
