package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"Copilot/internal/domain/models"
	domrepo "Copilot/internal/domain/repository"
)

// MemoryUserRepo is an in-process UserRepository for development and tests.
type MemoryUserRepo struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*models.User
	emails []*models.EmailAddress
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[int64]*models.User)}
}

func (r *MemoryUserRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == u.Username {
			return nil, domrepo.ErrDuplicateUsername
		}
	}
	r.nextID++
	created := *u
	created.ID = r.nextID
	if created.DateJoined.IsZero() {
		created.DateJoined = time.Now().UTC()
	}
	r.users[created.ID] = &created
	if created.Email != "" {
		r.emails = append(r.emails, &models.EmailAddress{
			ID:      int64(len(r.emails) + 1),
			UserID:  created.ID,
			Email:   created.Email,
			Primary: true,
		})
	}
	out := created
	return &out, nil
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domrepo.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *MemoryUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, domrepo.ErrUserNotFound
}

func (r *MemoryUserRepo) ListByEmail(_ context.Context, email string) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.User
	for id := int64(1); id <= r.nextID; id++ {
		u, ok := r.users[id]
		if ok && u.IsActive && strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryUserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domrepo.ErrUserNotFound
	}
	delete(r.users, id)
	kept := r.emails[:0]
	for _, e := range r.emails {
		if e.UserID != id {
			kept = append(kept, e)
		}
	}
	r.emails = kept
	return nil
}

func (r *MemoryUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domrepo.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *MemoryUserRepo) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (r *MemoryUserRepo) PrimaryEmail(_ context.Context, userID int64) (*models.EmailAddress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *models.EmailAddress
	for _, e := range r.emails {
		if e.UserID != userID {
			continue
		}
		if found == nil || (e.Primary && !found.Primary) {
			found = e
		}
	}
	if found == nil {
		return nil, domrepo.ErrUserNotFound
	}
	out := *found
	return &out, nil
}

func (r *MemoryUserRepo) IsEmailVerified(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.emails {
		if e.Verified && strings.EqualFold(e.Email, strings.TrimSpace(email)) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryUserRepo) MarkEmailVerified(_ context.Context, userID int64, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var target *models.EmailAddress
	for _, e := range r.emails {
		if !strings.EqualFold(e.Email, email) {
			continue
		}
		if e.UserID == userID {
			target = e
			continue
		}
		if e.Verified {
			return domrepo.ErrEmailTaken
		}
	}
	if target == nil {
		return domrepo.ErrUserNotFound
	}
	target.Verified = true
	return nil
}

func (r *MemoryUserRepo) Ping(context.Context) error { return nil }
