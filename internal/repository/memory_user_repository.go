package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/campusattend/attendance/internal/model"
)

type memoryUserRepository struct {
	users   map[string]model.User
	byEmail map[string]string
	mutex   sync.RWMutex
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{
		users:   make(map[string]model.User),
		byEmail: make(map[string]string),
	}
}

func (r *memoryUserRepository) Create(ctx context.Context, user model.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := r.users[user.ID]; exists {
		return ErrDuplicate
	}
	if _, exists := r.byEmail[email]; exists {
		return ErrDuplicate
	}
	r.users[user.ID] = user
	r.byEmail[email] = user.ID
	return nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return model.User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryUserRepository) List(ctx context.Context) ([]model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *memoryUserRepository) UpdateRole(ctx context.Context, id string, role model.Role) (model.User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, exists := r.users[id]
	if !exists {
		return model.User{}, ErrNotFound
	}
	user.Role = role
	r.users[id] = user
	return user, nil
}
