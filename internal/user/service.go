package user

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusattend/attendance/internal/apperr"
	"github.com/campusattend/attendance/internal/model"
	"github.com/campusattend/attendance/internal/policy"
	"github.com/campusattend/attendance/internal/repository"
)

// Service is the identity directory.
type Service struct {
	users repository.UserRepository
	log   *slog.Logger
	now   func() time.Time
}

// NewService creates a directory backed by users.
func NewService(users repository.UserRepository, log *slog.Logger) *Service {
	return &Service{users: users, log: log, now: time.Now}
}

// CreateInput carries the fields for a new user.
type CreateInput struct {
	Email      string
	Name       string
	Role       model.Role
	StudentID  string
	Department string
}

// Create registers a user. Only admins may call it.
func (s *Service) Create(ctx context.Context, actor policy.Actor, in CreateInput) (model.User, error) {
	if err := policy.Authorize(actor, policy.UserManage, policy.Resource{}); err != nil {
		return model.User{}, err
	}
	u, err := s.build(in)
	if err != nil {
		return model.User{}, err
	}
	return s.insert(ctx, u)
}

// Bootstrap creates a user without an actor. It is used by operator
// tooling to seed the first admin.
func (s *Service) Bootstrap(ctx context.Context, in CreateInput) (model.User, error) {
	u, err := s.build(in)
	if err != nil {
		return model.User{}, err
	}
	return s.insert(ctx, u)
}

func (s *Service) build(in CreateInput) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return model.User{}, apperr.InvalidInput("a valid email is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.User{}, apperr.InvalidInput("name is required")
	}
	if !in.Role.Valid() {
		return model.User{}, apperr.InvalidInput("role must be student, instructor or admin")
	}
	u := model.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      in.Role,
		CreatedAt: s.now().UTC(),
	}
	if v := strings.TrimSpace(in.StudentID); v != "" {
		u.StudentID = &v
	}
	if v := strings.TrimSpace(in.Department); v != "" {
		u.Department = &v
	}
	return u, nil
}

func (s *Service) insert(ctx context.Context, u model.User) (model.User, error) {
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, apperr.ErrDuplicateEmail
		}
		return model.User{}, apperr.Internal(err)
	}
	s.log.Info("user created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Get returns a user visible to actor.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id string) (model.User, error) {
	if err := policy.Authorize(actor, policy.UserView, policy.Subject(id)); err != nil {
		return model.User{}, err
	}
	return s.Lookup(ctx, id)
}

// Lookup resolves a user without an authorization check. Auth middleware
// uses it to load the caller's current role.
func (s *Service) Lookup(ctx context.Context, id string) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, apperr.ErrUserNotFound
		}
		return model.User{}, apperr.Internal(err)
	}
	return u, nil
}

// List returns every user. Admin only.
func (s *Service) List(ctx context.Context, actor policy.Actor) ([]model.User, error) {
	if err := policy.Authorize(actor, policy.UserManage, policy.Resource{}); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// SetRole changes a user's role. Admin only.
func (s *Service) SetRole(ctx context.Context, actor policy.Actor, id string, role model.Role) (model.User, error) {
	if err := policy.Authorize(actor, policy.UserManage, policy.Resource{}); err != nil {
		return model.User{}, err
	}
	if !role.Valid() {
		return model.User{}, apperr.InvalidInput("role must be student, instructor or admin")
	}
	u, err := s.users.UpdateRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, apperr.ErrUserNotFound
		}
		return model.User{}, apperr.Internal(err)
	}
	s.log.Info("user role changed", "user_id", id, "role", role, "by", actor.ID)
	return u, nil
}
