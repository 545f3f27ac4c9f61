package user

import (
	"context"
	"errors"
	"testing"

	"github.com/campusattend/attendance/internal/apperr"
	"github.com/campusattend/attendance/internal/logger"
	"github.com/campusattend/attendance/internal/model"
	"github.com/campusattend/attendance/internal/policy"
	"github.com/campusattend/attendance/internal/repository"
)

var admin = policy.Actor{ID: "root", Role: model.RoleAdmin}

func newService() *Service {
	return NewService(repository.NewMemoryStore().Users, logger.Discard())
}

func TestCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	s := newService()

	u, err := s.Create(ctx, admin, CreateInput{Email: " Ana@Uni.Test ", Name: "Ana", Role: model.RoleStudent, StudentID: "S-1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Email != "ana@uni.test" || u.StudentID == nil || *u.StudentID != "S-1" || u.Department != nil {
		t.Fatalf("Create returned %+v", u)
	}

	got, err := s.Lookup(ctx, u.ID)
	if err != nil || got.ID != u.ID {
		t.Fatalf("Lookup = %+v, %v", got, err)
	}

	if _, err := s.Create(ctx, admin, CreateInput{Email: "ana@uni.test", Name: "Other", Role: model.RoleStudent}); !errors.Is(err, apperr.ErrDuplicateEmail) {
		t.Fatalf("duplicate email: got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	s := newService()
	cases := []CreateInput{
		{Email: "not-an-email", Name: "x", Role: model.RoleStudent},
		{Email: "a@b.test", Name: " ", Role: model.RoleStudent},
		{Email: "a@b.test", Name: "x", Role: "professor"},
	}
	for _, in := range cases {
		if _, err := s.Create(context.Background(), admin, in); apperr.KindOf(err) != apperr.KindInvalidInput {
			t.Errorf("Create(%+v) = %v, want invalid input", in, err)
		}
	}
}

func TestOnlyAdminsManageUsers(t *testing.T) {
	ctx := context.Background()
	s := newService()
	inst := policy.Actor{ID: "i", Role: model.RoleInstructor}

	if _, err := s.Create(ctx, inst, CreateInput{Email: "x@y.test", Name: "x", Role: model.RoleAdmin}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("instructor create: got %v", err)
	}
	if _, err := s.List(ctx, inst); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("instructor list: got %v", err)
	}
}

func TestSetRoleAndStudentVisibility(t *testing.T) {
	ctx := context.Background()
	s := newService()
	u, _ := s.Bootstrap(ctx, CreateInput{Email: "s@uni.test", Name: "S", Role: model.RoleStudent})
	other, _ := s.Bootstrap(ctx, CreateInput{Email: "o@uni.test", Name: "O", Role: model.RoleStudent})

	self := policy.Actor{ID: u.ID, Role: model.RoleStudent}
	if _, err := s.Get(ctx, self, u.ID); err != nil {
		t.Fatalf("self Get: %v", err)
	}
	if _, err := s.Get(ctx, self, other.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("peer Get: got %v", err)
	}

	updated, err := s.SetRole(ctx, admin, u.ID, model.RoleInstructor)
	if err != nil || updated.Role != model.RoleInstructor {
		t.Fatalf("SetRole = %+v, %v", updated, err)
	}
	if _, err := s.SetRole(ctx, admin, "missing", model.RoleAdmin); !errors.Is(err, apperr.ErrUserNotFound) {
		t.Fatalf("SetRole missing: got %v", err)
	}
	if _, err := s.SetRole(ctx, admin, u.ID, "root"); apperr.KindOf(err) != apperr.KindInvalidInput {
		t.Fatalf("SetRole invalid: got %v", err)
	}
}
