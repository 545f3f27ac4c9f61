package course

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusattend/attendance/internal/apperr"
	"github.com/campusattend/attendance/internal/logger"
	"github.com/campusattend/attendance/internal/model"
	"github.com/campusattend/attendance/internal/policy"
	"github.com/campusattend/attendance/internal/queue"
	"github.com/campusattend/attendance/internal/repository"
	"github.com/campusattend/attendance/internal/session"
)

type env struct {
	svc     *Service
	store   repository.Store
	admin   policy.Actor
	owner   policy.Actor
	other   policy.Actor
	student policy.Actor
}

func setup(t *testing.T) env {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	users := []model.User{
		{ID: "admin", Email: "admin@uni.test", Name: "Admin", Role: model.RoleAdmin, CreatedAt: now},
		{ID: "inst-1", Email: "i1@uni.test", Name: "Owner", Role: model.RoleInstructor, CreatedAt: now},
		{ID: "inst-2", Email: "i2@uni.test", Name: "Other", Role: model.RoleInstructor, CreatedAt: now},
		{ID: "stud-1", Email: "s1@uni.test", Name: "Student", Role: model.RoleStudent, CreatedAt: now},
	}
	for _, u := range users {
		if err := store.Users.Create(ctx, u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	svc := NewService(store, nil, logger.Discard())
	svc.now = func() time.Time { return now }
	return env{
		svc:     svc,
		store:   store,
		admin:   policy.Actor{ID: "admin", Role: model.RoleAdmin},
		owner:   policy.Actor{ID: "inst-1", Role: model.RoleInstructor},
		other:   policy.Actor{ID: "inst-2", Role: model.RoleInstructor},
		student: policy.Actor{ID: "stud-1", Role: model.RoleStudent},
	}
}

func TestCreateOwnership(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	c, err := e.svc.Create(ctx, e.owner, Input{Code: "CS101", Name: "Intro", InstructorID: "inst-2", Semester: "spring", Year: 2026})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.InstructorID != "inst-1" {
		t.Fatalf("instructor should own own course, got %q", c.InstructorID)
	}

	if _, err := e.svc.Create(ctx, e.admin, Input{Code: "CS102", Name: "Data", Year: 2026}); apperr.KindOf(err) != apperr.KindInvalidInput {
		t.Fatalf("admin create without instructor: got %v", err)
	}
	if _, err := e.svc.Create(ctx, e.admin, Input{Code: "CS102", Name: "Data", InstructorID: "stud-1", Year: 2026}); apperr.KindOf(err) != apperr.KindInvalidInput {
		t.Fatalf("student as owner: got %v", err)
	}
	if _, err := e.svc.Create(ctx, e.student, Input{Code: "CS103", Name: "x", Year: 2026}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("student create: got %v", err)
	}
	if _, err := e.svc.Create(ctx, e.owner, Input{Code: "CS101", Name: "Again", Year: 2026}); !errors.Is(err, apperr.ErrDuplicateCourseCode) {
		t.Fatalf("duplicate code: got %v", err)
	}
}

func TestUpdateAndDeleteRequireOwner(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	c, _ := e.svc.Create(ctx, e.owner, Input{Code: "CS101", Name: "Intro", Year: 2026})

	if _, err := e.svc.Update(ctx, e.other, c.ID, Input{Code: "CS101", Name: "Hijack", Year: 2026}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("non-owner update: got %v", err)
	}
	updated, err := e.svc.Update(ctx, e.owner, c.ID, Input{Code: "CS101A", Name: "Intro II", Semester: "fall", Year: 2026})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Code != "CS101A" || updated.InstructorID != "inst-1" {
		t.Fatalf("update = %+v", updated)
	}
	if _, err := e.svc.Update(ctx, e.owner, c.ID, Input{Code: "CS101A", Name: "x", InstructorID: "inst-2", Year: 2026}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("instructor transfer: got %v", err)
	}
	if _, err := e.svc.Update(ctx, e.admin, c.ID, Input{Code: "CS101A", Name: "x", InstructorID: "inst-2", Year: 2026}); err != nil {
		t.Fatalf("admin transfer: %v", err)
	}

	if err := e.svc.Delete(ctx, e.owner, c.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("former owner delete: got %v", err)
	}
	if err := e.svc.Delete(ctx, e.other, c.ID); err != nil {
		t.Fatalf("new owner delete: %v", err)
	}
	if _, err := e.svc.Get(ctx, e.admin, c.ID); !errors.Is(err, apperr.ErrCourseNotFound) {
		t.Fatalf("Get after delete: got %v", err)
	}
}

func TestDeleteAnnouncesSessions(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	q := queue.NewInMemory(4)
	e.svc.announce = session.NewAnnouncer(q, logger.Discard())
	c, _ := e.svc.Create(ctx, e.owner, Input{Code: "CS101", Name: "Intro", Year: 2026})
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"s-1", "s-2"} {
		sess := model.Session{ID: id, CourseID: c.ID, Title: id, ScheduledDate: "2026-03-02", StartTime: start, EndTime: start.Add(time.Hour), QRCode: "qr-" + id, IsActive: true, CreatedAt: start}
		if err := e.store.Sessions.Create(ctx, sess); err != nil {
			t.Fatalf("seed session: %v", err)
		}
	}

	if err := e.svc.Delete(ctx, e.owner, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	cctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	ch, _ := q.Consume(cctx)
	seen := map[string]bool{}
	for len(seen) < 2 {
		msg, ok := <-ch
		if !ok {
			t.Fatalf("announced %v, want s-1 and s-2", seen)
		}
		evt, err := session.DecodeEvent(msg)
		if msg.Type != session.EventDeleted || err != nil || evt.CourseID != c.ID {
			t.Fatalf("event = %s %+v, %v", msg.Type, evt, err)
		}
		seen[evt.SessionID] = true
	}
	if !seen["s-1"] || !seen["s-2"] {
		t.Fatalf("announced %v", seen)
	}
}

func TestMissingCourseIsNotFoundBeforeForbidden(t *testing.T) {
	e := setup(t)
	if err := e.svc.Delete(context.Background(), e.student, "nope"); !errors.Is(err, apperr.ErrCourseNotFound) {
		t.Fatalf("got %v, want course_not_found", err)
	}
}

func TestEnrollment(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	c, _ := e.svc.Create(ctx, e.owner, Input{Code: "CS101", Name: "Intro", Year: 2026})

	if _, err := e.svc.Enroll(ctx, e.other, c.ID, "stud-1"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("non-owner enroll: got %v", err)
	}
	if _, err := e.svc.Enroll(ctx, e.owner, c.ID, "inst-2"); apperr.KindOf(err) != apperr.KindInvalidInput {
		t.Fatalf("enroll instructor: got %v", err)
	}
	if _, err := e.svc.Enroll(ctx, e.owner, c.ID, "ghost"); apperr.KindOf(err) != apperr.KindInvalidInput {
		t.Fatalf("enroll unknown user: got %v", err)
	}
	if _, err := e.svc.Get(ctx, e.student, c.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("unenrolled student Get: got %v", err)
	}
	if _, err := e.svc.Enroll(ctx, e.owner, c.ID, "stud-1"); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if got, err := e.svc.Get(ctx, e.student, c.ID); err != nil || got.ID != c.ID {
		t.Fatalf("enrolled student Get = %+v, %v", got, err)
	}
	if _, err := e.svc.Enroll(ctx, e.owner, c.ID, "stud-1"); !errors.Is(err, apperr.ErrDuplicateEnrollment) {
		t.Fatalf("second enroll: got %v", err)
	}

	ok, err := e.svc.IsEnrolled(ctx, c.ID, "stud-1")
	if err != nil || !ok {
		t.Fatalf("IsEnrolled = %v, %v", ok, err)
	}
	roster, err := e.svc.ListEnrollments(ctx, e.owner, c.ID)
	if err != nil || len(roster) != 1 {
		t.Fatalf("ListEnrollments = %v, %v", roster, err)
	}

	courses, err := e.svc.List(ctx, e.student)
	if err != nil || len(courses) != 1 || courses[0].ID != c.ID {
		t.Fatalf("student List = %v, %v", courses, err)
	}
	if got, _ := e.svc.List(ctx, e.other); len(got) != 0 {
		t.Fatalf("other instructor sees %v", got)
	}

	if err := e.svc.Unenroll(ctx, e.owner, c.ID, "stud-1"); err != nil {
		t.Fatalf("Unenroll: %v", err)
	}
	if err := e.svc.Unenroll(ctx, e.owner, c.ID, "stud-1"); !errors.Is(err, apperr.ErrEnrollmentNotFound) {
		t.Fatalf("second unenroll: got %v", err)
	}
	if ok, _ := e.svc.IsEnrolled(ctx, c.ID, "stud-1"); ok {
		t.Fatal("still enrolled after Unenroll")
	}
	if _, err := e.svc.Get(ctx, e.student, c.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("Get after Unenroll: got %v", err)
	}
}
