package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/campusattend/attendance/internal/apperr"
	"github.com/campusattend/attendance/internal/logger"
	"github.com/campusattend/attendance/internal/model"
	"github.com/campusattend/attendance/internal/policy"
	"github.com/campusattend/attendance/internal/queue"
	"github.com/campusattend/attendance/internal/repository"
)

var (
	start   = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	admin   = policy.Actor{ID: "admin", Role: model.RoleAdmin}
	owner   = policy.Actor{ID: "inst-1", Role: model.RoleInstructor}
	other   = policy.Actor{ID: "inst-2", Role: model.RoleInstructor}
	student = policy.Actor{ID: "stud-1", Role: model.RoleStudent}
)

func setup(t *testing.T) (*Service, repository.Store) {
	t.Helper()
	store := repository.NewMemoryStore()
	c := model.Course{ID: "course-1", Code: "CS101", Name: "Intro", InstructorID: owner.ID, Semester: "spring", Year: 2026, CreatedAt: start}
	if err := store.Courses.Create(context.Background(), c); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	svc := NewService(store, nil, logger.Discard())
	svc.now = func() time.Time { return start.Add(-time.Hour) }
	return svc, store
}

func lecture() CreateInput {
	return CreateInput{CourseID: "course-1", Title: "Lecture 1", ScheduledDate: "2026-03-02", StartTime: start, EndTime: start.Add(time.Hour)}
}

func TestQRCodesAreUnique(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	secrets := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		code, err := newQRCode("0123456789abcdef")
		if err != nil {
			t.Fatalf("newQRCode: %v", err)
		}
		if !wellFormed(code) {
			t.Fatalf("malformed token %q", code)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("collision after %d tokens", i)
		}
		seen[code] = struct{}{}
		_, secret, _ := strings.Cut(code, ".")
		secrets[secret] = struct{}{}
	}
	if len(secrets) != n {
		t.Fatalf("got %d distinct secrets, want %d", len(secrets), n)
	}
}

func TestWellFormed(t *testing.T) {
	good, _ := newQRCode("abc")
	cases := map[string]bool{
		good:                  true,
		"":                    false,
		"no-dot":              false,
		".secret":             false,
		"abcdefghi." + "AAAA": false,
		"abc.!!!!":            false,
		"abc.AAAA":            false,
	}
	for token, want := range cases {
		if got := wellFormed(token); got != want {
			t.Errorf("wellFormed(%q) = %v, want %v", token, got, want)
		}
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	sess, err := svc.Create(ctx, owner, lecture())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !sess.IsActive {
		t.Fatal("new sessions should be active")
	}
	if !strings.HasPrefix(sess.QRCode, sess.ID[:8]+".") {
		t.Fatalf("qr code %q lacks id hint", sess.QRCode)
	}

	got, err := svc.ResolveByQRCode(ctx, sess.QRCode)
	if err != nil || got.ID != sess.ID {
		t.Fatalf("ResolveByQRCode = %+v, %v", got, err)
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	bad := []func(*CreateInput){
		func(in *CreateInput) { in.Title = "  " },
		func(in *CreateInput) { in.ScheduledDate = "02/03/2026" },
		func(in *CreateInput) { in.EndTime = in.StartTime },
		func(in *CreateInput) { in.EndTime = in.StartTime.Add(-time.Minute) },
		func(in *CreateInput) { in.StartTime = time.Time{} },
	}
	for i, mutate := range bad {
		in := lecture()
		mutate(&in)
		if _, err := svc.Create(ctx, owner, in); apperr.KindOf(err) != apperr.KindInvalidInput {
			t.Errorf("case %d: got %v, want invalid input", i, err)
		}
	}

	in := lecture()
	in.CourseID = "missing"
	if _, err := svc.Create(ctx, student, in); !errors.Is(err, apperr.ErrCourseNotFound) {
		t.Fatalf("missing course: got %v", err)
	}
	if _, err := svc.Create(ctx, other, lecture()); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("non-owner: got %v", err)
	}
	if _, err := svc.Create(ctx, student, lecture()); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("student: got %v", err)
	}
}

type collidingSessions struct {
	repository.SessionRepository
	failures int
	calls    int
}

func (c *collidingSessions) Create(ctx context.Context, s model.Session) error {
	c.calls++
	if c.calls <= c.failures {
		return repository.ErrDuplicate
	}
	return c.SessionRepository.Create(ctx, s)
}

func TestCreateRetriesOnCollision(t *testing.T) {
	ctx := context.Background()

	svc, store := setup(t)
	repo := &collidingSessions{SessionRepository: store.Sessions, failures: 2}
	svc.sessions = repo
	if _, err := svc.Create(ctx, owner, lecture()); err != nil {
		t.Fatalf("Create after 2 collisions: %v", err)
	}
	if repo.calls != 3 {
		t.Fatalf("calls = %d, want 3", repo.calls)
	}

	svc, store = setup(t)
	svc.sessions = &collidingSessions{SessionRepository: store.Sessions, failures: 3}
	if _, err := svc.Create(ctx, owner, lecture()); apperr.KindOf(err) != apperr.KindInternal {
		t.Fatalf("Create after 3 collisions: got %v, want internal", err)
	}
}

func TestResolveUnknownToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	forged, _ := newQRCode("deadbeef")
	for _, token := range []string{"", "garbage", forged} {
		if _, err := svc.ResolveByQRCode(ctx, token); !errors.Is(err, apperr.ErrInvalidQRCode) {
			t.Errorf("ResolveByQRCode(%q) = %v", token, err)
		}
	}
}

func TestStudentsSeeOnlyEnrolledCourses(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t)
	sess, _ := svc.Create(ctx, owner, lecture())

	if _, err := svc.ListByCourse(ctx, student, "course-1"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("unenrolled ListByCourse: got %v", err)
	}
	if _, err := svc.Get(ctx, student, sess.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("unenrolled Get: got %v", err)
	}
	if err := store.Enrollments.Create(ctx, model.Enrollment{CourseID: "course-1", StudentID: student.ID, EnrolledAt: start}); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if list, err := svc.ListByCourse(ctx, student, "course-1"); err != nil || len(list) != 1 {
		t.Fatalf("enrolled ListByCourse = %+v, %v", list, err)
	}
}

func TestQRCodeHiddenFromStudents(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t)
	sess, _ := svc.Create(ctx, owner, lecture())
	if err := store.Enrollments.Create(ctx, model.Enrollment{CourseID: "course-1", StudentID: student.ID, EnrolledAt: start}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	for _, a := range []policy.Actor{owner, admin} {
		got, err := svc.Get(ctx, a, sess.ID)
		if err != nil || got.QRCode != sess.QRCode {
			t.Fatalf("%s Get = %+v, %v", a.Role, got, err)
		}
	}
	for _, a := range []policy.Actor{student, other} {
		got, err := svc.Get(ctx, a, sess.ID)
		if err != nil || got.QRCode != "" {
			t.Fatalf("%s Get leaked qr code: %+v, %v", a.ID, got, err)
		}
		list, err := svc.ListByCourse(ctx, a, "course-1")
		if err != nil || len(list) != 1 || list[0].QRCode != "" {
			t.Fatalf("%s ListByCourse = %+v, %v", a.ID, list, err)
		}
	}
}

// received reads n messages from q or fails after a second.
func received(t *testing.T, q *queue.InMemory, n int) []queue.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ch, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	var out []queue.Message
	for len(out) < n {
		msg, ok := <-ch
		if !ok {
			t.Fatalf("got %d messages, want %d", len(out), n)
		}
		out = append(out, msg)
	}
	return out
}

func TestSetActiveAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	q := queue.NewInMemory(4)
	svc.announce = NewAnnouncer(q, logger.Discard())
	sess, _ := svc.Create(ctx, owner, lecture())

	if _, err := svc.SetActive(ctx, other, sess.ID, false); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("non-owner SetActive: got %v", err)
	}
	closed, err := svc.SetActive(ctx, owner, sess.ID, false)
	if err != nil || closed.IsActive {
		t.Fatalf("SetActive(false) = %+v, %v", closed, err)
	}
	if closed.CheckableAt(start.Add(30 * time.Minute)) {
		t.Fatal("closed session must not be checkable")
	}
	if _, err := svc.SetActive(ctx, admin, "nope", true); !errors.Is(err, apperr.ErrSessionNotFound) {
		t.Fatalf("SetActive missing: got %v", err)
	}

	if err := svc.Delete(ctx, student, sess.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("student Delete: got %v", err)
	}
	if err := svc.Delete(ctx, owner, sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.ResolveByQRCode(ctx, sess.QRCode); !errors.Is(err, apperr.ErrInvalidQRCode) {
		t.Fatalf("token should be dead after delete, got %v", err)
	}

	msg := received(t, q, 1)[0]
	evt, err := DecodeEvent(msg)
	if msg.Type != EventDeleted || err != nil || evt.SessionID != sess.ID || evt.CourseID != "course-1" {
		t.Fatalf("deleted event = %s %+v, %v", msg.Type, evt, err)
	}
}
