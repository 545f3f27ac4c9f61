package policy

import (
	"errors"
	"testing"

	"github.com/campusattend/attendance/internal/apperr"
	"github.com/campusattend/attendance/internal/model"
)

var (
	admin    = Actor{ID: "admin", Role: model.RoleAdmin}
	owner    = Actor{ID: "inst-1", Role: model.RoleInstructor}
	other    = Actor{ID: "inst-2", Role: model.RoleInstructor}
	student1 = Actor{ID: "stud-1", Role: model.RoleStudent}
	ownedRes = Resource{OwnerID: "inst-1"}
)

func TestAdminAllowedEverything(t *testing.T) {
	for _, a := range []Action{CourseDelete, SessionManage, AttendanceRemove, UserManage} {
		if Evaluate(admin, a, Resource{}) != Allow {
			t.Errorf("admin %s: got deny", a)
		}
	}
}

func TestInstructorOwnership(t *testing.T) {
	for _, a := range []Action{CourseUpdate, SessionManage, SessionViewQR, AttendanceMark, AttendanceRemove, AttendanceViewSession, EnrollmentManage} {
		if Evaluate(owner, a, ownedRes) != Allow {
			t.Errorf("owner %s: got deny", a)
		}
		if Evaluate(other, a, ownedRes) != Deny {
			t.Errorf("non-owner %s: got allow", a)
		}
	}
	if Evaluate(owner, CourseCreate, Resource{}) != Allow {
		t.Error("instructor should create courses")
	}
	if Evaluate(owner, UserManage, Resource{}) != Deny {
		t.Error("instructor must not manage users")
	}
	// An empty owner never matches.
	if Evaluate(owner, SessionManage, Resource{}) != Deny {
		t.Error("empty owner must deny")
	}
}

func TestStudentScopedToSelf(t *testing.T) {
	if Evaluate(student1, AttendanceCheckIn, Subject("stud-1")) != Allow {
		t.Error("student should check in as self")
	}
	if Evaluate(student1, AttendanceCheckIn, Subject("stud-2")) != Deny {
		t.Error("student must not check in for others")
	}
	if Evaluate(student1, AttendanceViewStudent, Subject("stud-2")) != Deny {
		t.Error("student must not read another student's attendance")
	}
	for _, a := range []Action{CourseView, SessionView} {
		if Evaluate(student1, a, Resource{OwnerID: "inst-1", Member: true}) != Allow {
			t.Errorf("enrolled student %s: got deny", a)
		}
		if Evaluate(student1, a, Resource{OwnerID: "inst-1"}) != Deny {
			t.Errorf("unenrolled student %s: got allow", a)
		}
	}
	for _, a := range []Action{CourseCreate, SessionManage, SessionViewQR, AttendanceMark, AttendanceViewSession} {
		if Evaluate(student1, a, Resource{OwnerID: "stud-1", Member: true}) != Deny {
			t.Errorf("student %s: got allow", a)
		}
	}
}

func TestUnknownRoleAndAnonymousDenied(t *testing.T) {
	if Evaluate(Actor{ID: "x", Role: "guest"}, CourseView, Resource{}) != Deny {
		t.Error("unknown role must be denied")
	}
	if Evaluate(Actor{Role: model.RoleAdmin}, CourseView, Resource{}) != Deny {
		t.Error("actor without id must be denied")
	}
}

func TestAuthorizeReturnsForbidden(t *testing.T) {
	err := Authorize(other, CourseDelete, ownedRes)
	if !errors.Is(err, apperr.ErrForbidden) || apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("Authorize = %v, want forbidden", err)
	}
	if err := Authorize(owner, CourseDelete, ownedRes); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}
