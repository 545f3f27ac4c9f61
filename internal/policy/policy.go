// Package policy decides whether an actor may perform an action on a
// resource. Every service calls Authorize instead of comparing role
// strings inline.
package policy

import (
	"github.com/campusattend/attendance/internal/apperr"
	"github.com/campusattend/attendance/internal/model"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role model.Role
}

// Action names an operation guarded by the policy.
type Action string

const (
	CourseCreate Action = "course.create"
	CourseView   Action = "course.view"
	CourseUpdate Action = "course.update"
	CourseDelete Action = "course.delete"

	EnrollmentManage Action = "enrollment.manage"

	SessionManage Action = "session.manage"
	SessionView   Action = "session.view"
	SessionViewQR Action = "session.view_qr"

	AttendanceCheckIn     Action = "attendance.checkin"
	AttendanceMark        Action = "attendance.mark"
	AttendanceRemove      Action = "attendance.remove"
	AttendanceViewSession Action = "attendance.view_session"
	AttendanceViewStudent Action = "attendance.view_student"

	UserManage Action = "user.manage"
	UserView   Action = "user.view"
)

// Resource describes what is being acted on. OwnerID is the owning
// instructor of the course the resource belongs to; SubjectID is the
// student (or user) the data is about. Either may be empty. Member is set
// when the actor is on the course roster.
type Resource struct {
	OwnerID   string
	SubjectID string
	Member    bool
}

// Course builds the resource for anything scoped to c.
func Course(c model.Course) Resource { return Resource{OwnerID: c.InstructorID} }

// Subject builds the resource for data belonging to one user.
func Subject(userID string) Resource { return Resource{SubjectID: userID} }

// Decision is the outcome of a policy evaluation.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

// Evaluate returns the decision without building an error.
func Evaluate(actor Actor, action Action, res Resource) Decision {
	if actor.ID == "" {
		return Deny
	}
	switch actor.Role {
	case model.RoleAdmin:
		return Allow
	case model.RoleInstructor:
		return instructor(actor, action, res)
	case model.RoleStudent:
		return student(actor, action, res)
	default:
		return Deny
	}
}

func instructor(actor Actor, action Action, res Resource) Decision {
	switch action {
	case CourseCreate, CourseView, SessionView, UserView:
		return Allow
	case CourseUpdate, CourseDelete, EnrollmentManage, SessionManage, SessionViewQR,
		AttendanceMark, AttendanceRemove, AttendanceViewSession:
		return Decision(res.OwnerID != "" && res.OwnerID == actor.ID)
	case AttendanceViewStudent:
		// Instructors read a student's record through a course they own.
		if res.OwnerID != "" {
			return Decision(res.OwnerID == actor.ID)
		}
		return Decision(res.SubjectID == actor.ID)
	default:
		return Deny
	}
}

func student(actor Actor, action Action, res Resource) Decision {
	switch action {
	case CourseView, SessionView:
		return Decision(res.Member)
	case AttendanceCheckIn, AttendanceViewStudent, UserView:
		return Decision(res.SubjectID == actor.ID)
	default:
		return Deny
	}
}

// Authorize returns nil when allowed and a Forbidden error otherwise.
func Authorize(actor Actor, action Action, res Resource) error {
	if Evaluate(actor, action, res) == Allow {
		return nil
	}
	return apperr.ErrForbidden
}
