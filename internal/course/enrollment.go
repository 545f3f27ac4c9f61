package course

import (
	"context"
	"errors"

	"github.com/campusattend/attendance/internal/apperr"
	"github.com/campusattend/attendance/internal/model"
	"github.com/campusattend/attendance/internal/policy"
	"github.com/campusattend/attendance/internal/repository"
)

// Enroll adds a student to the course roster.
func (s *Service) Enroll(ctx context.Context, actor policy.Actor, courseID, studentID string) (model.Enrollment, error) {
	c, err := s.Load(ctx, courseID)
	if err != nil {
		return model.Enrollment{}, err
	}
	if err := policy.Authorize(actor, policy.EnrollmentManage, policy.Course(c)); err != nil {
		return model.Enrollment{}, err
	}
	if studentID == "" {
		return model.Enrollment{}, apperr.InvalidInput("student_id is required")
	}
	u, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Enrollment{}, apperr.InvalidInput("student does not exist")
		}
		return model.Enrollment{}, apperr.Internal(err)
	}
	if u.Role != model.RoleStudent {
		return model.Enrollment{}, apperr.InvalidInput("only students can be enrolled")
	}

	e := model.Enrollment{CourseID: c.ID, StudentID: studentID, EnrolledAt: s.now().UTC()}
	if err := s.enrollments.Create(ctx, e); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Enrollment{}, apperr.ErrDuplicateEnrollment
		}
		return model.Enrollment{}, apperr.Internal(err)
	}
	s.log.Info("student enrolled", "course_id", c.ID, "student_id", studentID)
	return e, nil
}

// Unenroll removes a student from the roster. Existing attendance
// records are kept.
func (s *Service) Unenroll(ctx context.Context, actor policy.Actor, courseID, studentID string) error {
	c, err := s.Load(ctx, courseID)
	if err != nil {
		return err
	}
	if err := policy.Authorize(actor, policy.EnrollmentManage, policy.Course(c)); err != nil {
		return err
	}
	if err := s.enrollments.Delete(ctx, courseID, studentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrEnrollmentNotFound
		}
		return apperr.Internal(err)
	}
	s.log.Info("student unenrolled", "course_id", courseID, "student_id", studentID)
	return nil
}

// ListEnrollments returns the roster of a course.
func (s *Service) ListEnrollments(ctx context.Context, actor policy.Actor, courseID string) ([]model.Enrollment, error) {
	c, err := s.Load(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.EnrollmentManage, policy.Course(c)); err != nil {
		return nil, err
	}
	out, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// IsEnrolled reports whether studentID is on the roster of courseID.
func (s *Service) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	ok, err := s.enrollments.Exists(ctx, courseID, studentID)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return ok, nil
}
