package course

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusattend/attendance/internal/apperr"
	"github.com/campusattend/attendance/internal/model"
	"github.com/campusattend/attendance/internal/policy"
	"github.com/campusattend/attendance/internal/queue"
	"github.com/campusattend/attendance/internal/repository"
	"github.com/campusattend/attendance/internal/session"
)

// Service manages courses and their rosters.
type Service struct {
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	sessions    repository.SessionRepository
	users       repository.UserRepository
	announce    *session.Announcer
	log         *slog.Logger
	now         func() time.Time
}

// NewService wires the registry to its stores. Sessions removed by a
// course delete are announced on events, which may be nil.
func NewService(store repository.Store, events queue.Publisher, log *slog.Logger) *Service {
	return &Service{
		courses:     store.Courses,
		enrollments: store.Enrollments,
		sessions:    store.Sessions,
		users:       store.Users,
		announce:    session.NewAnnouncer(events, log),
		log:         log,
		now:         time.Now,
	}
}

// Input carries the editable course fields.
type Input struct {
	Code         string
	Name         string
	InstructorID string
	Semester     string
	Year         int
}

func (in Input) normalize() (Input, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Semester = strings.TrimSpace(in.Semester)
	switch {
	case in.Code == "":
		return in, apperr.InvalidInput("code is required")
	case in.Name == "":
		return in, apperr.InvalidInput("name is required")
	case in.Year < 1900 || in.Year > 9999:
		return in, apperr.InvalidInput("year is out of range")
	}
	return in, nil
}

// Create registers a course. Instructors always own what they create;
// admins must name the owning instructor.
func (s *Service) Create(ctx context.Context, actor policy.Actor, in Input) (model.Course, error) {
	if err := policy.Authorize(actor, policy.CourseCreate, policy.Resource{}); err != nil {
		return model.Course{}, err
	}
	in, err := in.normalize()
	if err != nil {
		return model.Course{}, err
	}
	if actor.Role == model.RoleInstructor {
		in.InstructorID = actor.ID
	}
	if err := s.checkInstructor(ctx, in.InstructorID); err != nil {
		return model.Course{}, err
	}

	c := model.Course{
		ID:           uuid.NewString(),
		Code:         in.Code,
		Name:         in.Name,
		InstructorID: in.InstructorID,
		Semester:     in.Semester,
		Year:         in.Year,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.courses.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Course{}, apperr.ErrDuplicateCourseCode
		}
		return model.Course{}, apperr.Internal(err)
	}
	s.log.Info("course created", "course_id", c.ID, "instructor_id", c.InstructorID)
	return c, nil
}

func (s *Service) checkInstructor(ctx context.Context, id string) error {
	if id == "" {
		return apperr.InvalidInput("instructor_id is required")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.InvalidInput("instructor does not exist")
		}
		return apperr.Internal(err)
	}
	if u.Role != model.RoleInstructor && u.Role != model.RoleAdmin {
		return apperr.InvalidInput("course owner must be an instructor")
	}
	return nil
}

// Load fetches a course without an authorization check. Other services
// use it to resolve ownership before calling the policy.
func (s *Service) Load(ctx context.Context, id string) (model.Course, error) {
	c, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Course{}, apperr.ErrCourseNotFound
		}
		return model.Course{}, apperr.Internal(err)
	}
	return c, nil
}

// Get returns one course.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id string) (model.Course, error) {
	c, err := s.Load(ctx, id)
	if err != nil {
		return model.Course{}, err
	}
	res, err := s.viewable(ctx, actor, c)
	if err != nil {
		return model.Course{}, err
	}
	if err := policy.Authorize(actor, policy.CourseView, res); err != nil {
		return model.Course{}, err
	}
	return c, nil
}

// viewable builds the read resource for c, noting whether actor is on its
// roster.
func (s *Service) viewable(ctx context.Context, actor policy.Actor, c model.Course) (policy.Resource, error) {
	res := policy.Course(c)
	member, err := s.enrollments.Exists(ctx, c.ID, actor.ID)
	if err != nil {
		return res, apperr.Internal(err)
	}
	res.Member = member
	return res, nil
}

// List returns the courses visible to actor: all of them for admins, owned
// ones for instructors and enrolled ones for students.
func (s *Service) List(ctx context.Context, actor policy.Actor) ([]model.Course, error) {
	var (
		out []model.Course
		err error
	)
	switch actor.Role {
	case model.RoleAdmin:
		out, err = s.courses.List(ctx)
	case model.RoleInstructor:
		out, err = s.courses.ListByInstructor(ctx, actor.ID)
	case model.RoleStudent:
		out, err = s.courses.ListByStudent(ctx, actor.ID)
	default:
		return nil, apperr.ErrForbidden
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// Update rewrites the editable fields. Only admins may move a course to
// another instructor.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id string, in Input) (model.Course, error) {
	c, err := s.Load(ctx, id)
	if err != nil {
		return model.Course{}, err
	}
	if err := policy.Authorize(actor, policy.CourseUpdate, policy.Course(c)); err != nil {
		return model.Course{}, err
	}
	if in.InstructorID == "" {
		in.InstructorID = c.InstructorID
	}
	in, err = in.normalize()
	if err != nil {
		return model.Course{}, err
	}
	if in.InstructorID != c.InstructorID {
		if actor.Role != model.RoleAdmin {
			return model.Course{}, apperr.ErrForbidden
		}
		if err := s.checkInstructor(ctx, in.InstructorID); err != nil {
			return model.Course{}, err
		}
	}

	c.Code, c.Name, c.InstructorID, c.Semester, c.Year = in.Code, in.Name, in.InstructorID, in.Semester, in.Year
	if err := s.courses.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return model.Course{}, apperr.ErrDuplicateCourseCode
		case errors.Is(err, repository.ErrNotFound):
			return model.Course{}, apperr.ErrCourseNotFound
		}
		return model.Course{}, apperr.Internal(err)
	}
	return c, nil
}

// Delete removes the course together with its sessions, enrollments and
// attendance.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id string) error {
	c, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(actor, policy.CourseDelete, policy.Course(c)); err != nil {
		return err
	}
	sessions, err := s.sessions.ListByCourse(ctx, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrCourseNotFound
		}
		return apperr.Internal(err)
	}
	s.log.Info("course deleted", "course_id", id, "sessions", len(sessions), "by", actor.ID)
	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	s.announce.Deleted(ctx, id, ids, s.now())
	return nil
}
