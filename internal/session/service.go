package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusattend/attendance/internal/apperr"
	"github.com/campusattend/attendance/internal/metrics"
	"github.com/campusattend/attendance/internal/model"
	"github.com/campusattend/attendance/internal/policy"
	"github.com/campusattend/attendance/internal/queue"
	"github.com/campusattend/attendance/internal/repository"
)

const (
	dateLayout     = "2006-01-02"
	createAttempts = 3
)

// Service manages the lifecycle of class sessions.
type Service struct {
	sessions    repository.SessionRepository
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	announce    *Announcer
	log         *slog.Logger
	now         func() time.Time
}

// NewService wires the manager to its stores. Deletions are announced on
// events, which may be nil.
func NewService(store repository.Store, events queue.Publisher, log *slog.Logger) *Service {
	return &Service{
		sessions:    store.Sessions,
		courses:     store.Courses,
		enrollments: store.Enrollments,
		announce:    NewAnnouncer(events, log),
		log:         log,
		now:         time.Now,
	}
}

// CreateInput describes a new session.
type CreateInput struct {
	CourseID      string
	Title         string
	ScheduledDate string
	StartTime     time.Time
	EndTime       time.Time
}

func (in CreateInput) normalize() (CreateInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, apperr.InvalidInput("title is required")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return in, apperr.InvalidInput("start_time and end_time are required")
	}
	if !in.EndTime.After(in.StartTime) {
		return in, apperr.InvalidInput("end_time must be after start_time")
	}
	if in.ScheduledDate == "" {
		in.ScheduledDate = in.StartTime.UTC().Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, in.ScheduledDate); err != nil {
		return in, apperr.InvalidInput("scheduled_date must be YYYY-MM-DD")
	}
	in.StartTime, in.EndTime = in.StartTime.UTC(), in.EndTime.UTC()
	return in, nil
}

// Create opens a new session with a fresh QR token. Sessions start active.
func (s *Service) Create(ctx context.Context, actor policy.Actor, in CreateInput) (model.Session, error) {
	c, err := s.course(ctx, in.CourseID)
	if err != nil {
		return model.Session{}, err
	}
	if err := policy.Authorize(actor, policy.SessionManage, policy.Course(c)); err != nil {
		return model.Session{}, err
	}
	in, err = in.normalize()
	if err != nil {
		return model.Session{}, err
	}

	for attempt := 1; ; attempt++ {
		sess := model.Session{
			ID:            uuid.NewString(),
			CourseID:      c.ID,
			Title:         in.Title,
			ScheduledDate: in.ScheduledDate,
			StartTime:     in.StartTime,
			EndTime:       in.EndTime,
			IsActive:      true,
			CreatedAt:     s.now().UTC(),
		}
		sess.QRCode, err = newQRCode(sess.ID)
		if err != nil {
			return model.Session{}, apperr.Internal(fmt.Errorf("generate qr code: %w", err))
		}
		err = s.sessions.Create(ctx, sess)
		if err == nil {
			metrics.SessionsCreated.Inc()
			s.log.Info("session created", "session_id", sess.ID, "course_id", c.ID, "by", actor.ID)
			return sess, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt == createAttempts {
			return model.Session{}, apperr.Internal(fmt.Errorf("create session: %w", err))
		}
		s.log.Warn("session token collision, retrying", "attempt", attempt)
	}
}

// ResolveByQRCode maps a scanned token to its session. The token itself
// never appears in logs or errors.
func (s *Service) ResolveByQRCode(ctx context.Context, token string) (model.Session, error) {
	if !wellFormed(token) {
		return model.Session{}, apperr.ErrInvalidQRCode
	}
	sess, err := s.sessions.GetByQRCode(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Session{}, apperr.ErrInvalidQRCode
		}
		return model.Session{}, apperr.Internal(errors.New("lookup session by qr code failed"))
	}
	return sess, nil
}

// Load fetches a session without an authorization check.
func (s *Service) Load(ctx context.Context, id string) (model.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Session{}, apperr.ErrSessionNotFound
		}
		return model.Session{}, apperr.Internal(err)
	}
	return sess, nil
}

// LoadWithCourse fetches a session and the course it belongs to.
func (s *Service) LoadWithCourse(ctx context.Context, id string) (model.Session, model.Course, error) {
	sess, err := s.Load(ctx, id)
	if err != nil {
		return model.Session{}, model.Course{}, err
	}
	c, err := s.courses.GetByID(ctx, sess.CourseID)
	if err != nil {
		// A session without its course only happens mid-cascade.
		if errors.Is(err, repository.ErrNotFound) {
			return model.Session{}, model.Course{}, apperr.ErrSessionNotFound
		}
		return model.Session{}, model.Course{}, apperr.Internal(err)
	}
	return sess, c, nil
}

// Get returns a session. The QR token is stripped unless actor may display it.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id string) (model.Session, error) {
	sess, c, err := s.LoadWithCourse(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if err := s.authorizeView(ctx, actor, c); err != nil {
		return model.Session{}, err
	}
	return s.present(actor, c, sess), nil
}

// ListByCourse returns a course's sessions ordered by start time.
func (s *Service) ListByCourse(ctx context.Context, actor policy.Actor, courseID string) ([]model.Session, error) {
	c, err := s.course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, actor, c); err != nil {
		return nil, err
	}
	list, err := s.sessions.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for i := range list {
		list[i] = s.present(actor, c, list[i])
	}
	return list, nil
}

// SetActive opens or closes check-in. Existing attendance is untouched.
func (s *Service) SetActive(ctx context.Context, actor policy.Actor, id string, active bool) (model.Session, error) {
	_, c, err := s.LoadWithCourse(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if err := policy.Authorize(actor, policy.SessionManage, policy.Course(c)); err != nil {
		return model.Session{}, err
	}
	sess, err := s.sessions.SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Session{}, apperr.ErrSessionNotFound
		}
		return model.Session{}, apperr.Internal(err)
	}
	s.log.Info("session active flag changed", "session_id", id, "active", active, "by", actor.ID)
	return sess, nil
}

// Delete removes the session and its attendance records.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id string) error {
	_, c, err := s.LoadWithCourse(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(actor, policy.SessionManage, policy.Course(c)); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrSessionNotFound
		}
		return apperr.Internal(err)
	}
	s.log.Info("session deleted", "session_id", id, "by", actor.ID)
	s.announce.Deleted(ctx, c.ID, []string{id}, s.now())
	return nil
}

func (s *Service) course(ctx context.Context, id string) (model.Course, error) {
	c, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Course{}, apperr.ErrCourseNotFound
		}
		return model.Course{}, apperr.Internal(err)
	}
	return c, nil
}

// authorizeView lets course staff and enrolled students read c's sessions.
func (s *Service) authorizeView(ctx context.Context, actor policy.Actor, c model.Course) error {
	res := policy.Course(c)
	member, err := s.enrollments.Exists(ctx, c.ID, actor.ID)
	if err != nil {
		return apperr.Internal(err)
	}
	res.Member = member
	return policy.Authorize(actor, policy.SessionView, res)
}

func (s *Service) present(actor policy.Actor, c model.Course, sess model.Session) model.Session {
	if policy.Evaluate(actor, policy.SessionViewQR, policy.Course(c)) == policy.Allow {
		return sess
	}
	return sess.Redacted()
}
