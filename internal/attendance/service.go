package attendance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/campusattend/attendance/internal/apperr"
	"github.com/campusattend/attendance/internal/metrics"
	"github.com/campusattend/attendance/internal/model"
	"github.com/campusattend/attendance/internal/policy"
	"github.com/campusattend/attendance/internal/repository"
)

const publishTimeout = 500 * time.Millisecond

// SessionResolver finds sessions for the ledger. *session.Service
// satisfies it.
type SessionResolver interface {
	ResolveByQRCode(ctx context.Context, token string) (model.Session, error)
	LoadWithCourse(ctx context.Context, id string) (model.Session, model.Course, error)
}

// Service is the attendance ledger. It owns the check-in state machine
// for every (session, student) pair.
type Service struct {
	sessions    SessionResolver
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	records     repository.AttendanceRepository
	events      Publisher
	log         *slog.Logger
	now         func() time.Time
}

// NewService wires the ledger. A nil publisher disables events.
func NewService(store repository.Store, sessions SessionResolver, events Publisher, log *slog.Logger) *Service {
	if events == nil {
		events = nopPublisher{}
	}
	return &Service{
		sessions:    sessions,
		courses:     store.Courses,
		enrollments: store.Enrollments,
		records:     store.Attendance,
		events:      events,
		log:         log,
		now:         time.Now,
	}
}

// CheckIn records the actor as present in the session identified by the
// scanned token.
func (s *Service) CheckIn(ctx context.Context, actor policy.Actor, qrCode string) (rec model.AttendanceRecord, err error) {
	started := time.Now()
	defer func() {
		metrics.CheckInDuration.Observe(time.Since(started).Seconds())
		metrics.CheckIns.WithLabelValues(result(err)).Inc()
	}()

	if err := policy.Authorize(actor, policy.AttendanceCheckIn, policy.Subject(actor.ID)); err != nil {
		return model.AttendanceRecord{}, err
	}
	now := s.now().UTC()

	sess, err := s.sessions.ResolveByQRCode(ctx, qrCode)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	if !sess.CheckableAt(now) {
		return model.AttendanceRecord{}, apperr.ErrSessionNotActive
	}
	enrolled, err := s.enrollments.Exists(ctx, sess.CourseID, actor.ID)
	if err != nil {
		return model.AttendanceRecord{}, apperr.Internal(err)
	}
	if !enrolled {
		return model.AttendanceRecord{}, apperr.ErrNotEnrolled
	}

	// Fast path only. Create below is the real guard.
	if _, err := s.records.Get(ctx, sess.ID, actor.ID); err == nil {
		return model.AttendanceRecord{}, apperr.ErrAlreadyCheckedIn
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.AttendanceRecord{}, apperr.Internal(err)
	}

	rec = model.AttendanceRecord{
		ID:          uuid.NewString(),
		SessionID:   sess.ID,
		StudentID:   actor.ID,
		CheckedInAt: now,
		Status:      model.StatusPresent,
	}
	if err := s.insert(ctx, rec, apperr.ErrInvalidQRCode); err != nil {
		return model.AttendanceRecord{}, err
	}
	s.log.Info("checked in", "session_id", sess.ID, "student_id", actor.ID, "record_id", rec.ID)
	s.publish(ctx, EventRecorded, rec, sess.CourseID)
	return rec, nil
}

// MarkInput is a staff override for one student.
type MarkInput struct {
	SessionID string
	StudentID string
	Status    model.AttendanceStatus
}

// ManualMark writes a record without the token or window gates. The
// student must still be on the roster and must not already have a record.
func (s *Service) ManualMark(ctx context.Context, actor policy.Actor, in MarkInput) (model.AttendanceRecord, error) {
	sess, c, err := s.sessions.LoadWithCourse(ctx, in.SessionID)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	if err := policy.Authorize(actor, policy.AttendanceMark, policy.Course(c)); err != nil {
		return model.AttendanceRecord{}, err
	}
	if in.StudentID == "" {
		return model.AttendanceRecord{}, apperr.InvalidInput("student_id is required")
	}
	if in.Status == "" {
		in.Status = model.StatusPresent
	}
	if !in.Status.Valid() {
		return model.AttendanceRecord{}, apperr.InvalidInput("status must be present, late or absent")
	}
	enrolled, err := s.enrollments.Exists(ctx, c.ID, in.StudentID)
	if err != nil {
		return model.AttendanceRecord{}, apperr.Internal(err)
	}
	if !enrolled {
		return model.AttendanceRecord{}, apperr.ErrStudentNotInCourse
	}

	rec := model.AttendanceRecord{
		ID:          uuid.NewString(),
		SessionID:   sess.ID,
		StudentID:   in.StudentID,
		CheckedInAt: s.now().UTC(),
		Status:      in.Status,
	}
	if err := s.insert(ctx, rec, apperr.ErrSessionNotFound); err != nil {
		return model.AttendanceRecord{}, err
	}
	metrics.ManualMarks.WithLabelValues(string(rec.Status)).Inc()
	s.log.Info("attendance marked", "session_id", sess.ID, "student_id", rec.StudentID, "status", rec.Status, "by", actor.ID)
	s.publish(ctx, EventRecorded, rec, c.ID)
	return rec, nil
}

// insert writes rec. gone is returned when the session was deleted after
// it was loaded.
func (s *Service) insert(ctx context.Context, rec model.AttendanceRecord, gone error) error {
	if err := s.records.Create(ctx, rec); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return apperr.ErrAlreadyCheckedIn
		case errors.Is(err, repository.ErrNotFound):
			return gone
		}
		return apperr.Internal(err)
	}
	return nil
}

// RemoveAttendance deletes the record for one pair, returning the student
// to NotCheckedIn.
func (s *Service) RemoveAttendance(ctx context.Context, actor policy.Actor, sessionID, studentID string) error {
	_, c, err := s.sessions.LoadWithCourse(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := policy.Authorize(actor, policy.AttendanceRemove, policy.Course(c)); err != nil {
		return err
	}
	rec, err := s.records.Get(ctx, sessionID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrAttendanceNotFound
		}
		return apperr.Internal(err)
	}
	return s.remove(ctx, actor, rec, c.ID)
}

// RemoveByID deletes a record by its id.
func (s *Service) RemoveByID(ctx context.Context, actor policy.Actor, recordID string) error {
	rec, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrAttendanceNotFound
		}
		return apperr.Internal(err)
	}
	_, c, err := s.sessions.LoadWithCourse(ctx, rec.SessionID)
	if err != nil {
		if errors.Is(err, apperr.ErrSessionNotFound) {
			return apperr.ErrAttendanceNotFound
		}
		return err
	}
	if err := policy.Authorize(actor, policy.AttendanceRemove, policy.Course(c)); err != nil {
		return err
	}
	return s.remove(ctx, actor, rec, c.ID)
}

func (s *Service) remove(ctx context.Context, actor policy.Actor, rec model.AttendanceRecord, courseID string) error {
	if err := s.records.Delete(ctx, rec.SessionID, rec.StudentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrAttendanceNotFound
		}
		return apperr.Internal(err)
	}
	metrics.Removals.Inc()
	s.log.Info("attendance removed", "session_id", rec.SessionID, "student_id", rec.StudentID, "record_id", rec.ID, "by", actor.ID)
	s.publish(ctx, EventRemoved, rec, courseID)
	return nil
}

// ListBySession returns a session's records ordered by check-in time.
func (s *Service) ListBySession(ctx context.Context, actor policy.Actor, sessionID string) ([]model.AttendanceRecord, error) {
	_, c, err := s.sessions.LoadWithCourse(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.AttendanceViewSession, policy.Course(c)); err != nil {
		return nil, err
	}
	out, err := s.records.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// ListByStudent returns every record of one student across courses.
func (s *Service) ListByStudent(ctx context.Context, actor policy.Actor, studentID string) ([]model.AttendanceRecord, error) {
	if err := policy.Authorize(actor, policy.AttendanceViewStudent, policy.Subject(studentID)); err != nil {
		return nil, err
	}
	out, err := s.records.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// ListByCourseStudent returns one student's records within a course.
func (s *Service) ListByCourseStudent(ctx context.Context, actor policy.Actor, courseID, studentID string) ([]model.AttendanceRecord, error) {
	c, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrCourseNotFound
		}
		return nil, apperr.Internal(err)
	}
	res := policy.Resource{OwnerID: c.InstructorID, SubjectID: studentID}
	if actor.Role == model.RoleStudent {
		res.OwnerID = ""
	}
	if err := policy.Authorize(actor, policy.AttendanceViewStudent, res); err != nil {
		return nil, err
	}
	out, err := s.records.ListByCourseStudent(ctx, courseID, studentID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// SessionSummary counts a session's records against the course roster.
func (s *Service) SessionSummary(ctx context.Context, actor policy.Actor, sessionID string) (model.SessionSummary, error) {
	_, c, err := s.sessions.LoadWithCourse(ctx, sessionID)
	if err != nil {
		return model.SessionSummary{}, err
	}
	if err := policy.Authorize(actor, policy.AttendanceViewSession, policy.Course(c)); err != nil {
		return model.SessionSummary{}, err
	}
	roster, err := s.enrollments.ListByCourse(ctx, c.ID)
	if err != nil {
		return model.SessionSummary{}, apperr.Internal(err)
	}
	records, err := s.records.ListBySession(ctx, sessionID)
	if err != nil {
		return model.SessionSummary{}, apperr.Internal(err)
	}

	sum := model.SessionSummary{SessionID: sessionID, CourseID: c.ID, Enrolled: len(roster)}
	recorded := make(map[string]bool, len(records))
	for _, r := range records {
		recorded[r.StudentID] = true
		switch r.Status {
		case model.StatusPresent:
			sum.Present++
		case model.StatusLate:
			sum.Late++
		case model.StatusAbsent:
			sum.Absent++
		}
	}
	for _, e := range roster {
		if !recorded[e.StudentID] {
			sum.Unrecorded++
		}
	}
	return sum, nil
}

// publish emits an event after a committed write. Failures are logged and
// counted but never reach the caller.
func (s *Service) publish(ctx context.Context, eventType string, rec model.AttendanceRecord, courseID string) {
	msg, err := Event{
		RecordID:  rec.ID,
		SessionID: rec.SessionID,
		CourseID:  courseID,
		StudentID: rec.StudentID,
		Status:    rec.Status,
		At:        s.now().UTC(),
	}.Message(eventType)
	if err == nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		err = s.events.Publish(pctx, msg)
		cancel()
	}
	if err != nil {
		metrics.EventsPublishFailed.Inc()
		s.log.Warn("publish attendance event failed", "type", eventType, "record_id", rec.ID, "err", err)
	}
}

func result(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, apperr.ErrInvalidQRCode):
		return metrics.ResultInvalidQRCode
	case errors.Is(err, apperr.ErrSessionNotActive):
		return metrics.ResultNotActive
	case errors.Is(err, apperr.ErrNotEnrolled):
		return metrics.ResultNotEnrolled
	case errors.Is(err, apperr.ErrAlreadyCheckedIn):
		return metrics.ResultAlreadyChecked
	case errors.Is(err, apperr.ErrForbidden):
		return metrics.ResultForbidden
	default:
		return metrics.ResultError
	}
}
