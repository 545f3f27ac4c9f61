// Package handler exposes the services over HTTP with gin.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusattend/attendance/internal/apperr"
	"github.com/campusattend/attendance/internal/attendance"
	"github.com/campusattend/attendance/internal/auth"
	"github.com/campusattend/attendance/internal/course"
	"github.com/campusattend/attendance/internal/httpmiddleware"
	"github.com/campusattend/attendance/internal/session"
	"github.com/campusattend/attendance/internal/tally"
	"github.com/campusattend/attendance/internal/user"
)

// Handler holds the services behind the /v1 routes.
type Handler struct {
	users      *user.Service
	courses    *course.Service
	sessions   *session.Service
	attendance *attendance.Service
	tally      tally.Store
	log        *slog.Logger
}

// Services groups the dependencies of a Handler.
type Services struct {
	Users      *user.Service
	Courses    *course.Service
	Sessions   *session.Service
	Attendance *attendance.Service
	Tally      tally.Store
}

// New builds a Handler.
func New(s Services, log *slog.Logger) *Handler {
	return &Handler{
		users:      s.Users,
		courses:    s.Courses,
		sessions:   s.Sessions,
		attendance: s.Attendance,
		tally:      s.Tally,
		log:        log,
	}
}

// RouterConfig controls the middleware stack.
type RouterConfig struct {
	SigningKey             string
	Issuer                 string
	CORSOrigins            []string
	RateLimitPerMin        int
	CheckInRateLimitPerMin int
	// Health lists named dependency probes reported by /healthz.
	Health map[string]func(ctx context.Context) bool
}

// NewRouter assembles the gin engine with middleware, /healthz, /metrics
// and the authenticated /v1 API.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", healthz(cfg.Health))

	v1 := r.Group("/v1", auth.Authenticate(cfg.SigningKey, cfg.Issuer, h.users, h.log))
	checkInLimit := httpmiddleware.NewSimpleTokenBucket(cfg.CheckInRateLimitPerMin, cfg.CheckInRateLimitPerMin).
		Keyed(func(c *gin.Context) string { return auth.ActorFrom(c).ID })
	h.Register(v1, checkInLimit)
	return r
}

// Register mounts the API on g. checkIn runs in front of the check-in
// route only.
func (h *Handler) Register(g *gin.RouterGroup, checkIn ...gin.HandlerFunc) {
	g.POST("/users", h.createUser)
	g.GET("/users", h.listUsers)
	g.GET("/users/:id", h.getUser)
	g.PATCH("/users/:id/role", h.setRole)

	g.POST("/courses", h.createCourse)
	g.GET("/courses", h.listCourses)
	g.GET("/courses/:id", h.getCourse)
	g.PUT("/courses/:id", h.updateCourse)
	g.DELETE("/courses/:id", h.deleteCourse)
	g.POST("/courses/:id/enrollments", h.enroll)
	g.GET("/courses/:id/enrollments", h.listEnrollments)
	g.DELETE("/courses/:id/enrollments/:studentId", h.unenroll)
	g.GET("/courses/:id/sessions", h.courseSessions)
	g.GET("/courses/:id/attendance/:studentId", h.courseStudentAttendance)

	g.POST("/sessions", h.createSession)
	g.GET("/sessions/:id", h.getSession)
	g.PATCH("/sessions/:id/active", h.setActive)
	g.DELETE("/sessions/:id", h.deleteSession)
	g.GET("/sessions/:id/summary", h.sessionSummary)
	g.GET("/sessions/:id/live", h.liveTally)
	g.DELETE("/sessions/:id/attendance/:studentId", h.removePair)

	g.POST("/attendance/checkin", append(checkIn, h.checkIn)...)
	g.POST("/attendance", h.manualMark)
	g.DELETE("/attendance/:id", h.removeByID)
	g.GET("/attendance/session/:id", h.sessionAttendance)
	g.GET("/attendance/student/:id", h.studentAttendance)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func healthz(checks map[string]func(ctx context.Context) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		body := gin.H{}
		status := http.StatusOK
		for name, check := range checks {
			ok := check(ctx)
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
			}
		}
		if status == http.StatusOK {
			body["status"] = "ok"
		} else {
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	}
}

// fail writes err as {"error","code"}. Unclassified errors are logged and
// collapsed to a generic 500.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	code, msg := apperr.Public(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", c.Request.Method, "route", c.FullPath(), "err", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.log.Debug("bad request body", "route", c.FullPath(), "err", err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "invalid_input"})
}
