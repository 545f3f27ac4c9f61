package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusattend/attendance/internal/apperr"
	"github.com/campusattend/attendance/internal/auth"
	"github.com/campusattend/attendance/internal/policy"
	"github.com/campusattend/attendance/internal/session"
)

type createSessionRequest struct {
	CourseID      string    `json:"course_id" binding:"required"`
	Title         string    `json:"title" binding:"required"`
	ScheduledDate string    `json:"scheduled_date"`
	StartTime     time.Time `json:"start_time" binding:"required"`
	EndTime       time.Time `json:"end_time" binding:"required"`
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	out, err := h.sessions.Create(c.Request.Context(), auth.ActorFrom(c), session.CreateInput{
		CourseID:      req.CourseID,
		Title:         req.Title,
		ScheduledDate: req.ScheduledDate,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) getSession(c *gin.Context) {
	out, err := h.sessions.Get(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) setActive(c *gin.Context) {
	var req struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	out, err := h.sessions.SetActive(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), *req.IsActive)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) deleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), auth.ActorFrom(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) sessionSummary(c *gin.Context) {
	out, err := h.attendance.SessionSummary(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// liveTally serves the queue-fed counters. They lag the ledger slightly;
// /summary is the authoritative view.
func (h *Handler) liveTally(c *gin.Context) {
	ctx := c.Request.Context()
	_, crs, err := h.sessions.LoadWithCourse(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := policy.Authorize(auth.ActorFrom(c), policy.AttendanceViewSession, policy.Course(crs)); err != nil {
		h.fail(c, err)
		return
	}
	if h.tally == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "live tally not configured", "code": "unavailable"})
		return
	}
	counts, err := h.tally.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, counts)
}
