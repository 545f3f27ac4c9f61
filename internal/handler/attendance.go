package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusattend/attendance/internal/attendance"
	"github.com/campusattend/attendance/internal/auth"
	"github.com/campusattend/attendance/internal/model"
)

func (h *Handler) checkIn(c *gin.Context) {
	var req struct {
		QRCode string `json:"qr_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	rec, err := h.attendance.CheckIn(c.Request.Context(), auth.ActorFrom(c), req.QRCode)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) manualMark(c *gin.Context) {
	var req struct {
		SessionID string                 `json:"session_id" binding:"required"`
		StudentID string                 `json:"student_id" binding:"required"`
		Status    model.AttendanceStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	rec, err := h.attendance.ManualMark(c.Request.Context(), auth.ActorFrom(c), attendance.MarkInput{
		SessionID: req.SessionID,
		StudentID: req.StudentID,
		Status:    req.Status,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) removeByID(c *gin.Context) {
	if err := h.attendance.RemoveByID(c.Request.Context(), auth.ActorFrom(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) removePair(c *gin.Context) {
	if err := h.attendance.RemoveAttendance(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), c.Param("studentId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) sessionAttendance(c *gin.Context) {
	out, err := h.attendance.ListBySession(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}

func (h *Handler) studentAttendance(c *gin.Context) {
	out, err := h.attendance.ListByStudent(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}
