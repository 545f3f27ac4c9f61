package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusattend/attendance/internal/auth"
	"github.com/campusattend/attendance/internal/course"
)

type courseRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	InstructorID string `json:"instructor_id"`
	Semester     string `json:"semester"`
	Year         int    `json:"year" binding:"required"`
}

func (r courseRequest) input() course.Input {
	return course.Input{Code: r.Code, Name: r.Name, InstructorID: r.InstructorID, Semester: r.Semester, Year: r.Year}
}

func (h *Handler) createCourse(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	out, err := h.courses.Create(c.Request.Context(), auth.ActorFrom(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) listCourses(c *gin.Context) {
	out, err := h.courses.List(c.Request.Context(), auth.ActorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": out})
}

func (h *Handler) getCourse(c *gin.Context) {
	out, err := h.courses.Get(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) updateCourse(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	out, err := h.courses.Update(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) deleteCourse(c *gin.Context) {
	if err := h.courses.Delete(c.Request.Context(), auth.ActorFrom(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) enroll(c *gin.Context) {
	var req struct {
		StudentID string `json:"student_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	out, err := h.courses.Enroll(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), req.StudentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) listEnrollments(c *gin.Context) {
	out, err := h.courses.ListEnrollments(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollments": out})
}

func (h *Handler) unenroll(c *gin.Context) {
	if err := h.courses.Unenroll(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), c.Param("studentId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) courseSessions(c *gin.Context) {
	out, err := h.sessions.ListByCourse(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (h *Handler) courseStudentAttendance(c *gin.Context) {
	out, err := h.attendance.ListByCourseStudent(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), c.Param("studentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}
