package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusattend/attendance/internal/auth"
	"github.com/campusattend/attendance/internal/model"
	"github.com/campusattend/attendance/internal/user"
)

type createUserRequest struct {
	Email      string     `json:"email" binding:"required"`
	Name       string     `json:"name" binding:"required"`
	Role       model.Role `json:"role" binding:"required"`
	StudentID  string     `json:"student_id"`
	Department string     `json:"department"`
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	u, err := h.users.Create(c.Request.Context(), auth.ActorFrom(c), user.CreateInput{
		Email:      req.Email,
		Name:       req.Name,
		Role:       req.Role,
		StudentID:  req.StudentID,
		Department: req.Department,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), auth.ActorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) getUser(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) setRole(c *gin.Context) {
	var req struct {
		Role model.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	u, err := h.users.SetRole(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
