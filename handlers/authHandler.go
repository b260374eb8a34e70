package handlers

import (
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if !bind(c, &req) {
			return
		}
		info, err := h.Users.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			fail(c, h.Logger, "Login", err)
			return
		}
		ok(c, info)
	}
}
