package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/umachittudi2004/VedazAssingment/internal/errs"
	"github.com/umachittudi2004/VedazAssingment/internal/service"
)

type AuthHandler interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
}

type authHandler struct {
	service service.UserService
}

func NewAuthHandler(service service.UserService) AuthHandler {
	return &authHandler{service: service}
}

// Register creates an account and returns a token for it.
func (h *authHandler) Register(c *gin.Context) {
	var creds service.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		respondError(c, errs.Validation("invalid request body"))
		return
	}

	result, err := h.service.Register(c.Request.Context(), creds)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *authHandler) Login(c *gin.Context) {
	var creds service.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		respondError(c, errs.Validation("invalid request body"))
		return
	}

	result, err := h.service.Login(c.Request.Context(), creds)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
