package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/umachittudi2004/VedazAssingment/internal/auth"
	"github.com/umachittudi2004/VedazAssingment/internal/errs"
	"github.com/umachittudi2004/VedazAssingment/internal/service"
)

// MessageSender runs the delivery pipeline.
type MessageSender interface {
	Send(ctx context.Context, req service.SendRequest) (*service.SendResult, error)
}

type UserHandler interface {
	GetAllUsers(c *gin.Context)
	GetConversation(c *gin.Context)
	PostMessage(c *gin.Context)
	GetLastMessages(c *gin.Context)
}

type userHandler struct {
	service service.UserService
	sender  MessageSender
}

func NewUserHandler(service service.UserService, sender MessageSender) UserHandler {
	return &userHandler{
		service: service,
		sender:  sender,
	}
}

// GetAllUsers lists every user except the caller.
func (h *userHandler) GetAllUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetConversation returns the messages between the caller and :id, oldest first.
func (h *userHandler) GetConversation(c *gin.Context) {
	msgs, err := h.service.Conversation(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

type postMessageRequest struct {
	Text     string `json:"text"`
	ClientID string `json:"clientId"`
}

// PostMessage sends a message to :id through the same pipeline as the socket.
func (h *userHandler) PostMessage(c *gin.Context) {
	var body postMessageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, errs.Validation("invalid request body"))
		return
	}

	result, err := h.sender.Send(c.Request.Context(), service.SendRequest{
		SenderID:   auth.UserID(c),
		ReceiverID: c.Param("id"),
		Text:       body.Text,
		ClientID:   body.ClientID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result.Message)
}

// GetLastMessages returns the newest message of every conversation of the caller.
func (h *userHandler) GetLastMessages(c *gin.Context) {
	previews, err := h.service.LastMessages(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, previews)
}
