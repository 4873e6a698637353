// Package service implements the real-time messaging operations on top of
// the stores and the connection registry.
package service

import (
	"github.com/go-playground/validator/v10"
	"github.com/umachittudi2004/VedazAssingment/internal/event"
)

var validate = validator.New()

// Directory is the part of the connection registry the services need:
// who is online and how to reach every handle of a user.
type Directory interface {
	IsOnline(userID string) bool
	SendToUser(userID string, ev event.WsEvent) int
}
