package approuters

import (
	"github.com/gin-gonic/gin"
	"github.com/umachittudi2004/VedazAssingment/internal/auth"
	"github.com/umachittudi2004/VedazAssingment/internal/configuration"
)

// AuthRouters exposes account creation and login.
func AuthRouters(router *gin.Engine, container *configuration.Container) {
	authRoute := router.Group("/auth")
	{
		authRoute.POST("/register", container.AuthHandler.Register)
		authRoute.POST("/login", container.AuthHandler.Login)
	}
}

// UserRouters exposes the user list and conversation history to
// authenticated callers.
func UserRouters(router *gin.Engine, container *configuration.Container) {
	secured := router.Group("/", auth.RequireAuth(container.Tokens))
	{
		secured.GET("/users", container.UserHandler.GetAllUsers)
		secured.GET("/conversations/last", container.UserHandler.GetLastMessages)
		secured.GET("/conversations/:id/messages", container.UserHandler.GetConversation)
		secured.POST("/conversations/:id/messages", container.UserHandler.PostMessage)
	}
}
