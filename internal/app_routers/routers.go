package approuters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/umachittudi2004/VedazAssingment/internal/configuration"
	"go.uber.org/zap"
)

// StartServer runs the application server and the websocket server until
// ctx is cancelled or one of them fails, then shuts both down.
func StartServer(ctx context.Context, container *configuration.Container) error {
	logger := container.Logger.Named("server")
	cfg := container.Config.Server

	socketServer := createSocketServer(container)
	appServer := createAppServer(container)

	// Channel to listen for errors from servers
	serverErrors := make(chan error, 2)

	go func() {
		logger.Info("socket server starting", zap.String("addr", socketServer.Addr), zap.String("route", "/"+cfg.SocketRoute))
		if err := socketServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("socket server error: %w", err)
		}
	}()

	go func() {
		logger.Info("application server starting", zap.String("addr", appServer.Addr))
		if err := appServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("app server error: %w", err)
		}
	}()

	// Block until we receive a signal or server error
	var runErr error
	select {
	case runErr = <-serverErrors:
		logger.Error("server failed", zap.Error(runErr))
	case <-ctx.Done():
		logger.Info("shutdown requested, initiating graceful shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace.Std())
	defer cancel()

	logger.Info("stopping hub and closing all websocket connections")
	container.Hub.Stop()

	if err := socketServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("socket server shutdown error", zap.Error(err))
	}
	if err := appServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("app server shutdown error", zap.Error(err))
	}

	logger.Info("graceful shutdown complete")
	return runErr
}

func createSocketServer(container *configuration.Container) *http.Server {
	cfg := container.Config.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/"+cfg.SocketRoute, container.Hub.ServeWS)

	// Read and write deadlines are managed per connection by the hub pumps.
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.SocketPort),
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadTimeout.Std(),
		IdleTimeout:       cfg.IdleTimeout.Std(),
	}
}

// NewRouter builds the gin engine of the application server.
func NewRouter(container *configuration.Container) *gin.Engine {
	if !container.Config.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(container.Logger.Named("http")))

	origins := container.Config.Server.AllowedOrigins
	corsConfig := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to Courier Application Server!",
		})
	})

	AuthRouters(router, container)
	UserRouters(router, container)
	MonitorRouters(router, container)
	return router
}

func createAppServer(container *configuration.Container) *http.Server {
	cfg := container.Config.Server
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.AppPort),
		Handler:      NewRouter(container),
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
		IdleTimeout:  cfg.IdleTimeout.Std(),
	}
}

// requestLogger logs one line per request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		logger.Info("request", fields...)
	}
}
