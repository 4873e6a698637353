package configuration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/umachittudi2004/VedazAssingment/internal/auth"
	"github.com/umachittudi2004/VedazAssingment/internal/db"
	"github.com/umachittudi2004/VedazAssingment/internal/handler"
	"github.com/umachittudi2004/VedazAssingment/internal/hub"
	"github.com/umachittudi2004/VedazAssingment/internal/model"
	"github.com/umachittudi2004/VedazAssingment/internal/presence"
	"github.com/umachittudi2004/VedazAssingment/internal/repo"
	"github.com/umachittudi2004/VedazAssingment/internal/service"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Container struct {
	AuthHandler    handler.AuthHandler
	UserHandler    handler.UserHandler
	MonitorHandler handler.MonitorHandler
	Tokens         *auth.TokenManager
	Hub            *hub.Hub
	Registry       *presence.Registry
	Config         Config
	Logger         *zap.Logger

	// private - for cleanup
	broadcaster *presence.Broadcaster
	mongoClient *mongo.Database
	sqliteDB    *sql.DB
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level
	return zapCfg.Build()
}

type stores struct {
	messages repo.MessageRepository
	users    repo.UserRepository
}

func (c *Container) openStores(ctx context.Context) (stores, error) {
	cfg := c.Config
	switch cfg.Store.Driver {
	case "sqlite":
		conn, err := db.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return stores{}, err
		}
		c.sqliteDB = conn
		store := repo.NewSQLiteStore(conn, c.Logger)
		return stores{messages: store, users: store}, nil

	case "mongo":
		con, err := db.OpenConnection(cfg.Mongo.Uri, cfg.Mongo.Database)
		if err != nil {
			return stores{}, err
		}
		c.mongoClient = con

		users := db.NewCollection[model.User](con, cfg.Mongo.UsersCollection)
		if err := repo.EnsureUserIndexes(ctx, users); err != nil {
			return stores{}, err
		}
		messages := db.NewCollection[model.Message](con, cfg.Mongo.MessagesCollection)
		return stores{
			messages: repo.NewMessageRepository(messages, c.Logger),
			users:    repo.NewUserRepository(users, c.Logger),
		}, nil

	default:
		store := repo.NewMemoryStore()
		return stores{messages: store, users: store}, nil
	}
}

// BuildContainer wires every component for cfg. The returned container
// must be closed.
func BuildContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: *cfg, Logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	st, err := c.openStores(ctx)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	logger.Info("store ready", zap.String("driver", cfg.Store.Driver))

	c.Registry = presence.NewRegistry()
	c.broadcaster = presence.NewBroadcaster(c.Registry, st.users, logger)
	c.Tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Std(), cfg.Auth.Issuer)

	pipeline := service.NewDeliveryPipeline(st.messages, c.Registry, logger)
	receipts := service.NewReceiptCoordinator(st.messages, c.Registry, logger)
	typing := service.NewTypingRelay(c.Registry)
	userService := service.NewUserService(st.users, st.messages, c.Registry, c.Tokens, logger)

	opts := hub.DefaultOptions()
	opts.WorkerPoolSize = cfg.Hub.WorkerPoolSize
	opts.LaneBuffer = cfg.Hub.LaneBuffer
	opts.SendBuffer = cfg.Hub.SendBuffer
	opts.WriteWait = cfg.Hub.WriteWait.Std()
	opts.PongWait = cfg.Hub.PongWait.Std()
	opts.PingInterval = cfg.Hub.PingInterval.Std()
	opts.MaxMessageSize = cfg.Hub.MaxMessageSize
	opts.AllowedOrigins = cfg.Server.AllowedOrigins
	opts.RequireToken = cfg.Auth.RequireSocketToken
	c.Hub = hub.NewHub(c.Registry, pipeline, receipts, typing, c.Tokens, opts, logger)

	c.AuthHandler = handler.NewAuthHandler(userService)
	c.UserHandler = handler.NewUserHandler(userService, pipeline)
	c.MonitorHandler = handler.NewMonitorHandler(hub.NewMonitorService(c.Hub))

	return c, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	// Flush the last presence transitions before the stores go away
	if c.broadcaster != nil {
		c.broadcaster.Stop()
	}

	if c.sqliteDB != nil {
		if err := c.sqliteDB.Close(); err != nil {
			return fmt.Errorf("failed to close sqlite database: %w", err)
		}
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	return nil
}
