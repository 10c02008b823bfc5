package container

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/openblog/openblog-api/app/db"
	"github.com/openblog/openblog-api/config"
	"github.com/openblog/openblog-api/internal/api/auth"
	"github.com/openblog/openblog-api/internal/api/comment"
	"github.com/openblog/openblog-api/internal/api/post"
	"github.com/openblog/openblog-api/internal/api/user"
	"github.com/openblog/openblog-api/internal/storage"
)

// Container holds all application dependencies.
type Container struct {
	Config         *config.Config
	Logger         *slog.Logger
	Pool           *pgxpool.Pool
	Store          *storage.LocalStore
	UserHandler    *user.HandlerImpl
	PostHandler    *post.HandlerImpl
	CommentHandler *comment.HandlerImpl
	Authenticate   func(http.Handler) http.Handler
}

// NewContainer wires the database pool, repositories, services and
// handlers together.
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	store, err := storage.NewLocalStore(cfg.Uploads.Dir, cfg.Uploads.PublicPrefix, logger)
	if err != nil {
		logger.Error("Failed to initialize upload store", slog.Any("error", err))
		pool.Close()
		return nil, err
	}

	tokens := auth.NewTokenService(cfg)

	userRepo := user.NewPostgresUserRepo(pool, logger)
	userService := user.NewServiceImpl(userRepo, tokens, logger)
	userHandler := user.NewHandlerImpl(userService, logger)

	postRepo := post.NewPostgresPostRepo(pool, logger)
	postService := post.NewServiceImpl(postRepo, store, logger)
	postHandler := post.NewHandlerImpl(postService, logger)

	commentRepo := comment.NewPostgresCommentRepo(pool, logger)
	commentService := comment.NewServiceImpl(commentRepo, postRepo, logger)
	commentHandler := comment.NewHandlerImpl(commentService, logger)

	return &Container{
		Config:         cfg,
		Logger:         logger,
		Pool:           pool,
		Store:          store,
		UserHandler:    userHandler,
		PostHandler:    postHandler,
		CommentHandler: commentHandler,
		Authenticate:   auth.Authenticate(logger, tokens, userRepo),
	}, nil
}

// Close releases all resources held by the container.
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready.
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations.
func (c *Container) RunMigrations(connectionURL string) error {
	return database.RunMigrations(connectionURL, c.Logger)
}
