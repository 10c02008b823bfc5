package comment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/openblog/openblog-api/internal/api"
	"github.com/openblog/openblog-api/internal/types"
)

var _ Repository = (*PostgresCommentRepo)(nil)

type Repository interface {
	Create(ctx context.Context, comment *types.Comment) (*types.Comment, error)
	GetByID(ctx context.Context, id int64) (*types.Comment, error)
	ListByPost(ctx context.Context, postID int64) ([]types.Comment, error)
	Delete(ctx context.Context, id int64) error
}

type PostgresCommentRepo struct {
	logger *slog.Logger
	pgpool api.DBPool
}

func NewPostgresCommentRepo(pgpool api.DBPool, logger *slog.Logger) *PostgresCommentRepo {
	return &PostgresCommentRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const commentColumns = "comment_id, post_id, author_id, parent_id, content, created_at"

func (r *PostgresCommentRepo) Create(ctx context.Context, comment *types.Comment) (*types.Comment, error) {
	ctx, span := otel.Tracer("CommentRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "comments"),
		attribute.Int64("db.post.id", comment.PostID),
	))
	defer span.End()

	err := r.pgpool.QueryRow(ctx,
		`INSERT INTO comments (post_id, author_id, parent_id, content, created_at)
         VALUES ($1, $2, $3, $4, $5) RETURNING comment_id`,
		comment.PostID, comment.AuthorID, comment.ParentID, comment.Content, comment.CreatedAt,
	).Scan(&comment.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert comment", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}
	return comment, nil
}

func (r *PostgresCommentRepo) GetByID(ctx context.Context, id int64) (*types.Comment, error) {
	ctx, span := otel.Tracer("CommentRepo").Start(ctx, "GetByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "comments"),
		attribute.Int64("db.comment.id", id),
	))
	defer span.End()

	var c types.Comment
	err := r.pgpool.QueryRow(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE comment_id = $1", id,
	).Scan(&c.ID, &c.PostID, &c.AuthorID, &c.ParentID, &c.Content, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "comment not found")
			return nil, fmt.Errorf("comment %d: %w", id, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching comment: %w", err)
	}
	return &c, nil
}

func (r *PostgresCommentRepo) ListByPost(ctx context.Context, postID int64) ([]types.Comment, error) {
	ctx, span := otel.Tracer("CommentRepo").Start(ctx, "ListByPost", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "comments"),
		attribute.Int64("db.post.id", postID),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE post_id = $1 ORDER BY created_at, comment_id", postID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error listing comments: %w", err)
	}
	defer rows.Close()

	var comments []types.Comment
	for rows.Next() {
		var c types.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.ParentID, &c.Content, &c.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("iterating comment rows: %w", err)
	}
	return comments, nil
}

func (r *PostgresCommentRepo) Delete(ctx context.Context, id int64) error {
	ctx, span := otel.Tracer("CommentRepo").Start(ctx, "Delete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "comments"),
		attribute.Int64("db.comment.id", id),
	))
	defer span.End()

	// replies cascade with the parent comment
	tag, err := r.pgpool.Exec(ctx, "DELETE FROM comments WHERE comment_id = $1", id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "comment not found")
		return fmt.Errorf("comment %d: %w", id, types.ErrNotFound)
	}
	return nil
}
