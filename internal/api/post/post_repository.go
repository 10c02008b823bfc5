package post

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

var _ Repository = (*PostgresPostRepo)(nil)

type Repository interface {
	// CreateWithImages inserts the post and one image record per URL in a
	// single transaction. The attach operation is all-or-nothing: any
	// failure rolls the whole insert back.
	CreateWithImages(ctx context.Context, post *types.Post, imageURLs []string) (*types.Post, error)
	GetByID(ctx context.Context, id int64) (*types.Post, error)
	List(ctx context.Context) ([]types.Post, error)
	Update(ctx context.Context, post *types.Post) error
	Delete(ctx context.Context, id int64) error
}

type PostgresPostRepo struct {
	logger *slog.Logger
	pgpool api.DBPool
}

func NewPostgresPostRepo(pgpool api.DBPool, logger *slog.Logger) *PostgresPostRepo {
	return &PostgresPostRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const postColumns = "post_id, author_id, title, content, status, category, thumbnail_url, created_at, published_at, featured"

func (r *PostgresPostRepo) CreateWithImages(ctx context.Context, post *types.Post, imageURLs []string) (*types.Post, error) {
	ctx, span := otel.Tracer("PostRepo").Start(ctx, "CreateWithImages", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "posts"),
		attribute.Int("post.image_count", len(imageURLs)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreateWithImages"), slog.Int64("authorID", post.AuthorID))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO posts (author_id, title, content, status, category, thumbnail_url, created_at, published_at, featured)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING post_id`,
		post.AuthorID, post.Title, post.Content, post.Status, post.Category,
		post.ThumbnailURL, post.CreatedAt, post.PublishedAt, post.Featured,
	).Scan(&post.ID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to insert post", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}

	post.Images = post.Images[:0]
	for _, url := range imageURLs {
		img := types.PostImage{PostID: post.ID, ImageURL: url}
		err = tx.QueryRow(ctx,
			"INSERT INTO post_images (post_id, image_url) VALUES ($1, $2) RETURNING id",
			img.PostID, img.ImageURL,
		).Scan(&img.ID)
		if err != nil {
			l.ErrorContext(ctx, "Failed to insert post image", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "DB INSERT failed")
			return nil, fmt.Errorf("failed to insert post image: %w", err)
		}
		post.Images = append(post.Images, img)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to commit post creation: %w", err)
	}

	l.InfoContext(ctx, "Post created", slog.Int64("postID", post.ID), slog.Int("images", len(post.Images)))
	return post, nil
}

func (r *PostgresPostRepo) GetByID(ctx context.Context, id int64) (*types.Post, error) {
	ctx, span := otel.Tracer("PostRepo").Start(ctx, "GetByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "posts"),
		attribute.Int64("db.post.id", id),
	))
	defer span.End()

	var p types.Post
	err := r.pgpool.QueryRow(ctx,
		"SELECT "+postColumns+" FROM posts WHERE post_id = $1", id,
	).Scan(&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.Status, &p.Category,
		&p.ThumbnailURL, &p.CreatedAt, &p.PublishedAt, &p.Featured)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "post not found")
			return nil, fmt.Errorf("post %d: %w", id, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching post: %w", err)
	}

	images, err := r.imagesFor(ctx, []int64{id})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	p.Images = images[id]
	if p.Images == nil {
		p.Images = []types.PostImage{}
	}
	return &p, nil
}

func (r *PostgresPostRepo) List(ctx context.Context) ([]types.Post, error) {
	ctx, span := otel.Tracer("PostRepo").Start(ctx, "List", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "posts"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx,
		"SELECT "+postColumns+" FROM posts ORDER BY created_at DESC, post_id DESC")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error listing posts: %w", err)
	}
	defer rows.Close()

	var posts []types.Post
	var ids []int64
	for rows.Next() {
		var p types.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.Status, &p.Category,
			&p.ThumbnailURL, &p.CreatedAt, &p.PublishedAt, &p.Featured); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("scanning post row: %w", err)
		}
		p.Images = []types.PostImage{}
		posts = append(posts, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("iterating post rows: %w", err)
	}

	if len(ids) > 0 {
		images, err := r.imagesFor(ctx, ids)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		for i := range posts {
			if imgs, ok := images[posts[i].ID]; ok {
				posts[i].Images = imgs
			}
		}
	}
	return posts, nil
}

func (r *PostgresPostRepo) imagesFor(ctx context.Context, postIDs []int64) (map[int64][]types.PostImage, error) {
	rows, err := r.pgpool.Query(ctx,
		"SELECT id, post_id, image_url FROM post_images WHERE post_id = ANY($1) ORDER BY id", postIDs)
	if err != nil {
		return nil, fmt.Errorf("database error fetching post images: %w", err)
	}
	defer rows.Close()

	images := make(map[int64][]types.PostImage)
	for rows.Next() {
		var img types.PostImage
		if err := rows.Scan(&img.ID, &img.PostID, &img.ImageURL); err != nil {
			return nil, fmt.Errorf("scanning post image row: %w", err)
		}
		images[img.PostID] = append(images[img.PostID], img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating post image rows: %w", err)
	}
	return images, nil
}

func (r *PostgresPostRepo) Update(ctx context.Context, post *types.Post) error {
	ctx, span := otel.Tracer("PostRepo").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "posts"),
		attribute.Int64("db.post.id", post.ID),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx,
		`UPDATE posts SET title = $1, content = $2, status = $3, category = $4,
                thumbnail_url = $5, published_at = $6, featured = $7
         WHERE post_id = $8`,
		post.Title, post.Content, post.Status, post.Category,
		post.ThumbnailURL, post.PublishedAt, post.Featured, post.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("failed to update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "post not found")
		return fmt.Errorf("post %d: %w", post.ID, types.ErrNotFound)
	}
	return nil
}

func (r *PostgresPostRepo) Delete(ctx context.Context, id int64) error {
	ctx, span := otel.Tracer("PostRepo").Start(ctx, "Delete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "posts"),
		attribute.Int64("db.post.id", id),
	))
	defer span.End()

	// post_images rows go with the post via ON DELETE CASCADE
	tag, err := r.pgpool.Exec(ctx, "DELETE FROM posts WHERE post_id = $1", id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "post not found")
		return fmt.Errorf("post %d: %w", id, types.ErrNotFound)
	}
	return nil
}
