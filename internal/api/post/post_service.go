package post

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/openblog/openblog-api/internal/api/auth"
	"github.com/openblog/openblog-api/internal/types"
)

// Upload is a pending file attachment. The handler converts incoming
// multipart parts into Uploads so the service never touches HTTP types.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// FileStore persists uploaded files and returns the public URL they are
// served under.
type FileStore interface {
	Save(ctx context.Context, filename string, content io.Reader) (string, error)
	Remove(ctx context.Context, fileURL string) error
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Create(ctx context.Context, identity types.Identity, params types.CreatePostParams, uploads []Upload) (*types.Post, error)
	Get(ctx context.Context, id int64) (*types.Post, error)
	List(ctx context.Context) ([]types.Post, error)
	Update(ctx context.Context, identity types.Identity, id int64, params types.UpdatePostParams) (*types.Post, error)
	Delete(ctx context.Context, identity types.Identity, id int64) error
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	store  FileStore
}

func NewServiceImpl(repo Repository, store FileStore, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		store:  store,
	}
}

// Create persists a new post authored by the caller, together with any
// uploaded images. Files are written to the store first; if any write or
// the database insert fails, the files written so far are removed and the
// whole operation reports failure.
func (s *ServiceImpl) Create(ctx context.Context, identity types.Identity, params types.CreatePostParams, uploads []Upload) (*types.Post, error) {
	l := s.logger.With(slog.String("method", "Create"), slog.Int64("authorID", identity.UserID))

	now := time.Now()
	post := &types.Post{
		AuthorID:  identity.UserID,
		Title:     params.Title,
		Content:   params.Content,
		Status:    params.Status,
		Category:  params.Category,
		CreatedAt: now,
		Featured:  params.Featured,
		Images:    []types.PostImage{},
	}
	if post.Status == "" {
		post.Status = types.PostStatusDraft
	}
	if post.Status == types.PostStatusPublished {
		post.PublishedAt = &now
	}

	var urls []string
	for _, up := range uploads {
		if up.Size == 0 || up.Content == nil {
			continue
		}
		url, err := s.store.Save(ctx, up.Filename, up.Content)
		if err != nil {
			l.ErrorContext(ctx, "Failed to store uploaded file",
				slog.String("filename", up.Filename), slog.Any("error", err))
			s.removeFiles(ctx, urls)
			return nil, fmt.Errorf("storing upload %q: %w", up.Filename, err)
		}
		urls = append(urls, url)
	}
	if len(urls) > 0 {
		post.ThumbnailURL = &urls[0]
	}

	created, err := s.repo.CreateWithImages(ctx, post, urls)
	if err != nil {
		s.removeFiles(ctx, urls)
		return nil, err
	}
	return created, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id int64) (*types.Post, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ServiceImpl) List(ctx context.Context) ([]types.Post, error) {
	return s.repo.List(ctx)
}

func (s *ServiceImpl) Update(ctx context.Context, identity types.Identity, id int64, params types.UpdatePostParams) (*types.Post, error) {
	l := s.logger.With(slog.String("method", "Update"), slog.Int64("postID", id))

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanMutate(identity, existing.AuthorID) {
		l.WarnContext(ctx, "Post update denied",
			slog.Int64("callerID", identity.UserID), slog.Int64("authorID", existing.AuthorID))
		return nil, fmt.Errorf("user %d cannot modify post %d: %w", identity.UserID, id, types.ErrForbidden)
	}

	if params.Title != nil {
		existing.Title = *params.Title
	}
	if params.Content != nil {
		existing.Content = *params.Content
	}
	if params.Category != nil {
		existing.Category = *params.Category
	}
	if params.Featured != nil {
		existing.Featured = *params.Featured
	}
	if params.Status != nil {
		existing.Status = *params.Status
		// the publication timestamp is stamped on the first transition to
		// PUBLISHED and kept thereafter, including across unpublish cycles
		if existing.Status == types.PostStatusPublished && existing.PublishedAt == nil {
			now := time.Now()
			existing.PublishedAt = &now
		}
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, identity types.Identity, id int64) error {
	l := s.logger.With(slog.String("method", "Delete"), slog.Int64("postID", id))

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CanMutate(identity, existing.AuthorID) {
		l.WarnContext(ctx, "Post delete denied",
			slog.Int64("callerID", identity.UserID), slog.Int64("authorID", existing.AuthorID))
		return fmt.Errorf("user %d cannot delete post %d: %w", identity.UserID, id, types.ErrForbidden)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	// best effort: a leftover file on disk is preferable to a failed delete
	for _, img := range existing.Images {
		if err := s.store.Remove(ctx, img.ImageURL); err != nil {
			l.WarnContext(ctx, "Failed to remove post image file",
				slog.String("url", img.ImageURL), slog.Any("error", err))
		}
	}
	l.InfoContext(ctx, "Post deleted", slog.Int64("callerID", identity.UserID))
	return nil
}

func (s *ServiceImpl) removeFiles(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := s.store.Remove(ctx, url); err != nil {
			s.logger.WarnContext(ctx, "Failed to clean up stored file",
				slog.String("url", url), slog.Any("error", err))
		}
	}
}
