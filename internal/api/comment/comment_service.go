package comment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openblog/openblog-api/internal/api/auth"
	"github.com/openblog/openblog-api/internal/types"
)

// PostStore resolves posts so the service can verify a comment target
// exists without depending on the whole post package.
type PostStore interface {
	GetByID(ctx context.Context, id int64) (*types.Post, error)
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Create(ctx context.Context, identity types.Identity, params types.CreateCommentParams) (*types.Comment, error)
	ListByPost(ctx context.Context, postID int64) ([]types.Comment, error)
	Get(ctx context.Context, id int64) (*types.Comment, error)
	Delete(ctx context.Context, identity types.Identity, id int64) error
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	posts  PostStore
}

func NewServiceImpl(repo Repository, posts PostStore, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		posts:  posts,
	}
}

// Create adds a comment authored by the caller. The target post must
// exist, and a reply's parent must be a comment on that same post.
func (s *ServiceImpl) Create(ctx context.Context, identity types.Identity, params types.CreateCommentParams) (*types.Comment, error) {
	l := s.logger.With(slog.String("method", "Create"), slog.Int64("postID", params.PostID))

	if _, err := s.posts.GetByID(ctx, params.PostID); err != nil {
		return nil, err
	}
	if params.ParentID != nil {
		parent, err := s.repo.GetByID(ctx, *params.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != params.PostID {
			l.WarnContext(ctx, "Reply targets comment on another post",
				slog.Int64("parentID", parent.ID), slog.Int64("parentPostID", parent.PostID))
			return nil, fmt.Errorf("parent comment %d belongs to post %d: %w",
				parent.ID, parent.PostID, types.ErrNotFound)
		}
	}

	comment := &types.Comment{
		PostID:    params.PostID,
		AuthorID:  identity.UserID,
		ParentID:  params.ParentID,
		Content:   params.Content,
		CreatedAt: time.Now(),
	}
	return s.repo.Create(ctx, comment)
}

func (s *ServiceImpl) ListByPost(ctx context.Context, postID int64) ([]types.Comment, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.repo.ListByPost(ctx, postID)
}

func (s *ServiceImpl) Get(ctx context.Context, id int64) (*types.Comment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ServiceImpl) Delete(ctx context.Context, identity types.Identity, id int64) error {
	l := s.logger.With(slog.String("method", "Delete"), slog.Int64("commentID", id))

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CanMutate(identity, existing.AuthorID) {
		l.WarnContext(ctx, "Comment delete denied",
			slog.Int64("callerID", identity.UserID), slog.Int64("authorID", existing.AuthorID))
		return fmt.Errorf("user %d cannot delete comment %d: %w", identity.UserID, id, types.ErrForbidden)
	}
	return s.repo.Delete(ctx, id)
}
