package post

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openblog/openblog-api/internal/types"
)

func newMockRepo(t *testing.T) (*PostgresPostRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPostgresPostRepo(mockPool, slog.Default()), mockPool
}

func TestPostgresPostRepo_CreateWithImages(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	now := time.Now()
	thumb := "/uploads/1_a.png"

	post := &types.Post{
		AuthorID:     10,
		Title:        "t",
		Content:      "c",
		Status:       types.PostStatusDraft,
		Category:     "tech",
		ThumbnailURL: &thumb,
		CreatedAt:    now,
	}

	mockPool.ExpectBegin()
	mockPool.ExpectQuery("INSERT INTO posts").
		WithArgs(int64(10), "t", "c", types.PostStatusDraft, "tech", &thumb, now, (*time.Time)(nil), false).
		WillReturnRows(pgxmock.NewRows([]string{"post_id"}).AddRow(int64(5)))
	mockPool.ExpectQuery("INSERT INTO post_images").
		WithArgs(int64(5), "/uploads/1_a.png").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mockPool.ExpectQuery("INSERT INTO post_images").
		WithArgs(int64(5), "/uploads/2_b.png").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mockPool.ExpectCommit()
	mockPool.ExpectRollback()

	created, err := repo.CreateWithImages(context.Background(), post,
		[]string{"/uploads/1_a.png", "/uploads/2_b.png"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)
	require.Len(t, created.Images, 2)
	assert.Equal(t, int64(5), created.Images[0].PostID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresPostRepo_CreateWithImages_RollsBackOnImageFailure(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	now := time.Now()

	post := &types.Post{AuthorID: 10, Title: "t", Content: "c", Status: types.PostStatusDraft, CreatedAt: now}

	mockPool.ExpectBegin()
	mockPool.ExpectQuery("INSERT INTO posts").
		WithArgs(int64(10), "t", "c", types.PostStatusDraft, "", (*string)(nil), now, (*time.Time)(nil), false).
		WillReturnRows(pgxmock.NewRows([]string{"post_id"}).AddRow(int64(5)))
	mockPool.ExpectQuery("INSERT INTO post_images").
		WithArgs(int64(5), "/uploads/1_a.png").
		WillReturnError(errors.New("disk full"))
	mockPool.ExpectRollback()

	_, err := repo.CreateWithImages(context.Background(), post, []string{"/uploads/1_a.png"})
	require.Error(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresPostRepo_GetByID_NotFound(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectQuery("SELECT (.+) FROM posts WHERE post_id").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows([]string{
			"post_id", "author_id", "title", "content", "status", "category",
			"thumbnail_url", "created_at", "published_at", "featured",
		}))

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresPostRepo_GetByID_IncludesImages(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	now := time.Now()

	mockPool.ExpectQuery("SELECT (.+) FROM posts WHERE post_id").
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{
			"post_id", "author_id", "title", "content", "status", "category",
			"thumbnail_url", "created_at", "published_at", "featured",
		}).AddRow(int64(5), int64(10), "t", "c", types.PostStatusPublished, "tech",
			(*string)(nil), now, &now, false))
	mockPool.ExpectQuery("SELECT (.+) FROM post_images").
		WithArgs([]int64{5}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "post_id", "image_url"}).
			AddRow(int64(1), int64(5), "/uploads/1_a.png").
			AddRow(int64(2), int64(5), "/uploads/2_b.png"))

	p, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, p.Images, 2)
	assert.Equal(t, "/uploads/1_a.png", p.Images[0].ImageURL)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresPostRepo_Update_NotFound(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectExec("UPDATE posts").
		WithArgs("t", "c", types.PostStatusDraft, "", (*string)(nil), (*time.Time)(nil), false, int64(99)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), &types.Post{
		ID: 99, Title: "t", Content: "c", Status: types.PostStatusDraft,
	})
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresPostRepo_Delete(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectExec("DELETE FROM posts").
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repo.Delete(context.Background(), 5))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
