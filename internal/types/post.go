package types

import "time"

type PostStatus string

const (
	PostStatusDraft     PostStatus = "DRAFT"
	PostStatusPublished PostStatus = "PUBLISHED"
)

// Post is a blog entry. PublishedAt is set exactly once, when the status
// first transitions to PUBLISHED. Images are owned by the post and are
// removed with it.
type Post struct {
	ID           int64       `json:"post_id"`
	AuthorID     int64       `json:"author_id"`
	Title        string      `json:"title"`
	Content      string      `json:"content"`
	Status       PostStatus  `json:"status"`
	Category     string      `json:"category"`
	ThumbnailURL *string     `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	PublishedAt  *time.Time  `json:"published_at,omitempty"`
	Featured     bool        `json:"featured"`
	Images       []PostImage `json:"images"`
}

type PostImage struct {
	ID       int64  `json:"id"`
	PostID   int64  `json:"post_id"`
	ImageURL string `json:"image_url"`
}

type CreatePostParams struct {
	Title    string     `json:"title"`
	Content  string     `json:"content"`
	Status   PostStatus `json:"status"`
	Category string     `json:"category"`
	Featured bool       `json:"featured"`
}

type UpdatePostParams struct {
	Title    *string     `json:"title,omitempty"`
	Content  *string     `json:"content,omitempty"`
	Status   *PostStatus `json:"status,omitempty"`
	Category *string     `json:"category,omitempty"`
	Featured *bool       `json:"featured,omitempty"`
}
