package types

import "time"

// Comment belongs to a post and optionally replies to a parent comment on
// the same post (adjacency list; a parent must already exist, so threads
// are cycle-free by construction).
type Comment struct {
	ID        int64     `json:"comment_id"`
	PostID    int64     `json:"post_id"`
	AuthorID  int64     `json:"author_id"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateCommentParams struct {
	PostID   int64  `json:"post_id"`
	ParentID *int64 `json:"parent_id,omitempty"`
	Content  string `json:"content"`
}
