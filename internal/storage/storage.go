// Package storage contains a storage interface.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/socialhub/feed/internal/entities"
)

//go:generate mockgen -destination=./mock/storage.go -package=mock -source=storage.go

var (
	// ErrNotFound ...
	ErrNotFound = fmt.Errorf("not found")
	// ErrCollision is returned when post with the same id already exists.
	ErrCollision = fmt.Errorf("collision")
)

// Storage keeps the session's posts ordered from the newest to the oldest.
// Returned posts are snapshots: changing them doesn't affect storage.
type Storage interface {
	Ping(ctx context.Context) error

	ListPosts(ctx context.Context, p *ListPostsParams) ([]*entities.Post, error)
	GetPost(ctx context.Context, id string) (*entities.Post, error)
	// CreatePost puts post on top of the feed.
	CreatePost(ctx context.Context, p *entities.Post) error

	// Vote atomically records the local user's vote in post's poll.
	// See poll.Vote for possible errors.
	Vote(ctx context.Context, postID, optionID string, at time.Time) (*entities.Poll, error)
	// ToggleLike atomically likes or unlikes post on behalf of the local user.
	ToggleLike(ctx context.Context, postID string) (*entities.Post, error)
}

// ListPostsParams ...
type ListPostsParams struct {
	// Limit of returned posts, 0 means no limit.
	Limit uint16
	// After is a not-including bound by post id.
	After *string
	// Author filters posts by author's username.
	Author *string
}
