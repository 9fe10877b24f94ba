// Package service contains interface for service business-logic.
package service

import (
	"context"
	"errors"

	"github.com/socialhub/feed/internal/entities"
	"github.com/socialhub/feed/internal/storage"
)

//go:generate mockgen -destination=./mock/service.go -package=mock -source=service.go

// ErrInvalidPost is returned when post draft is rejected.
var ErrInvalidPost = errors.New("invalid post")

// Service ...
type Service interface {
	ListPosts(ctx context.Context, p *storage.ListPostsParams) ([]*entities.Post, error)
	GetPost(ctx context.Context, id string) (*entities.Post, error)
	// CreatePost validates draft and puts new post on top of the feed.
	CreatePost(ctx context.Context, d *entities.PostDraft) (*entities.Post, error)
	// VotePoll records the local user's vote. Rejected votes don't change the poll.
	VotePoll(ctx context.Context, postID, optionID string) (*entities.Poll, error)
	ToggleLike(ctx context.Context, postID string) (*entities.Post, error)
	GetStats(ctx context.Context) (*Stats, error)
}

// Stats is a summary of the feed.
type Stats struct {
	Posts     int
	Polls     int
	OpenPolls int
	Votes     uint64
	Contests  int
	Likes     uint64

	// OpenContests are enabled contests whose deadline (UTC) hasn't passed or isn't set.
	OpenContests int
}
