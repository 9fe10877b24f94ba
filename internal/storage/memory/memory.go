// Package memory is an in-process implementation of storage interface.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/socialhub/feed/internal/entities"
	"github.com/socialhub/feed/internal/poll"
	"github.com/socialhub/feed/internal/storage"
)

var log = logrus.WithField("layer", "storage").WithField("package", "memory")

type memory struct {
	mu sync.RWMutex

	// posts are ordered from the newest to the oldest.
	posts []*entities.Post
	byID  map[string]*entities.Post
}

// New creates new instance of memory storage.
func New() storage.Storage {
	return &memory{
		byID: map[string]*entities.Post{},
	}
}

func (s *memory) Ping(_ context.Context) error {
	return nil
}

func (s *memory) ListPosts(_ context.Context, p *storage.ListPostsParams) ([]*entities.Post, error) {
	if p == nil {
		p = &storage.ListPostsParams{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := s.posts

	if p.After != nil {
		i := s.indexOf(*p.After)
		if i < 0 {
			return nil, fmt.Errorf("%w: after=%s", storage.ErrNotFound, *p.After)
		}
		posts = posts[i+1:]
	}

	out := make([]*entities.Post, 0, len(posts))
	for _, v := range posts {
		if p.Limit > 0 && len(out) == int(p.Limit) {
			break
		}

		if p.Author != nil && v.Author.Username != *p.Author {
			continue
		}

		out = append(out, v.Copy())
	}

	return out, nil
}

func (s *memory) GetPost(_ context.Context, id string) (*entities.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return p.Copy(), nil
}

func (s *memory) CreatePost(_ context.Context, p *entities.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[p.ID]; ok {
		return fmt.Errorf("%w: id=%s", storage.ErrCollision, p.ID)
	}

	post := p.Copy()

	s.posts = append([]*entities.Post{post}, s.posts...)
	s.byID[post.ID] = post

	log.WithField("id", post.ID).Debug("post created")

	return nil
}

func (s *memory) Vote(_ context.Context, postID, optionID string, at time.Time) (*entities.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[postID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	if err := poll.Vote(p.Poll, optionID, at); err != nil {
		return nil, err
	}

	return p.Poll.Copy(), nil
}

func (s *memory) ToggleLike(_ context.Context, postID string) (*entities.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[postID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	if p.Liked {
		if p.Likes > 0 {
			p.Likes--
		}
	} else {
		p.Likes++
	}
	p.Liked = !p.Liked

	return p.Copy(), nil
}

func (s *memory) indexOf(id string) int {
	for i, v := range s.posts {
		if v.ID == id {
			return i
		}
	}

	return -1
}
