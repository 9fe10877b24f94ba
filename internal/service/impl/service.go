// Package impl is implementation of service interface.
package impl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/socialhub/feed/internal/entities"
	"github.com/socialhub/feed/internal/poll"
	"github.com/socialhub/feed/internal/service"
	"github.com/socialhub/feed/internal/storage"
)

var log = logrus.WithField("layer", "service").WithField("package", "impl")

// service ...
type srv struct {
	s storage.Storage

	// author is used for drafts without author.
	author entities.Author
	now    func() time.Time
	newID  func() string
}

// New creates new instance of service.
func New(s storage.Storage, author entities.Author) service.Service {
	return srv{
		s:      s,
		author: author,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s srv) ListPosts(ctx context.Context, p *storage.ListPostsParams) ([]*entities.Post, error) {
	posts, err := s.s.ListPosts(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts on s side: %w", err)
	}

	return posts, nil
}

func (s srv) GetPost(ctx context.Context, id string) (*entities.Post, error) {
	p, err := s.s.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get post on s side: %w", err)
	}

	return p, nil
}

func (s srv) CreatePost(ctx context.Context, d *entities.PostDraft) (*entities.Post, error) {
	now := s.now().UTC()

	p, err := s.build(d, now)
	if err != nil {
		return nil, err
	}

	if err := s.s.CreatePost(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create post on s side: %w", err)
	}

	log.WithField("id", p.ID).WithField("author", p.Author.Username).Debug("post created")

	return p, nil
}

// build turns draft into a new post.
func (s srv) build(d *entities.PostDraft, now time.Time) (*entities.Post, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: draft is empty", service.ErrInvalidPost)
	}

	content := strings.TrimSpace(d.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is empty", service.ErrInvalidPost)
	}

	p := &entities.Post{
		ID:        s.newID(),
		Author:    s.author,
		Content:   content,
		Tags:      normalize(d.Tags),
		CreatedAt: now,
	}

	if d.Author != nil {
		p.Author = *d.Author
	}

	if d.Media != nil {
		if !d.Media.Kind.Valid() {
			return nil, fmt.Errorf("%w: unknown media type %q", service.ErrInvalidPost, d.Media.Kind)
		}

		if strings.TrimSpace(d.Media.URL) == "" {
			return nil, fmt.Errorf("%w: media url is empty", service.ErrInvalidPost)
		}

		p.Media = &entities.Media{
			Kind: d.Media.Kind,
			URL:  strings.TrimSpace(d.Media.URL),
		}
	}

	if d.Poll != nil {
		v, err := poll.New(*d.Poll, now)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", service.ErrInvalidPost, err)
		}

		p.Poll = v
	}

	if d.Contest != nil && d.Contest.Enabled {
		c, err := buildContest(d.Contest)
		if err != nil {
			return nil, err
		}

		p.Contest = c
	}

	return p, nil
}

func buildContest(c *entities.Contest) (*entities.Contest, error) {
	out := &entities.Contest{
		Enabled:           true,
		PrizeType:         strings.TrimSpace(c.PrizeType),
		EndDate:           strings.TrimSpace(c.EndDate),
		EndTime:           strings.TrimSpace(c.EndTime),
		EntryRequirements: unique(normalize(c.EntryRequirements)),
	}

	if out.EndDate != "" {
		if _, err := time.Parse(entities.ContestDateLayout, out.EndDate); err != nil {
			return nil, fmt.Errorf("%w: invalid contest end date %q", service.ErrInvalidPost, out.EndDate)
		}
	}

	if out.EndTime != "" {
		if _, err := time.Parse(entities.ContestTimeLayout, out.EndTime); err != nil {
			return nil, fmt.Errorf("%w: invalid contest end time %q", service.ErrInvalidPost, out.EndTime)
		}
	}

	return out, nil
}

func (s srv) VotePoll(ctx context.Context, postID, optionID string) (*entities.Poll, error) {
	p, err := s.s.Vote(ctx, postID, optionID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to vote on s side: %w", err)
	}

	log.WithField("post", postID).WithField("option", optionID).Debug("vote accepted")

	return p, nil
}

func (s srv) ToggleLike(ctx context.Context, postID string) (*entities.Post, error) {
	p, err := s.s.ToggleLike(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle like on s side: %w", err)
	}

	return p, nil
}

func (s srv) GetStats(ctx context.Context) (*service.Stats, error) {
	posts, err := s.s.ListPosts(ctx, &storage.ListPostsParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts on s side: %w", err)
	}

	now := s.now()

	var out service.Stats
	for _, p := range posts {
		out.Posts++
		out.Likes += uint64(p.Likes)

		if p.Poll != nil {
			out.Polls++
			out.Votes += uint64(p.Poll.TotalVotes)

			if !poll.IsEnded(p.Poll, now) {
				out.OpenPolls++
			}
		}

		if p.Contest != nil && p.Contest.Enabled {
			out.Contests++

			if !p.Contest.Ended(now) {
				out.OpenContests++
			}
		}
	}

	return &out, nil
}

// normalize trims values and drops blank ones keeping order.
func normalize(s []string) []string {
	out := make([]string, 0, len(s))

	for _, v := range s {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}

	return out
}

func unique(s []string) []string {
	m := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s))

	for _, v := range s {
		if _, ok := m[v]; !ok {
			m[v] = struct{}{}
			out = append(out, v)
		}
	}

	return out
}
