// Package seed provides posts the feed starts with.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/socialhub/feed/internal/entities"
	"github.com/socialhub/feed/internal/poll"
	"github.com/socialhub/feed/internal/service"
	"github.com/socialhub/feed/internal/storage"
)

// Default returns built-in seed posts ordered from the newest to the oldest.
func Default() []*entities.Post {
	return []*entities.Post{
		{
			ID: "1",
			Author: entities.Author{
				Name:     "Sarah Johnson",
				Username: "@sarahj",
				Avatar:   "https://images.unsplash.com/photo-1494790108755-2616b612b586?w=150&h=150&fit=crop&crop=face",
			},
			Content: "Just launched my new photography course! 📸 Enter my giveaway for a chance to win a FREE spot + camera gear worth $2000! 🎁",
			Media: &entities.Media{
				Kind: entities.ImageMedia,
				URL:  "https://images.unsplash.com/photo-1606983340126-99ab4feaa64a?w=600&h=400&fit=crop",
			},
			Contest: &entities.Contest{
				Enabled:           true,
				PrizeType:         "Course + Equipment",
				EndDate:           "2024-01-20",
				EndTime:           "23:59",
				EntryRequirements: []string{"Follow", "Like", "Share", "Tag 2 friends"},
			},
			Tags:      []string{"@photography", "@giveaway"},
			Likes:     1243,
			Comments:  89,
			Shares:    156,
			CreatedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			ID: "2",
			Author: entities.Author{
				Name:     "Mike Chen",
				Username: "@mikechen",
				Avatar:   "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=150&h=150&fit=crop&crop=face",
			},
			Content: "Building something amazing with the team today! The energy in the office is incredible 🚀",
			Media: &entities.Media{
				Kind: entities.VideoMedia,
				URL:  "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4",
			},
			Tags:      []string{"@startup", "@teamwork"},
			Likes:     567,
			Comments:  34,
			Shares:    23,
			CreatedAt: time.Date(2024, 1, 15, 8, 15, 0, 0, time.UTC),
		},
		{
			ID: "3",
			Author: entities.Author{
				Name:     "Emma Wilson",
				Username: "@emmaw",
				Avatar:   "https://images.unsplash.com/photo-1438761681033-6461ffad8d80?w=150&h=150&fit=crop&crop=face",
			},
			Content:   "Sunday morning vibes ☀️ Nothing beats a good cup of coffee and a great book. What are you reading this weekend?",
			Tags:      []string{"@coffee", "@books", "@weekend"},
			Likes:     234,
			Comments:  12,
			Shares:    8,
			CreatedAt: time.Date(2024, 1, 14, 11, 45, 0, 0, time.UTC),
		},
	}
}

type postJSON struct {
	ID     string `json:"id"`
	Author struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
	} `json:"author"`
	Content string `json:"content"`
	Media   *struct {
		Type entities.MediaKind `json:"type"`
		URL  string             `json:"url"`
	} `json:"media"`
	Poll *struct {
		Question string `json:"question"`
		Options  []struct {
			ID    string `json:"id"`
			Text  string `json:"text"`
			Votes uint32 `json:"votes"`
		} `json:"options"`
		Duration struct {
			Days    uint32 `json:"days"`
			Hours   uint32 `json:"hours"`
			Minutes uint32 `json:"minutes"`
		} `json:"duration"`
		EndTime   time.Time `json:"endTime"`
		UserVoted string    `json:"userVoted"`
	} `json:"poll"`
	Contest *struct {
		Enabled           bool     `json:"enabled"`
		PrizeType         string   `json:"prizeType"`
		EndDate           string   `json:"endDate"`
		EndTime           string   `json:"endTime"`
		EntryRequirements []string `json:"entryRequirements"`
	} `json:"contest"`
	Tags      []string  `json:"tags"`
	Likes     uint32    `json:"likes"`
	Comments  uint32    `json:"comments"`
	Shares    uint32    `json:"shares"`
	IsLiked   bool      `json:"isLiked"`
	Timestamp time.Time `json:"timestamp"`
}

// Load reads seed posts from JSON file in the client's format (array of posts, newest first).
// Total votes of polls are recalculated from options. Every post is validated,
// the error names the index of the first invalid post.
func Load(path string) ([]*entities.Post, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}

	var in []postJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed: %w", err)
	}

	out := make([]*entities.Post, len(in))
	ids := make(map[string]struct{}, len(in))
	for i, v := range in {
		if v.ID == "" {
			return nil, fmt.Errorf("post #%d: %w: id is empty", i, service.ErrInvalidPost)
		}
		if _, ok := ids[v.ID]; ok {
			return nil, fmt.Errorf("post #%d: %w: id=%s", i, storage.ErrCollision, v.ID)
		}
		ids[v.ID] = struct{}{}

		p := &entities.Post{
			ID: v.ID,
			Author: entities.Author{
				Name:     v.Author.Name,
				Username: v.Author.Username,
				Avatar:   v.Author.Avatar,
			},
			Content:   v.Content,
			Tags:      v.Tags,
			Likes:     v.Likes,
			Comments:  v.Comments,
			Shares:    v.Shares,
			Liked:     v.IsLiked,
			CreatedAt: v.Timestamp.UTC(),
		}

		if v.Media != nil {
			p.Media = &entities.Media{Kind: v.Media.Type, URL: v.Media.URL}
		}

		if v.Poll != nil {
			p.Poll = &entities.Poll{
				Question: v.Poll.Question,
				Duration: entities.Duration{
					Days:    v.Poll.Duration.Days,
					Hours:   v.Poll.Duration.Hours,
					Minutes: v.Poll.Duration.Minutes,
				},
				EndTime:   v.Poll.EndTime.UTC(),
				UserVoted: v.Poll.UserVoted,
			}

			for _, o := range v.Poll.Options {
				p.Poll.Options = append(p.Poll.Options, entities.PollOption{ID: o.ID, Text: o.Text, Votes: o.Votes})
				p.Poll.TotalVotes += o.Votes
			}
		}

		if v.Contest != nil {
			p.Contest = &entities.Contest{
				Enabled:           v.Contest.Enabled,
				PrizeType:         v.Contest.PrizeType,
				EndDate:           v.Contest.EndDate,
				EndTime:           v.Contest.EndTime,
				EntryRequirements: v.Contest.EntryRequirements,
			}
		}

		if err := validate(p); err != nil {
			return nil, fmt.Errorf("post #%d: %w", i, err)
		}

		out[i] = p
	}

	return out, nil
}

func validate(p *entities.Post) error {
	if strings.TrimSpace(p.Content) == "" {
		return fmt.Errorf("%w: content is empty", service.ErrInvalidPost)
	}

	if p.Media != nil && strings.TrimSpace(p.Media.URL) == "" {
		return fmt.Errorf("%w: media url is empty", service.ErrInvalidPost)
	}

	if p.Poll != nil {
		if err := poll.Validate(p.Poll); err != nil {
			return fmt.Errorf("%w: %w", service.ErrInvalidPost, err)
		}
	}

	if c := p.Contest; c != nil && c.Enabled {
		if c.EndDate != "" {
			if _, err := time.Parse(entities.ContestDateLayout, c.EndDate); err != nil {
				return fmt.Errorf("%w: invalid contest end date %q", service.ErrInvalidPost, c.EndDate)
			}
		}

		if c.EndTime != "" {
			if _, err := time.Parse(entities.ContestTimeLayout, c.EndTime); err != nil {
				return fmt.Errorf("%w: invalid contest end time %q", service.ErrInvalidPost, c.EndTime)
			}
		}
	}

	return nil
}

// Put puts posts into storage keeping their order: the first post ends up on top of the feed.
// Nothing is put if any of posts is invalid.
func Put(ctx context.Context, s storage.Storage, posts []*entities.Post) error {
	for i, p := range posts {
		if err := validate(p); err != nil {
			return fmt.Errorf("post #%d: %w", i, err)
		}
	}

	for i := len(posts) - 1; i >= 0; i-- {
		if err := s.CreatePost(ctx, posts[i]); err != nil {
			return fmt.Errorf("failed to put post %s: %w", posts[i].ID, err)
		}
	}

	return nil
}
