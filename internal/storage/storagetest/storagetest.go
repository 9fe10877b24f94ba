// Package storagetest contains behaviour tests shared by storage implementations.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialhub/feed/internal/entities"
	"github.com/socialhub/feed/internal/poll"
	"github.com/socialhub/feed/internal/storage"
)

var (
	ctx       = context.Background()
	createdAt = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
)

// Run runs all storage tests. newStorage is called once per test and should return an empty storage.
func Run(t *testing.T, newStorage func(t *testing.T) storage.Storage) {
	tests := []struct {
		name string
		f    func(t *testing.T, s storage.Storage)
	}{
		{"CreatePost", testCreatePost},
		{"CreatePost_Collision", testCreatePostCollision},
		{"GetPost_NotFound", testGetPostNotFound},
		{"ListPosts_Order", testListPostsOrder},
		{"ListPosts_Params", testListPostsParams},
		{"Snapshots", testSnapshots},
		{"Vote", testVote},
		{"Vote_Errors", testVoteErrors},
		{"Vote_Concurrent", testVoteConcurrent},
		{"ToggleLike", testToggleLike},
		{"Ping", testPing},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.f(t, newStorage(t))
		})
	}
}

// NewPost returns post filled with all optional fields.
func NewPost(id string) *entities.Post {
	return &entities.Post{
		ID: id,
		Author: entities.Author{
			Name:     "Sarah Johnson",
			Username: "@sarahj",
			Avatar:   "https://example.com/sarah.png",
		},
		Content: fmt.Sprintf("post %s", id),
		Media: &entities.Media{
			Kind: entities.ImageMedia,
			URL:  "https://example.com/image.png",
		},
		Poll: &entities.Poll{
			Question: "Tabs or spaces?",
			Options: []entities.PollOption{
				{ID: "option-0", Text: "Tabs"},
				{ID: "option-1", Text: "Spaces"},
			},
			Duration: entities.Duration{Minutes: 30},
			EndTime:  createdAt.Add(30 * time.Minute),
		},
		Contest: &entities.Contest{
			Enabled:           true,
			PrizeType:         "Course",
			EndDate:           "2024-01-20",
			EndTime:           "23:59",
			EntryRequirements: []string{"follow", "like"},
		},
		Tags:      []string{"@photography", "@giveaway"},
		CreatedAt: createdAt,
	}
}

func newPlainPost(id, username string) *entities.Post {
	return &entities.Post{
		ID:        id,
		Author:    entities.Author{Name: username, Username: username},
		Content:   fmt.Sprintf("post %s", id),
		CreatedAt: createdAt,
	}
}

func ids(posts []*entities.Post) []string {
	out := make([]string, len(posts))
	for i, v := range posts {
		out[i] = v.ID
	}
	return out
}

func testCreatePost(t *testing.T, s storage.Storage) {
	p := NewPost("1")
	p.Likes, p.Comments, p.Shares = 1243, 89, 156

	require.NoError(t, s.CreatePost(ctx, p))

	got, err := s.GetPost(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, p, got)

	plain := newPlainPost("2", "@mikechen")
	require.NoError(t, s.CreatePost(ctx, plain))

	got, err = s.GetPost(ctx, "2")
	require.NoError(t, err)
	require.Equal(t, plain, got)
	require.Nil(t, got.Media)
	require.Nil(t, got.Poll)
	require.Nil(t, got.Contest)
}

func testCreatePostCollision(t *testing.T, s storage.Storage) {
	require.NoError(t, s.CreatePost(ctx, newPlainPost("1", "a")))
	require.True(t, errors.Is(s.CreatePost(ctx, newPlainPost("1", "b")), storage.ErrCollision))

	posts, err := s.ListPosts(ctx, &storage.ListPostsParams{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "a", posts[0].Author.Username)
}

func testGetPostNotFound(t *testing.T, s storage.Storage) {
	_, err := s.GetPost(ctx, "unknown")
	require.True(t, errors.Is(err, storage.ErrNotFound))
}

func testListPostsOrder(t *testing.T, s storage.Storage) {
	posts, err := s.ListPosts(ctx, &storage.ListPostsParams{})
	require.NoError(t, err)
	require.Empty(t, posts)

	for _, id := range []string{"seed", "a", "b"} {
		require.NoError(t, s.CreatePost(ctx, newPlainPost(id, "u")))
	}

	posts, err = s.ListPosts(ctx, &storage.ListPostsParams{})
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a", "seed"}, ids(posts))

	posts, err = s.ListPosts(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a", "seed"}, ids(posts))
}

func testListPostsParams(t *testing.T, s storage.Storage) {
	for i, author := range []string{"x", "y", "x", "y", "x"} {
		require.NoError(t, s.CreatePost(ctx, newPlainPost(fmt.Sprint(i), author)))
	}

	str := func(s string) *string { return &s }

	tt := []struct {
		name string
		p    storage.ListPostsParams
		want []string
	}{
		{name: "all", want: []string{"4", "3", "2", "1", "0"}},
		{name: "limit", p: storage.ListPostsParams{Limit: 2}, want: []string{"4", "3"}},
		{name: "after", p: storage.ListPostsParams{After: str("3")}, want: []string{"2", "1", "0"}},
		{name: "after last", p: storage.ListPostsParams{After: str("0")}, want: []string{}},
		{name: "after with limit", p: storage.ListPostsParams{After: str("4"), Limit: 2}, want: []string{"3", "2"}},
		{name: "author", p: storage.ListPostsParams{Author: str("x")}, want: []string{"4", "2", "0"}},
		{name: "author with limit", p: storage.ListPostsParams{Author: str("y"), Limit: 1}, want: []string{"3"}},
		{name: "author after", p: storage.ListPostsParams{Author: str("x"), After: str("3")}, want: []string{"2", "0"}},
		{name: "unknown author", p: storage.ListPostsParams{Author: str("z")}, want: []string{}},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			posts, err := s.ListPosts(ctx, &tc.p)
			require.NoError(t, err)
			require.Equal(t, tc.want, ids(posts))
		})
	}

	_, err := s.ListPosts(ctx, &storage.ListPostsParams{After: str("unknown")})
	require.True(t, errors.Is(err, storage.ErrNotFound))
}

func testSnapshots(t *testing.T, s storage.Storage) {
	p := NewPost("1")
	require.NoError(t, s.CreatePost(ctx, p))

	// changes of created post don't leak into storage
	p.Content = "changed"
	p.Tags[0] = "changed"

	posts, err := s.ListPosts(ctx, &storage.ListPostsParams{})
	require.NoError(t, err)
	require.Len(t, posts, 1)

	posts[0].Content = "changed"
	posts[0].Tags[1] = "changed"
	posts[0].Poll.Options[0].Votes = 100
	posts[0].Contest.EntryRequirements[0] = "changed"

	got, err := s.GetPost(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, NewPost("1"), got)
}

func testVote(t *testing.T, s storage.Storage) {
	require.NoError(t, s.CreatePost(ctx, NewPost("1")))

	p, err := s.Vote(ctx, "1", "option-0", createdAt.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, []entities.PollOption{
		{ID: "option-0", Text: "Tabs", Votes: 1},
		{ID: "option-1", Text: "Spaces", Votes: 0},
	}, p.Options)
	assert.EqualValues(t, 1, p.TotalVotes)
	assert.Equal(t, "option-0", p.UserVoted)
	assert.Equal(t, 100, poll.Percentage(p.Options[0], p))
	assert.Equal(t, 0, poll.Percentage(p.Options[1], p))

	post, err := s.GetPost(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, p, post.Poll)

	// second vote changes nothing
	_, err = s.Vote(ctx, "1", "option-1", createdAt.Add(time.Minute))
	require.True(t, errors.Is(err, poll.ErrAlreadyVoted))

	post, err = s.GetPost(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, p, post.Poll)
}

func testVoteErrors(t *testing.T, s storage.Storage) {
	require.NoError(t, s.CreatePost(ctx, NewPost("1")))
	require.NoError(t, s.CreatePost(ctx, newPlainPost("2", "u")))

	at := createdAt.Add(time.Minute)

	_, err := s.Vote(ctx, "unknown", "option-0", at)
	require.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = s.Vote(ctx, "2", "option-0", at)
	require.True(t, errors.Is(err, poll.ErrNoPoll))

	_, err = s.Vote(ctx, "1", "option-9", at)
	require.True(t, errors.Is(err, poll.ErrOptionNotFound))

	_, err = s.Vote(ctx, "1", "option-0", createdAt.Add(time.Hour))
	require.True(t, errors.Is(err, poll.ErrPollEnded))

	post, err := s.GetPost(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, NewPost("1"), post)
}

func testVoteConcurrent(t *testing.T, s storage.Storage) {
	require.NoError(t, s.CreatePost(ctx, NewPost("1")))

	const n = 20

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		succ int
	)

	wg.Add(n)
	for i := 0; i < n; i++ {
		option := fmt.Sprintf("option-%d", i%2)
		go func() {
			defer wg.Done()

			_, err := s.Vote(ctx, "1", option, createdAt)
			if err == nil {
				mu.Lock()
				succ++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, poll.ErrAlreadyVoted), err)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, succ)

	post, err := s.GetPost(ctx, "1")
	require.NoError(t, err)

	var sum uint32
	for _, o := range post.Poll.Options {
		sum += o.Votes
	}
	require.EqualValues(t, 1, post.Poll.TotalVotes)
	require.Equal(t, post.Poll.TotalVotes, sum)
}

func testToggleLike(t *testing.T, s storage.Storage) {
	p := newPlainPost("1", "u")
	p.Likes = 10
	require.NoError(t, s.CreatePost(ctx, p))

	liked, err := s.ToggleLike(ctx, "1")
	require.NoError(t, err)
	require.True(t, liked.Liked)
	require.EqualValues(t, 11, liked.Likes)

	got, err := s.GetPost(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, liked, got)

	unliked, err := s.ToggleLike(ctx, "1")
	require.NoError(t, err)
	require.False(t, unliked.Liked)
	require.EqualValues(t, 10, unliked.Likes)

	_, err = s.ToggleLike(ctx, "unknown")
	require.True(t, errors.Is(err, storage.ErrNotFound))
}

func testPing(t *testing.T, s storage.Storage) {
	require.NoError(t, s.Ping(ctx))
}
