package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialhub/feed/internal/entities"
	"github.com/socialhub/feed/internal/poll"
	"github.com/socialhub/feed/internal/service"
	"github.com/socialhub/feed/internal/storage"
	"github.com/socialhub/feed/internal/storage/memory"
)

func TestDefault(t *testing.T) {
	posts := Default()
	require.Len(t, posts, 3)

	for i := 1; i < len(posts); i++ {
		assert.True(t, posts[i-1].CreatedAt.After(posts[i].CreatedAt))
	}

	assert.Equal(t, "1", posts[0].ID)
	assert.True(t, posts[0].Contest.Enabled)
	assert.Equal(t, entities.VideoMedia, posts[1].Media.Kind)
	assert.Nil(t, posts[2].Media)
}

func TestPut(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, Put(ctx, s, Default()))

	posts, err := s.ListPosts(ctx, nil)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "1", posts[0].ID)
	assert.Equal(t, "2", posts[1].ID)
	assert.Equal(t, "3", posts[2].ID)

	err = Put(ctx, s, Default()[:1])
	assert.True(t, errors.Is(err, storage.ErrCollision))
}

func TestPut_Invalid(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	posts := Default()
	posts[2].Poll = &entities.Poll{
		Question:   "q",
		Options:    []entities.PollOption{{ID: "a", Text: "A", Votes: 3}},
		Duration:   entities.Duration{Days: 1},
		TotalVotes: 3,
		UserVoted:  "ghost",
	}

	err := Put(ctx, s, posts)
	require.True(t, errors.Is(err, poll.ErrInvalidPoll), err)
	assert.Contains(t, err.Error(), "post #2")

	stored, err := s.ListPosts(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLoad(t *testing.T) {
	posts, err := Load(filepath.Join("testdata", "posts.json"))
	require.NoError(t, err)

	require.Equal(t, []*entities.Post{
		{
			ID:      "poll",
			Author:  entities.Author{Name: "Mike Chen", Username: "@mikechen", Avatar: "avatar"},
			Content: "Tabs or spaces?",
			Poll: &entities.Poll{
				Question: "Tabs or spaces?",
				Options: []entities.PollOption{
					{ID: "option-0", Text: "Tabs", Votes: 3},
					{ID: "option-1", Text: "Spaces", Votes: 5},
				},
				Duration:   entities.Duration{Days: 1},
				EndTime:    time.Date(2024, 1, 16, 8, 15, 0, 0, time.UTC),
				TotalVotes: 8,
				UserVoted:  "option-1",
			},
			Tags:      []string{"@dev"},
			Likes:     10,
			Liked:     true,
			CreatedAt: time.Date(2024, 1, 15, 8, 15, 0, 0, time.UTC),
		},
		{
			ID:      "video",
			Author:  entities.Author{Name: "Emma Wilson", Username: "@emmaw", Avatar: "avatar"},
			Content: "Sunday",
			Media:   &entities.Media{Kind: entities.VideoMedia, URL: "video.mp4"},
			Contest: &entities.Contest{
				Enabled:           true,
				PrizeType:         "Book",
				EndDate:           "2024-01-20",
				EndTime:           "12:00",
				EntryRequirements: []string{"Follow"},
			},
			CreatedAt: time.Date(2024, 1, 14, 11, 45, 0, 0, time.UTC),
		},
	}, posts)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
		return path
	}

	const validPoll = `"question":"q","duration":{"days":1},"endTime":"2024-01-16T08:15:00Z"`

	tt := []struct {
		name string
		body string
		err  error
	}{
		{name: "invalid json", body: `[{`},
		{name: "unknown media", body: `[{"id":"1","content":"a","media":{"type":"gif","url":"u"}}]`},
		{name: "no id", body: `[{"content":"a"}]`, err: service.ErrInvalidPost},
		{name: "duplicated id", body: `[{"id":"1","content":"a"},{"id":"1","content":"b"}]`, err: storage.ErrCollision},
		{name: "empty content", body: `[{"id":"1","content":" "}]`, err: service.ErrInvalidPost},
		{name: "media without url", body: `[{"id":"1","content":"a","media":{"type":"image","url":""}}]`, err: service.ErrInvalidPost},
		{
			name: "poll without question",
			body: `[{"id":"1","content":"a","poll":{"question":"","duration":{"days":1},
				"options":[{"id":"a","text":"A"},{"id":"b","text":"B"}]}}]`,
			err: poll.ErrInvalidPoll,
		},
		{
			name: "poll with single option",
			body: `[{"id":"1","content":"a","poll":{` + validPoll + `,"options":[{"id":"a","text":"A","votes":3}]}}]`,
			err:  poll.ErrInvalidPoll,
		},
		{
			name: "poll with too many options",
			body: `[{"id":"1","content":"a","poll":{` + validPoll + `,"options":[
				{"id":"0","text":"0"},{"id":"1","text":"1"},{"id":"2","text":"2"},{"id":"3","text":"3"},
				{"id":"4","text":"4"},{"id":"5","text":"5"},{"id":"6","text":"6"},{"id":"7","text":"7"},
				{"id":"8","text":"8"},{"id":"9","text":"9"},{"id":"10","text":"10"}]}}]`,
			err: poll.ErrInvalidPoll,
		},
		{
			name: "poll with empty option id",
			body: `[{"id":"1","content":"a","poll":{` + validPoll + `,"options":[{"id":"","text":"A"},{"id":"b","text":"B"}]}}]`,
			err:  poll.ErrInvalidPoll,
		},
		{
			name: "poll with duplicated option id",
			body: `[{"id":"1","content":"a","poll":{` + validPoll + `,"options":[{"id":"a","text":"A"},{"id":"a","text":"B"}]}}]`,
			err:  poll.ErrInvalidPoll,
		},
		{
			name: "poll voted for unknown option",
			body: `[{"id":"1","content":"a","poll":{` + validPoll + `,"userVoted":"ghost",
				"options":[{"id":"a","text":"A","votes":1},{"id":"b","text":"B"}]}}]`,
			err: poll.ErrInvalidPoll,
		},
		{
			name: "contest date",
			body: `[{"id":"1","content":"a","contest":{"enabled":true,"endDate":"20.01.2024"}}]`,
			err:  service.ErrInvalidPost,
		},
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.json"))
		assert.True(t, errors.Is(err, os.ErrNotExist), err)
	})

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			posts, err := Load(write(fmt.Sprintf("%d.json", i), tc.body))
			require.Error(t, err)
			require.Nil(t, posts)

			if tc.err != nil {
				assert.True(t, errors.Is(err, tc.err), err)
				assert.Contains(t, err.Error(), "post #")
			}
		})
	}
}

func TestLoad_ErrorNamesPost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"1","content":"a"},{"id":"2","content":""}]`), 0600))

	_, err := Load(path)
	require.True(t, errors.Is(err, service.ErrInvalidPost), err)
	assert.Contains(t, err.Error(), "post #1")
}
