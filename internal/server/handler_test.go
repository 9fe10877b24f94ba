package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialhub/feed/internal/entities"
	"github.com/socialhub/feed/internal/poll"
	"github.com/socialhub/feed/internal/service"
	"github.com/socialhub/feed/internal/service/mock"
	"github.com/socialhub/feed/internal/storage"
)

var (
	now       = time.Date(2024, 1, 15, 12, 30, 0, 0, time.UTC)
	createdAt = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
)

func newRouter(s service.Service) chi.Router {
	r := chi.NewRouter()
	setupRouter(server{s: s, now: func() time.Time { return now }}, r, time.Minute)
	return r
}

func serve(r chi.Router, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func testPost() *entities.Post {
	return &entities.Post{
		ID: "1",
		Author: entities.Author{
			Name:     "Sarah Johnson",
			Username: "@sarahj",
			Avatar:   "avatar",
		},
		Content: "content",
		Media:   &entities.Media{Kind: entities.ImageMedia, URL: "image"},
		Poll: &entities.Poll{
			Question: "Tabs or spaces?",
			Options: []entities.PollOption{
				{ID: "option-0", Text: "Tabs", Votes: 3},
				{ID: "option-1", Text: "Spaces", Votes: 1},
			},
			Duration:   entities.Duration{Minutes: 30},
			EndTime:    createdAt.Add(30 * time.Minute),
			TotalVotes: 4,
		},
		Contest: &entities.Contest{
			Enabled:           true,
			PrizeType:         "Course",
			EndDate:           "2024-01-20",
			EndTime:           "23:59",
			EntryRequirements: []string{"Follow"},
		},
		Tags:      []string{"@photography"},
		Likes:     1243,
		Comments:  89,
		Shares:    156,
		Liked:     true,
		CreatedAt: createdAt,
	}
}

const testPostJSON = `{
	"id": "1",
	"author": {"name": "Sarah Johnson", "username": "@sarahj", "avatar": "avatar"},
	"content": "content",
	"media": {"type": "image", "url": "image"},
	"poll": {
		"question": "Tabs or spaces?",
		"options": [
			{"id": "option-0", "text": "Tabs", "votes": 3, "percentage": 75},
			{"id": "option-1", "text": "Spaces", "votes": 1, "percentage": 25}
		],
		"duration": {"days": 0, "hours": 0, "minutes": 30},
		"endTime": "2024-01-15T11:00:00Z",
		"totalVotes": 4,
		"ended": true,
		"canVote": false,
		"timeRemaining": "Poll ended"
	},
	"contest": {
		"enabled": true,
		"prizeType": "Course",
		"endDate": "2024-01-20",
		"endTime": "23:59",
		"entryRequirements": ["Follow"],
		"ended": false
	},
	"tags": ["@photography"],
	"likes": 1243,
	"comments": 89,
	"shares": 156,
	"isLiked": true,
	"timestamp": "2024-01-15T10:30:00Z",
	"age": "2h ago"
}`

func Test_listPosts(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().ListPosts(gomock.Any(), gomock.Any()).Do(func(_ context.Context, p *storage.ListPostsParams) {
		assert.EqualValues(t, 100, p.Limit)
		assert.Equal(t, "1234", *p.After)
		assert.Equal(t, "@sarahj", *p.Author)
	}).Return([]*entities.Post{
		testPost(),
		{ID: "2", Content: "plain", CreatedAt: createdAt.Add(-48 * time.Hour)},
	}, nil)

	w := serve(newRouter(s), http.MethodGet, "/v1/posts?limit=100&after=1234&author=@sarahj", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"posts": [%s, {
		"id": "2",
		"author": {"name": "", "username": "", "avatar": ""},
		"content": "plain",
		"tags": [],
		"likes": 0,
		"comments": 0,
		"shares": 0,
		"isLiked": false,
		"timestamp": "2024-01-13T10:30:00Z",
		"age": "2d ago"
	}]}`, testPostJSON), w.Body.String())
}

func Test_listPosts_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().ListPosts(gomock.Any(), &storage.ListPostsParams{}).Return(nil, nil)

	w := serve(newRouter(s), http.MethodGet, "/v1/posts", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"posts":[]}`, w.Body.String())
}

func Test_listPosts_Errors(t *testing.T) {
	tt := []struct {
		name  string
		query string
		err   error
		code  int
	}{
		{name: "invalid limit", query: "limit=a", code: http.StatusBadRequest},
		{name: "negative limit", query: "limit=-1", code: http.StatusBadRequest},
		{name: "too big limit", query: "limit=101", code: http.StatusBadRequest},
		{name: "unknown after", query: "after=unknown", err: storage.ErrNotFound, code: http.StatusNotFound},
		{name: "internal", err: errors.New("test"), code: http.StatusInternalServerError},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			s := mock.NewMockService(ctrl)

			if tc.err != nil {
				s.EXPECT().ListPosts(gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("wrapped: %w", tc.err))
			}

			w := serve(newRouter(s), http.MethodGet, "/v1/posts?"+tc.query, "")
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func Test_createPost(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().CreatePost(gomock.Any(), &entities.PostDraft{
		Author:  &entities.Author{Name: "Sarah Johnson", Username: "@sarahj", Avatar: "avatar"},
		Content: "content",
		Media:   &entities.Media{Kind: entities.ImageMedia, URL: "image"},
		Poll: &entities.PollDraft{
			Question: "Tabs or spaces?",
			Options:  []string{"Tabs", "Spaces"},
			Duration: entities.Duration{Minutes: 30},
		},
		Contest: &entities.Contest{
			Enabled:           true,
			PrizeType:         "Course",
			EndDate:           "2024-01-20",
			EndTime:           "23:59",
			EntryRequirements: []string{"Follow"},
		},
		Tags: []string{"@photography"},
	}).Return(testPost(), nil)

	w := serve(newRouter(s), http.MethodPost, "/v1/posts", `{
		"author": {"name": "Sarah Johnson", "username": "@sarahj", "avatar": "avatar"},
		"content": "content",
		"media": {"type": "image", "url": "image"},
		"poll": {
			"question": "Tabs or spaces?",
			"options": ["Tabs", "Spaces"],
			"duration": {"minutes": 30}
		},
		"contest": {
			"enabled": true,
			"prizeType": "Course",
			"endDate": "2024-01-20",
			"endTime": "23:59",
			"entryRequirements": ["Follow"]
		},
		"tags": ["@photography"]
	}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, testPostJSON, w.Body.String())
}

func Test_createPost_Errors(t *testing.T) {
	tt := []struct {
		name string
		body string
		err  error
		code int
	}{
		{name: "invalid json", body: `{`, code: http.StatusBadRequest},
		{name: "unknown field", body: `{"content":"a","id":"1"}`, code: http.StatusBadRequest},
		{name: "unknown media", body: `{"content":"a","media":{"type":"gif","url":"u"}}`, code: http.StatusBadRequest},
		{name: "too big body", body: fmt.Sprintf(`{"content":"%s"}`, strings.Repeat("a", maxBodySize)), code: http.StatusBadRequest},
		{name: "invalid post", body: `{"content":""}`, err: service.ErrInvalidPost, code: http.StatusBadRequest},
		{name: "invalid poll", body: `{"content":"a"}`, err: fmt.Errorf("%w: %w", service.ErrInvalidPost, poll.ErrInvalidPoll), code: http.StatusBadRequest},
		{name: "internal", body: `{"content":"a"}`, err: errors.New("test"), code: http.StatusInternalServerError},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			s := mock.NewMockService(ctrl)

			if tc.err != nil {
				s.EXPECT().CreatePost(gomock.Any(), gomock.Any()).Return(nil, tc.err)
			}

			w := serve(newRouter(s), http.MethodPost, "/v1/posts", tc.body)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func Test_getPost(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().GetPost(gomock.Any(), "1").Return(testPost(), nil)
	s.EXPECT().GetPost(gomock.Any(), "2").Return(nil, fmt.Errorf("wrapped: %w", storage.ErrNotFound))
	s.EXPECT().GetPost(gomock.Any(), "3").Return(nil, errors.New("test"))

	r := newRouter(s)

	w := serve(r, http.MethodGet, "/v1/posts/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, testPostJSON, w.Body.String())

	w = serve(r, http.MethodGet, "/v1/posts/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"post not found"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/v1/posts/3", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func Test_votePoll(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().VotePoll(gomock.Any(), "1", "option-1").Return(&entities.Poll{
		Question: "q",
		Options: []entities.PollOption{
			{ID: "option-0", Text: "a", Votes: 1},
			{ID: "option-1", Text: "b", Votes: 2},
		},
		Duration:   entities.Duration{Days: 1},
		EndTime:    now.Add(25*time.Hour + 10*time.Minute),
		TotalVotes: 3,
		UserVoted:  "option-1",
	}, nil)

	w := serve(newRouter(s), http.MethodPost, "/v1/posts/1/poll/vote", `{"optionId":"option-1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"question": "q",
		"options": [
			{"id": "option-0", "text": "a", "votes": 1, "percentage": 33},
			{"id": "option-1", "text": "b", "votes": 2, "percentage": 67}
		],
		"duration": {"days": 1, "hours": 0, "minutes": 0},
		"endTime": "2024-01-16T13:40:00Z",
		"totalVotes": 3,
		"userVoted": "option-1",
		"ended": false,
		"canVote": false,
		"timeRemaining": "1d 1h left"
	}`, w.Body.String())
}

func Test_votePoll_Errors(t *testing.T) {
	tt := []struct {
		name string
		body string
		err  error
		code int
	}{
		{name: "invalid json", body: `{`, code: http.StatusBadRequest},
		{name: "empty option", body: `{"optionId":""}`, code: http.StatusBadRequest},
		{name: "post not found", body: `{"optionId":"option-0"}`, err: storage.ErrNotFound, code: http.StatusNotFound},
		{name: "no poll", body: `{"optionId":"option-0"}`, err: poll.ErrNoPoll, code: http.StatusNotFound},
		{name: "option not found", body: `{"optionId":"option-0"}`, err: poll.ErrOptionNotFound, code: http.StatusNotFound},
		{name: "already voted", body: `{"optionId":"option-0"}`, err: poll.ErrAlreadyVoted, code: http.StatusConflict},
		{name: "ended", body: `{"optionId":"option-0"}`, err: poll.ErrPollEnded, code: http.StatusConflict},
		{name: "internal", body: `{"optionId":"option-0"}`, err: errors.New("test"), code: http.StatusInternalServerError},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			s := mock.NewMockService(ctrl)

			if tc.err != nil {
				s.EXPECT().VotePoll(gomock.Any(), "1", "option-0").Return(nil, fmt.Errorf("wrapped: %w", tc.err))
			}

			w := serve(newRouter(s), http.MethodPost, "/v1/posts/1/poll/vote", tc.body)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func Test_toggleLike(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	s.EXPECT().ToggleLike(gomock.Any(), "1").Return(testPost(), nil)
	s.EXPECT().ToggleLike(gomock.Any(), "2").Return(nil, fmt.Errorf("wrapped: %w", storage.ErrNotFound))

	r := newRouter(s)

	w := serve(r, http.MethodPost, "/v1/posts/1/like", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, testPostJSON, w.Body.String())

	w = serve(r, http.MethodPost, "/v1/posts/2/like", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func Test_getStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mock.NewMockService(ctrl)

	// second request is served from cache
	s.EXPECT().GetStats(gomock.Any()).Return(&service.Stats{
		Posts:        3,
		Polls:        1,
		OpenPolls:    1,
		Votes:        10,
		Contests:     2,
		OpenContests: 1,
		Likes:        2000,
	}, nil).Times(1)

	r := newRouter(s)

	for i := 0; i < 2; i++ {
		w := serve(r, http.MethodGet, "/v1/stats", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{
			"posts": 3,
			"polls": 1,
			"openPolls": 1,
			"votes": 10,
			"contests": 2,
			"openContests": 1,
			"likes": 2000
		}`, w.Body.String())
	}
}

func Test_age(t *testing.T) {
	tt := []struct {
		d    time.Duration
		want string
	}{
		{0, "Just now"},
		{59 * time.Minute, "Just now"},
		{time.Hour, "1h ago"},
		{23*time.Hour + 59*time.Minute, "23h ago"},
		{24 * time.Hour, "1d ago"},
		{75 * time.Hour, "3d ago"},
	}

	for _, tc := range tt {
		assert.Equal(t, tc.want, age(now.Add(-tc.d), now), tc.d.String())
	}
}

func Test_toAPIPost_ContestEnded(t *testing.T) {
	tt := []struct {
		name    string
		endDate string
		endTime string
		ended   bool
	}{
		{name: "future", endDate: "2024-01-20", endTime: "23:59", ended: false},
		{name: "passed", endDate: "2024-01-15", endTime: "12:00", ended: true},
		{name: "default end time", endDate: "2024-01-15", ended: false},
		{name: "no deadline", ended: false},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			p := testPost()
			p.Contest.EndDate, p.Contest.EndTime = tc.endDate, tc.endTime

			assert.Equal(t, tc.ended, toAPIPost(p, now).Contest.Ended)
		})
	}
}
