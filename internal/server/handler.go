package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	"github.com/socialhub/feed/internal/api"
	"github.com/socialhub/feed/internal/entities"
	"github.com/socialhub/feed/internal/poll"
	"github.com/socialhub/feed/internal/service"
	"github.com/socialhub/feed/internal/storage"
)

var errInvalidRequest = errors.New("invalid request")

func (s server) listPosts(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /posts Feed ListPosts
	//
	// Returns posts from the newest to the oldest.
	//
	// ---
	// produces:
	// - application/json
	// parameters:
	// - name: author
	//   description: filters posts by author's username
	//   in: query
	//   required: false
	//   example: "@sarahj"
	// - name: limit
	//   description: limits count of returned posts, 0 means all
	//   in: query
	//   required: false
	//   default: 0
	//   minimum: 0
	//   maximum: 100
	// - name: after
	//   description: sets not-including bound for list by post id
	//   in: query
	//   required: false
	//   example: 0e8f3c1a-9f5b-4c42-8d9b-5cf4c7e1a2b3
	// responses:
	//   '200':
	//     description: Posts
	//     schema:
	//       "$ref": "#/definitions/ListPostsResponse"
	//   '400':
	//     description: bad request
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '404':
	//     description: post passed as after not found
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	params, err := extractListParamsFromQuery(r.URL.Query())
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	posts, err := s.s.ListPosts(r.Context(), params)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			api.WriteError(w, http.StatusNotFound, "after post not found")
			return
		}
		api.WriteInternalErrorf(r.Context(), w, "failed to list posts: %s", err.Error())
		return
	}

	now := s.now()

	out := ListPostsResponse{Posts: make([]Post, len(posts))}
	for i, v := range posts {
		out.Posts[i] = *toAPIPost(v, now)
	}

	api.WriteOK(w, http.StatusOK, out)
}

func (s server) createPost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts Feed CreatePost
	//
	// Creates a new post and puts it on top of the feed.
	//
	// ---
	// consumes:
	// - application/json
	// produces:
	// - application/json
	// parameters:
	// - name: request
	//   in: body
	//   required: true
	//   schema:
	//     "$ref": "#/definitions/CreatePostRequest"
	// responses:
	//   '201':
	//     description: Created post
	//     schema:
	//       "$ref": "#/definitions/Post"
	//   '400':
	//     description: bad request
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	var req CreatePostRequest
	if err := api.ReadJSON(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, fmt.Sprintf("%s: %s", errInvalidRequest, err))
		return
	}

	p, err := s.s.CreatePost(r.Context(), toDraft(req))
	if err != nil {
		if errors.Is(err, service.ErrInvalidPost) {
			api.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		api.WriteInternalErrorf(r.Context(), w, "failed to create post: %s", err.Error())
		return
	}

	api.WriteOK(w, http.StatusCreated, toAPIPost(p, s.now()))
}

func (s server) getPost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /posts/{id} Feed GetPost
	//
	// Get post by id.
	//
	// ---
	// produces:
	// - application/json
	// parameters:
	// - name: id
	//   in: path
	//   required: true
	//   type: string
	// responses:
	//   '200':
	//     description: Post
	//     schema:
	//       "$ref": "#/definitions/Post"
	//   '404':
	//     description: post not found
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	p, err := s.s.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			api.WriteError(w, http.StatusNotFound, "post not found")
			return
		}
		api.WriteInternalErrorf(r.Context(), w, "failed to get post: %s", err.Error())
		return
	}

	api.WriteOK(w, http.StatusOK, toAPIPost(p, s.now()))
}

func (s server) votePoll(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts/{id}/poll/vote Feed VotePoll
	//
	// Casts local user's vote in post's poll. Only one vote per poll is accepted.
	//
	// ---
	// consumes:
	// - application/json
	// produces:
	// - application/json
	// parameters:
	// - name: id
	//   in: path
	//   required: true
	//   type: string
	// - name: request
	//   in: body
	//   required: true
	//   schema:
	//     "$ref": "#/definitions/VoteRequest"
	// responses:
	//   '200':
	//     description: Updated poll
	//     schema:
	//       "$ref": "#/definitions/Poll"
	//   '400':
	//     description: bad request
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '404':
	//     description: post, poll or option not found
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '409':
	//     description: already voted or poll ended
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	var req VoteRequest
	if err := api.ReadJSON(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, fmt.Sprintf("%s: %s", errInvalidRequest, err))
		return
	}

	if req.OptionID == "" {
		api.WriteError(w, http.StatusBadRequest, fmt.Sprintf("%s: empty optionId", errInvalidRequest))
		return
	}

	p, err := s.s.VotePoll(r.Context(), chi.URLParam(r, "id"), req.OptionID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			api.WriteError(w, http.StatusNotFound, "post not found")
		case errors.Is(err, poll.ErrNoPoll):
			api.WriteError(w, http.StatusNotFound, poll.ErrNoPoll.Error())
		case errors.Is(err, poll.ErrOptionNotFound):
			api.WriteError(w, http.StatusNotFound, poll.ErrOptionNotFound.Error())
		case errors.Is(err, poll.ErrAlreadyVoted):
			api.WriteError(w, http.StatusConflict, poll.ErrAlreadyVoted.Error())
		case errors.Is(err, poll.ErrPollEnded):
			api.WriteError(w, http.StatusConflict, poll.ErrPollEnded.Error())
		default:
			api.WriteInternalErrorf(r.Context(), w, "failed to vote: %s", err.Error())
		}
		return
	}

	api.WriteOK(w, http.StatusOK, toAPIPoll(p, s.now()))
}

func (s server) toggleLike(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts/{id}/like Feed ToggleLike
	//
	// Likes the post or takes the like back.
	//
	// ---
	// produces:
	// - application/json
	// parameters:
	// - name: id
	//   in: path
	//   required: true
	//   type: string
	// responses:
	//   '200':
	//     description: Updated post
	//     schema:
	//       "$ref": "#/definitions/Post"
	//   '404':
	//     description: post not found
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	p, err := s.s.ToggleLike(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			api.WriteError(w, http.StatusNotFound, "post not found")
			return
		}
		api.WriteInternalErrorf(r.Context(), w, "failed to toggle like: %s", err.Error())
		return
	}

	api.WriteOK(w, http.StatusOK, toAPIPost(p, s.now()))
}

func (s server) getStats(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /stats Feed GetStats
	//
	// Returns feed stats.
	//
	// ---
	// produces:
	// - application/json
	// responses:
	//   '200':
	//     description: Stats
	//     schema:
	//       "$ref": "#/definitions/Stats"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	stats, err := s.s.GetStats(r.Context())
	if err != nil {
		api.WriteInternalErrorf(r.Context(), w, "failed to get stats: %s", err.Error())
		return
	}

	api.WriteOK(w, http.StatusOK, Stats{
		Posts:        stats.Posts,
		Polls:        stats.Polls,
		OpenPolls:    stats.OpenPolls,
		Votes:        stats.Votes,
		Contests:     stats.Contests,
		OpenContests: stats.OpenContests,
		Likes:        stats.Likes,
	})
}

func extractListParamsFromQuery(q url.Values) (*storage.ListPostsParams, error) {
	var out storage.ListPostsParams

	if s := q.Get("limit"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse limit", errInvalidRequest)
		}

		if v > maxLimit {
			return nil, fmt.Errorf("%w: limit is too big", errInvalidRequest)
		}

		out.Limit = uint16(v)
	}

	if s := q.Get("after"); s != "" {
		out.After = &s
	}

	if s := q.Get("author"); s != "" {
		out.Author = &s
	}

	return &out, nil
}

func toDraft(r CreatePostRequest) *entities.PostDraft {
	d := &entities.PostDraft{
		Content: r.Content,
		Tags:    r.Tags,
	}

	if r.Author != nil {
		d.Author = &entities.Author{
			Name:     r.Author.Name,
			Username: r.Author.Username,
			Avatar:   r.Author.Avatar,
		}
	}

	if r.Media != nil {
		d.Media = &entities.Media{Kind: r.Media.Type, URL: r.Media.URL}
	}

	if r.Poll != nil {
		d.Poll = &entities.PollDraft{
			Question: r.Poll.Question,
			Options:  r.Poll.Options,
			Duration: entities.Duration{
				Days:    r.Poll.Duration.Days,
				Hours:   r.Poll.Duration.Hours,
				Minutes: r.Poll.Duration.Minutes,
			},
		}
	}

	if r.Contest != nil {
		d.Contest = &entities.Contest{
			Enabled:           r.Contest.Enabled,
			PrizeType:         r.Contest.PrizeType,
			EndDate:           r.Contest.EndDate,
			EndTime:           r.Contest.EndTime,
			EntryRequirements: r.Contest.EntryRequirements,
		}
	}

	return d
}

func toAPIPost(p *entities.Post, now time.Time) *Post {
	if p == nil {
		return nil
	}

	out := &Post{
		ID: p.ID,
		Author: Author{
			Name:     p.Author.Name,
			Username: p.Author.Username,
			Avatar:   p.Author.Avatar,
		},
		Content:   p.Content,
		Poll:      toAPIPoll(p.Poll, now),
		Tags:      p.Tags,
		Likes:     p.Likes,
		Comments:  p.Comments,
		Shares:    p.Shares,
		IsLiked:   p.Liked,
		Timestamp: p.CreatedAt,
		Age:       age(p.CreatedAt, now),
	}

	if out.Tags == nil {
		out.Tags = []string{}
	}

	if p.Media != nil {
		out.Media = &Media{Type: p.Media.Kind, URL: p.Media.URL}
	}

	if p.Contest != nil {
		out.Contest = &Contest{
			Enabled:           p.Contest.Enabled,
			PrizeType:         p.Contest.PrizeType,
			EndDate:           p.Contest.EndDate,
			EndTime:           p.Contest.EndTime,
			EntryRequirements: p.Contest.EntryRequirements,
			Ended:             p.Contest.Ended(now),
		}

		if out.Contest.EntryRequirements == nil {
			out.Contest.EntryRequirements = []string{}
		}
	}

	return out
}

func toAPIPoll(p *entities.Poll, now time.Time) *Poll {
	if p == nil {
		return nil
	}

	out := &Poll{
		Question: p.Question,
		Options:  make([]PollOption, len(p.Options)),
		Duration: Duration{
			Days:    p.Duration.Days,
			Hours:   p.Duration.Hours,
			Minutes: p.Duration.Minutes,
		},
		EndTime:       p.EndTime,
		TotalVotes:    p.TotalVotes,
		UserVoted:     p.UserVoted,
		Ended:         poll.IsEnded(p, now),
		CanVote:       poll.CanVote(p, now),
		TimeRemaining: poll.TimeRemaining(p, now),
	}

	for i, v := range p.Options {
		out.Options[i] = PollOption{
			ID:         v.ID,
			Text:       v.Text,
			Votes:      v.Votes,
			Percentage: poll.Percentage(v, p),
		}
	}

	return out
}

// age returns relative time like "Just now", "5h ago" or "3d ago".
func age(t, now time.Time) string {
	d := now.Sub(t)

	switch {
	case d < time.Hour:
		return "Just now"
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
}
