package server

import (
	"time"

	"github.com/socialhub/feed/internal/entities"
)

const maxLimit = 100

// ListPostsResponse ...
// swagger:model
type ListPostsResponse struct {
	Posts []Post `json:"posts"`
}

// Author ...
type Author struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Media ...
type Media struct {
	Type entities.MediaKind `json:"type"`
	URL  string             `json:"url"`
}

// Duration ...
type Duration struct {
	Days    uint32 `json:"days"`
	Hours   uint32 `json:"hours"`
	Minutes uint32 `json:"minutes"`
}

// PollOption ...
type PollOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes uint32 `json:"votes"`
	// Percentage of total votes rounded half up.
	Percentage int `json:"percentage"`
}

// Poll ...
// swagger:model
type Poll struct {
	Question   string       `json:"question"`
	Options    []PollOption `json:"options"`
	Duration   Duration     `json:"duration"`
	EndTime    time.Time    `json:"endTime"`
	TotalVotes uint32       `json:"totalVotes"`
	// UserVoted is an option id chosen by the local user.
	UserVoted string `json:"userVoted,omitempty"`
	Ended     bool   `json:"ended"`
	CanVote   bool   `json:"canVote"`
	// TimeRemaining is human readable, e.g. "2d 3h left" or "Poll ended".
	TimeRemaining string `json:"timeRemaining"`
}

// Contest ...
type Contest struct {
	Enabled           bool     `json:"enabled"`
	PrizeType         string   `json:"prizeType"`
	EndDate           string   `json:"endDate"`
	EndTime           string   `json:"endTime"`
	EntryRequirements []string `json:"entryRequirements"`
	// Ended is set in responses when contest deadline has passed, it is ignored in requests.
	Ended             bool     `json:"ended"`
}

// Post ...
// swagger:model
type Post struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	Media     *Media    `json:"media,omitempty"`
	Poll      *Poll     `json:"poll,omitempty"`
	Contest   *Contest  `json:"contest,omitempty"`
	Tags      []string  `json:"tags"`
	Likes     uint32    `json:"likes"`
	Comments  uint32    `json:"comments"`
	Shares    uint32    `json:"shares"`
	IsLiked   bool      `json:"isLiked"`
	Timestamp time.Time `json:"timestamp"`
	// Age is relative creation time, e.g. "Just now" or "2h ago".
	Age string `json:"age"`
}

// PollDraft ...
type PollDraft struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Duration Duration `json:"duration"`
}

// CreatePostRequest ...
// swagger:model
type CreatePostRequest struct {
	// Author is optional, local user is used by default.
	Author  *Author    `json:"author"`
	Content string     `json:"content"`
	Media   *Media     `json:"media"`
	Poll    *PollDraft `json:"poll"`
	Contest *Contest   `json:"contest"`
	Tags    []string   `json:"tags"`
}

// VoteRequest ...
// swagger:model
type VoteRequest struct {
	OptionID string `json:"optionId"`
}

// Stats ...
// swagger:model
type Stats struct {
	Posts        int    `json:"posts"`
	Polls        int    `json:"polls"`
	OpenPolls    int    `json:"openPolls"`
	Votes        uint64 `json:"votes"`
	Contests     int    `json:"contests"`
	OpenContests int    `json:"openContests"`
	Likes        uint64 `json:"likes"`
}
