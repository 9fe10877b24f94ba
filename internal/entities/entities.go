// Package entities contains main entities of service.
package entities

import (
	"fmt"
	"time"
)

// MediaKind is a kind of post attachment.
type MediaKind string

const (
	// ImageMedia ...
	ImageMedia MediaKind = "image"
	// VideoMedia ...
	VideoMedia MediaKind = "video"
)

// Valid returns true if kind is one of known kinds.
func (k MediaKind) Valid() bool {
	switch k {
	case ImageMedia, VideoMedia:
		return true
	default:
		return false
	}
}

// UnmarshalText rejects unknown media kinds.
func (k *MediaKind) UnmarshalText(b []byte) error {
	v := MediaKind(b)
	if !v.Valid() {
		return fmt.Errorf("unknown media type %q", string(b))
	}

	*k = v

	return nil
}

// Author ...
type Author struct {
	Name     string
	Username string
	Avatar   string
}

// Media is a single post attachment.
type Media struct {
	Kind MediaKind
	URL  string
}

// PollOption ...
type PollOption struct {
	ID    string
	Text  string
	Votes uint32
}

// Duration is a poll duration as it is chosen by user.
type Duration struct {
	Days    uint32
	Hours   uint32
	Minutes uint32
}

// Std converts duration to time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d.Days)*24*time.Hour +
		time.Duration(d.Hours)*time.Hour +
		time.Duration(d.Minutes)*time.Minute
}

// Poll ...
type Poll struct {
	Question   string
	Options    []PollOption
	Duration   Duration
	EndTime    time.Time
	TotalVotes uint32
	// UserVoted is an option id chosen by the local user, empty if user hasn't voted yet.
	UserVoted string
}

// Voted returns true if the local user has already voted.
func (p *Poll) Voted() bool {
	return p.UserVoted != ""
}

// Copy returns deep copy of poll.
func (p *Poll) Copy() *Poll {
	if p == nil {
		return nil
	}

	out := *p
	out.Options = append([]PollOption(nil), p.Options...)

	return &out
}

// Contest is a giveaway attached to post.
type Contest struct {
	Enabled           bool
	PrizeType         string
	EndDate           string // YYYY-MM-DD
	EndTime           string // HH:MM
	EntryRequirements []string
}

const (
	// ContestDateLayout ...
	ContestDateLayout = "2006-01-02"
	// ContestTimeLayout ...
	ContestTimeLayout = "15:04"
)

// Deadline returns contest end as a point in time.
// The second value is false when end date isn't set.
func (c *Contest) Deadline(loc *time.Location) (time.Time, bool) {
	if c.EndDate == "" {
		return time.Time{}, false
	}

	clock := c.EndTime
	if clock == "" {
		clock = "23:59"
	}

	t, err := time.ParseInLocation(ContestDateLayout+" "+ContestTimeLayout, c.EndDate+" "+clock, loc)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

// Ended returns true if contest deadline is set and now is after it.
// Contest date and time are treated as UTC.
func (c *Contest) Ended(now time.Time) bool {
	d, ok := c.Deadline(time.UTC)
	return ok && now.After(d)
}

// Post ...
type Post struct {
	ID        string
	Author    Author
	Content   string
	Media     *Media
	Poll      *Poll
	Contest   *Contest
	Tags      []string
	Likes     uint32
	Comments  uint32
	Shares    uint32
	Liked     bool
	CreatedAt time.Time
}

// Copy returns deep copy of post.
func (p *Post) Copy() *Post {
	out := *p

	if p.Media != nil {
		m := *p.Media
		out.Media = &m
	}

	out.Poll = p.Poll.Copy()

	if p.Contest != nil {
		c := *p.Contest
		c.EntryRequirements = append([]string(nil), p.Contest.EntryRequirements...)
		out.Contest = &c
	}

	out.Tags = append([]string(nil), p.Tags...)

	return &out
}

// PollDraft is a poll as it is submitted by user.
type PollDraft struct {
	Question string
	Options  []string
	Duration Duration
}

// PostDraft is a post as it is submitted by user.
// Identifier, timestamp and counters are assigned by service.
type PostDraft struct {
	// Author is optional, local user is used when it's nil.
	Author  *Author
	Content string
	Media   *Media
	Poll    *PollDraft
	Contest *Contest
	Tags    []string
}
