// Package poll contains rules of polls lifecycle: creation, voting and presentation.
package poll

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/socialhub/feed/internal/entities"
)

const (
	// MaxQuestionLength is a maximal question length in runes.
	MaxQuestionLength = 140
	// MaxOptionLength is a maximal option length in runes.
	MaxOptionLength = 30
	// MinOptions ...
	MinOptions = 2
	// MaxOptions ...
	MaxOptions = 10

	maxDays    = 7
	maxHours   = 23
	maxMinutes = 59
)

// EndedMessage is returned by TimeRemaining for closed polls.
const EndedMessage = "Poll ended"

var (
	// ErrInvalidPoll is returned when poll draft can not be turned into poll.
	ErrInvalidPoll = errors.New("invalid poll")
	// ErrNoPoll is returned when post has no poll.
	ErrNoPoll = errors.New("post has no poll")
	// ErrAlreadyVoted is returned on second vote in the same poll.
	ErrAlreadyVoted = errors.New("already voted")
	// ErrPollEnded is returned on vote after poll end.
	ErrPollEnded = errors.New("poll ended")
	// ErrOptionNotFound is returned when voted option doesn't belong to poll.
	ErrOptionNotFound = errors.New("option not found")
)

// New validates draft and creates new poll ending at now + draft duration.
// Blank options are skipped, question and options are trimmed.
func New(d entities.PollDraft, now time.Time) (*entities.Poll, error) {
	question := strings.TrimSpace(d.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", ErrInvalidPoll)
	}
	if utf8.RuneCountInString(question) > MaxQuestionLength {
		return nil, fmt.Errorf("%w: question is longer than %d characters", ErrInvalidPoll, MaxQuestionLength)
	}

	options := make([]entities.PollOption, 0, len(d.Options))
	for _, v := range d.Options {
		text := strings.TrimSpace(v)
		if text == "" {
			continue
		}

		if utf8.RuneCountInString(text) > MaxOptionLength {
			return nil, fmt.Errorf("%w: option %q is longer than %d characters", ErrInvalidPoll, text, MaxOptionLength)
		}

		options = append(options, entities.PollOption{
			ID:   fmt.Sprintf("option-%d", len(options)),
			Text: text,
		})
	}

	if len(options) < MinOptions || len(options) > MaxOptions {
		return nil, fmt.Errorf("%w: poll should have from %d to %d options", ErrInvalidPoll, MinOptions, MaxOptions)
	}

	if err := validateDuration(d.Duration); err != nil {
		return nil, err
	}

	return &entities.Poll{
		Question: question,
		Options:  options,
		Duration: d.Duration,
		EndTime:  now.Add(d.Duration.Std()).UTC(),
	}, nil
}

func validateDuration(d entities.Duration) error {
	switch {
	case d.Days > maxDays:
		return fmt.Errorf("%w: duration days should be at most %d", ErrInvalidPoll, maxDays)
	case d.Hours > maxHours:
		return fmt.Errorf("%w: duration hours should be at most %d", ErrInvalidPoll, maxHours)
	case d.Minutes > maxMinutes:
		return fmt.Errorf("%w: duration minutes should be at most %d", ErrInvalidPoll, maxMinutes)
	case d.Std() <= 0:
		return fmt.Errorf("%w: duration is empty", ErrInvalidPoll)
	}

	return nil
}

// Validate checks that already built poll, e.g. loaded from seed, holds poll invariants:
// non-empty question and options within limits, unique option ids, known userVoted option
// and total votes equal to the sum of options' votes.
func Validate(p *entities.Poll) error {
	if strings.TrimSpace(p.Question) == "" {
		return fmt.Errorf("%w: question is empty", ErrInvalidPoll)
	}
	if utf8.RuneCountInString(p.Question) > MaxQuestionLength {
		return fmt.Errorf("%w: question is longer than %d characters", ErrInvalidPoll, MaxQuestionLength)
	}

	if len(p.Options) < MinOptions || len(p.Options) > MaxOptions {
		return fmt.Errorf("%w: poll should have from %d to %d options", ErrInvalidPoll, MinOptions, MaxOptions)
	}

	var sum uint64
	ids := make(map[string]struct{}, len(p.Options))
	for _, o := range p.Options {
		if o.ID == "" {
			return fmt.Errorf("%w: option id is empty", ErrInvalidPoll)
		}
		if _, ok := ids[o.ID]; ok {
			return fmt.Errorf("%w: duplicated option id %s", ErrInvalidPoll, o.ID)
		}
		ids[o.ID] = struct{}{}

		if strings.TrimSpace(o.Text) == "" {
			return fmt.Errorf("%w: option %s has empty text", ErrInvalidPoll, o.ID)
		}
		if utf8.RuneCountInString(o.Text) > MaxOptionLength {
			return fmt.Errorf("%w: option %s is longer than %d characters", ErrInvalidPoll, o.ID, MaxOptionLength)
		}

		sum += uint64(o.Votes)
	}

	if p.Voted() {
		if _, ok := ids[p.UserVoted]; !ok {
			return fmt.Errorf("%w: voted option %s not found", ErrInvalidPoll, p.UserVoted)
		}
	}

	if sum != uint64(p.TotalVotes) {
		return fmt.Errorf("%w: total votes %d don't match options' votes %d", ErrInvalidPoll, p.TotalVotes, sum)
	}

	return validateDuration(p.Duration)
}

// Vote records the local user's vote for option.
// Poll is left untouched when an error is returned.
func Vote(p *entities.Poll, optionID string, now time.Time) error {
	if p == nil {
		return ErrNoPoll
	}

	if p.Voted() {
		return fmt.Errorf("%w: option=%s", ErrAlreadyVoted, p.UserVoted)
	}

	if IsEnded(p, now) {
		return fmt.Errorf("%w at %s", ErrPollEnded, p.EndTime.Format(time.RFC3339))
	}

	for i := range p.Options {
		if p.Options[i].ID == optionID {
			p.Options[i].Votes++
			p.TotalVotes++
			p.UserVoted = optionID

			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrOptionNotFound, optionID)
}

// IsEnded returns true if now is strictly after poll end time.
func IsEnded(p *entities.Poll, now time.Time) bool {
	return now.After(p.EndTime)
}

// CanVote returns true if the local user still can vote.
func CanVote(p *entities.Poll, now time.Time) bool {
	return !p.Voted() && !IsEnded(p, now)
}

// Percentage returns option share of all votes rounded half-up to integer percents.
func Percentage(o entities.PollOption, p *entities.Poll) int {
	if p.TotalVotes == 0 {
		return 0
	}

	// integer form of floor(votes*100/total + 0.5)
	return int((uint64(o.Votes)*200 + uint64(p.TotalVotes)) / (2 * uint64(p.TotalVotes)))
}

// TimeRemaining returns human readable time left till poll end.
func TimeRemaining(p *entities.Poll, now time.Time) string {
	if IsEnded(p, now) {
		return EndedMessage
	}

	left := p.EndTime.Sub(now)

	days := int(left / (24 * time.Hour))
	hours := int(left % (24 * time.Hour) / time.Hour)
	minutes := int(left % time.Hour / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh left", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm left", hours, minutes)
	default:
		return fmt.Sprintf("%dm left", minutes)
	}
}
