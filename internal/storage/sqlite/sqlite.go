// Package sqlite is implementation of storage interface over an in-memory sqlite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migrates "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // registers sqlite driver

	"github.com/socialhub/feed/internal/entities"
	"github.com/socialhub/feed/internal/poll"
	"github.com/socialhub/feed/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

var log = logrus.WithField("layer", "storage").WithField("package", "sqlite")

var errBeginCalledWithinTx = errors.New("can not run InTx in tx")

type db struct {
	ext sqlx.ExtContext
}

type postDTO struct {
	Seq            int64          `db:"seq"`
	ID             string         `db:"id"`
	AuthorName     string         `db:"author_name"`
	AuthorUsername string         `db:"author_username"`
	AuthorAvatar   string         `db:"author_avatar"`
	Content        string         `db:"content"`
	MediaType      sql.NullString `db:"media_type"`
	MediaURL       sql.NullString `db:"media_url"`
	Tags           string         `db:"tags"`
	Likes          uint32         `db:"likes"`
	Comments       uint32         `db:"comments"`
	Shares         uint32         `db:"shares"`
	Liked          bool           `db:"liked"`
	CreatedAt      int64          `db:"created_at"`
}

type pollDTO struct {
	PostID          string         `db:"post_id"`
	Question        string         `db:"question"`
	DurationDays    uint32         `db:"duration_days"`
	DurationHours   uint32         `db:"duration_hours"`
	DurationMinutes uint32         `db:"duration_minutes"`
	EndTime         int64          `db:"end_time"`
	TotalVotes      uint32         `db:"total_votes"`
	UserVoted       sql.NullString `db:"user_voted"`
}

type optionDTO struct {
	PostID   string `db:"post_id"`
	ID       string `db:"id"`
	Position int    `db:"position"`
	Text     string `db:"text"`
	Votes    uint32 `db:"votes"`
}

type contestDTO struct {
	PostID            string `db:"post_id"`
	Enabled           bool   `db:"enabled"`
	PrizeType         string `db:"prize_type"`
	EndDate           string `db:"end_date"`
	EndTime           string `db:"end_time"`
	EntryRequirements string `db:"entry_requirements"`
}

// OpenInMemory opens a new in-memory database and migrates it.
// Database lives as long as returned *sql.DB isn't closed.
func OpenInMemory() (*sql.DB, error) {
	sdb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// every connection to :memory: is a separate database
	sdb.SetMaxOpenConns(1)
	sdb.SetMaxIdleConns(1)
	sdb.SetConnMaxLifetime(0)

	if err := Migrate(sdb); err != nil {
		_ = sdb.Close()
		return nil, err
	}

	return sdb, nil
}

// Migrate applies embedded migrations to database.
func Migrate(sdb *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migrations source: %w", err)
	}

	driver, err := migrates.WithInstance(sdb, &migrates.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database migrate driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	switch err := migrator.Up(); err {
	case nil:
		log.Info("database was migrated")
	case migrate.ErrNoChange:
		log.Info("database is up-to-date")
	default:
		return fmt.Errorf("failed to migrate db: %w", err)
	}

	return nil
}

// New creates new instance of sqlite storage.
func New(sdb *sql.DB) storage.Storage {
	return db{
		ext: sqlx.NewDb(sdb, "sqlite"),
	}
}

// InTx runs f within a transaction. Transaction is rolled back if f returns error.
func (s db) InTx(ctx context.Context, f func(s db) error) error {
	sdb, ok := s.ext.(*sqlx.DB)
	if !ok {
		return errBeginCalledWithinTx
	}

	tx, err := sdb.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to create tx: %w", err)
	}

	if err := f(db{ext: tx}); err != nil {
		if err := tx.Rollback(); err != nil {
			log.WithError(err).Error("failed to rollback tx")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}

	return nil
}

func (s db) Ping(ctx context.Context) error {
	sdb, ok := s.ext.(*sqlx.DB)
	if !ok {
		return nil
	}

	return sdb.PingContext(ctx)
}

func (s db) ListPosts(ctx context.Context, p *storage.ListPostsParams) ([]*entities.Post, error) {
	if p == nil {
		p = &storage.ListPostsParams{}
	}

	var out []*entities.Post

	err := s.InTx(ctx, func(s db) error {
		query := `SELECT * FROM post WHERE 1=1`
		var args []interface{}

		if p.After != nil {
			seq, err := s.getSeq(ctx, *p.After)
			if err != nil {
				return fmt.Errorf("failed to get after: %w", err)
			}

			query += ` AND seq < ?`
			args = append(args, seq)
		}

		if p.Author != nil {
			query += ` AND author_username = ?`
			args = append(args, *p.Author)
		}

		query += ` ORDER BY seq DESC`

		if p.Limit > 0 {
			query += ` LIMIT ?`
			args = append(args, int64(p.Limit))
		}

		var posts []*postDTO
		if err := sqlx.SelectContext(ctx, s.ext, &posts, query, args...); err != nil {
			return fmt.Errorf("failed to query: %w", err)
		}

		var err error
		out, err = s.assemble(ctx, posts)

		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (s db) GetPost(ctx context.Context, id string) (*entities.Post, error) {
	var out *entities.Post

	if err := s.InTx(ctx, func(s db) error {
		var err error
		out, err = s.getPost(ctx, id)
		return err
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s db) CreatePost(ctx context.Context, p *entities.Post) error {
	return s.InTx(ctx, func(s db) error {
		return s.createPost(ctx, p)
	})
}

func (s db) createPost(ctx context.Context, p *entities.Post) error {
	if _, err := s.getSeq(ctx, p.ID); err == nil {
		return fmt.Errorf("%w: id=%s", storage.ErrCollision, p.ID)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	post := postDTO{
		ID:             p.ID,
		AuthorName:     p.Author.Name,
		AuthorUsername: p.Author.Username,
		AuthorAvatar:   p.Author.Avatar,
		Content:        p.Content,
		Tags:           string(tags),
		Likes:          p.Likes,
		Comments:       p.Comments,
		Shares:         p.Shares,
		Liked:          p.Liked,
		CreatedAt:      p.CreatedAt.UnixNano(),
	}

	if p.Media != nil {
		post.MediaType = sql.NullString{String: string(p.Media.Kind), Valid: true}
		post.MediaURL = sql.NullString{String: p.Media.URL, Valid: true}
	}

	if _, err := sqlx.NamedExecContext(ctx, s.ext, `
			INSERT INTO post(id, author_name, author_username, author_avatar, content, media_type, media_url,
				tags, likes, comments, shares, liked, created_at)
			VALUES(:id, :author_name, :author_username, :author_avatar, :content, :media_type, :media_url,
				:tags, :likes, :comments, :shares, :liked, :created_at)
		`, post,
	); err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}

	if p.Poll != nil {
		if err := s.createPoll(ctx, p.ID, p.Poll); err != nil {
			return err
		}
	}

	if p.Contest != nil {
		if err := s.createContest(ctx, p.ID, p.Contest); err != nil {
			return err
		}
	}

	return nil
}

func (s db) createPoll(ctx context.Context, postID string, p *entities.Poll) error {
	var userVoted sql.NullString
	if p.Voted() {
		userVoted = sql.NullString{String: p.UserVoted, Valid: true}
	}

	if _, err := sqlx.NamedExecContext(ctx, s.ext, `
			INSERT INTO poll(post_id, question, duration_days, duration_hours, duration_minutes, end_time,
				total_votes, user_voted)
			VALUES(:post_id, :question, :duration_days, :duration_hours, :duration_minutes, :end_time,
				:total_votes, :user_voted)
		`, pollDTO{
			PostID:          postID,
			Question:        p.Question,
			DurationDays:    p.Duration.Days,
			DurationHours:   p.Duration.Hours,
			DurationMinutes: p.Duration.Minutes,
			EndTime:         p.EndTime.UnixNano(),
			TotalVotes:      p.TotalVotes,
			UserVoted:       userVoted,
		},
	); err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	for i, o := range p.Options {
		if _, err := sqlx.NamedExecContext(ctx, s.ext, `
				INSERT INTO poll_option(post_id, id, position, text, votes)
				VALUES(:post_id, :id, :position, :text, :votes)
			`, optionDTO{
				PostID:   postID,
				ID:       o.ID,
				Position: i,
				Text:     o.Text,
				Votes:    o.Votes,
			},
		); err != nil {
			return fmt.Errorf("failed to insert poll option: %w", err)
		}
	}

	return nil
}

func (s db) createContest(ctx context.Context, postID string, c *entities.Contest) error {
	requirements, err := json.Marshal(c.EntryRequirements)
	if err != nil {
		return fmt.Errorf("failed to marshal entry requirements: %w", err)
	}

	if _, err := sqlx.NamedExecContext(ctx, s.ext, `
			INSERT INTO contest(post_id, enabled, prize_type, end_date, end_time, entry_requirements)
			VALUES(:post_id, :enabled, :prize_type, :end_date, :end_time, :entry_requirements)
		`, contestDTO{
			PostID:            postID,
			Enabled:           c.Enabled,
			PrizeType:         c.PrizeType,
			EndDate:           c.EndDate,
			EndTime:           c.EndTime,
			EntryRequirements: string(requirements),
		},
	); err != nil {
		return fmt.Errorf("failed to insert contest: %w", err)
	}

	return nil
}

func (s db) Vote(ctx context.Context, postID, optionID string, at time.Time) (*entities.Poll, error) {
	var out *entities.Poll

	if err := s.InTx(ctx, func(s db) error {
		if _, err := s.getSeq(ctx, postID); err != nil {
			return err
		}

		polls, err := s.getPolls(ctx, []string{postID})
		if err != nil {
			return err
		}

		p, ok := polls[postID]
		if !ok {
			return poll.ErrNoPoll
		}

		if err := poll.Vote(p, optionID, at); err != nil {
			return err
		}

		if _, err := s.ext.ExecContext(ctx,
			`UPDATE poll_option SET votes = votes + 1 WHERE post_id = ? AND id = ?`,
			postID, optionID,
		); err != nil {
			return fmt.Errorf("failed to update option: %w", err)
		}

		res, err := s.ext.ExecContext(ctx,
			`UPDATE poll SET total_votes = total_votes + 1, user_voted = ? WHERE post_id = ? AND user_voted IS NULL`,
			optionID, postID,
		)
		if err != nil {
			return fmt.Errorf("failed to update poll: %w", err)
		}

		if c, _ := res.RowsAffected(); c == 0 {
			return poll.ErrAlreadyVoted
		}

		out = p

		return nil
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s db) ToggleLike(ctx context.Context, postID string) (*entities.Post, error) {
	var out *entities.Post

	if err := s.InTx(ctx, func(s db) error {
		res, err := s.ext.ExecContext(ctx, `
				UPDATE post SET
					likes = CASE WHEN liked THEN MAX(likes - 1, 0) ELSE likes + 1 END,
					liked = NOT liked
				WHERE id = ?
			`, postID,
		)
		if err != nil {
			return fmt.Errorf("failed to update post: %w", err)
		}

		if c, _ := res.RowsAffected(); c == 0 {
			return storage.ErrNotFound
		}

		out, err = s.getPost(ctx, postID)

		return err
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s db) getSeq(ctx context.Context, id string) (int64, error) {
	var seq int64

	if err := sqlx.GetContext(ctx, s.ext, &seq, `SELECT seq FROM post WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: id=%s", storage.ErrNotFound, id)
		}

		return 0, fmt.Errorf("failed to query: %w", err)
	}

	return seq, nil
}

func (s db) getPost(ctx context.Context, id string) (*entities.Post, error) {
	var p postDTO

	if err := sqlx.GetContext(ctx, s.ext, &p, `SELECT * FROM post WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	posts, err := s.assemble(ctx, []*postDTO{&p})
	if err != nil {
		return nil, err
	}

	return posts[0], nil
}

// assemble converts posts rows to entities joining polls and contests.
func (s db) assemble(ctx context.Context, posts []*postDTO) ([]*entities.Post, error) {
	out := make([]*entities.Post, 0, len(posts))
	if len(posts) == 0 {
		return out, nil
	}

	ids := make([]string, len(posts))
	for i, v := range posts {
		ids[i] = v.ID
	}

	polls, err := s.getPolls(ctx, ids)
	if err != nil {
		return nil, err
	}

	contests, err := s.getContests(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, v := range posts {
		p := &entities.Post{
			ID: v.ID,
			Author: entities.Author{
				Name:     v.AuthorName,
				Username: v.AuthorUsername,
				Avatar:   v.AuthorAvatar,
			},
			Content:   v.Content,
			Poll:      polls[v.ID],
			Contest:   contests[v.ID],
			Likes:     v.Likes,
			Comments:  v.Comments,
			Shares:    v.Shares,
			Liked:     v.Liked,
			CreatedAt: time.Unix(0, v.CreatedAt).UTC(),
		}

		if v.MediaType.Valid {
			p.Media = &entities.Media{
				Kind: entities.MediaKind(v.MediaType.String),
				URL:  v.MediaURL.String,
			}
		}

		if err := json.Unmarshal([]byte(v.Tags), &p.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags of %s: %w", v.ID, err)
		}

		out = append(out, p)
	}

	return out, nil
}

func (s db) getPolls(ctx context.Context, ids []string) (map[string]*entities.Poll, error) {
	query, args, err := sqlx.In(`SELECT * FROM poll WHERE post_id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to construct IN clause: %w", err)
	}

	var polls []*pollDTO
	if err := sqlx.SelectContext(ctx, s.ext, &polls, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}

	out := make(map[string]*entities.Poll, len(polls))
	if len(polls) == 0 {
		return out, nil
	}

	for _, v := range polls {
		out[v.PostID] = &entities.Poll{
			Question: v.Question,
			Duration: entities.Duration{
				Days:    v.DurationDays,
				Hours:   v.DurationHours,
				Minutes: v.DurationMinutes,
			},
			EndTime:    time.Unix(0, v.EndTime).UTC(),
			TotalVotes: v.TotalVotes,
			UserVoted:  v.UserVoted.String,
		}
	}

	query, args, err = sqlx.In(`SELECT * FROM poll_option WHERE post_id IN (?) ORDER BY post_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to construct IN clause: %w", err)
	}

	var options []*optionDTO
	if err := sqlx.SelectContext(ctx, s.ext, &options, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query poll options: %w", err)
	}

	for _, v := range options {
		p, ok := out[v.PostID]
		if !ok {
			continue
		}

		p.Options = append(p.Options, entities.PollOption{
			ID:    v.ID,
			Text:  v.Text,
			Votes: v.Votes,
		})
	}

	return out, nil
}

func (s db) getContests(ctx context.Context, ids []string) (map[string]*entities.Contest, error) {
	query, args, err := sqlx.In(`SELECT * FROM contest WHERE post_id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to construct IN clause: %w", err)
	}

	var contests []*contestDTO
	if err := sqlx.SelectContext(ctx, s.ext, &contests, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query contests: %w", err)
	}

	out := make(map[string]*entities.Contest, len(contests))
	for _, v := range contests {
		c := &entities.Contest{
			Enabled:   v.Enabled,
			PrizeType: v.PrizeType,
			EndDate:   v.EndDate,
			EndTime:   v.EndTime,
		}

		if err := json.Unmarshal([]byte(v.EntryRequirements), &c.EntryRequirements); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry requirements of %s: %w", v.PostID, err)
		}

		out[v.PostID] = c
	}

	return out, nil
}
