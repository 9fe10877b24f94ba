package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Decentr-net/logrus/sentry"

	"github.com/socialhub/feed/internal/entities"
	"github.com/socialhub/feed/internal/health"
	"github.com/socialhub/feed/internal/seed"
	"github.com/socialhub/feed/internal/server"
	"github.com/socialhub/feed/internal/service/impl"
	"github.com/socialhub/feed/internal/storage"
	"github.com/socialhub/feed/internal/storage/memory"
	"github.com/socialhub/feed/internal/storage/sqlite"
)

// nolint:lll,gochecknoglobals
var opts = struct {
	Host           string        `long:"http.host" env:"HTTP_HOST" default:"0.0.0.0" description:"IP to listen on"`
	Port           int           `long:"http.port" env:"HTTP_PORT" default:"8080" description:"port to listen on for insecure connections"`
	RequestTimeout time.Duration `long:"http.request_timeout" env:"HTTP_REQUEST_TIMEOUT" default:"45s" description:"request processing timeout"`

	Storage string `long:"storage" env:"STORAGE" default:"memory" description:"posts storage" choice:"memory" choice:"sqlite"`
	Seed    string `long:"seed" env:"SEED" description:"path to json file with seed posts, built-in posts are used when empty"`

	UserName     string `long:"user.name" env:"USER_NAME" default:"You" description:"local user's display name"`
	UserUsername string `long:"user.username" env:"USER_USERNAME" default:"@you" description:"local user's handle"`
	UserAvatar   string `long:"user.avatar" env:"USER_AVATAR" default:"https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=150&h=150&fit=crop&crop=face" description:"local user's avatar url"`

	LogLevel  string `long:"log.level" env:"LOG_LEVEL" default:"info" description:"Log level" choice:"debug" choice:"info" choice:"warning" choice:"error"`
	SentryDSN string `long:"sentry.dsn" env:"SENTRY_DSN" description:"sentry dsn"`
}{}

var errTerminated = errors.New("terminated")

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Fatal("failed to load .env")
	}

	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "Feed"
	parser.LongDescription = "Social feed with polls and contests"

	_, err := parser.Parse()

	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	lvl, _ := logrus.ParseLevel(opts.LogLevel) // err will always be nil
	logrus.SetLevel(lvl)

	logrus.Infof("%+v", opts)

	if opts.SentryDSN != "" {
		hook, err := sentry.NewHook(sentry.Options{
			Dsn:              opts.SentryDSN,
			AttachStacktrace: true,
			Release:          health.GetVersion(),
			ServerName:       "feed",
		}, logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel)

		if err != nil {
			logrus.WithError(err).Fatal("failed to init sentry")
		}

		logrus.AddHook(hook)
	} else {
		logrus.Info("empty sentry dsn")
		logrus.Warn("skip sentry initialization")
	}

	s, closer := mustGetStorage()
	defer closer()

	mustSeed(s)

	srv := impl.New(s, entities.Author{
		Name:     opts.UserName,
		Username: opts.UserUsername,
		Avatar:   opts.UserAvatar,
	})

	r := chi.NewMux()
	r.Get("/health", health.Handler(
		5*time.Second,
		health.SubjectPinger(opts.Storage, s.Ping),
	))
	server.SetupRouter(srv, r, opts.RequestTimeout)

	hs := http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler:           r,
		ReadHeaderTimeout: opts.RequestTimeout,
	}

	gr, ctx := errgroup.WithContext(context.Background())
	gr.Go(func() error {
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	gr.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

		select {
		case s := <-sigs:
			logrus.Infof("terminating by %s signal", s)
		case <-ctx.Done():
		}

		sctx, cancel := context.WithTimeout(context.Background(), opts.RequestTimeout)
		defer cancel()

		if err := hs.Shutdown(sctx); err != nil {
			logrus.WithError(err).Error("failed to shutdown server gracefully")
		}

		return errTerminated
	})

	logrus.Info("service started")

	if err := gr.Wait(); err != nil && !errors.Is(err, errTerminated) {
		logrus.WithError(err).Error("service unexpectedly closed")
	}
}

func mustGetStorage() (storage.Storage, func()) {
	switch opts.Storage {
	case "sqlite":
		db, err := sqlite.OpenInMemory()
		if err != nil {
			logrus.WithError(err).Fatal("failed to open sqlite")
		}

		return sqlite.New(db), func() { closeDB(db) }
	default:
		return memory.New(), func() {}
	}
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		logrus.WithError(err).Error("failed to close sqlite")
	}
}

func mustSeed(s storage.Storage) {
	posts := seed.Default()

	if opts.Seed != "" {
		var err error
		if posts, err = seed.Load(opts.Seed); err != nil {
			logrus.WithError(err).Fatal("failed to load seed")
		}
	}

	if err := seed.Put(context.Background(), s, posts); err != nil {
		logrus.WithError(err).Fatal("failed to put seed")
	}

	logrus.Infof("%d posts seeded", len(posts))
}
