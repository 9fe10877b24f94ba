package main

import (
	"context"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/socialhub/feed/internal/entities"
	"github.com/socialhub/feed/internal/seed"
	"github.com/socialhub/feed/internal/service/impl"
	"github.com/socialhub/feed/internal/storage/sqlite"
)

var opts = struct {
	Seed string `long:"seed" env:"SEED" default:"seed.json" description:"path to seed file"`
}{}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "seedcheck"
	parser.LongDescription = "Loads seed file into sqlite storage and prints feed stats"

	_, err := parser.Parse()

	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	logrus.Info("seedcheck started")
	logrus.Infof("%+v", opts)

	posts, err := seed.Load(opts.Seed)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load seed")
	}

	db, err := sqlite.OpenInMemory()
	if err != nil {
		logrus.WithError(err).Fatal("failed to open sqlite")
	}
	defer db.Close() // nolint:errcheck

	s := sqlite.New(db)

	if err := seed.Put(context.Background(), s, posts); err != nil {
		logrus.WithError(err).Fatal("failed to put posts into db")
	}

	stats, err := impl.New(s, entities.Author{}).GetStats(context.Background())
	if err != nil {
		logrus.WithError(err).Fatal("failed to get stats")
	}

	logrus.WithFields(logrus.Fields{
		"posts":      stats.Posts,
		"polls":      stats.Polls,
		"open_polls": stats.OpenPolls,
		"votes":      stats.Votes,
		"contests":   stats.Contests,
		"likes":      stats.Likes,
	}).Info("seed is valid")
}
