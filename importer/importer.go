// Package importer copies a MyAnimeList plan-to-watch list into a user's
// backlog, creating the shows that are not stored yet.
package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/apperror"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/logging"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/mal"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/models"
)

// Scraper reads a MyAnimeList anime list. *mal.Client satisfies it.
type Scraper interface {
	ScrapeUserAnimeList(ctx context.Context, userName string) ([]mal.Entry, error)
}

// Shows is the part of *shows.Service the importer needs.
type Shows interface {
	FindShowsByMALID(ctx context.Context, malAnimeID int64) ([]models.Show, error)
	AddShowToDatabase(ctx context.Context, show models.Show) (models.Show, error)
}

// Users is the part of *users.Service the importer needs.
type Users interface {
	GetUserBacklog(ctx context.Context, name string) ([]models.BacklogEntry, error)
	AddShowToBacklog(ctx context.Context, userName, showName string, personalScore int) error
}

// Report summarises one import.
type Report struct {
	Fetched      int // entries on the MyAnimeList list
	PlanToWatch  int // of which plan-to-watch
	ShowsCreated int
	Added        int
	Skipped      int // already in the backlog
}

// Importer imports MyAnimeList lists.
type Importer struct {
	scraper Scraper
	shows   Shows
	users   Users
	log     zerolog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the importer logger.
func WithLogger(l zerolog.Logger) Option {
	return func(i *Importer) { i.log = l }
}

// New creates an importer.
func New(scraper Scraper, shows Shows, users Users, opts ...Option) *Importer {
	i := &Importer{scraper: scraper, shows: shows, users: users, log: logging.Component("importer")}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ImportPlanToWatch adds every plan-to-watch show of malUser's MyAnimeList
// list to userName's backlog. A show is matched by malAnimeId and created
// when no stored show has it. The MyAnimeList score becomes the backlog
// entry's personalScore. Shows already in the backlog are skipped.
//
// The user's backlog and the MyAnimeList list are fetched concurrently; the
// writes happen one entry at a time, and the first failure stops the import.
func (i *Importer) ImportPlanToWatch(ctx context.Context, userName, malUser string) (Report, error) {
	var (
		backlog []models.BacklogEntry
		list    []mal.Entry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		backlog, err = i.users.GetUserBacklog(gctx, userName)
		return err
	})
	g.Go(func() error {
		var err error
		list, err = i.scraper.ScrapeUserAnimeList(gctx, malUser)
		if err != nil {
			return fmt.Errorf("fetch MyAnimeList list of %q: %w", malUser, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	inBacklog := make(map[int64]bool, len(backlog))
	for _, e := range backlog {
		if e.MalAnimeID != 0 {
			inBacklog[e.MalAnimeID] = true
		}
	}

	wanted := mal.FilterByPlanToWatch(list)
	report := Report{Fetched: len(list), PlanToWatch: len(wanted)}
	for _, entry := range wanted {
		if inBacklog[entry.AnimeID] {
			report.Skipped++
			continue
		}

		name, created, err := i.ensureShow(ctx, entry)
		if err != nil {
			return report, err
		}
		if created {
			report.ShowsCreated++
		}

		err = i.users.AddShowToBacklog(ctx, userName, name, entry.Score)
		switch {
		case errors.Is(err, apperror.ErrDuplicateBacklogEntry):
			report.Skipped++
		case err != nil:
			return report, fmt.Errorf("add %q to backlog: %w", name, err)
		default:
			report.Added++
		}
		inBacklog[entry.AnimeID] = true
	}

	i.log.Info().
		Str("user", userName).
		Str("mal_user", malUser).
		Int("added", report.Added).
		Int("skipped", report.Skipped).
		Int("shows_created", report.ShowsCreated).
		Msg("MyAnimeList import finished")
	return report, nil
}

// ensureShow returns the name of the stored show for entry, creating it if
// needed.
func (i *Importer) ensureShow(ctx context.Context, entry mal.Entry) (name string, created bool, err error) {
	found, err := i.shows.FindShowsByMALID(ctx, entry.AnimeID)
	if err != nil {
		return "", false, err
	}
	if len(found) > 0 {
		return found[0].Name, false, nil
	}

	show := models.Show{Name: string(entry.Title), MalAnimeID: entry.AnimeID}
	if entry.ShowURL != "" {
		u := entry.ShowURL
		show.MalURL = &u
	}
	stored, err := i.shows.AddShowToDatabase(ctx, show)
	switch {
	case errors.Is(err, apperror.ErrNonUniqueShow):
		// Stored under the same title without a MyAnimeList id.
		i.log.Debug().Str("show", show.Name).Int64("mal_anime_id", entry.AnimeID).Msg("reusing show with matching title")
		return show.Name, false, nil
	case err != nil:
		return "", false, fmt.Errorf("create show %q: %w", show.Name, err)
	}
	return stored.Name, true, nil
}
