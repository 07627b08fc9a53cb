// Package seed loads reference data and demo content into the database.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"handbook/internal/database"
	"handbook/internal/middleware"
	"handbook/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SystemUserID owns messages posted by the application itself.
const SystemUserID = "system"

// Options configuration for the seeder
type Options struct {
	// Year places the sample events; zero means the current year.
	Year int
	// DemoUsers and DemoPosts add generated content when positive.
	DemoUsers int
	DemoPosts int
	// Rand drives member counts and demo data; nil seeds from the clock.
	Rand *rand.Rand
}

// Seeder writes seed data through a gorm session over the shared store.
type Seeder struct {
	db      *gorm.DB
	dialect database.Dialect
	rnd     *rand.Rand
}

// New opens a gorm session over store.
func New(store database.Store, rnd *rand.Rand) (*Seeder, error) {
	db, err := database.OpenGorm(store)
	if err != nil {
		return nil, err
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Seeder{db: db, dialect: store.Dialect(), rnd: rnd}, nil
}

// Seed upserts the reference data and, when asked, demo content. It is
// safe to run repeatedly.
func Seed(ctx context.Context, store database.Store, opts Options) error {
	s, err := New(store, opts.Rand)
	if err != nil {
		return err
	}

	ref, err := LoadReference()
	if err != nil {
		return err
	}

	year := opts.Year
	if year == 0 {
		year = time.Now().Year()
	}

	if err := s.Channels(ctx, ref.Channels); err != nil {
		return fmt.Errorf("seed channels: %w", err)
	}
	if err := s.Welcome(ctx, ref.Welcome); err != nil {
		return fmt.Errorf("seed welcome message: %w", err)
	}
	if err := s.Events(ctx, ref.Events, year); err != nil {
		return fmt.Errorf("seed events: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "Reference data seeded",
		slog.Int("channels", len(ref.Channels)),
		slog.Int("events", len(ref.Events)))

	if opts.DemoUsers > 0 {
		if err := s.Demo(ctx, ref.Channels, opts.DemoUsers, opts.DemoPosts); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}
	return nil
}

// Channels upserts channels by id. Fresh inserts get a random member count
// between 50 and 349, except announcement channels which start at zero.
// Existing rows keep their count.
func (s *Seeder) Channels(ctx context.Context, channels []models.Channel) error {
	for _, ch := range channels {
		ch.MemberCount = 0
		if !ch.IsAnnouncement {
			ch.MemberCount = int64(s.rnd.Intn(300) + 50)
		}

		err := s.db.WithContext(ctx).
			Omit("created_at").
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "description", "icon", "emoji", "is_announcement"}),
			}).
			Create(&ch).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// Welcome inserts the system user and the welcome message when absent.
func (s *Seeder) Welcome(ctx context.Context, w WelcomeMessage) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		system := models.User{ID: w.UserID, Username: w.Username}
		if err := tx.Omit("created_at").Clauses(clause.OnConflict{DoNothing: true}).Create(&system).Error; err != nil {
			return err
		}

		msg := w.message()
		return tx.Omit("created_at").Clauses(clause.OnConflict{DoNothing: true}).Create(&msg).Error
	})
}

// Events upserts the sample events by id with dates in year.
func (s *Seeder) Events(ctx context.Context, seeds []EventSeed, year int) error {
	for _, es := range seeds {
		event, err := es.Resolve(year)
		if err != nil {
			return err
		}

		row := map[string]any{
			"id":          event.ID,
			"title":       event.Title,
			"description": event.Description,
			"start_time":  database.TimeArg(s.dialect, event.StartTime),
			"end_time":    database.TimeArg(s.dialect, event.EndTime),
			"location":    event.Location,
			"category":    event.Category,
			"color":       event.Color,
			"image_url":   event.ImageURL,
			"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		}
		err = s.db.WithContext(ctx).
			Model(&models.Event{}).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"title", "description", "start_time", "end_time",
					"location", "category", "color", "image_url", "updated_at",
				}),
			}).
			Create(row).Error
		if err != nil {
			return err
		}
	}
	return nil
}
