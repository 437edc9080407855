// Package seeder generates demo data for local development: a website, a
// user with an API token, and a spread of event occurrences with typed
// properties so every endpoint returns something interesting.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"proplens/internal/cohorts"
	"proplens/internal/database"
	"proplens/internal/events"
	"proplens/internal/users"
	"proplens/internal/websites"
)

// Seeder handles the demo data seeding process. When Columnar is set the
// generated occurrences are mirrored into the columnar store so both
// backends serve the same demo data.
type Seeder struct {
	DB         *gorm.DB
	Columnar   driver.Conn
	Logger     *slog.Logger
	EventCount int
}

// NewSeeder creates a new seeder instance.
func NewSeeder(db *gorm.DB, logger *slog.Logger, eventCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if eventCount <= 0 {
		eventCount = 500
	}
	return &Seeder{DB: db, Logger: logger, EventCount: eventCount}
}

var (
	seedEventNames = []string{"purchase", "signup", "download", "share", "search"}
	seedOrgs       = []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli"}
	seedClickTypes = []string{"cta", "nav", "footer", "banner"}
	seedTopics     = []string{"pricing", "docs", "blog", "changelog"}
	seedUserNames  = []string{"alice", "bob", "carol", "dave", "erin", ""}
	seedTags       = []string{"", "beta", "campaign-spring", "internal"}
)

// Seed creates the demo website and user, then generates occurrences over
// the last 30 days. It is idempotent per domain: rerunning appends more
// occurrences to the same website.
func (s *Seeder) Seed(ctx context.Context, domain, email string) error {
	start := time.Now()

	website, err := s.findOrCreateWebsite(domain, email)
	if err != nil {
		return err
	}

	sessionIDs := make([]string, 40)
	for i := range sessionIDs {
		sessionIDs[i] = uuid.NewString()
	}

	if err := s.generateOccurrences(ctx, website, sessionIDs); err != nil {
		return fmt.Errorf("failed to generate occurrences: %w", err)
	}

	if err := s.createCohort(ctx, website, sessionIDs[:10]); err != nil {
		return fmt.Errorf("failed to create cohort: %w", err)
	}

	s.Logger.Info("Seeding completed",
		slog.String("domain", domain),
		slog.Int("eventCount", s.EventCount),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Seeder) findOrCreateWebsite(domain, email string) (*websites.Website, error) {
	var website websites.Website
	if err := s.DB.Where("domain = ?", domain).First(&website).Error; err == nil {
		return &website, nil
	}

	user, token, err := users.Create(s.DB, email, uuid.NewString(), false)
	if err != nil {
		return nil, fmt.Errorf("failed to create demo user: %w", err)
	}
	// Printed once so the developer can call the API against the seed data.
	s.Logger.Info("Created demo user", slog.String("email", email), slog.String("apiToken", token))

	website = websites.Website{
		WebsiteID: uuid.NewString(),
		Domain:    domain,
		Name:      domain,
		OwnerID:   user.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.DB.Create(&website).Error; err != nil {
		return nil, fmt.Errorf("failed to create demo website: %w", err)
	}
	return &website, nil
}

func (s *Seeder) generateOccurrences(ctx context.Context, website *websites.Website, sessionIDs []string) error {
	now := time.Now().UTC()

	var colOccs []events.ColumnarWebsiteEvent
	var colRows []events.ColumnarEventData

	for i := 0; i < s.EventCount; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		at := now.Add(-time.Duration(rand.IntN(30*24)) * time.Hour)
		eventID := uuid.NewString()
		sessionID := sessionIDs[rand.IntN(len(sessionIDs))]
		eventName := seedEventNames[rand.IntN(len(seedEventNames))]

		event := events.Event{
			EventID:   eventID,
			WebsiteID: website.WebsiteID,
			SessionID: sessionID,
			EventName: eventName,
			Tag:       seedTags[rand.IntN(len(seedTags))],
			URLPath:   fmt.Sprintf("/%s", seedTopics[rand.IntN(len(seedTopics))]),
			Browser:   "chrome",
			OS:        "macos",
			Device:    "desktop",
			Country:   "US",
			CreatedAt: at,
		}
		if err := s.DB.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}

		props := []events.EventData{
			{DataKey: "org_name", DataType: events.DataTypeString, StringValue: seedOrgs[rand.IntN(len(seedOrgs))]},
			{DataKey: "click_type", DataType: events.DataTypeString, StringValue: seedClickTypes[rand.IntN(len(seedClickTypes))]},
			{DataKey: "topic_name", DataType: events.DataTypeString, StringValue: seedTopics[rand.IntN(len(seedTopics))]},
			{DataKey: "user_name", DataType: events.DataTypeString, StringValue: seedUserNames[rand.IntN(len(seedUserNames))]},
		}
		if eventName == "purchase" {
			amount := float64(10 + rand.IntN(490))
			props = append(props, events.EventData{
				DataKey:     "amount",
				DataType:    events.DataTypeNumber,
				StringValue: fmt.Sprintf("%.4f", amount),
				NumberValue: amount,
			})
			renewal := at.Add(365 * 24 * time.Hour)
			props = append(props, events.EventData{
				DataKey:   "renewal_date",
				DataType:  events.DataTypeDate,
				DateValue: &renewal,
			})
		}

		for i := range props {
			props[i].WebsiteID = website.WebsiteID
			props[i].EventID = eventID
			props[i].SessionID = sessionID
			props[i].EventName = eventName
			props[i].CreatedAt = at
			if err := s.DB.Create(&props[i]).Error; err != nil {
				return fmt.Errorf("failed to create event property: %w", err)
			}
		}

		if s.Columnar != nil {
			colOccs = append(colOccs, events.ColumnarOccurrence(event))
			colRows = append(colRows, events.ColumnarRows(event, props)...)
		}
	}

	if s.Columnar != nil {
		if err := database.AppendColumnar(ctx, s.Columnar, colOccs, colRows); err != nil {
			return fmt.Errorf("failed to mirror occurrences to columnar store: %w", err)
		}
	}

	return nil
}

func (s *Seeder) createCohort(ctx context.Context, website *websites.Website, sessionIDs []string) error {
	cohort := cohorts.Cohort{
		CohortID:  uuid.NewString(),
		WebsiteID: website.WebsiteID,
		Name:      "demo cohort",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.DB.Create(&cohort).Error; err != nil {
		return err
	}
	for _, sessionID := range sessionIDs {
		member := cohorts.CohortMember{CohortID: cohort.CohortID, SessionID: sessionID, CreatedAt: time.Now().UTC()}
		if err := s.DB.Create(&member).Error; err != nil {
			return err
		}
	}

	if s.Columnar != nil {
		batch, err := s.Columnar.PrepareBatch(ctx, "INSERT INTO cohort_members")
		if err != nil {
			return fmt.Errorf("failed to prepare cohort_members batch: %w", err)
		}
		for _, sessionID := range sessionIDs {
			if err := batch.Append(cohort.CohortID, sessionID, time.Now().UTC()); err != nil {
				return fmt.Errorf("failed to append cohort member: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("failed to send cohort_members batch: %w", err)
		}
	}

	s.Logger.Info("Created demo cohort", slog.String("cohortId", cohort.CohortID))
	return nil
}
