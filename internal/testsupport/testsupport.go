// Package testsupport provides shared test fixtures: in-memory databases
// and builders for websites, users, cohorts and event occurrences.
package testsupport

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"proplens/internal/cohorts"
	"proplens/internal/database"
	"proplens/internal/events"
	"proplens/internal/users"
	"proplens/internal/websites"
)

// testDBCache caches test databases by test name so multiple calls within
// the same test share the same database.
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// SetupTestDB creates an in-memory test database with all models migrated.
// Uses a named in-memory database with cache=shared so multiple connections
// within a test see the same data.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	rootName := t.Name()
	if idx := strings.Index(rootName, "/"); idx > 0 {
		rootName = rootName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// CreateTestWebsite creates a website owned by ownerID.
func CreateTestWebsite(t *testing.T, db *gorm.DB, domain string, ownerID uint) websites.Website {
	t.Helper()
	website := websites.Website{
		WebsiteID: uuid.NewString(),
		Domain:    domain,
		Name:      domain,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.Create(&website).Error; err != nil {
		t.Fatalf("testsupport: failed to create website: %v", err)
	}
	return website
}

// CreateTestUser creates a user and returns it with its plaintext API token.
func CreateTestUser(t *testing.T, db *gorm.DB, email string, isAdmin bool) (users.User, string) {
	t.Helper()
	user, token, err := users.Create(db, email, uuid.NewString(), isAdmin)
	if err != nil {
		t.Fatalf("testsupport: failed to create user: %v", err)
	}
	return *user, token
}

// GrantWebsiteAccess adds a membership row for a non-owner user.
func GrantWebsiteAccess(t *testing.T, db *gorm.DB, websiteID string, userID uint) {
	t.Helper()
	member := websites.WebsiteUser{WebsiteID: websiteID, UserID: userID, CreatedAt: time.Now().UTC()}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("testsupport: failed to grant website access: %v", err)
	}
}

// CreateTestCohort creates a cohort containing the given session ids.
func CreateTestCohort(t *testing.T, db *gorm.DB, websiteID, name string, sessionIDs ...string) cohorts.Cohort {
	t.Helper()
	cohort := cohorts.Cohort{
		CohortID:  uuid.NewString(),
		WebsiteID: websiteID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.Create(&cohort).Error; err != nil {
		t.Fatalf("testsupport: failed to create cohort: %v", err)
	}
	for _, sessionID := range sessionIDs {
		member := cohorts.CohortMember{CohortID: cohort.CohortID, SessionID: sessionID, CreatedAt: time.Now().UTC()}
		if err := db.Create(&member).Error; err != nil {
			t.Fatalf("testsupport: failed to add cohort member: %v", err)
		}
	}
	return cohort
}

// Prop is one property attached to a test occurrence.
type Prop struct {
	Key         string
	Type        events.DataType
	StringValue string
	NumberValue float64
	DateValue   *time.Time
}

// StringProp builds a string-typed property.
func StringProp(key, value string) Prop {
	return Prop{Key: key, Type: events.DataTypeString, StringValue: value}
}

// NumberProp builds a numeric property. rendered is the stored string form,
// which upstream writes with a ".0000" suffix for whole numbers.
func NumberProp(key, rendered string, value float64) Prop {
	return Prop{Key: key, Type: events.DataTypeNumber, StringValue: rendered, NumberValue: value}
}

// DateProp builds a temporal property.
func DateProp(key string, at time.Time) Prop {
	return Prop{Key: key, Type: events.DataTypeDate, DateValue: &at}
}

// Occurrence describes one event occurrence to insert, with its properties.
type Occurrence struct {
	WebsiteID string
	SessionID string
	EventName string
	Tag       string
	At        time.Time
	Props     []Prop
}

// CreateOccurrence inserts an event row plus one event_data row per
// property and returns the occurrence's event id.
func CreateOccurrence(t *testing.T, db *gorm.DB, occ Occurrence) string {
	t.Helper()

	eventID := uuid.NewString()
	if occ.SessionID == "" {
		occ.SessionID = uuid.NewString()
	}
	if occ.At.IsZero() {
		occ.At = time.Now().UTC()
	}

	event := events.Event{
		EventID:   eventID,
		WebsiteID: occ.WebsiteID,
		SessionID: occ.SessionID,
		EventName: occ.EventName,
		Tag:       occ.Tag,
		CreatedAt: occ.At,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("testsupport: failed to create event: %v", err)
	}

	for _, prop := range occ.Props {
		row := events.EventData{
			WebsiteID:   occ.WebsiteID,
			EventID:     eventID,
			SessionID:   occ.SessionID,
			EventName:   occ.EventName,
			DataKey:     prop.Key,
			DataType:    prop.Type,
			StringValue: prop.StringValue,
			NumberValue: prop.NumberValue,
			DateValue:   prop.DateValue,
			CreatedAt:   occ.At,
		}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("testsupport: failed to create event property %q: %v", prop.Key, err)
		}
	}

	return eventID
}
