// Package cohorts models precomputed session cohorts. The engine only
// consumes them as membership predicates; cohort construction lives in an
// external pipeline.
package cohorts

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Cohort is a named, precomputed set of sessions for one website.
type Cohort struct {
	CohortID  string    `gorm:"primaryKey;size:36" json:"cohort_id"`
	WebsiteID string    `gorm:"index;size:36;not null" json:"website_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Cohort) TableName() string { return "cohorts" }

// CohortMember is one session's membership in a cohort.
type CohortMember struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	CohortID  string `gorm:"uniqueIndex:idx_cohort_session;size:36;not null"`
	SessionID string `gorm:"uniqueIndex:idx_cohort_session;size:36;not null"`
	CreatedAt time.Time
}

func (CohortMember) TableName() string { return "cohort_members" }

// GetCohortByID retrieves a cohort by its identifier.
func GetCohortByID(db *gorm.DB, cohortID string) (*Cohort, error) {
	var cohort Cohort
	if err := db.Where("cohort_id = ?", cohortID).First(&cohort).Error; err != nil {
		return nil, fmt.Errorf("error loading cohort %s: %w", cohortID, err)
	}
	return &cohort, nil
}
