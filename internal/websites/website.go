package websites

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"proplens/internal/users"
)

// WebsiteNotFoundError represents an error when a website is not found
type WebsiteNotFoundError struct {
	WebsiteID string
}

func (e *WebsiteNotFoundError) Error() string {
	return fmt.Sprintf("website not found: %s", e.WebsiteID)
}

// NewWebsiteNotFoundError creates a new WebsiteNotFoundError
func NewWebsiteNotFoundError(websiteID string) *WebsiteNotFoundError {
	return &WebsiteNotFoundError{WebsiteID: websiteID}
}

// Website represents a tracked website
type Website struct {
	WebsiteID string    `gorm:"primaryKey;size:36" json:"website_id"`
	Domain    string    `gorm:"uniqueIndex;not null" json:"domain"`
	Name      string    `json:"name"`
	OwnerID   uint      `gorm:"index" json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// WebsiteUser grants a non-owner user read access to a website's analytics.
type WebsiteUser struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	WebsiteID string `gorm:"uniqueIndex:idx_website_user;size:36;not null"`
	UserID    uint   `gorm:"uniqueIndex:idx_website_user;not null"`
	CreatedAt time.Time
}

// GetWebsiteByID retrieves a website by its identifier.
func GetWebsiteByID(db *gorm.DB, websiteID string) (*Website, error) {
	var website Website
	if err := db.Where("website_id = ?", websiteID).First(&website).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewWebsiteNotFoundError(websiteID)
		}
		return nil, fmt.Errorf("unexpected error querying website: %w", err)
	}
	return &website, nil
}

// CanViewWebsite reports whether the principal may read analytics for the
// website. Admins see everything; otherwise the user must own the website
// or hold a membership row. A missing website is a denial, not an error.
func CanViewWebsite(db *gorm.DB, user *users.User, websiteID string) (bool, error) {
	if user == nil {
		return false, nil
	}

	website, err := GetWebsiteByID(db, websiteID)
	if err != nil {
		var notFound *WebsiteNotFoundError
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}

	if user.IsAdmin || website.OwnerID == user.ID {
		return true, nil
	}

	var count int64
	err = db.Model(&WebsiteUser{}).
		Where("website_id = ? AND user_id = ?", websiteID, user.ID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("error checking website membership: %w", err)
	}

	return count > 0, nil
}
