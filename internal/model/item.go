package model

import (
	"fmt"
	"time"
)

// Item is a lost or found listing.
type Item struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Type        ItemType   `json:"type" db:"type"`
	Category    string     `json:"category" db:"category"`
	Location    string     `json:"location" db:"location"`
	Date        Date       `json:"date" db:"date"`
	Status      ItemStatus `json:"status" db:"status"`
	ContactInfo string     `json:"contactInfo" db:"contact_info"`
	HasImage    bool       `json:"hasImage" db:"has_image"`
	UserID      int64      `json:"-" db:"user_id"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`

	// Joined from users (always populated by the store).
	Owner *User `json:"user,omitempty" db:"owner"`
}

// ItemType says whether an item was lost or found.
type ItemType string

// Item types.
const (
	ItemTypeLost  ItemType = "LOST"
	ItemTypeFound ItemType = "FOUND"
)

// ParseItemType parses s into an ItemType.
func ParseItemType(s string) (ItemType, error) {
	switch t := ItemType(s); t {
	case ItemTypeLost, ItemTypeFound:
		return t, nil
	}
	return "", fmt.Errorf("invalid item type %q", s)
}

// ItemStatus is the resolution state of an item.
type ItemStatus string

// Item statuses.
const (
	ItemStatusOpen     ItemStatus = "OPEN"
	ItemStatusResolved ItemStatus = "RESOLVED"
)

// ParseItemStatus parses s into an ItemStatus.
func ParseItemStatus(s string) (ItemStatus, error) {
	switch st := ItemStatus(s); st {
	case ItemStatusOpen, ItemStatusResolved:
		return st, nil
	}
	return "", fmt.Errorf("invalid item status %q", s)
}
