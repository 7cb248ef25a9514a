package model

import "time"

// Category groups events for browsing.
type Category struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	ImageURL    *string   `json:"image_url"`
	IsActive    bool      `json:"is_active"`
	EventCount  int       `json:"event_count"`
	CreatedAt   time.Time `json:"created_at"`
}
