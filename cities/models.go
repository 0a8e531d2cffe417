// Package cities implements the city registry: per-user and shared city
// records, weather annotation, the bulk reset-to-defaults operation, and the
// HTTP routes serving them.
package cities

import "time"

// City is a named point of interest. UserID nil marks a shared city visible
// to everyone, including anonymous visitors; otherwise the city belongs to
// exactly one user. Temperature and UpdatedAt stay nil until the first
// successful weather refresh, and never revert except by deletion.
type City struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Temperature *float64   `json:"temperature,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	UserID      *int       `json:"user_id,omitempty"`
}

// Owned reports whether the city belongs to the given user.
func (c *City) Owned(userID int) bool {
	return c.UserID != nil && *c.UserID == userID
}

// DefaultCity is a read-mostly seed template used to populate a new or
// reset user's city list. Names are globally unique.
type DefaultCity struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
