package users

import "time"

// User is a minimal identity record. Accounts are provisioned just-in-time
// when an upstream identity provider first asserts an email; the service
// stores no credentials of its own.
type User struct {
	ID         string    `json:"id,omitempty"`          // Unique identifier for the user
	Email      string    `json:"email,omitempty"`       // User's email address, unique
	FullName   string    `json:"full_name,omitempty"`   // Optional display name
	ExternalID string    `json:"external_id,omitempty"` // Subject id at the upstream identity provider
	CreatedAt  time.Time `json:"created_at,omitempty"`  // When the record was provisioned
}
