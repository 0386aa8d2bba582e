package model

import "time"

// Trust levels. Levels 3 and 4 are assigned by the creator.
const (
	LevelSubscribed = 1
	LevelVerified   = 2
	LevelMax        = 4
)

// Subscriber holds the engagement-relevant fields of a subscriber record
type Subscriber struct {
	ID              string     `json:"id"`
	Level           int        `json:"level"`
	LastActivityAt  *time.Time `json:"lastActivityAt,omitempty"`
	HumanVerifiedAt *time.Time `json:"humanVerifiedAt,omitempty"` // Set once, on first reaching LevelVerified
	CreatedAt       time.Time  `json:"createdAt"`
}
