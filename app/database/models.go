package database

import (
	"time"
)

// Establishment is a durable venue record, independent of provider schema.
type Establishment struct {
	ID          string // Database UUID
	ExternalID  string // Provider-scoped identifier, empty when unresolved
	Name        string
	Address     string
	Phone       string
	Rating      float64
	ReviewCount int
	Lat         *float64
	Lng         *float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Item is a stored menu line or photo belonging to an establishment.
type Item struct {
	ID              string
	EstablishmentID string
	Kind            string // "menu" or "photo"
	Position        int
	Name            string
	Description     string
	PriceMinor      int64
	Currency        string
	Category        string
	ImageURL        string
	SourceURL       string
	Width           int
	Height          int
	IsEnhanced      bool
	CreatedAt       time.Time
}

// RunOutcome is the per-input audit record of one reconciliation run.
// Rows are upserted on (run_name, input) and drive resume.
type RunOutcome struct {
	ID           string
	RunName      string
	Input        string
	Status       string
	ItemsWritten int
	Error        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
