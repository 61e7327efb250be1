package models

import (
	"time"
)

// Category represents an article category
type Category struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Tag represents an article tag. Tag slugs are unique across the table.
type Tag struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ReconcileResult reports what a relationship reconciliation actually did.
type ReconcileResult struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}
