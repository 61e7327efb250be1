package models

import (
	"time"
)

// Article statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// ValidStatuses defines allowed article statuses
var ValidStatuses = map[string]bool{
	StatusDraft:     true,
	StatusPublished: true,
	StatusArchived:  true,
}

// Link is a hyperlink extracted from an article body. Domain is only set for
// external links.
type Link struct {
	URL    string `json:"url"`
	Text   string `json:"text"`
	Domain string `json:"domain,omitempty"`
}

// ContentMetrics holds the values derived from an article body.
type ContentMetrics struct {
	WordCount     int    `json:"word_count"`
	ReadingTime   int    `json:"reading_time"`
	InternalLinks []Link `json:"internal_links"`
	ExternalLinks []Link `json:"external_links"`
}

// Article represents an article in the system
type Article struct {
	ID                string     `json:"id" db:"id"`
	Slug              string     `json:"slug" db:"slug"`
	Title             string     `json:"title" db:"title"`
	Content           string     `json:"content" db:"content"`
	Excerpt           string     `json:"excerpt" db:"excerpt"`
	AuthorID          string     `json:"author_id" db:"author_id"`
	PrimaryCategoryID *string    `json:"primary_category_id,omitempty" db:"primary_category_id"`
	Status            string     `json:"status" db:"status"`
	WordCount         int        `json:"word_count" db:"word_count"`
	ReadingTime       int        `json:"reading_time" db:"reading_time"`
	InternalLinks     []Link     `json:"internal_links" db:"-"` // Stored as JSON in DB
	ExternalLinks     []Link     `json:"external_links" db:"-"` // Stored as JSON in DB
	PublishedAt       *time.Time `json:"published_at,omitempty" db:"published_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`

	// Joined data, populated by the service layer, never by the row scan
	Author     *User      `json:"author,omitempty" db:"-"`
	Categories []Category `json:"categories,omitempty" db:"-"`
	Tags       []Tag      `json:"tags,omitempty" db:"-"`
}

// ArticleInput is a create payload. It is only handed to the persistence
// layers after it has passed validation.
type ArticleInput struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Excerpt    string   `json:"excerpt"`
	Slug       string   `json:"slug"`
	Status     string   `json:"status"`
	Categories []string `json:"categories"` // category ids, first becomes primary
	Tags       []string `json:"tags"`       // tag names, created on demand
}

// ArticleUpdate is a partial update payload. Nil fields are left untouched.
type ArticleUpdate struct {
	Title      *string   `json:"title"`
	Content    *string   `json:"content"`
	Excerpt    *string   `json:"excerpt"`
	Slug       *string   `json:"slug"`
	Categories *[]string `json:"categories"`
	Tags       *[]string `json:"tags"`
}

// ListFilters narrows an article listing.
type ListFilters struct {
	Search        string
	Status        string
	AuthorID      string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	SortField     string
	SortDesc      bool
}

// SortableFields maps allowed sort fields to their column names
var SortableFields = map[string]string{
	"created_at":   "created_at",
	"updated_at":   "updated_at",
	"published_at": "published_at",
	"title":        "title",
	"reading_time": "reading_time",
}

// Pagination describes the position of a page within a listing.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalCount int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewPagination computes page counts from a total
func NewPagination(page, pageSize, totalCount int) Pagination {
	totalPages := totalCount / pageSize
	if totalCount%pageSize != 0 {
		totalPages++
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// ArticleList is a page of articles with its pagination envelope.
type ArticleList struct {
	Items      []*Article `json:"items"`
	Pagination Pagination `json:"pagination"`
}
