package content

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/content-management-api/internal/models"
)

var (
	// Single pass over all anchor tags, capturing href and inner text
	anchorRegex     = regexp.MustCompile(`(?is)<a\s[^>]*href\s*=\s*["']([^"']+)["'][^>]*>(.*?)</a>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	innerTagRegex   = regexp.MustCompile(`(?s)<[^>]*>`)
)

// Processor derives word count, reading time and link classification from raw
// article bodies. The base domain is read from configuration once at startup
// and held here for the process lifetime.
type Processor struct {
	baseDomain     string
	wordsPerMinute int
}

// NewProcessor creates a content processor
func NewProcessor(baseDomain string, wordsPerMinute int) *Processor {
	if wordsPerMinute <= 0 {
		wordsPerMinute = 200
	}
	return &Processor{
		baseDomain:     strings.ToLower(baseDomain),
		wordsPerMinute: wordsPerMinute,
	}
}

// Process computes the derived metrics for a raw body. Pure function of its
// inputs and the configured base domain; performs no I/O.
//
// Word counting splits on whitespace runs; an empty body yields a single
// empty token, so the minimum word count is 1.
func (p *Processor) Process(rawBody string) models.ContentMetrics {
	words := whitespaceRegex.Split(rawBody, -1)
	wordCount := len(words)

	readingTime := (wordCount + p.wordsPerMinute - 1) / p.wordsPerMinute
	if readingTime < 1 {
		readingTime = 1
	}

	internal, external := p.extractLinks(rawBody)

	return models.ContentMetrics{
		WordCount:     wordCount,
		ReadingTime:   readingTime,
		InternalLinks: internal,
		ExternalLinks: external,
	}
}

// extractLinks scans every anchor tag in one regex pass and classifies each
// href as internal (relative path or containing the base domain) or external.
// External links carry their parsed hostname; links whose URL fails to parse
// are dropped.
func (p *Processor) extractLinks(rawBody string) (internal, external []models.Link) {
	internal = []models.Link{}
	external = []models.Link{}

	for _, match := range anchorRegex.FindAllStringSubmatch(rawBody, -1) {
		href := strings.TrimSpace(match[1])
		text := anchorText(match[2])
		if href == "" {
			continue
		}

		if strings.HasPrefix(href, "/") || strings.Contains(strings.ToLower(href), p.baseDomain) {
			internal = append(internal, models.Link{URL: href, Text: text})
			continue
		}

		parsed, err := url.Parse(href)
		if err != nil || parsed.Hostname() == "" {
			continue
		}
		external = append(external, models.Link{
			URL:    href,
			Text:   text,
			Domain: parsed.Hostname(),
		})
	}

	return internal, external
}

// anchorText strips nested markup from an anchor's inner HTML
func anchorText(inner string) string {
	return strings.TrimSpace(innerTagRegex.ReplaceAllString(inner, ""))
}
