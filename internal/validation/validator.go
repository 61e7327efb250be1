package validation

import (
	"fmt"
	"strings"

	"github.com/content-management-api/internal/apperr"
	"github.com/content-management-api/internal/models"
)

// Length bounds for article input
const (
	MinTitleLength   = 3
	MaxTitleLength   = 200
	MinContentLength = 10
)

// ValidateArticleInput checks a create payload. Rules run in a fixed order
// and the first violation wins, so callers always see a single stable code.
func ValidateArticleInput(input *models.ArticleInput) *apperr.ValidationError {
	if err := validateTitle(input.Title); err != nil {
		return err
	}
	if err := validateContent(input.Content); err != nil {
		return err
	}
	if input.Status != "" && !models.ValidStatuses[input.Status] {
		return &apperr.ValidationError{
			Code:    apperr.CodeInvalidStatus,
			Field:   "status",
			Message: fmt.Sprintf("status must be one of: draft, published, archived, got %q", input.Status),
		}
	}
	return nil
}

// ValidateArticleUpdate checks only the fields present in a partial update
func ValidateArticleUpdate(update *models.ArticleUpdate) *apperr.ValidationError {
	if update.Title != nil {
		if err := validateTitle(*update.Title); err != nil {
			return err
		}
	}
	if update.Content != nil {
		if err := validateContent(*update.Content); err != nil {
			return err
		}
	}
	return nil
}

func validateTitle(title string) *apperr.ValidationError {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return &apperr.ValidationError{
			Code:    apperr.CodeTitleRequired,
			Field:   "title",
			Message: "title is required",
		}
	}
	if len(trimmed) < MinTitleLength {
		return &apperr.ValidationError{
			Code:    apperr.CodeTitleTooShort,
			Field:   "title",
			Message: fmt.Sprintf("title must be at least %d characters", MinTitleLength),
		}
	}
	if len(trimmed) > MaxTitleLength {
		return &apperr.ValidationError{
			Code:    apperr.CodeTitleTooLong,
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", MaxTitleLength),
		}
	}
	return nil
}

func validateContent(content string) *apperr.ValidationError {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return &apperr.ValidationError{
			Code:    apperr.CodeContentRequired,
			Field:   "content",
			Message: "content is required",
		}
	}
	if len(trimmed) < MinContentLength {
		return &apperr.ValidationError{
			Code:    apperr.CodeContentTooShort,
			Field:   "content",
			Message: fmt.Sprintf("content must be at least %d characters", MinContentLength),
		}
	}
	return nil
}
