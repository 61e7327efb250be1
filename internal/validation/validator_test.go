package validation

import (
	"strings"
	"testing"

	"github.com/content-management-api/internal/apperr"
	"github.com/content-management-api/internal/models"
)

func validInput() *models.ArticleInput {
	return &models.ArticleInput{
		Title:   "A valid title",
		Content: "This content is long enough.",
	}
}

func TestValidateArticleInput_Valid(t *testing.T) {
	if err := ValidateArticleInput(validInput()); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestValidateArticleInput_TitleRules(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		wantCode string
	}{
		{"empty", "", apperr.CodeTitleRequired},
		{"whitespace only", "   ", apperr.CodeTitleRequired},
		{"two chars", "ab", apperr.CodeTitleTooShort},
		{"three chars passes", "abc", ""},
		{"max length passes", strings.Repeat("a", 200), ""},
		{"over max", strings.Repeat("a", 201), apperr.CodeTitleTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			input.Title = tt.title
			err := ValidateArticleInput(input)
			checkCode(t, err, tt.wantCode)
		})
	}
}

func TestValidateArticleInput_ContentRules(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCode string
	}{
		{"empty", "", apperr.CodeContentRequired},
		{"whitespace only", "  \n\t ", apperr.CodeContentRequired},
		{"nine chars", "123456789", apperr.CodeContentTooShort},
		{"ten chars passes", "1234567890", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			input.Content = tt.content
			err := ValidateArticleInput(input)
			checkCode(t, err, tt.wantCode)
		})
	}
}

// Title rules run before content rules; the first violation wins
func TestValidateArticleInput_Order(t *testing.T) {
	input := &models.ArticleInput{Title: "", Content: ""}
	err := ValidateArticleInput(input)
	checkCode(t, err, apperr.CodeTitleRequired)
}

func TestValidateArticleInput_Status(t *testing.T) {
	input := validInput()
	input.Status = "retracted"
	checkCode(t, ValidateArticleInput(input), apperr.CodeInvalidStatus)

	input.Status = "archived"
	if err := ValidateArticleInput(input); err != nil {
		t.Errorf("Expected archived to be valid, got %v", err)
	}
}

func TestValidateArticleUpdate_SkipsAbsentFields(t *testing.T) {
	// No fields present, nothing to validate
	if err := ValidateArticleUpdate(&models.ArticleUpdate{}); err != nil {
		t.Errorf("Expected no error for empty update, got %v", err)
	}

	short := "ab"
	err := ValidateArticleUpdate(&models.ArticleUpdate{Title: &short})
	checkCode(t, err, apperr.CodeTitleTooShort)
}

func checkCode(t *testing.T, err *apperr.ValidationError, want string) {
	t.Helper()
	if want == "" {
		if err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
		return
	}
	if err == nil {
		t.Fatalf("Expected code %s, got nil", want)
	}
	if err.Code != want {
		t.Errorf("Expected code %s, got %s", want, err.Code)
	}
}
