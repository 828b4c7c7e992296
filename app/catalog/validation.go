package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrNotFound = errors.New("course not found")

// ValidationError reports a course that violates a catalog invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid course %s: %s", e.Field, e.Reason)
}

func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// ParseLevel maps user or provider input onto the level enum.
// Blank input yields an empty (unknown) level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "beginner":
		return LevelBeginner, nil
	case "intermediate":
		return LevelIntermediate, nil
	case "advanced":
		return LevelAdvanced, nil
	default:
		return "", &ValidationError{Field: "level", Reason: fmt.Sprintf("unknown level %q", s)}
	}
}

// NormalizeTags trims tags, drops empty ones and removes case-insensitive
// duplicates while keeping the first spelling and insertion order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		folded := Fold(tag)
		if seen[folded] {
			continue
		}
		seen[folded] = true
		out = append(out, tag)
	}
	return out
}

// Normalize trims text fields and canonicalizes level and tags in place.
// It does not validate; call Validate afterwards.
func Normalize(c *Course) {
	c.Title = strings.TrimSpace(c.Title)
	c.Description = strings.TrimSpace(c.Description)
	c.Instructor = strings.TrimSpace(c.Instructor)
	c.Category = strings.TrimSpace(c.Category)
	c.Source = strings.TrimSpace(c.Source)
	c.URL = strings.TrimSpace(c.URL)
	c.Thumbnail = strings.TrimSpace(c.Thumbnail)
	if level, err := ParseLevel(string(c.Level)); err == nil {
		c.Level = level
	}
	c.Tags = NormalizeTags(c.Tags)
}

// Validate checks the catalog invariants. Out-of-range ratings are rejected, not clamped.
func Validate(c Course) error {
	if strings.TrimSpace(c.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(c.Source) == "" {
		return &ValidationError{Field: "source", Reason: "must not be empty"}
	}
	if err := validateAbsoluteURL(c.URL); err != nil {
		return &ValidationError{Field: "url", Reason: err.Error()}
	}
	if c.Thumbnail != "" {
		if err := validateAbsoluteURL(c.Thumbnail); err != nil {
			return &ValidationError{Field: "thumbnail", Reason: err.Error()}
		}
	}
	if !(c.Rating >= 0 && c.Rating <= 5) {
		return &ValidationError{Field: "rating", Reason: fmt.Sprintf("%.2f is outside [0, 5]", c.Rating)}
	}
	if c.Duration != nil && *c.Duration < 0 {
		return &ValidationError{Field: "duration", Reason: "must be non-negative"}
	}
	if c.Students < 0 {
		return &ValidationError{Field: "students", Reason: "must be non-negative"}
	}
	if c.Lessons < 0 {
		return &ValidationError{Field: "lessons", Reason: "must be non-negative"}
	}
	if _, err := ParseLevel(string(c.Level)); err != nil {
		return err
	}
	for i, tag := range c.Tags {
		if strings.TrimSpace(tag) == "" {
			return &ValidationError{Field: "tags", Reason: fmt.Sprintf("tag at index %d is empty", i)}
		}
	}
	return nil
}

func validateAbsoluteURL(raw string) error {
	if raw == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a valid URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return nil
}
