package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"

	"github.com/lysyi3m/course-comb/app/catalog"
)

var _ Adapter = (*APIAdapter)(nil)

// APIAdapter pages through a JSON REST listing and maps fields with gjson paths.
type APIAdapter struct {
	base
	fetcher       *Fetcher
	retryInterval time.Duration
}

func NewAPIAdapter(config *Config, fetcher *Fetcher) *APIAdapter {
	return &APIAdapter{
		base:          base{config: config},
		fetcher:       fetcher,
		retryInterval: 500 * time.Millisecond,
	}
}

func (a *APIAdapter) FetchCourses(ctx context.Context) ([]catalog.Course, error) {
	pageURL, err := a.firstPageURL()
	if err != nil {
		return nil, a.fail(err)
	}

	settings := a.config.Settings
	var courses []catalog.Course
	visited := make(map[string]bool)

	for page := 1; pageURL != "" && page <= settings.MaxPages; page++ {
		if visited[pageURL] {
			break
		}
		visited[pageURL] = true

		body, err := a.fetchPage(ctx, pageURL)
		if err != nil {
			return nil, a.fail(err)
		}

		if !gjson.ValidBytes(body) {
			return nil, a.fail(fmt.Errorf("malformed JSON response from %s", pageURL))
		}

		items := gjson.GetBytes(body, a.config.API.ItemsPath)
		if !items.IsArray() {
			return nil, a.fail(fmt.Errorf("items path %q is not an array", a.config.API.ItemsPath))
		}

		full := false
		items.ForEach(func(_, item gjson.Result) bool {
			if settings.MaxItems > 0 && len(courses) >= settings.MaxItems {
				full = true
				return false
			}
			if course := a.normalizeItem(item, pageURL); a.keep(course) {
				courses = append(courses, course)
			}
			return true
		})
		if full {
			break
		}

		slog.Debug("API page fetched", "source", a.Name(), "page", page, "items", len(items.Array()))

		pageURL = ""
		if a.config.API.NextPath != "" {
			if next := strings.TrimSpace(gjson.GetBytes(body, a.config.API.NextPath).String()); next != "" {
				baseURL, _ := url.Parse(a.config.URL)
				pageURL = resolveURL(baseURL, next)
			}
		}
	}

	return courses, nil
}

// fetchPage retries network failures, 429 and 5xx responses with exponential
// backoff. A Retry-After header overrides the computed delay.
func (a *APIAdapter) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	header := a.headers()

	operation := func() ([]byte, error) {
		body, err := a.fetcher.Get(ctx, pageURL, header)
		if err == nil {
			return body, nil
		}

		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}

		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			if !httpErr.Temporary() {
				return nil, backoff.Permanent(err)
			}
			if httpErr.RetryAfter > 0 {
				secs := int(math.Ceil(httpErr.RetryAfter.Seconds()))
				return nil, fmt.Errorf("%w: %w", err, backoff.RetryAfter(secs))
			}
		}

		slog.Debug("Retrying API request", "source", a.Name(), "url", pageURL, "error", err)
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.retryInterval

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(a.config.API.MaxRetries+1)),
	)
}

func (a *APIAdapter) headers() http.Header {
	header := http.Header{}
	header.Set("Accept", "application/json")

	mapping := a.config.API
	if mapping.AuthHeader != "" && mapping.AuthEnv != "" {
		if token := os.Getenv(mapping.AuthEnv); token != "" {
			header.Set(mapping.AuthHeader, token)
		}
	}
	return header
}

func (a *APIAdapter) firstPageURL() (string, error) {
	u, err := url.Parse(a.config.URL)
	if err != nil {
		return "", fmt.Errorf("invalid source URL: %w", err)
	}

	mapping := a.config.API
	if mapping.PageSizeParam != "" && mapping.PageSize > 0 {
		q := u.Query()
		q.Set(mapping.PageSizeParam, strconv.Itoa(mapping.PageSize))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (a *APIAdapter) normalizeItem(item gjson.Result, pageURL string) catalog.Course {
	fields := a.config.API.Fields
	get := func(name string) gjson.Result {
		path := fields[name]
		if path == "" {
			return gjson.Result{}
		}
		return item.Get(path)
	}

	baseURL, _ := url.Parse(pageURL)

	course := catalog.Course{
		Title:       cleanText(get("title").String()),
		URL:         resolveURL(baseURL, get("url").String()),
		Description: strings.TrimSpace(get("description").String()),
		Instructor:  cleanText(get("instructor").String()),
		Category:    cleanText(get("category").String()),
		Level:       catalog.Level(get("level").String()),
		Thumbnail:   resolveURL(baseURL, get("thumbnail").String()),
		Students:    int(get("students").Int()),
		Lessons:     int(get("lessons").Int()),
	}

	if rating := get("rating"); rating.Exists() {
		// Rescaled only; out-of-range values are left for validation to reject.
		course.Rating = rating.Float() * 5 / a.config.API.RatingScale
	}

	if duration := get("duration"); duration.Exists() {
		if minutes, ok := a.durationMinutes(duration); ok {
			course.Duration = catalog.IntPtr(minutes)
		}
	}

	if tags := get("tags"); tags.IsArray() {
		for _, tag := range tags.Array() {
			course.Tags = append(course.Tags, tag.String())
		}
	} else if tags.Exists() {
		course.Tags = strings.Split(tags.String(), ",")
	}

	a.finish(&course)
	return course
}

func (a *APIAdapter) durationMinutes(value gjson.Result) (int, bool) {
	if value.Type != gjson.Number {
		return parseDurationMinutes(value.String())
	}

	n := value.Float()
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	switch a.config.API.DurationUnit {
	case "seconds":
		n /= 60
	case "hours":
		n *= 60
	}
	return int(math.Round(n)), true
}
