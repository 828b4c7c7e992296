package sources

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/course-comb/app/catalog"
)

var _ Adapter = (*ScrapeAdapter)(nil)

// ScrapeAdapter extracts courses from HTML catalog pages using CSS selectors.
type ScrapeAdapter struct {
	base
	fetcher *Fetcher
}

func NewScrapeAdapter(config *Config, fetcher *Fetcher) *ScrapeAdapter {
	return &ScrapeAdapter{
		base:    base{config: config},
		fetcher: fetcher,
	}
}

func (a *ScrapeAdapter) FetchCourses(ctx context.Context) ([]catalog.Course, error) {
	var courses []catalog.Course
	settings := a.config.Settings

	pageURL := a.config.URL
	visited := make(map[string]bool)

	for page := 1; pageURL != "" && page <= settings.MaxPages; page++ {
		if visited[pageURL] {
			break
		}
		visited[pageURL] = true

		pageCourses, next, err := a.scrapePage(ctx, pageURL)
		if err != nil {
			return nil, a.fail(err)
		}
		if page == 1 && len(pageCourses) == 0 {
			return nil, a.fail(fmt.Errorf("selector %q matched no items", a.config.Scrape.Item))
		}

		for _, course := range pageCourses {
			if settings.MaxItems > 0 && len(courses) >= settings.MaxItems {
				return courses, nil
			}
			if !a.keep(course) {
				continue
			}
			courses = append(courses, course)
		}

		slog.Debug("Page scraped", "source", a.Name(), "page", page, "courses", len(pageCourses))
		pageURL = next
	}

	return courses, nil
}

func (a *ScrapeAdapter) scrapePage(ctx context.Context, pageURL string) ([]catalog.Course, string, error) {
	data, err := a.fetcher.Get(ctx, pageURL, nil)
	if err != nil {
		return nil, "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	baseURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid page URL: %w", err)
	}

	sel := a.config.Scrape
	var courses []catalog.Course

	doc.Find(sel.Item).Each(func(_ int, s *goquery.Selection) {
		course := catalog.Course{
			Title:       selectText(s, sel.Title),
			Description: selectText(s, sel.Description),
			Instructor:  selectText(s, sel.Instructor),
			Category:    selectText(s, sel.Category),
			Level:       catalog.Level(selectText(s, sel.Level)),
		}

		link := s
		if sel.Link != "" {
			link = s.Find(sel.Link).First()
		}
		if href, ok := link.Attr("href"); ok {
			course.URL = resolveURL(baseURL, href)
		}

		if sel.Thumbnail != "" {
			img := s.Find(sel.Thumbnail).First()
			src, ok := img.Attr("src")
			if !ok || src == "" {
				src, _ = img.Attr("data-src")
			}
			course.Thumbnail = resolveURL(baseURL, src)
		}

		if minutes, ok := parseDurationMinutes(selectText(s, sel.Duration)); ok {
			course.Duration = catalog.IntPtr(minutes)
		}
		if lessons, ok := parseCount(selectText(s, sel.Lessons)); ok {
			course.Lessons = lessons
		}

		if sel.Tags != "" {
			s.Find(sel.Tags).Each(func(_ int, tag *goquery.Selection) {
				course.Tags = append(course.Tags, cleanText(tag.Text()))
			})
		}

		a.finish(&course)
		courses = append(courses, course)
	})

	next := ""
	if sel.Next != "" {
		if href, ok := doc.Find(sel.Next).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
			next = resolveURL(baseURL, href)
		}
	}

	return courses, next, nil
}

func selectText(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return cleanText(s.Find(selector).First().Text())
}
