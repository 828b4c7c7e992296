package sources

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/lysyi3m/course-comb/app/catalog"
)

var _ Adapter = (*FeedAdapter)(nil)

// FeedAdapter reads RSS/Atom listings such as YouTube playlists or Telegram
// channel bridges. Each feed item becomes one course.
type FeedAdapter struct {
	base
	fetcher *Fetcher
}

func NewFeedAdapter(config *Config, fetcher *Fetcher) *FeedAdapter {
	return &FeedAdapter{
		base:    base{config: config},
		fetcher: fetcher,
	}
}

func (a *FeedAdapter) FetchCourses(ctx context.Context) ([]catalog.Course, error) {
	data, err := a.fetcher.Get(ctx, a.config.URL, nil)
	if err != nil {
		return nil, a.fail(err)
	}

	// gofeed parsers keep per-parse state, so each fetch gets its own.
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, a.fail(fmt.Errorf("failed to parse feed: %w", err))
	}

	feedAuthor := ""
	if len(feed.Authors) > 0 && feed.Authors[0] != nil {
		feedAuthor = strings.TrimSpace(feed.Authors[0].Name)
	} else if feed.Author != nil {
		feedAuthor = strings.TrimSpace(feed.Author.Name)
	}

	courses := make([]catalog.Course, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		if a.config.Settings.MaxItems > 0 && len(courses) >= a.config.Settings.MaxItems {
			break
		}
		course := a.normalizeItem(item)
		course.Instructor = cmp.Or(course.Instructor, feedAuthor, cleanText(feed.Title))
		a.finish(&course)
		if !a.keep(course) {
			continue
		}
		courses = append(courses, course)
	}

	slog.Debug("Feed parsed", "source", a.Name(), "items", len(feed.Items), "courses", len(courses))

	return courses, nil
}

func (a *FeedAdapter) normalizeItem(item *gofeed.Item) catalog.Course {
	course := catalog.Course{
		Title:       cleanText(item.Title),
		URL:         strings.TrimSpace(cmp.Or(item.Link, linkFromGUID(item.GUID))),
		Description: strings.TrimSpace(item.Description),
		Tags:        append([]string(nil), item.Categories...),
	}

	if len(item.Authors) > 0 && item.Authors[0] != nil {
		course.Instructor = item.Authors[0].Name
	} else if item.Author != nil {
		course.Instructor = item.Author.Name
	}

	if item.Image != nil {
		course.Thumbnail = item.Image.URL
	}

	group, ok := mediaGroup(item)
	if !ok {
		return course
	}

	if course.Thumbnail == "" {
		if thumb, ok := firstChild(group, "thumbnail"); ok {
			course.Thumbnail = thumb.Attrs["url"]
		}
	}
	if course.Description == "" {
		if desc, ok := firstChild(group, "description"); ok {
			course.Description = strings.TrimSpace(desc.Value)
		}
	}

	if community, ok := firstChild(group, "community"); ok {
		if stats, ok := firstChild(community, "statistics"); ok {
			if views, err := strconv.Atoi(stats.Attrs["views"]); err == nil {
				course.Students = views
			}
		}
		if stars, ok := firstChild(community, "starRating"); ok {
			if avg, err := strconv.ParseFloat(stars.Attrs["average"], 64); err == nil {
				course.Rating = avg
			}
		}
	}

	return course
}

// mediaGroup returns the Media RSS media:group element used by YouTube feeds.
func mediaGroup(item *gofeed.Item) (ext.Extension, bool) {
	media, ok := item.Extensions["media"]
	if !ok {
		return ext.Extension{}, false
	}
	groups := media["group"]
	if len(groups) == 0 {
		return ext.Extension{}, false
	}
	return groups[0], true
}

func firstChild(e ext.Extension, name string) (ext.Extension, bool) {
	children := e.Children[name]
	if len(children) == 0 {
		return ext.Extension{}, false
	}
	return children[0], true
}

func linkFromGUID(guid string) string {
	if strings.HasPrefix(guid, "http://") || strings.HasPrefix(guid, "https://") {
		return guid
	}
	return ""
}
