package sources

const (
	TypeFeed        = "feed"
	TypeScrape      = "scrape"
	TypeAPI         = "api"
	TypePlaceholder = "placeholder"
)

// Configuration types

type Config struct {
	Name     string          // Derived from filename (without .yml extension)
	Type     string          `yaml:"type"`
	Kind     string          `yaml:"kind"`
	URL      string          `yaml:"url"`
	Settings ConfigSettings  `yaml:"settings"`
	Defaults CourseDefaults  `yaml:"defaults"`
	Scrape   ScrapeSelectors `yaml:"scrape"`
	API      APIMapping      `yaml:"api"`
	Filters  []Filter        `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled   bool    `yaml:"enabled"`
	Timeout   int     `yaml:"timeout"` // seconds
	MaxItems  int     `yaml:"max_items"`
	MaxPages  int     `yaml:"max_pages"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst     int     `yaml:"burst"`
}

// CourseDefaults fill fields the provider does not report.
type CourseDefaults struct {
	Category   string   `yaml:"category"`
	Level      string   `yaml:"level"`
	Instructor string   `yaml:"instructor"`
	Tags       []string `yaml:"tags"`
}

// ScrapeSelectors are CSS selectors evaluated relative to each item element.
// Link and Thumbnail read the href and src attributes; an empty Link uses
// the item element itself.
type ScrapeSelectors struct {
	Item        string `yaml:"item"`
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Description string `yaml:"description"`
	Instructor  string `yaml:"instructor"`
	Thumbnail   string `yaml:"thumbnail"`
	Duration    string `yaml:"duration"`
	Lessons     string `yaml:"lessons"`
	Level       string `yaml:"level"`
	Category    string `yaml:"category"`
	Tags        string `yaml:"tags"`
	Next        string `yaml:"next"`
}

// APIMapping describes a paged JSON listing. Paths use gjson syntax.
type APIMapping struct {
	ItemsPath     string            `yaml:"items_path"`
	NextPath      string            `yaml:"next_path"`
	PageSizeParam string            `yaml:"page_size_param"`
	PageSize      int               `yaml:"page_size"`
	AuthHeader    string            `yaml:"auth_header"`
	AuthEnv       string            `yaml:"auth_env"`
	MaxRetries    int               `yaml:"max_retries"`
	DurationUnit  string            `yaml:"duration_unit"` // seconds, minutes or hours
	RatingScale   float64           `yaml:"rating_scale"`
	Fields        map[string]string `yaml:"fields"`
}

// Filter drops courses whose Field contains any Excludes pattern, or none of
// the Includes patterns when Includes is set.
type Filter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
