package sources

import (
	"cmp"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/course-comb/app/catalog"
)

// base carries the pieces every configured adapter shares.
type base struct {
	config *Config
}

func (b base) Name() string {
	return b.config.Name
}

func (b base) Kind() string {
	return b.config.Kind
}

func (b base) Timeout() time.Duration {
	return time.Duration(b.config.Settings.Timeout) * time.Second
}

func (b base) fail(err error) error {
	return NewFetchError(b.config.Name, err)
}

// finish stamps the source and fills gaps from the configured defaults.
// Provider level labels that do not map onto the enum fall back to the default.
func (b base) finish(course *catalog.Course) {
	defaults := b.config.Defaults

	course.Source = b.config.Name
	course.Category = cmp.Or(strings.TrimSpace(course.Category), defaults.Category)
	course.Instructor = cmp.Or(strings.TrimSpace(course.Instructor), defaults.Instructor)

	level := mapLevel(string(course.Level))
	if level == "" {
		level, _ = catalog.ParseLevel(defaults.Level)
	}
	course.Level = level

	course.Tags = catalog.NormalizeTags(append(course.Tags, defaults.Tags...))
}

// levelAliases is checked in order; longer labels come before their substrings.
var levelAliases = []struct {
	label string
	level catalog.Level
}{
	{"undergraduate", catalog.LevelIntermediate},
	{"graduate", catalog.LevelAdvanced},
	{"beginner", catalog.LevelBeginner},
	{"introductory", catalog.LevelBeginner},
	{"intro", catalog.LevelBeginner},
	{"basic", catalog.LevelBeginner},
	{"elementary", catalog.LevelBeginner},
	{"intermediate", catalog.LevelIntermediate},
	{"advanced", catalog.LevelAdvanced},
	{"expert", catalog.LevelAdvanced},
}

func mapLevel(s string) catalog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	for _, alias := range levelAliases {
		if strings.Contains(s, alias.label) {
			return alias.level
		}
	}
	return ""
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveURL resolves ref against baseURL. Unparseable references are returned
// as-is so that validation rejects them downstream.
func resolveURL(baseURL *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || baseURL == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(u).String()
}

var (
	isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)
	clockRe       = regexp.MustCompile(`^(?:(\d+):)?(\d{1,2}):(\d{2})$`)
	unitRe        = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(weeks?|wks?|days?|hours?|hrs?|h|minutes?|mins?|m)\b`)
	numberRe      = regexp.MustCompile(`\d+`)
)

// parseDurationMinutes reads durations such as "PT1H30M", "1:05:00",
// "6 hours", "2h 15m" or "4 weeks". Weeks count as 5 hours of study, days as 1 hour.
func parseDurationMinutes(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if m := isoDurationRe.FindStringSubmatch(strings.ToUpper(s)); m != nil && s != "P" {
		days, _ := strconv.Atoi(m[1])
		hours, _ := strconv.Atoi(m[2])
		minutes, _ := strconv.Atoi(m[3])
		seconds, _ := strconv.ParseFloat(m[4], 64)
		return days*24*60 + hours*60 + minutes + int(seconds/60), true
	}

	if m := clockRe.FindStringSubmatch(s); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		seconds, _ := strconv.Atoi(m[3])
		if m[1] == "" {
			// mm:ss
			return minutes + seconds/60, true
		}
		return hours*60 + minutes + seconds/60, true
	}

	matches := unitRe.FindAllStringSubmatch(strings.ToLower(s), -1)
	if len(matches) == 0 {
		return 0, false
	}

	var total float64
	for _, m := range matches {
		value, _ := strconv.ParseFloat(m[1], 64)
		switch unit := m[2]; {
		case strings.HasPrefix(unit, "w"):
			total += value * 5 * 60
		case strings.HasPrefix(unit, "d"):
			total += value * 60
		case strings.HasPrefix(unit, "h"):
			total += value * 60
		default:
			total += value
		}
	}
	return int(total), true
}

// parseCount extracts the first integer in s, ignoring thousands separators.
func parseCount(s string) (int, bool) {
	s = strings.NewReplacer(",", "", " ", "", "\u00a0", "").Replace(s)
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}
