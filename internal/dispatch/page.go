package dispatch

import (
	"regexp"
	"time"

	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

var (
	novelPattern   = regexp.MustCompile(`novels/([^/]+)/`)
	chapterPattern = regexp.MustCompile(`chapter-(\d+)\.html`)
)

// NovelName extracts the path segment following "novels/", or "unknown".
func NovelName(pageURL string) string {
	if m := novelPattern.FindStringSubmatch(pageURL); m != nil {
		return m[1]
	}
	return domain.UnknownValue
}

// ChapterInfo extracts "chapter-<N>" from a chapter-<N>.html URL, or "unknown".
func ChapterInfo(pageURL string) string {
	if m := chapterPattern.FindStringSubmatch(pageURL); m != nil {
		return "chapter-" + m[1]
	}
	return domain.UnknownValue
}

// LoadLocation resolves name, falling back to UTC+8 when the zone database is unavailable.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}

// LocalTime renders t the way a zh-CN browser locale does.
func LocalTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006/1/2 15:04:05")
}
