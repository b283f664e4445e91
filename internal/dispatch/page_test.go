package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNovelName(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"chapter page", "https://example.com/novels/my-novel/chapter-3.html", "my-novel"},
		{"index page", "https://example.com/novels/other/", "other"},
		{"no novel segment", "https://example.com/about", "unknown"},
		{"empty", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NovelName(tt.url))
		})
	}
}

func TestChapterInfo(t *testing.T) {
	assert.Equal(t, "chapter-12", ChapterInfo("https://example.com/novels/x/chapter-12.html"))
	assert.Equal(t, "unknown", ChapterInfo("https://example.com/novels/x/chapter-12"))
	assert.Equal(t, "unknown", ChapterInfo("https://example.com/novels/x/"))
}

func TestLocalTime(t *testing.T) {
	at := time.Date(2026, 1, 2, 20, 4, 5, 0, time.UTC)

	assert.Equal(t, "2026/1/3 04:04:05", LocalTime(at, LoadLocation("Asia/Shanghai")))
}

func TestLoadLocation_Fallback(t *testing.T) {
	loc := LoadLocation("Not/AZone")

	_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 8*60*60, offset)
}
