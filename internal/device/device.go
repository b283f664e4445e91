// Package device derives device facts from the page environment.
package device

import (
	"fmt"
	"strings"

	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

// desktopScreenWidth is the narrowest screen treated as a desktop display.
const desktopScreenWidth = 1024

// mobileKeywords are lowercase User-Agent substrings of mobile browsers.
var mobileKeywords = []string{"mobile", "android", "iphone", "ipad", "ipod"}

// IsMobile reports whether the detector should run in env. Any of a mobile User-Agent,
// touch support or a narrow screen is enough.
func IsMobile(env domain.Environment) bool {
	ua := strings.ToLower(env.UserAgent)
	for _, keyword := range mobileKeywords {
		if strings.Contains(ua, keyword) {
			return true
		}
	}

	if env.MaxTouchPoints > 0 {
		return true
	}

	return env.ScreenWidth > 0 && env.ScreenWidth < desktopScreenWidth
}

// Type returns iPhone, iPad, Android or Other.
func Type(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "iPhone"):
		return "iPhone"
	case strings.Contains(userAgent, "iPad"):
		return "iPad"
	case strings.Contains(userAgent, "Android"):
		return "Android"
	default:
		return "Other"
	}
}

// Summary renders "<type> | <platform> | <width>x<height>" for beacon reports.
func Summary(env domain.Environment) string {
	deviceType := Type(env.UserAgent)
	if deviceType == "Other" {
		deviceType = "Unknown"
	}

	platform := env.Platform
	if platform == "" {
		platform = "Unknown"
	}

	return fmt.Sprintf("%s | %s | %dx%d", deviceType, platform, env.ScreenWidth, env.ScreenHeight)
}
