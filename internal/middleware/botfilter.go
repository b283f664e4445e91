package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// IsBotKey is the gin context key set for crawler traffic.
const IsBotKey = "is_bot"

// botPatterns are lowercase User-Agent substrings of crawlers and link previewers.
var botPatterns = []string{
	"googlebot", "bingbot", "slurp", "duckduckbot",
	"baiduspider", "yandexbot", "facebookexternalhit",
	"twitterbot", "linkedinbot", "embedly", "applebot",
	"semrushbot", "ahrefsbot", "mj12bot", "petalbot",
	"bytespider", "headlesschrome", "adsbot-google",
}

// BotFilter flags requests from known bots and requests without a User-Agent.
// Handlers decide what to do with flagged traffic.
func BotFilter() gin.HandlerFunc {
	return func(c *gin.Context) {
		ua := strings.ToLower(c.Request.UserAgent())
		if ua == "" || isBot(ua) {
			c.Set(IsBotKey, true)
		}
		c.Next()
	}
}

// IsBot reports whether BotFilter flagged the request.
func IsBot(c *gin.Context) bool {
	return c.GetBool(IsBotKey)
}

func isBot(ua string) bool {
	for _, pattern := range botPatterns {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}
