// Package ogmeta serves link previews to social media crawlers by mirroring
// the destination's OpenGraph and Twitter card tags.
package ogmeta

import "strings"

var crawlers = []string{
	"twitterbot",
	"facebookexternalhit",
	"linkedinbot",
	"discordbot",
	"telegrambot",
	"slackbot",
	"whatsapp",
	"vkshare",
	"pinterest",
}

// IsCrawler reports whether userAgent belongs to a link preview fetcher
func IsCrawler(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	ua := strings.ToLower(userAgent)
	for _, c := range crawlers {
		if strings.Contains(ua, c) {
			return true
		}
	}
	return false
}
