package blocks

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	youtubeID = regexp.MustCompile(`(?:youtube\.com/(?:watch\?v=|embed/)|youtu\.be/)([A-Za-z0-9_-]{11})`)
	vimeoID   = regexp.MustCompile(`vimeo\.com/(?:video/)?(\d+)`)
)

// embedURL returns the player URL for a video page URL, or "" when url is
// not a recognized video or embed URL.
func embedURL(u string) string {
	if m := youtubeID.FindStringSubmatch(u); m != nil {
		return "https://www.youtube.com/embed/" + m[1]
	}
	if m := vimeoID.FindStringSubmatch(u); m != nil {
		return "https://player.vimeo.com/video/" + m[1]
	}
	if strings.Contains(u, "/embed/") || strings.Contains(u, "player.vimeo.com") {
		return u
	}
	return ""
}

func isVideo(u, provider string) bool {
	switch provider {
	case "youtube", "vimeo":
		return true
	}
	return strings.Contains(u, "youtube") ||
		strings.Contains(u, "youtu.be") ||
		strings.Contains(u, "vimeo")
}

func isTwitter(u, provider string) bool {
	if provider == "twitter" {
		return true
	}
	host := embedHost(u)
	for _, h := range []string{"twitter.com", "x.com"} {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func embedHost(u string) string {
	p, err := url.Parse(u)
	if err != nil || p.Host == "" {
		return u
	}
	return strings.TrimPrefix(p.Host, "www.")
}

// providerFromName maps the legacy core-embed/* block names to a provider
// slug.
func providerFromName(name string) string {
	p, ok := strings.CutPrefix(name, "core-embed/")
	if !ok {
		return ""
	}
	return p
}
