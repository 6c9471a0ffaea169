package platform

import (
	"regexp"
	"strings"

	"github.com/beonanotherplanet/tiskofy/internal/model"
)

var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?youtube\.com/watch\?v=[\w-]{11}(?:[&#?].*)?$`),
	regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?youtube\.com/shorts/[\w-]{11}(?:[&#?].*)?$`),
	regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?youtube\.com/embed/[\w-]{11}(?:[&#?].*)?$`),
	regexp.MustCompile(`(?i)^(?:https?://)?youtu\.be/[\w-]{11}(?:[&#?].*)?$`),
	youtubePlaylistPattern,
}

var soundcloudPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?soundcloud\.com/[\w-]+/[\w-]+(?:\?.*)?$`),
	soundcloudSetPattern,
}

var (
	youtubePlaylistPattern = regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?youtube\.com/playlist\?list=([\w-]+)(?:[&#?].*)?$`)
	soundcloudSetPattern   = regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?soundcloud\.com/[\w-]+/sets/[\w-]+(?:\?.*)?$`)
)

// MatchURL reports which site raw belongs to. Surrounding whitespace is
// ignored. The second result is false for anything that is not a YouTube
// video, YouTube playlist, SoundCloud track or SoundCloud set.
func MatchURL(raw string) (model.Source, bool) {
	clean := strings.TrimSpace(raw)
	for _, re := range youtubePatterns {
		if re.MatchString(clean) {
			return model.SourceYouTube, true
		}
	}
	for _, re := range soundcloudPatterns {
		if re.MatchString(clean) {
			return model.SourceSoundCloud, true
		}
	}
	return model.SourceUnknown, false
}

// IsPlaylistURL returns true for YouTube playlists and SoundCloud sets
func IsPlaylistURL(raw string) bool {
	clean := strings.TrimSpace(raw)
	return youtubePlaylistPattern.MatchString(clean) || soundcloudSetPattern.MatchString(clean)
}

// playlistID extracts the list= value of a YouTube playlist URL
func playlistID(raw string) string {
	m := youtubePlaylistPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
