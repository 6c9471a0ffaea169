package model

// Source is the site a URL belongs to.
type Source string

const (
	SourceUnknown    Source = ""
	SourceYouTube    Source = "youtube"
	SourceSoundCloud Source = "soundcloud"
)

// String returns the source name, "unknown" when empty
func (s Source) String() string {
	if s == SourceUnknown {
		return "unknown"
	}
	return string(s)
}
