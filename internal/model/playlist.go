package model

import (
	"time"
)

// PlaylistEntry is one track of an expanded playlist or SoundCloud set
type PlaylistEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Playlist is a YouTube playlist or SoundCloud set resolved to its entries
type Playlist struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	URL       string           `json:"url"`
	Source    Source           `json:"source"`
	Entries   []*PlaylistEntry `json:"entries"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewPlaylist creates an empty playlist for url
func NewPlaylist(url string, source Source) *Playlist {
	return &Playlist{
		URL:       url,
		Source:    source,
		Entries:   make([]*PlaylistEntry, 0),
		CreatedAt: time.Now(),
	}
}

// AddEntry appends an entry, skipping ones without a URL
func (p *Playlist) AddEntry(entry *PlaylistEntry) {
	if entry == nil || entry.URL == "" {
		return
	}
	p.Entries = append(p.Entries, entry)
}

// Len returns the number of entries
func (p *Playlist) Len() int {
	return len(p.Entries)
}
