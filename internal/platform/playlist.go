package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"
	"go.uber.org/zap"

	"github.com/beonanotherplanet/tiskofy/internal/model"
	"github.com/beonanotherplanet/tiskofy/internal/process"
)

// DefaultPlaylistTimeout bounds one playlist expansion
const DefaultPlaylistTimeout = 60 * time.Second

// YouTubeVideoURLTemplate builds a watch URL from a video id
const YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"

// ErrNotPlaylist is returned when Expand is given a single-track URL
var ErrNotPlaylist = errors.New("not a playlist URL")

// PlaylistExpander turns a playlist or set URL into its track URLs
type PlaylistExpander interface {
	Expand(ctx context.Context, url string) (*model.Playlist, error)
}

// YouTubeFetcher lists the entries of a YouTube playlist by id
type YouTubeFetcher func(ctx context.Context, playlistID string) ([]*model.PlaylistEntry, error)

// PlaylistService expands YouTube playlists through the ytdlp library and
// SoundCloud sets through the yt-dlp binary.
type PlaylistService struct {
	runner    process.Runner
	extractor func(ctx context.Context) (string, error)
	youtube   YouTubeFetcher
	timeout   time.Duration
	logger    *zap.Logger
}

// NewPlaylistService creates a playlist service. extractor returns the path
// of a usable yt-dlp binary and is only called for SoundCloud sets.
func NewPlaylistService(runner process.Runner, extractor func(ctx context.Context) (string, error), logger *zap.Logger) *PlaylistService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlaylistService{
		runner:    runner,
		extractor: extractor,
		youtube:   fetchYouTubePlaylist,
		timeout:   DefaultPlaylistTimeout,
		logger:    logger.Named("playlist"),
	}
}

// SetTimeout sets the timeout for expansion
func (p *PlaylistService) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// SetYouTubeFetcher replaces the YouTube playlist lookup
func (p *PlaylistService) SetYouTubeFetcher(fetch YouTubeFetcher) {
	p.youtube = fetch
}

// Expand resolves url to its entries
func (p *PlaylistService) Expand(ctx context.Context, url string) (*model.Playlist, error) {
	url = strings.TrimSpace(url)
	if !IsPlaylistURL(url) {
		return nil, fmt.Errorf("%w: %s", ErrNotPlaylist, url)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	source, _ := MatchURL(url)
	playlist := model.NewPlaylist(url, source)

	var (
		entries []*model.PlaylistEntry
		err     error
	)
	switch source {
	case model.SourceYouTube:
		id := playlistID(url)
		playlist.ID = id
		entries, err = p.youtube(ctx, id)
	case model.SourceSoundCloud:
		entries, err = p.expandSet(ctx, url)
	}
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		playlist.AddEntry(e)
	}

	p.logger.Info("expanded playlist",
		zap.String("url", url),
		zap.Stringer("source", source),
		zap.Int("entries", playlist.Len()),
	)
	return playlist, nil
}

func (p *PlaylistService) expandSet(ctx context.Context, url string) ([]*model.PlaylistEntry, error) {
	if p.runner == nil || p.extractor == nil {
		return nil, fmt.Errorf("soundcloud sets need yt-dlp")
	}
	ytdlpPath, err := p.extractor(ctx)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp error: %w", err)
	}

	res, err := p.runner.Run(ctx, ytdlpPath, "--flat-playlist", "--print", "url", url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp error: %w", err)
	}
	if !res.Success() {
		return nil, fmt.Errorf("yt-dlp failed: %s", res.StderrString())
	}

	var entries []*model.PlaylistEntry
	for _, line := range strings.Split(res.StdoutString(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		entries = append(entries, &model.PlaylistEntry{URL: line})
	}
	return entries, nil
}

func fetchYouTubePlaylist(ctx context.Context, playlistID string) ([]*model.PlaylistEntry, error) {
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	entries := make([]*model.PlaylistEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, &model.PlaylistEntry{
			ID:    it.VideoID,
			Title: it.Title,
			URL:   fmt.Sprintf(YouTubeVideoURLTemplate, it.VideoID),
		})
	}
	return entries, nil
}
