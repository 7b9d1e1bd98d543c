package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
	"golang.org/x/time/rate"
)

// Ensure TrackResolver implements ports.TrackResolver and ports.TrackSuggester.
var (
	_ ports.TrackResolver  = (*TrackResolver)(nil)
	_ ports.TrackSuggester = (*TrackResolver)(nil)
)

const (
	// DefaultResolveTimeout bounds a single metadata lookup or search.
	DefaultResolveTimeout = 15 * time.Second

	metadataSeparator = "|||"
	metadataTemplate  = "%(title)s|||%(webpage_url)s|||%(duration_string)s|||%(thumbnail)s|||%(channel)s"

	// yt-dlp prints NA for fields the extractor did not provide.
	missingField = "NA"
)

// errNoSearchResults is returned by searchers when a query has no hits.
var errNoSearchResults = errors.New("search returned no results")

// metadataLookup returns the raw extractor output for a URL.
type metadataLookup func(ctx context.Context, url string) (string, error)

// searchHit is one result of a text search.
type searchHit struct {
	URL       string
	Title     string
	Duration  string
	Thumbnail string
	Channel   string
}

// videoSearcher runs a text search and returns up to limit hits, best first.
type videoSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]searchHit, error)
}

// TrackResolverConfig holds the configuration for TrackResolver.
type TrackResolverConfig struct {
	YtdlpPath string
	Source    domain.SearchSource
	Timeout   time.Duration
	Rate      rate.Limit
	Burst     int
}

// TrackResolver resolves queries through yt-dlp (URLs) and a search backend (text).
type TrackResolver struct {
	lookup   metadataLookup
	searcher videoSearcher
	limiter  *rate.Limiter
	timeout  time.Duration
}

// NewTrackResolver creates a new TrackResolver.
func NewTrackResolver(cfg TrackResolverConfig) *TrackResolver {
	var searcher videoSearcher = &youtubeSearcher{client: ytsearch.NewClient(nil)}
	if cfg.Source == domain.SourceYouTubeMusic {
		searcher = &youtubeMusicSearcher{}
	}

	return newTrackResolver(ytdlpLookup(cfg.YtdlpPath), searcher, cfg)
}

func newTrackResolver(lookup metadataLookup, searcher videoSearcher, cfg TrackResolverConfig) *TrackResolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	limit := cfg.Rate
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &TrackResolver{
		lookup:   lookup,
		searcher: searcher,
		limiter:  rate.NewLimiter(limit, burst),
		timeout:  timeout,
	}
}

// Resolve returns the track for a URL or search term.
// All failures are logged and reported as domain.ErrTrackNotFound.
func (r *TrackResolver) Resolve(ctx context.Context, query string) (*domain.Track, error) {
	q := domain.NewSearchQuery(query)
	if !q.IsValid() {
		return nil, domain.ErrTrackNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		track *domain.Track
		err   error
	)
	if q.IsURL {
		track, err = r.resolveURL(ctx, q.Query)
	} else {
		track, err = r.resolveSearch(ctx, q.Query)
	}
	if err != nil {
		slog.Warn("failed to resolve track", "query", q.Query, "url", q.IsURL, "error", err)
		return nil, domain.ErrTrackNotFound
	}

	track.SourceQuery = query
	return track, nil
}

func (r *TrackResolver) resolveURL(ctx context.Context, url string) (*domain.Track, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for extractor slot: %w", err)
	}

	out, err := r.lookup(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to look up metadata: %w", err)
	}

	return parseMetadataRecord(out, url), nil
}

func (r *TrackResolver) resolveSearch(ctx context.Context, query string) (*domain.Track, error) {
	hits, err := r.searcher.Search(ctx, query, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(hits) == 0 || hits[0].URL == "" {
		return nil, errNoSearchResults
	}

	return hits[0].track(), nil
}

// Suggest returns up to limit search results for a partial query.
// URLs are not looked up and yield no suggestions.
func (r *TrackResolver) Suggest(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	q := domain.NewSearchQuery(query)
	if !q.IsValid() || q.IsURL || limit <= 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	hits, err := r.searcher.Search(ctx, q.Query, limit)
	if err != nil && !errors.Is(err, errNoSearchResults) {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	tracks := make([]domain.Track, 0, len(hits))
	for _, hit := range hits {
		if hit.URL == "" {
			continue
		}
		track := hit.track()
		track.SourceQuery = query
		tracks = append(tracks, *track)
	}
	return tracks, nil
}

func (h searchHit) track() *domain.Track {
	return &domain.Track{
		Title:     orDefault(h.Title, domain.UnknownTitle),
		URL:       h.URL,
		Duration:  orDefault(h.Duration, domain.LiveDuration),
		Thumbnail: h.Thumbnail,
		Channel:   orDefault(h.Channel, domain.UnknownChannel),
	}
}

// parseMetadataRecord reads the first line of extractor output as
// title|||url|||duration|||thumbnail|||channel, filling in fallbacks.
func parseMetadataRecord(out, query string) *domain.Track {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	parts := strings.Split(strings.TrimSpace(line), metadataSeparator)

	field := func(i int) string {
		if i >= len(parts) {
			return ""
		}
		v := strings.TrimSpace(parts[i])
		if v == missingField {
			return ""
		}
		return v
	}

	return &domain.Track{
		Title:     orDefault(field(0), domain.UnknownTitle),
		URL:       orDefault(field(1), query),
		Duration:  orDefault(field(2), domain.UnknownDuration),
		Thumbnail: field(3),
		Channel:   orDefault(field(4), domain.UnknownChannel),
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func ytdlpLookup(executable string) metadataLookup {
	return func(ctx context.Context, url string) (string, error) {
		cmd := ytdlp.New().
			Print(metadataTemplate).
			NoPlaylist().
			NoWarnings().
			IgnoreConfig()
		if executable != "" {
			cmd.SetExecutable(executable)
		}

		res, err := cmd.Run(ctx, url)
		if err != nil {
			return "", err
		}
		return res.Stdout, nil
	}
}

func youtubeThumbnail(videoID string) string {
	return "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
}

// youtubeSearcher searches YouTube videos.
type youtubeSearcher struct {
	client *ytsearch.Client
}

func (s *youtubeSearcher) Search(ctx context.Context, query string, limit int) ([]searchHit, error) {
	res, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	var hits []searchHit
	for _, v := range res.Results {
		if v.VideoID == "" {
			continue
		}
		hits = append(hits, searchHit{
			URL:       "https://www.youtube.com/watch?v=" + v.VideoID,
			Title:     v.Title,
			Duration:  v.Duration,
			Thumbnail: youtubeThumbnail(v.VideoID),
			Channel:   v.Channel,
		})
		if len(hits) == limit {
			break
		}
	}
	if len(hits) == 0 {
		return nil, errNoSearchResults
	}
	return hits, nil
}

// youtubeMusicSearcher searches YouTube Music tracks.
type youtubeMusicSearcher struct{}

func (s *youtubeMusicSearcher) Search(ctx context.Context, query string, limit int) ([]searchHit, error) {
	type result struct {
		hits []searchHit
		err  error
	}

	// The ytmusic client takes no context, so the call is raced against ctx.
	ch := make(chan result, 1)
	go func() {
		res, err := ytmusic.TrackSearch(query).Next()
		if err != nil {
			ch <- result{err: err}
			return
		}
		var hits []searchHit
		for _, v := range res.Tracks {
			if v.VideoID == "" {
				continue
			}
			hit := searchHit{
				URL:       "https://music.youtube.com/watch?v=" + v.VideoID,
				Title:     v.Title,
				Thumbnail: youtubeThumbnail(v.VideoID),
			}
			if v.Duration > 0 {
				hit.Duration = domain.FormatDuration(time.Duration(v.Duration) * time.Second)
			}
			if len(v.Artists) > 0 {
				hit.Channel = v.Artists[0].Name
			}
			hits = append(hits, hit)
			if len(hits) == limit {
				break
			}
		}
		if len(hits) == 0 {
			ch <- result{err: errNoSearchResults}
			return
		}
		ch <- result{hits: hits}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.hits, r.err
	}
}
