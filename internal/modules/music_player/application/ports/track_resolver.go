package ports

import (
	"context"

	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

// TrackResolver turns a user query into a playable track.
type TrackResolver interface {
	// Resolve returns the track for a URL or search term.
	// Every failure is reported as domain.ErrTrackNotFound.
	Resolve(ctx context.Context, query string) (*domain.Track, error)
}

// TrackSuggester lists search results for a partial query.
type TrackSuggester interface {
	// Suggest returns up to limit tracks. URL queries yield none.
	Suggest(ctx context.Context, query string, limit int) ([]domain.Track, error)
}
