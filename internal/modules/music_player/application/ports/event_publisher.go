package ports

import "github.com/sglre6355/redacbot/internal/modules/music_player/domain"

// EventPublisher defines the interface for publishing playback events asynchronously.
// Implementations must not block the caller.
type EventPublisher interface {
	PublishTrackEnqueued(event domain.TrackEnqueuedEvent)
	PublishPlaybackStarted(event domain.PlaybackStartedEvent)
	PublishTrackEnded(event domain.TrackEndedEvent)
}
