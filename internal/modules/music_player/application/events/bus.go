package events

import (
	"log/slog"
	"sync"

	"github.com/sglre6355/redacbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

// DefaultEventBufferSize is the default buffer size for event channels.
const DefaultEventBufferSize = 100

// Compile-time check that Bus implements ports.EventPublisher.
var _ ports.EventPublisher = (*Bus)(nil)

// Bus provides a channel-based event bus for async event handling.
// Each channel has exactly one consumer.
type Bus struct {
	trackEnqueued   chan domain.TrackEnqueuedEvent
	playbackStarted chan domain.PlaybackStartedEvent
	trackEnded      chan domain.TrackEndedEvent

	closed bool
	mu     sync.RWMutex
}

// NewBus creates a new Bus with the given buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	return &Bus{
		trackEnqueued:   make(chan domain.TrackEnqueuedEvent, bufferSize),
		playbackStarted: make(chan domain.PlaybackStartedEvent, bufferSize),
		trackEnded:      make(chan domain.TrackEndedEvent, bufferSize),
	}
}

// PublishTrackEnqueued publishes a TrackEnqueuedEvent.
// Non-blocking: if the channel buffer is full, the event is dropped with a warning.
func (b *Bus) PublishTrackEnqueued(event domain.TrackEnqueuedEvent) {
	publish(b, b.trackEnqueued, event, "TrackEnqueued", event.GuildID)
}

// PublishPlaybackStarted publishes a PlaybackStartedEvent.
// Non-blocking: if the channel buffer is full, the event is dropped with a warning.
func (b *Bus) PublishPlaybackStarted(event domain.PlaybackStartedEvent) {
	publish(b, b.playbackStarted, event, "PlaybackStarted", event.GuildID)
}

// PublishTrackEnded publishes a TrackEndedEvent.
// Non-blocking: if the channel buffer is full, the event is dropped with a warning.
func (b *Bus) PublishTrackEnded(event domain.TrackEndedEvent) {
	publish(b, b.trackEnded, event, "TrackEnded", event.GuildID)
}

func publish[E any](b *Bus, ch chan E, event E, eventType string, guildID any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", eventType)
		return
	}

	select {
	case ch <- event:
		slog.Debug("published event", "type", eventType, "guild", guildID)
	default:
		slog.Warn("event buffer full, dropping event", "type", eventType, "guild", guildID)
	}
}

// TrackEnqueued returns the channel for TrackEnqueuedEvent.
func (b *Bus) TrackEnqueued() <-chan domain.TrackEnqueuedEvent {
	return b.trackEnqueued
}

// PlaybackStarted returns the channel for PlaybackStartedEvent.
func (b *Bus) PlaybackStarted() <-chan domain.PlaybackStartedEvent {
	return b.playbackStarted
}

// TrackEnded returns the channel for TrackEndedEvent.
func (b *Bus) TrackEnded() <-chan domain.TrackEndedEvent {
	return b.trackEnded
}

// Close closes all event channels.
// After calling Close, publishing will no longer send events.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	close(b.trackEnqueued)
	close(b.playbackStarted)
	close(b.trackEnded)

	slog.Debug("event bus closed")
}
