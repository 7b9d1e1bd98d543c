package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sglre6355/redacbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

// DefaultHistoryWriteTimeout bounds a single history sink write.
const DefaultHistoryWriteTimeout = 5 * time.Second

// consume runs handle for every event on ch until ctx ends, done closes or ch closes.
func consume[E any](
	ctx context.Context,
	wg *sync.WaitGroup,
	done <-chan struct{},
	ch <-chan E,
	handle func(context.Context, E),
) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case event, ok := <-ch:
				if !ok {
					return
				}
				handle(ctx, event)
			}
		}
	}()
}

// HistoryEventHandler turns playback lifecycle events into history records.
// Sink failures are logged and never reach the player.
type HistoryEventHandler struct {
	sink         ports.HistorySink
	bus          *Bus
	writeTimeout time.Duration

	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// NewHistoryEventHandler creates a new HistoryEventHandler.
func NewHistoryEventHandler(sink ports.HistorySink, bus *Bus) *HistoryEventHandler {
	return &HistoryEventHandler{
		sink:         sink,
		bus:          bus,
		writeTimeout: DefaultHistoryWriteTimeout,
		done:         make(chan struct{}),
	}
}

// Start begins listening for events in background goroutines.
func (h *HistoryEventHandler) Start(ctx context.Context) {
	consume(ctx, &h.wg, h.done, h.bus.TrackEnqueued(), h.handleTrackEnqueued)
	consume(ctx, &h.wg, h.done, h.bus.TrackEnded(), h.handleTrackEnded)

	slog.Debug("history event handler started")
}

// Stop stops the event handler and waits for goroutines to finish.
func (h *HistoryEventHandler) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
	h.wg.Wait()
	slog.Debug("history event handler stopped")
}

// Wait blocks until the bus is closed and every buffered event has been handled.
func (h *HistoryEventHandler) Wait() {
	h.wg.Wait()
}

func (h *HistoryEventHandler) handleTrackEnqueued(ctx context.Context, event domain.TrackEnqueuedEvent) {
	h.record(ctx, domain.NewPlayStartRecord(event))
}

func (h *HistoryEventHandler) handleTrackEnded(ctx context.Context, event domain.TrackEndedEvent) {
	record, ok := domain.NewTrackEndRecord(event)
	if !ok {
		slog.Debug("track end not recorded",
			"guild", event.GuildID,
			"reason", event.Reason,
		)
		return
	}
	h.record(ctx, record)
}

func (h *HistoryEventHandler) record(ctx context.Context, record domain.HistoryRecord) {
	slog.Info("recorded history event",
		"action", record.Action,
		"user", record.Username,
		"track", record.TrackTitle,
	)

	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()

	if err := h.sink.Record(ctx, record); err != nil {
		slog.Error("failed to write history record",
			"action", record.Action,
			"guild", record.GuildID,
			"error", err,
		)
	}
}

// NowPlayingEventHandler posts a notice when a track starts streaming.
type NowPlayingEventHandler struct {
	notifier ports.NotificationSender
	bus      *Bus

	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// NewNowPlayingEventHandler creates a new NowPlayingEventHandler.
func NewNowPlayingEventHandler(notifier ports.NotificationSender, bus *Bus) *NowPlayingEventHandler {
	return &NowPlayingEventHandler{
		notifier: notifier,
		bus:      bus,
		done:     make(chan struct{}),
	}
}

// Start begins listening for events in a background goroutine.
func (h *NowPlayingEventHandler) Start(ctx context.Context) {
	consume(ctx, &h.wg, h.done, h.bus.PlaybackStarted(), h.handlePlaybackStarted)

	slog.Debug("now playing event handler started")
}

// Stop stops the event handler and waits for goroutines to finish.
func (h *NowPlayingEventHandler) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
	h.wg.Wait()
	slog.Debug("now playing event handler stopped")
}

// Wait blocks until the bus is closed and every buffered event has been handled.
func (h *NowPlayingEventHandler) Wait() {
	h.wg.Wait()
}

func (h *NowPlayingEventHandler) handlePlaybackStarted(_ context.Context, event domain.PlaybackStartedEvent) {
	if event.NotificationChannelID == 0 {
		return
	}

	if err := h.notifier.SendNowPlaying(event.NotificationChannelID, event.Track); err != nil {
		slog.Debug("failed to send now playing notice",
			"guild", event.GuildID,
			"channel", event.NotificationChannelID,
			"error", err,
		)
	}
}
