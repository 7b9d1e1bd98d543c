package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

// PlayerConfig holds the timing parameters of the session state machine.
type PlayerConfig struct {
	// IdleTimeout is how long a session may sit with nothing playing before it is destroyed.
	IdleTimeout time.Duration
	// ReconnectTimeout bounds the wait for a dropped voice connection to recover.
	ReconnectTimeout time.Duration
	// ConnectTimeout bounds joining a voice channel. The session is locked meanwhile.
	ConnectTimeout time.Duration
}

// DefaultPlayerConfig returns the default timings.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		IdleTimeout:      120 * time.Second,
		ReconnectTimeout: 5 * time.Second,
		ConnectTimeout:   10 * time.Second,
	}
}

// PlayInput contains the input for the Play use case.
type PlayInput struct {
	GuildID        snowflake.ID
	VoiceChannelID snowflake.ID
	TextChannelID  snowflake.ID
	Query          string
	Requester      domain.UserContext
}

// QueueSnapshot is a point-in-time copy of a session's playback queue.
type QueueSnapshot struct {
	Current  *domain.Track // nil when nothing is active
	Upcoming []domain.Track
}

// PlayerService runs one playback state machine per guild.
type PlayerService struct {
	sessions  *SessionRegistry
	resolver  ports.TrackResolver
	pipelines ports.PipelineFactory
	transport ports.VoiceTransport
	publisher ports.EventPublisher
	config    PlayerConfig
	now       func() time.Time
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(
	sessions *SessionRegistry,
	resolver ports.TrackResolver,
	pipelines ports.PipelineFactory,
	transport ports.VoiceTransport,
	publisher ports.EventPublisher,
	config PlayerConfig,
) *PlayerService {
	return &PlayerService{
		sessions:  sessions,
		resolver:  resolver,
		pipelines: pipelines,
		transport: transport,
		publisher: publisher,
		config:    config,
		now:       time.Now,
	}
}

// Play resolves the query and appends the track to the guild's queue, joining
// the voice channel and starting playback if nothing is active.
// The returned track carries its queueing metadata.
func (p *PlayerService) Play(ctx context.Context, input PlayInput) (*domain.Track, error) {
	query := domain.NewSearchQuery(input.Query)
	if !query.IsValid() {
		return nil, ErrEmptyQuery
	}

	track, err := p.resolver.Resolve(ctx, query.Query)
	if err != nil || track == nil {
		return nil, ErrNoResults
	}

	for {
		sess := p.sessions.GetOrCreate(input.GuildID)

		sess.mu.Lock()
		if sess.destroyed {
			// Lost a race with Destroy; the registry entry is already gone.
			sess.mu.Unlock()
			continue
		}
		result, err := p.playLocked(ctx, sess, input, track)
		sess.mu.Unlock()

		return result, err
	}
}

func (p *PlayerService) playLocked(
	ctx context.Context,
	sess *Session,
	input PlayInput,
	track *domain.Track,
) (*domain.Track, error) {
	state := sess.state

	if input.TextChannelID != 0 {
		state.SetTextChannelID(input.TextChannelID)
	}
	if !input.Requester.IsZero() {
		state.SetUserContext(input.Requester)
	}

	sess.stopIdleTimer()

	if sess.conn == nil {
		conn, err := p.connect(ctx, sess, input)
		if err != nil {
			slog.Error("failed to join voice channel",
				"guild", input.GuildID,
				"channel", input.VoiceChannelID,
				"error", err,
			)
			p.destroyLocked(sess)
			return nil, fmt.Errorf("%w: %w", ErrVoiceConnectFailed, err)
		}
		sess.conn = conn
		slog.Info("joined voice channel", "guild", input.GuildID, "channel", input.VoiceChannelID)
	}

	state.Enqueue(track)
	result := *track

	p.publisher.PublishTrackEnqueued(domain.TrackEnqueuedEvent{
		GuildID:    state.GuildID(),
		SessionID:  state.SessionID(),
		Track:      result,
		Requester:  state.UserContext(),
		OccurredAt: p.now(),
	})

	if state.IsIdle() {
		p.playNextLocked(sess)
	}

	return &result, nil
}

func (p *PlayerService) connect(
	ctx context.Context,
	sess *Session,
	input PlayInput,
) (ports.VoiceConnection, error) {
	if p.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ConnectTimeout)
		defer cancel()
	}

	return p.transport.Connect(ctx, input.GuildID, input.VoiceChannelID, p.voiceHandlers(sess))
}

func (p *PlayerService) voiceHandlers(sess *Session) ports.VoiceHandlers {
	return ports.VoiceHandlers{
		OnIdle: func(resourceID uint64) {
			p.handleTrackEnd(sess, resourceID, domain.TrackEndCompleted)
		},
		OnError: func(resourceID uint64, err error) {
			slog.Warn("player reported stream error", "error", err)
			p.handleTrackEnd(sess, resourceID, domain.TrackEndFailed)
		},
		OnDisconnect: func() {
			p.handleDisconnect(sess)
		},
	}
}

// handleTrackEnd advances the session when the stream it started finishes or fails.
// Signals for streams that were already replaced are ignored.
func (p *PlayerService) handleTrackEnd(sess *Session, resourceID uint64, reason domain.TrackEndReason) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.destroyed || resourceID != sess.resourceID || sess.state.IsIdle() {
		return
	}

	p.endTrackLocked(sess, reason)
	p.playNextLocked(sess)
}

// handleDisconnect waits for a dropped connection to start recovering, or to
// recover outright, and destroys the session if it does neither.
func (p *PlayerService) handleDisconnect(sess *Session) {
	sess.mu.Lock()
	conn := sess.conn
	destroyed := sess.destroyed
	sess.mu.Unlock()

	if destroyed || conn == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.config.ReconnectTimeout)
	defer cancel()

	err := conn.WaitForState(ctx,
		ports.ConnectionSignalling,
		ports.ConnectionConnecting,
		ports.ConnectionReady,
	)
	if err == nil {
		slog.Info("voice connection recovering", "state", conn.State())
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.conn != conn {
		return
	}
	slog.Warn("voice connection did not recover, destroying session",
		"guild", sess.state.GuildID(),
		"error", err,
	)
	p.destroyLocked(sess)
}

// playNextLocked starts the head of the queue, skipping tracks whose pipeline
// cannot be started. With an empty queue the session goes idle and the
// inactivity check is armed.
func (p *PlayerService) playNextLocked(sess *Session) {
	state := sess.state

	for {
		next := state.Dequeue()
		if next == nil {
			p.scheduleIdleCheckLocked(sess)
			return
		}
		if sess.conn == nil {
			slog.Warn("dropped track without voice connection", "track", next.Title)
			continue
		}

		pipeline, err := p.pipelines.Start(context.Background(), next)
		if err != nil {
			slog.Warn("failed to start pipeline",
				"guild", state.GuildID(),
				"track", next.Title,
				"error", err,
			)
			continue
		}

		sess.resourceID++
		if err := sess.conn.Play(sess.resourceID, pipeline.Output()); err != nil {
			pipeline.Stop()
			slog.Warn("failed to start playback",
				"guild", state.GuildID(),
				"track", next.Title,
				"error", err,
			)
			continue
		}

		sess.pipeline = pipeline
		state.StartTrack(next, p.now())
		slog.Info("started track", "guild", state.GuildID(), "track", next.Title)

		p.publisher.PublishPlaybackStarted(domain.PlaybackStartedEvent{
			GuildID:               state.GuildID(),
			Track:                 *next,
			NotificationChannelID: state.TextChannelID(),
		})
		return
	}
}

// endTrackLocked ends the current track, if any, and tears down its pipeline.
// Returns true if a track was ended.
func (p *PlayerService) endTrackLocked(sess *Session, reason domain.TrackEndReason) bool {
	state := sess.state

	if sess.pipeline != nil {
		sess.pipeline.Stop()
		sess.pipeline = nil
	}

	track, listened := state.EndTrack(p.now())
	if track == nil {
		return false
	}

	slog.Debug("ended track",
		"guild", state.GuildID(),
		"track", track.Title,
		"reason", reason,
		"listened", listened,
	)

	p.publisher.PublishTrackEnded(domain.TrackEndedEvent{
		GuildID:        state.GuildID(),
		SessionID:      state.SessionID(),
		Track:          *track,
		Reason:         reason,
		ListenDuration: listened,
		Requester:      state.UserContext(),
		OccurredAt:     p.now(),
	})
	return true
}

func (p *PlayerService) scheduleIdleCheckLocked(sess *Session) {
	sess.stopIdleTimer()

	gen := sess.idleGen
	sess.idleTimer = time.AfterFunc(p.config.IdleTimeout, func() {
		p.idleCheck(sess, gen)
	})
}

// idleCheck destroys the session if it is still idle with an empty queue.
func (p *PlayerService) idleCheck(sess *Session, gen uint64) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.destroyed || sess.idleGen != gen {
		return
	}
	if !sess.state.IsIdle() || sess.state.QueueLen() > 0 {
		return
	}

	slog.Info("destroying inactive session", "guild", sess.state.GuildID())
	p.destroyLocked(sess)
}

// Skip ends the current track and advances to the next one.
// Returns false if the guild has no bound player.
func (p *PlayerService) Skip(guildID snowflake.ID) bool {
	sess := p.sessions.Get(guildID)
	if sess == nil {
		return false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.destroyed || sess.conn == nil {
		return false
	}

	ended := p.endTrackLocked(sess, domain.TrackEndSkipped)
	sess.conn.Stop()
	if ended {
		p.playNextLocked(sess)
	}
	return true
}

// Pause halts playback. Returns false unless the guild is playing.
func (p *PlayerService) Pause(guildID snowflake.ID) bool {
	sess := p.sessions.Get(guildID)
	if sess == nil {
		return false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.destroyed || sess.conn == nil || sess.state.Status() != domain.StatusPlaying {
		return false
	}
	if !sess.conn.Pause() {
		return false
	}
	return sess.state.Pause()
}

// Resume continues playback. Returns false unless the guild is paused.
func (p *PlayerService) Resume(guildID snowflake.ID) bool {
	sess := p.sessions.Get(guildID)
	if sess == nil {
		return false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.destroyed || sess.conn == nil || sess.state.Status() != domain.StatusPaused {
		return false
	}
	if !sess.conn.Resume() {
		return false
	}
	return sess.state.Resume()
}

// QueueSnapshot returns the current track and a copy of the pending queue.
// Guilds without a session yield an empty snapshot.
func (p *PlayerService) QueueSnapshot(guildID snowflake.ID) QueueSnapshot {
	sess := p.sessions.Get(guildID)
	if sess == nil {
		return QueueSnapshot{Upcoming: []domain.Track{}}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	return QueueSnapshot{
		Current:  copyTrack(sess.state.CurrentTrack()),
		Upcoming: sess.state.Upcoming(),
	}
}

// NowPlaying returns a copy of the current track, or nil.
func (p *PlayerService) NowPlaying(guildID snowflake.ID) *domain.Track {
	sess := p.sessions.Get(guildID)
	if sess == nil {
		return nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	return copyTrack(sess.state.CurrentTrack())
}

// Status returns the playback status of the guild.
func (p *PlayerService) Status(guildID snowflake.ID) domain.PlaybackStatus {
	sess := p.sessions.Get(guildID)
	if sess == nil {
		return domain.StatusIdle
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	return sess.state.Status()
}

// Destroy stops playback, leaves the voice channel and forgets the session.
// Destroying a guild without a session is a no-op.
func (p *PlayerService) Destroy(guildID snowflake.ID) {
	sess := p.sessions.Get(guildID)
	if sess == nil {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	p.destroyLocked(sess)
}

// Shutdown destroys every session.
func (p *PlayerService) Shutdown() {
	for _, sess := range p.sessions.All() {
		sess.mu.Lock()
		p.destroyLocked(sess)
		sess.mu.Unlock()
	}
}

func (p *PlayerService) destroyLocked(sess *Session) {
	if sess.destroyed {
		return
	}
	sess.destroyed = true
	sess.stopIdleTimer()

	p.endTrackLocked(sess, domain.TrackEndStopped)
	sess.state.ClearQueue()

	if sess.conn != nil {
		sess.conn.Destroy()
		sess.conn = nil
	}

	guildID := sess.state.GuildID()
	p.sessions.Remove(guildID, sess)
	slog.Info("destroyed session", "guild", guildID)
}

func copyTrack(t *domain.Track) *domain.Track {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
