package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// PlaybackStatus is the player state of a session.
type PlaybackStatus int

const (
	StatusIdle PlaybackStatus = iota
	StatusPlaying
	StatusPaused
)

// String returns the string representation of the status.
func (s PlaybackStatus) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "idle"
	}
}

// UserContext identifies the user who last requested playback in a session.
type UserContext struct {
	UserID    snowflake.ID
	Username  string
	GuildName string
}

// IsZero reports whether no requester has been recorded.
func (u UserContext) IsZero() bool {
	return u == UserContext{}
}

// PlayerState holds the playback data of one guild session.
// It is not safe for concurrent use; callers serialize access per guild.
//
// Invariants kept by the methods below:
//   - current is non-nil iff status is Playing or Paused
//   - playStartTime is set iff current is non-nil
//   - the queue never holds the current track
type PlayerState struct {
	guildID       snowflake.ID
	sessionID     string
	textChannelID snowflake.ID
	userContext   UserContext

	queue         Queue
	current       *Track
	status        PlaybackStatus
	playStartTime time.Time
}

// NewPlayerState creates an idle PlayerState for the given guild.
func NewPlayerState(guildID snowflake.ID) *PlayerState {
	return &PlayerState{
		guildID:   guildID,
		sessionID: uuid.NewString(),
		queue:     NewQueue(),
		status:    StatusIdle,
	}
}

// GuildID returns the guild this state belongs to.
func (p *PlayerState) GuildID() snowflake.ID {
	return p.guildID
}

// SessionID returns the identifier of this session instance.
// A guild gets a new one every time its session is recreated.
func (p *PlayerState) SessionID() string {
	return p.sessionID
}

// TextChannelID returns the channel for now-playing notices.
func (p *PlayerState) TextChannelID() snowflake.ID {
	return p.textChannelID
}

// SetTextChannelID updates the notice channel. Last write wins.
func (p *PlayerState) SetTextChannelID(channelID snowflake.ID) {
	p.textChannelID = channelID
}

// UserContext returns the last requester.
func (p *PlayerState) UserContext() UserContext {
	return p.userContext
}

// SetUserContext records the last requester.
func (p *PlayerState) SetUserContext(u UserContext) {
	p.userContext = u
}

// Status returns the playback status.
func (p *PlayerState) Status() PlaybackStatus {
	return p.status
}

// IsIdle returns true when no track is active.
func (p *PlayerState) IsIdle() bool {
	return p.current == nil
}

// CurrentTrack returns the active track, or nil.
func (p *PlayerState) CurrentTrack() *Track {
	return p.current
}

// QueueLen returns the number of waiting tracks.
func (p *PlayerState) QueueLen() int {
	return p.queue.Len()
}

// Upcoming returns copies of the waiting tracks in play order.
func (p *PlayerState) Upcoming() []Track {
	return p.queue.List()
}

// Enqueue appends a track and stamps its queueing metadata.
// A track enqueued while another is active is marked queued with its 1-based position.
func (p *PlayerState) Enqueue(track *Track) {
	if p.current != nil {
		track.WasQueued = true
		track.QueuePosition = p.queue.Len() + 1
	} else {
		track.WasQueued = false
		track.QueuePosition = 0
	}
	p.queue.Append(track)
}

// Dequeue pops the head of the queue, or returns nil.
func (p *PlayerState) Dequeue() *Track {
	return p.queue.Pop()
}

// StartTrack makes track the active one and begins listen accounting.
func (p *PlayerState) StartTrack(track *Track, now time.Time) {
	p.current = track
	p.status = StatusPlaying
	p.playStartTime = now
}

// EndTrack clears the active track and returns it with the wall-clock time it was active.
// Returns nil when nothing was active.
func (p *PlayerState) EndTrack(now time.Time) (*Track, time.Duration) {
	if p.current == nil {
		return nil, 0
	}
	track := p.current
	listened := now.Sub(p.playStartTime)

	p.current = nil
	p.status = StatusIdle
	p.playStartTime = time.Time{}

	return track, listened
}

// Pause moves Playing to Paused. Returns false from any other status.
func (p *PlayerState) Pause() bool {
	if p.status != StatusPlaying {
		return false
	}
	p.status = StatusPaused
	return true
}

// Resume moves Paused to Playing. Returns false from any other status.
func (p *PlayerState) Resume() bool {
	if p.status != StatusPaused {
		return false
	}
	p.status = StatusPlaying
	return true
}

// ClearQueue drops all waiting tracks.
func (p *PlayerState) ClearQueue() {
	p.queue.Clear()
}
