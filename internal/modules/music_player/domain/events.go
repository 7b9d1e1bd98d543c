package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// TrackEndReason represents why a track stopped being the current track.
type TrackEndReason string

const (
	// TrackEndCompleted means the stream reached its end.
	TrackEndCompleted TrackEndReason = "completed"
	// TrackEndSkipped means a user skipped the track.
	TrackEndSkipped TrackEndReason = "skipped"
	// TrackEndStopped means the session was destroyed while the track was active.
	TrackEndStopped TrackEndReason = "stopped"
	// TrackEndFailed means the player reported an error mid-stream.
	TrackEndFailed TrackEndReason = "failed"
)

// IsRecorded returns true if this end reason produces a history record.
func (r TrackEndReason) IsRecorded() bool {
	return r == TrackEndCompleted || r == TrackEndSkipped || r == TrackEndStopped
}

// TrackEnqueuedEvent is published when a resolved track is appended to a session queue.
type TrackEnqueuedEvent struct {
	GuildID    snowflake.ID
	SessionID  string
	Track      Track
	Requester  UserContext
	OccurredAt time.Time
}

// PlaybackStartedEvent is published when a track begins streaming.
type PlaybackStartedEvent struct {
	GuildID               snowflake.ID
	Track                 Track
	NotificationChannelID snowflake.ID
}

// TrackEndedEvent is published whenever the current track ends, for any reason.
type TrackEndedEvent struct {
	GuildID        snowflake.ID
	SessionID      string
	Track          Track
	Reason         TrackEndReason
	ListenDuration time.Duration
	Requester      UserContext // last requester of the session, not necessarily of this track
	OccurredAt     time.Time
}
