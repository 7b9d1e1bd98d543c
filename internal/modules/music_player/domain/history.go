package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// HistoryAction is the kind of a listening history record.
type HistoryAction string

const (
	HistoryPlayStart HistoryAction = "play_start"
	HistorySkipped   HistoryAction = "skipped"
	HistoryCompleted HistoryAction = "completed"
	HistoryStopped   HistoryAction = "stopped"
)

// HistoryRecord is one entry written to the history sink.
type HistoryRecord struct {
	Timestamp         time.Time
	SessionID         string
	UserID            snowflake.ID
	Username          string
	GuildID           snowflake.ID
	GuildName         string
	Query             string
	TrackTitle        string
	TrackURL          string
	TrackDuration     string
	TrackChannel      string
	Action            HistoryAction
	ListenDurationSec int
	WasQueued         bool
	QueuePosition     int
}

// NewPlayStartRecord builds the record for a track entering a queue.
func NewPlayStartRecord(e TrackEnqueuedEvent) HistoryRecord {
	return newRecord(e.OccurredAt, e.SessionID, e.GuildID, e.Requester, e.Track, HistoryPlayStart, 0)
}

// NewTrackEndRecord builds the record for a track leaving the current slot.
// ok is false when the end reason is not recorded.
func NewTrackEndRecord(e TrackEndedEvent) (HistoryRecord, bool) {
	if !e.Reason.IsRecorded() {
		return HistoryRecord{}, false
	}
	return newRecord(
		e.OccurredAt,
		e.SessionID,
		e.GuildID,
		e.Requester,
		e.Track,
		HistoryAction(e.Reason),
		ListenSeconds(e.ListenDuration),
	), true
}

func newRecord(
	at time.Time,
	sessionID string,
	guildID snowflake.ID,
	user UserContext,
	track Track,
	action HistoryAction,
	listened int,
) HistoryRecord {
	return HistoryRecord{
		Timestamp:         at,
		SessionID:         sessionID,
		UserID:            user.UserID,
		Username:          user.Username,
		GuildID:           guildID,
		GuildName:         user.GuildName,
		Query:             track.SourceQuery,
		TrackTitle:        track.Title,
		TrackURL:          track.URL,
		TrackDuration:     track.Duration,
		TrackChannel:      track.Channel,
		Action:            action,
		ListenDurationSec: listened,
		WasQueued:         track.WasQueued,
		QueuePosition:     track.QueuePosition,
	}
}
