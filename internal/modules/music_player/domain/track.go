package domain

import (
	"errors"
	"strconv"
	"time"
)

// Fallback values used when the extractor or search backend omits a field.
const (
	UnknownTitle    = "Unknown"
	UnknownChannel  = "Unknown"
	UnknownDuration = "?:??"
	LiveDuration    = "Live"
)

// ErrTrackNotFound is returned by resolvers when a query yields no playable track.
var ErrTrackNotFound = errors.New("track not found")

// Track represents a resolved, playable audio item.
// All fields except WasQueued and QueuePosition are fixed at resolution time.
type Track struct {
	Title       string
	URL         string
	Duration    string // display form, e.g. "3:45", LiveDuration or UnknownDuration
	Thumbnail   string // empty when the source has none
	Channel     string
	SourceQuery string // the user input that produced this track

	WasQueued     bool // true if another track was active when this one was enqueued
	QueuePosition int  // 1-based position at enqueue time, 0 if it was next to play
}

// FormatDuration renders a duration as m:ss or h:mm:ss.
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	if total < 0 {
		total = 0
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return strconv.Itoa(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return strconv.Itoa(minutes) + ":" + pad(seconds)
}

// ListenSeconds converts elapsed wall-clock time to whole seconds, rounded to nearest.
func ListenSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d.Round(time.Second) / time.Second)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
