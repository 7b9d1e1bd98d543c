package usecases

import "errors"

// Domain errors for the music player module.
var (
	// ErrNoResults is returned when a query resolves to no playable track.
	ErrNoResults = errors.New("no results found")

	// ErrEmptyQuery is returned when the query is blank.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrVoiceConnectFailed is returned when joining the voice channel fails.
	ErrVoiceConnectFailed = errors.New("failed to join voice channel")
)
