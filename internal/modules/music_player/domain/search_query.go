package domain

import (
	"strings"
)

// SearchSource selects the backend used for text searches.
type SearchSource string

const (
	// SourceYouTube searches YouTube videos.
	SourceYouTube SearchSource = "youtube"
	// SourceYouTubeMusic searches YouTube Music tracks.
	SourceYouTubeMusic SearchSource = "ytmusic"
)

// ParseSearchSource returns the source for a config value, defaulting to YouTube.
func ParseSearchSource(s string) SearchSource {
	switch SearchSource(strings.ToLower(strings.TrimSpace(s))) {
	case SourceYouTubeMusic:
		return SourceYouTubeMusic
	default:
		return SourceYouTube
	}
}

// SearchQuery represents a query for resolving a track.
type SearchQuery struct {
	Query string // the search term or URL
	IsURL bool   // whether the query is a direct URL
}

// NewSearchQuery creates a SearchQuery from user input.
func NewSearchQuery(input string) *SearchQuery {
	input = strings.TrimSpace(input)

	return &SearchQuery{
		Query: input,
		IsURL: isURL(input),
	}
}

// IsValid returns true if the query is not empty.
func (q *SearchQuery) IsValid() bool {
	return q.Query != ""
}

func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://")
}
