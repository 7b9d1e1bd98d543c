package ports

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

// RequesterProvider resolves the identity recorded for a playback request.
type RequesterProvider interface {
	// GetRequester returns the user's display name and the guild's name.
	GetRequester(guildID, userID snowflake.ID) (domain.UserContext, error)
}
