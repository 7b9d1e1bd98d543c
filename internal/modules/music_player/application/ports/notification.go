package ports

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

// NotificationSender defines the interface for sending notifications to Discord channels.
type NotificationSender interface {
	// SendNowPlaying sends a "Now Playing" embed to the channel.
	SendNowPlaying(channelID snowflake.ID, track domain.Track) error
}
