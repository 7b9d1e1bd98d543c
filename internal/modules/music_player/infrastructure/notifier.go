package infrastructure

import (
	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

// EmbedBuilder renders a track as a message embed.
type EmbedBuilder func(track domain.Track) *discordgo.MessageEmbed

// messageSender is the subset of *discordgo.Session used by Notifier.
type messageSender interface {
	ChannelMessageSendEmbed(
		channelID string,
		embed *discordgo.MessageEmbed,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
}

// Notifier sends notifications to Discord channels.
type Notifier struct {
	sender     messageSender
	nowPlaying EmbedBuilder
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session, nowPlaying EmbedBuilder) *Notifier {
	return &Notifier{
		sender:     session,
		nowPlaying: nowPlaying,
	}
}

// SendNowPlaying sends a "Now Playing" embed to the channel.
func (n *Notifier) SendNowPlaying(channelID snowflake.ID, track domain.Track) error {
	_, err := n.sender.ChannelMessageSendEmbed(channelID.String(), n.nowPlaying(track))
	return err
}

// Ensure Notifier implements ports.NotificationSender.
var _ ports.NotificationSender = (*Notifier)(nil)
