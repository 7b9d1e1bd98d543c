package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

// VoiceEventSink receives the bot's own voice gateway events.
type VoiceEventSink interface {
	HandleVoiceStateUpdate(guildID snowflake.ID, channelID string)
	HandleVoiceServerUpdate(guildID snowflake.ID)
}

// EventHandlers handles Discord gateway events for the music player.
type EventHandlers struct {
	voice VoiceEventSink
}

// NewEventHandlers creates a new EventHandlers.
func NewEventHandlers(voice VoiceEventSink) *EventHandlers {
	return &EventHandlers{voice: voice}
}

// HandleVoiceStateUpdate forwards VoiceStateUpdate events for the bot.
func (h *EventHandlers) HandleVoiceStateUpdate(
	s *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	// Only handle updates for the bot itself
	if s.State == nil || s.State.User == nil || event.UserID != s.State.User.ID {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	h.voice.HandleVoiceStateUpdate(guildID, event.ChannelID)
}

// HandleVoiceServerUpdate forwards VoiceServerUpdate events.
func (h *EventHandlers) HandleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	h.voice.HandleVoiceServerUpdate(guildID)
}
