package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/redacbot/internal/bot"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/usecases"
)

// Player is the subset of usecases.PlayerService used by the command handlers.
type Player interface {
	Play(ctx context.Context, input usecases.PlayInput) (*usecases.Track, error)
	Skip(guildID snowflake.ID) bool
	Pause(guildID snowflake.ID) bool
	Resume(guildID snowflake.ID) bool
	Destroy(guildID snowflake.ID)
	QueueSnapshot(guildID snowflake.ID) usecases.QueueSnapshot
	NowPlaying(guildID snowflake.ID) *usecases.Track
}

// Ensure PlayerService satisfies Player.
var _ Player = (*usecases.PlayerService)(nil)

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	player     Player
	voiceState ports.VoiceStateProvider
	requesters ports.RequesterProvider
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	player Player,
	voiceState ports.VoiceStateProvider,
	requesters ports.RequesterProvider,
) *CommandHandlers {
	return &CommandHandlers{
		player:     player,
		voiceState: voiceState,
		requesters: requesters,
	}
}

// HandlePlay handles the /play command.
func (h *CommandHandlers) HandlePlay(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if i.Member == nil || i.Member.User == nil {
		return respondError(r, "This command can only be used in a server.")
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	textChannelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return respondError(r, "Invalid text channel")
	}

	voiceChannelID, err := h.voiceState.GetUserVoiceChannel(guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to look up voice state: %w", err)
	}
	if voiceChannelID == 0 {
		return respondEphemeralError(r, "You need to be in a voice channel to play music!")
	}

	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}

	// Resolution can outlast the interaction acknowledgement window.
	if err := r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		return err
	}

	requester, err := h.requesters.GetRequester(guildID, userID)
	if err != nil {
		slog.Warn("failed to look up requester", "guild", guildID, "user", userID, "error", err)
		requester = usecases.UserContext{
			UserID:    userID,
			Username:  i.Member.User.Username,
			GuildName: "Unknown",
		}
	}

	track, err := h.player.Play(ctx, usecases.PlayInput{
		GuildID:        guildID,
		VoiceChannelID: voiceChannelID,
		TextChannelID:  textChannelID,
		Query:          query,
		Requester:      requester,
	})
	switch {
	case errors.Is(err, usecases.ErrNoResults):
		return editEmbed(r, errorEmbed(fmt.Sprintf("No results found for **%s**", query)))
	case errors.Is(err, usecases.ErrEmptyQuery):
		return editEmbed(r, errorEmbed("Please provide a song name or URL."))
	case err != nil:
		slog.Error("failed to play track", "guild", guildID, "query", query, "error", err)
		return editEmbed(r, errorEmbed("Something went wrong while trying to play that track."))
	}

	if track.WasQueued {
		return editEmbed(r, AddedToQueueEmbed(*track, track.QueuePosition))
	}
	return editEmbed(r, successEmbed(fmt.Sprintf("🎶 Playing %s", trackLink(*track))))
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if h.player.Skip(guildID) {
		return respondEmbed(r, successEmbed("⏭️ Skipped!"))
	}
	return respondEmbed(r, infoEmbed("Nothing is playing right now."))
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	h.player.Destroy(guildID)

	return respondEmbed(r, successEmbed("⏹️ Stopped and left the channel."))
}

// HandleQueue handles the /queue command.
func (h *CommandHandlers) HandleQueue(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	return respondEmbed(r, QueueEmbed(h.player.QueueSnapshot(guildID)))
}

// HandlePause handles the /pause command.
func (h *CommandHandlers) HandlePause(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if h.player.Pause(guildID) {
		return respondEmbed(r, successEmbed("⏸️ Paused."))
	}
	return respondEmbed(r, infoEmbed("Nothing is playing right now."))
}

// HandleResume handles the /resume command.
func (h *CommandHandlers) HandleResume(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if h.player.Resume(guildID) {
		return respondEmbed(r, successEmbed("▶️ Resumed!"))
	}
	return respondEmbed(r, infoEmbed("Nothing is paused right now."))
}

// HandleNowPlaying handles the /np command.
func (h *CommandHandlers) HandleNowPlaying(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	track := h.player.NowPlaying(guildID)
	if track == nil {
		return respondEmbed(r, infoEmbed("Nothing is playing right now."))
	}
	return respondEmbed(r, NowPlayingEmbed(*track))
}

// Response helpers.

func respondEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func respondError(r bot.Responder, message string) error {
	return respondEmbed(r, errorEmbed(message))
}

func respondEphemeralError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{errorEmbed(message)},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

// editEmbed replaces a deferred reply. The interaction is already
// acknowledged, so a failed edit is logged rather than returned.
func editEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	err := r.Edit(&discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		slog.Warn("failed to edit deferred reply", "title", embed.Title, "error", err)
	}
	return nil
}
