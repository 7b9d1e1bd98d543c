package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/usecases"
)

const (
	testGuildID        snowflake.ID = 1
	testVoiceChannelID snowflake.ID = 100
	testTextChannelID  snowflake.ID = 200
	testUserID         snowflake.ID = 300
)

type mockPlayer struct {
	playInput *usecases.PlayInput
	playTrack *usecases.Track
	playErr   error

	skipResult   bool
	pauseResult  bool
	resumeResult bool
	destroyed    []snowflake.ID

	snapshot   usecases.QueueSnapshot
	nowPlaying *usecases.Track
}

func (m *mockPlayer) Play(_ context.Context, input usecases.PlayInput) (*usecases.Track, error) {
	m.playInput = &input
	return m.playTrack, m.playErr
}

func (m *mockPlayer) Skip(snowflake.ID) bool   { return m.skipResult }
func (m *mockPlayer) Pause(snowflake.ID) bool  { return m.pauseResult }
func (m *mockPlayer) Resume(snowflake.ID) bool { return m.resumeResult }

func (m *mockPlayer) Destroy(guildID snowflake.ID) {
	m.destroyed = append(m.destroyed, guildID)
}

func (m *mockPlayer) QueueSnapshot(snowflake.ID) usecases.QueueSnapshot { return m.snapshot }
func (m *mockPlayer) NowPlaying(snowflake.ID) *usecases.Track          { return m.nowPlaying }

type mockVoiceState struct {
	channelID snowflake.ID
	err       error
}

func (m *mockVoiceState) GetUserVoiceChannel(_, _ snowflake.ID) (snowflake.ID, error) {
	return m.channelID, m.err
}

type mockRequesters struct {
	user usecases.UserContext
	err  error
}

func (m *mockRequesters) GetRequester(_, _ snowflake.ID) (usecases.UserContext, error) {
	return m.user, m.err
}

var errLookup = errors.New("lookup failed")

func newInteraction(name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   testGuildID.String(),
			ChannelID: testTextChannelID.String(),
			Member: &discordgo.Member{
				User: &discordgo.User{ID: testUserID.String(), Username: "alice"},
			},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
		},
	}
}

func queryOption(query string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "query",
		Type:  discordgo.ApplicationCommandOptionString,
		Value: query,
	}
}

func respondedEmbed(resp *discordgo.InteractionResponse) *discordgo.MessageEmbed {
	if resp == nil || resp.Data == nil || len(resp.Data.Embeds) == 0 {
		return nil
	}
	return resp.Data.Embeds[0]
}

func editedEmbed(edit *discordgo.WebhookEdit) *discordgo.MessageEmbed {
	if edit == nil || edit.Embeds == nil || len(*edit.Embeds) == 0 {
		return nil
	}
	return (*edit.Embeds)[0]
}
