package infrastructure

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

// Ensure DiscordRequesterProvider implements ports.RequesterProvider.
var (
	_ ports.RequesterProvider = (*DiscordRequesterProvider)(nil)
)

// DiscordRequesterProvider implements ports.RequesterProvider using a Discord session.
type DiscordRequesterProvider struct {
	session *discordgo.Session
}

// NewDiscordRequesterProvider creates a new DiscordRequesterProvider.
func NewDiscordRequesterProvider(session *discordgo.Session) *DiscordRequesterProvider {
	return &DiscordRequesterProvider{session: session}
}

// GetRequester looks up the member's username and the guild name,
// preferring the gateway cache over REST.
func (p *DiscordRequesterProvider) GetRequester(
	guildID, userID snowflake.ID,
) (domain.UserContext, error) {
	member, err := p.session.State.Member(guildID.String(), userID.String())
	if err != nil {
		member, err = p.session.GuildMember(guildID.String(), userID.String())
		if err != nil {
			return domain.UserContext{}, fmt.Errorf("failed to fetch guild member: %w", err)
		}
	}

	guildName := domain.UnknownTitle
	if guild, err := p.session.State.Guild(guildID.String()); err == nil && guild.Name != "" {
		guildName = guild.Name
	}

	return domain.UserContext{
		UserID:    userID,
		Username:  username(member),
		GuildName: guildName,
	}, nil
}

func username(member *discordgo.Member) string {
	if member.User == nil {
		return ""
	}
	return member.User.Username
}
