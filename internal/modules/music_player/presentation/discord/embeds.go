package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/usecases"
)

// Embed colors.
const (
	colorPrimary = 0x7c3aed
	colorSuccess = 0x10b981
	colorError   = 0xef4444
	colorInfo    = 0x3b82f6
	colorQueue   = 0xf59e0b
)

// queuePreviewSize is the number of upcoming tracks listed by the queue embed.
const queuePreviewSize = 10

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func durationOrLive(track usecases.Track) string {
	if track.Duration == "" {
		return "Live"
	}
	return track.Duration
}

func channelOrUnknown(track usecases.Track) string {
	if track.Channel == "" {
		return "Unknown"
	}
	return track.Channel
}

func thumbnail(track usecases.Track) *discordgo.MessageEmbedThumbnail {
	if track.Thumbnail == "" {
		return nil
	}
	return &discordgo.MessageEmbedThumbnail{URL: track.Thumbnail}
}

func trackLink(track usecases.Track) string {
	return fmt.Sprintf("**[%s](%s)**", track.Title, track.URL)
}

// NowPlayingEmbed builds the embed announcing the track that started playing.
func NowPlayingEmbed(track usecases.Track) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎶 Now Playing",
		Description: trackLink(track),
		Color:       colorPrimary,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "⏱️ Duration", Value: durationOrLive(track), Inline: true},
			{Name: "📺 Channel", Value: channelOrUnknown(track), Inline: true},
		},
		Thumbnail: thumbnail(track),
		Timestamp: timestamp(),
	}
}

// AddedToQueueEmbed builds the embed for a track that was queued behind another.
func AddedToQueueEmbed(track usecases.Track, position int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "✅ Added to Queue",
		Description: trackLink(track),
		Color:       colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "⏱️ Duration", Value: durationOrLive(track), Inline: true},
			{Name: "#️⃣ Position", Value: fmt.Sprintf("%d", position), Inline: true},
		},
		Thumbnail: thumbnail(track),
		Timestamp: timestamp(),
	}
}

// QueueEmbed lists the current track and a preview of the upcoming ones.
func QueueEmbed(snapshot usecases.QueueSnapshot) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     "📜 Music Queue",
		Color:     colorQueue,
		Timestamp: timestamp(),
	}

	if snapshot.Current != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "🎶 Now Playing",
			Value: fmt.Sprintf("%s - %s", trackLink(*snapshot.Current), durationOrLive(*snapshot.Current)),
		})
	}

	if len(snapshot.Upcoming) == 0 {
		if snapshot.Current != nil {
			embed.Description = "_No more songs in the queue._"
		} else {
			embed.Description = "_The queue is empty._"
		}
		return embed
	}

	var sb strings.Builder
	for i, track := range snapshot.Upcoming {
		if i == queuePreviewSize {
			break
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "**%d.** [%s](%s) - %s", i+1, track.Title, track.URL, durationOrLive(track))
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Up Next",
		Value: sb.String(),
	})

	if remaining := len(snapshot.Upcoming) - queuePreviewSize; remaining > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("...and %d more", remaining),
		}
	}

	return embed
}

func errorEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ Error",
		Description: message,
		Color:       colorError,
		Timestamp:   timestamp(),
	}
}

func successEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: message,
		Color:       colorSuccess,
		Timestamp:   timestamp(),
	}
}

func infoEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: message,
		Color:       colorInfo,
		Timestamp:   timestamp(),
	}
}
