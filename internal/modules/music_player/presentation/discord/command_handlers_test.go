package discord

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/redacbot/internal/bot"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/usecases"
)

func TestHandlePlay(t *testing.T) {
	song := &usecases.Track{Title: "Song X", URL: "https://valid/url", Duration: "3:45"}
	queued := &usecases.Track{
		Title:         "Song Y",
		URL:           "https://valid/y",
		Duration:      "2:00",
		WasQueued:     true,
		QueuePosition: 2,
	}

	tests := []struct {
		name          string
		playTrack     *usecases.Track
		playErr       error
		expectTitle   string
		expectContain string
		expectColor   int
	}{
		{
			name:          "starts immediately",
			playTrack:     song,
			expectContain: "🎶 Playing **[Song X](https://valid/url)**",
			expectColor:   colorSuccess,
		},
		{
			name:          "queued",
			playTrack:     queued,
			expectTitle:   "✅ Added to Queue",
			expectContain: "**[Song Y](https://valid/y)**",
			expectColor:   colorSuccess,
		},
		{
			name:          "no results",
			playErr:       usecases.ErrNoResults,
			expectTitle:   "❌ Error",
			expectContain: "No results found for **some song**",
			expectColor:   colorError,
		},
		{
			name:          "voice connect failure",
			playErr:       fmt.Errorf("%w: timeout", usecases.ErrVoiceConnectFailed),
			expectTitle:   "❌ Error",
			expectContain: "Something went wrong",
			expectColor:   colorError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := &mockPlayer{playTrack: tt.playTrack, playErr: tt.playErr}
			h := NewCommandHandlers(
				player,
				&mockVoiceState{channelID: testVoiceChannelID},
				&mockRequesters{user: usecases.UserContext{UserID: testUserID, Username: "alice", GuildName: "Guild"}},
			)
			r := &bot.MockResponder{}

			err := h.HandlePlay(nil, newInteraction("play", queryOption("some song")), r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if r.LastResponse == nil ||
				r.LastResponse.Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
				t.Fatalf("expected deferred response, got %+v", r.LastResponse)
			}

			embed := editedEmbed(r.LastEdit)
			if embed == nil {
				t.Fatal("expected edited embed")
			}
			if embed.Title != tt.expectTitle {
				t.Errorf("expected title %q, got %q", tt.expectTitle, embed.Title)
			}
			if !strings.Contains(embed.Description, tt.expectContain) {
				t.Errorf("expected description to contain %q, got %q", tt.expectContain, embed.Description)
			}
			if embed.Color != tt.expectColor {
				t.Errorf("expected color %#x, got %#x", tt.expectColor, embed.Color)
			}

			input := player.playInput
			if input == nil {
				t.Fatal("expected Play to be called")
			}
			if input.GuildID != testGuildID || input.VoiceChannelID != testVoiceChannelID ||
				input.TextChannelID != testTextChannelID {
				t.Errorf("unexpected play input IDs: %+v", input)
			}
			if input.Query != "some song" {
				t.Errorf("expected query %q, got %q", "some song", input.Query)
			}
			if input.Requester.GuildName != "Guild" {
				t.Errorf("expected requester guild %q, got %q", "Guild", input.Requester.GuildName)
			}
		})
	}
}

func TestHandlePlay_QueuedPosition(t *testing.T) {
	player := &mockPlayer{playTrack: &usecases.Track{Title: "Y", URL: "u", WasQueued: true, QueuePosition: 3}}
	h := NewCommandHandlers(player, &mockVoiceState{channelID: testVoiceChannelID}, &mockRequesters{})
	r := &bot.MockResponder{}

	if err := h.HandlePlay(nil, newInteraction("play", queryOption("y")), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embed := editedEmbed(r.LastEdit)
	if embed == nil || len(embed.Fields) != 2 {
		t.Fatalf("expected two fields, got %+v", embed)
	}
	if embed.Fields[1].Value != "3" {
		t.Errorf("expected position %q, got %q", "3", embed.Fields[1].Value)
	}
}

func TestHandlePlay_EditFailureAfterDefer(t *testing.T) {
	player := &mockPlayer{playTrack: &usecases.Track{Title: "X", URL: "u"}}
	h := NewCommandHandlers(player, &mockVoiceState{channelID: testVoiceChannelID}, &mockRequesters{})
	r := &bot.MockResponder{EditErr: errors.New("unknown webhook")}

	if err := h.HandlePlay(nil, newInteraction("play", queryOption("x")), r); err != nil {
		t.Fatalf("expected edit failure to be absorbed, got %v", err)
	}

	if !r.Acknowledged() {
		t.Error("expected the interaction to be acknowledged")
	}
	if r.LastResponse.Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Errorf("expected deferred response, got %v", r.LastResponse.Type)
	}
	if player.playInput == nil {
		t.Error("expected Play to be called")
	}
}

func TestHandlePlay_UserNotInVoice(t *testing.T) {
	player := &mockPlayer{}
	h := NewCommandHandlers(player, &mockVoiceState{}, &mockRequesters{})
	r := &bot.MockResponder{}

	if err := h.HandlePlay(nil, newInteraction("play", queryOption("song")), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if player.playInput != nil {
		t.Error("expected Play not to be called")
	}
	embed := respondedEmbed(r.LastResponse)
	if embed == nil || embed.Description != "You need to be in a voice channel to play music!" {
		t.Errorf("unexpected response embed: %+v", embed)
	}
	if r.LastResponse.Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Error("expected ephemeral response")
	}
}

func TestHandlePlay_VoiceStateError(t *testing.T) {
	h := NewCommandHandlers(&mockPlayer{}, &mockVoiceState{err: errLookup}, &mockRequesters{})
	r := &bot.MockResponder{}

	err := h.HandlePlay(nil, newInteraction("play", queryOption("song")), r)
	if !errors.Is(err, errLookup) {
		t.Errorf("expected lookup error, got %v", err)
	}
}

func TestHandlePlay_RequesterFallback(t *testing.T) {
	player := &mockPlayer{playTrack: &usecases.Track{Title: "X", URL: "u"}}
	h := NewCommandHandlers(
		player,
		&mockVoiceState{channelID: testVoiceChannelID},
		&mockRequesters{err: errLookup},
	)
	r := &bot.MockResponder{}

	if err := h.HandlePlay(nil, newInteraction("play", queryOption("x")), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	requester := player.playInput.Requester
	if requester.UserID != testUserID || requester.Username != "alice" || requester.GuildName != "Unknown" {
		t.Errorf("unexpected fallback requester: %+v", requester)
	}
}

func TestHandlePlay_InvalidGuild(t *testing.T) {
	h := NewCommandHandlers(&mockPlayer{}, &mockVoiceState{}, &mockRequesters{})
	r := &bot.MockResponder{}

	i := newInteraction("play", queryOption("x"))
	i.GuildID = ""

	if err := h.HandlePlay(nil, i, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	embed := respondedEmbed(r.LastResponse)
	if embed == nil || embed.Description != "Invalid guild" {
		t.Errorf("unexpected response embed: %+v", embed)
	}
}

func TestSimpleCommands(t *testing.T) {
	tests := []struct {
		name     string
		player   *mockPlayer
		handle   func(h *CommandHandlers) bot.InteractionHandler
		expected string
		color    int
	}{
		{
			name:     "skip",
			player:   &mockPlayer{skipResult: true},
			handle:   func(h *CommandHandlers) bot.InteractionHandler { return h.HandleSkip },
			expected: "⏭️ Skipped!",
			color:    colorSuccess,
		},
		{
			name:     "skip nothing playing",
			player:   &mockPlayer{},
			handle:   func(h *CommandHandlers) bot.InteractionHandler { return h.HandleSkip },
			expected: "Nothing is playing right now.",
			color:    colorInfo,
		},
		{
			name:     "pause",
			player:   &mockPlayer{pauseResult: true},
			handle:   func(h *CommandHandlers) bot.InteractionHandler { return h.HandlePause },
			expected: "⏸️ Paused.",
			color:    colorSuccess,
		},
		{
			name:     "pause nothing playing",
			player:   &mockPlayer{},
			handle:   func(h *CommandHandlers) bot.InteractionHandler { return h.HandlePause },
			expected: "Nothing is playing right now.",
			color:    colorInfo,
		},
		{
			name:     "resume",
			player:   &mockPlayer{resumeResult: true},
			handle:   func(h *CommandHandlers) bot.InteractionHandler { return h.HandleResume },
			expected: "▶️ Resumed!",
			color:    colorSuccess,
		},
		{
			name:     "resume nothing paused",
			player:   &mockPlayer{},
			handle:   func(h *CommandHandlers) bot.InteractionHandler { return h.HandleResume },
			expected: "Nothing is paused right now.",
			color:    colorInfo,
		},
		{
			name:     "stop",
			player:   &mockPlayer{},
			handle:   func(h *CommandHandlers) bot.InteractionHandler { return h.HandleStop },
			expected: "⏹️ Stopped and left the channel.",
			color:    colorSuccess,
		},
		{
			name:     "np nothing playing",
			player:   &mockPlayer{},
			handle:   func(h *CommandHandlers) bot.InteractionHandler { return h.HandleNowPlaying },
			expected: "Nothing is playing right now.",
			color:    colorInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCommandHandlers(tt.player, &mockVoiceState{}, &mockRequesters{})
			r := &bot.MockResponder{}

			if err := tt.handle(h)(nil, newInteraction(tt.name), r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			embed := respondedEmbed(r.LastResponse)
			if embed == nil {
				t.Fatal("expected embed response")
			}
			if embed.Description != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, embed.Description)
			}
			if embed.Color != tt.color {
				t.Errorf("expected color %#x, got %#x", tt.color, embed.Color)
			}
		})
	}
}

func TestHandleStop_DestroysSession(t *testing.T) {
	player := &mockPlayer{}
	h := NewCommandHandlers(player, &mockVoiceState{}, &mockRequesters{})

	if err := h.HandleStop(nil, newInteraction("stop"), &bot.MockResponder{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(player.destroyed) != 1 || player.destroyed[0] != testGuildID {
		t.Errorf("expected guild %d to be destroyed, got %v", testGuildID, player.destroyed)
	}
}

func TestHandleNowPlaying(t *testing.T) {
	player := &mockPlayer{nowPlaying: &usecases.Track{
		Title:     "Song X",
		URL:       "https://valid/url",
		Duration:  "3:45",
		Channel:   "ChannelY",
		Thumbnail: "thumb.png",
	}}
	h := NewCommandHandlers(player, &mockVoiceState{}, &mockRequesters{})
	r := &bot.MockResponder{}

	if err := h.HandleNowPlaying(nil, newInteraction("np"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embed := respondedEmbed(r.LastResponse)
	if embed == nil || embed.Title != "🎶 Now Playing" {
		t.Fatalf("expected now playing embed, got %+v", embed)
	}
	if embed.Thumbnail == nil || embed.Thumbnail.URL != "thumb.png" {
		t.Errorf("expected thumbnail, got %+v", embed.Thumbnail)
	}
}

func TestHandleQueue(t *testing.T) {
	player := &mockPlayer{snapshot: usecases.QueueSnapshot{
		Current:  &usecases.Track{Title: "Now", URL: "u0", Duration: "1:00"},
		Upcoming: []usecases.Track{{Title: "Next", URL: "u1"}},
	}}
	h := NewCommandHandlers(player, &mockVoiceState{}, &mockRequesters{})
	r := &bot.MockResponder{}

	if err := h.HandleQueue(nil, newInteraction("queue"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embed := respondedEmbed(r.LastResponse)
	if embed == nil || embed.Title != "📜 Music Queue" {
		t.Fatalf("expected queue embed, got %+v", embed)
	}
	if len(embed.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(embed.Fields))
	}
	if embed.Fields[1].Value != "**1.** [Next](u1) - Live" {
		t.Errorf("unexpected upcoming list %q", embed.Fields[1].Value)
	}
}
