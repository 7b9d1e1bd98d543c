package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/redacbot/internal/bot"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/ports"
)

const (
	// Discord accepts at most 25 choices and 100 characters per choice.
	maxChoices       = 25
	maxChoiceLength  = 100
	suggestionLimit  = 5
	minQueryLength   = 2
	autocompleteWait = 2500 * time.Millisecond
)

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	suggester ports.TrackSuggester
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(suggester ports.TrackSuggester) *AutocompleteHandler {
	return &AutocompleteHandler{suggester: suggester}
}

// HandlePlay answers autocomplete interactions for the play command.
func (h *AutocompleteHandler) HandlePlay(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx, cancel := context.WithTimeout(context.Background(), autocompleteWait)
	defer cancel()

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: h.playChoices(ctx, i),
		},
	})
}

// playChoices builds search suggestions for the focused query option.
// Each choice's value is the track URL so selecting it plays that exact track.
func (h *AutocompleteHandler) playChoices(
	ctx context.Context,
	i *discordgo.InteractionCreate,
) []*discordgo.ApplicationCommandOptionChoice {
	choices := []*discordgo.ApplicationCommandOptionChoice{}

	// Get the current query value
	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" && opt.Focused {
			query = opt.StringValue()
			break
		}
	}

	// Don't search for very short queries
	if len([]rune(query)) < minQueryLength {
		return choices
	}

	tracks, err := h.suggester.Suggest(ctx, query, suggestionLimit)
	if err != nil {
		slog.Debug("failed to load suggestions", "query", query, "error", err)
		return choices
	}

	for _, track := range tracks {
		if len(choices) == maxChoices {
			break
		}
		// Choice values share the 100 character limit.
		if len(track.URL) > maxChoiceLength {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(fmt.Sprintf("🎵 %s - %s (%s)", track.Title, track.Channel, track.Duration), maxChoiceLength),
			Value: track.URL,
		})
	}

	return choices
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
