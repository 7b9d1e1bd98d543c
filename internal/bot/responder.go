package bot

import (
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
)

// Responder provides an abstraction for responding to Discord interactions.
// This interface enables testing handlers without a live Discord connection.
type Responder interface {
	// Respond sends a response to an interaction.
	Respond(response *discordgo.InteractionResponse) error

	// Edit replaces the original response, typically after a deferred Respond.
	Edit(edit *discordgo.WebhookEdit) error
}

// trackingResponder is a Responder that remembers whether the interaction
// has been acknowledged. Discord accepts a single initial response.
type trackingResponder interface {
	Responder
	Acknowledged() bool
}

// DiscordResponder implements Responder using a live Discord session.
type DiscordResponder struct {
	session      *discordgo.Session
	interaction  *discordgo.Interaction
	acknowledged atomic.Bool
}

// NewDiscordResponder creates a new DiscordResponder.
func NewDiscordResponder(s *discordgo.Session, i *discordgo.Interaction) *DiscordResponder {
	return &DiscordResponder{
		session:     s,
		interaction: i,
	}
}

// Respond sends a response to the interaction via Discord API.
func (r *DiscordResponder) Respond(response *discordgo.InteractionResponse) error {
	if err := r.session.InteractionRespond(r.interaction, response); err != nil {
		return err
	}
	r.acknowledged.Store(true)
	return nil
}

// Edit edits the original interaction response via Discord API.
func (r *DiscordResponder) Edit(edit *discordgo.WebhookEdit) error {
	_, err := r.session.InteractionResponseEdit(r.interaction, edit)
	return err
}

// Acknowledged reports whether an initial response was sent.
func (r *DiscordResponder) Acknowledged() bool {
	return r.acknowledged.Load()
}

// MockResponder is a test double for Responder.
type MockResponder struct {
	LastResponse *discordgo.InteractionResponse
	LastEdit     *discordgo.WebhookEdit
	Err          error
	// EditErr, when set, is returned by Edit instead of Err.
	EditErr error

	acknowledged bool
}

// Respond records the response for testing.
func (m *MockResponder) Respond(response *discordgo.InteractionResponse) error {
	m.LastResponse = response
	if m.Err == nil {
		m.acknowledged = true
	}
	return m.Err
}

// Edit records the edit for testing.
func (m *MockResponder) Edit(edit *discordgo.WebhookEdit) error {
	m.LastEdit = edit
	if m.EditErr != nil {
		return m.EditErr
	}
	return m.Err
}

// Acknowledged reports whether Respond succeeded.
func (m *MockResponder) Acknowledged() bool {
	return m.acknowledged
}
