package bot

import "github.com/bwmarrin/discordgo"

// InteractionHandler handles a Discord interaction and returns a response.
// An error returned after the interaction was acknowledged is reported by
// editing the original response.
type InteractionHandler func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error

// EventHandler is a generic handler for any Discord event.
// It should be a function matching one of discordgo's handler signatures,
// e.g., func(s *discordgo.Session, v *discordgo.VoiceStateUpdate)
type EventHandler any

// ModuleDependencies provides dependencies that modules may need during initialization.
type ModuleDependencies struct {
	// Session is created but not yet opened when Init runs.
	Session *discordgo.Session
}

// Module defines the interface that all bot modules must implement.
type Module interface {
	// Name returns the unique identifier for this module.
	Name() string

	// Commands returns the slash commands that this module provides.
	Commands() []*discordgo.ApplicationCommand

	// CommandHandlers returns a map of command names to their handlers.
	CommandHandlers() map[string]InteractionHandler

	// EventHandlers returns gateway event handlers for this module.
	// Each handler should match a discordgo handler signature.
	EventHandlers() []EventHandler

	// Init initializes the module with the provided dependencies.
	Init(deps ModuleDependencies) error

	// Shutdown releases the module's resources. Modules are shut down in
	// reverse initialization order.
	Shutdown() error
}

// ConfigurableModule is an optional interface for modules that need configuration.
// Modules implementing this interface will have LoadConfig called before Init.
type ConfigurableModule interface {
	// LoadConfig loads and validates module-specific configuration.
	// Called before Init() and before Discord connection is established.
	// Should return an error if required configuration is missing or invalid.
	LoadConfig() error
}

// AutocompleteModule is an optional interface for modules whose commands
// offer option suggestions.
type AutocompleteModule interface {
	// AutocompleteHandlers returns a map of command names to the handlers
	// answering their autocomplete interactions.
	AutocompleteHandlers() map[string]InteractionHandler
}
