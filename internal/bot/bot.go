package bot

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/bwmarrin/discordgo"
)

// Embed colors for responses.
const (
	colorYellow = 0xFFFF00
	colorRed    = 0xFF0000
)

// Bot manages the Discord bot lifecycle and module coordination.
type Bot struct {
	config  *Config
	session *discordgo.Session
	modules []Module

	// initialized lists the modules whose Init succeeded, in order.
	initialized []Module

	handlers     map[string]InteractionHandler
	autocomplete map[string]InteractionHandler
}

// NewBot creates a new Bot instance with the given configuration.
func NewBot(cfg *Config) *Bot {
	return &Bot{
		config:       cfg,
		modules:      make([]Module, 0),
		handlers:     make(map[string]InteractionHandler),
		autocomplete: make(map[string]InteractionHandler),
	}
}

// LoadModules loads modules from the global registry.
func (b *Bot) LoadModules() {
	b.modules = Modules()
}

// Start initializes the modules, connects to Discord and registers commands.
func (b *Bot) Start() error {
	session, err := discordgo.New("Bot " + b.config.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	b.session = session
	b.session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	if err := b.initModules(); err != nil {
		return fmt.Errorf("failed to initialize modules: %w", err)
	}

	b.buildHandlerMap()
	b.session.AddHandler(b.handleInteraction)
	b.registerEventHandlers()

	if err := b.session.Open(); err != nil {
		b.shutdownModules()
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	slog.Info("started bot",
		"user_id", b.session.State.User.ID,
		"username", b.session.State.User.Username,
		"guild", b.config.GuildID,
	)

	return nil
}

// Stop shuts down the modules, then closes the Discord session.
func (b *Bot) Stop() error {
	b.shutdownModules()

	if b.session != nil {
		return b.session.Close()
	}

	return nil
}

// initModules loads each module's configuration and initializes it.
// When a module fails, the ones already initialized are shut down again.
func (b *Bot) initModules() error {
	deps := ModuleDependencies{
		Session: b.session,
	}

	for _, mod := range b.modules {
		if err := initModule(mod, deps); err != nil {
			b.shutdownModules()
			return err
		}
		b.initialized = append(b.initialized, mod)
		slog.Debug("initialized module", "module", mod.Name())
	}

	moduleNames := make([]string, len(b.initialized))
	for i, mod := range b.initialized {
		moduleNames[i] = mod.Name()
	}
	slog.Info("initialized modules", "modules", moduleNames)

	return nil
}

func initModule(mod Module, deps ModuleDependencies) error {
	if cm, ok := mod.(ConfigurableModule); ok {
		if err := cm.LoadConfig(); err != nil {
			return fmt.Errorf("failed to load %s module config: %w", mod.Name(), err)
		}
	}
	if err := mod.Init(deps); err != nil {
		return fmt.Errorf("failed to initialize %s module: %w", mod.Name(), err)
	}
	return nil
}

// shutdownModules shuts down initialized modules in reverse order.
func (b *Bot) shutdownModules() {
	for _, mod := range slices.Backward(b.initialized) {
		if err := mod.Shutdown(); err != nil {
			slog.Warn("failed to shutdown module", "module", mod.Name(), "error", err)
		}
	}
	b.initialized = nil
}

// buildHandlerMap builds the command name to handler mappings.
func (b *Bot) buildHandlerMap() {
	for _, mod := range b.modules {
		maps.Copy(b.handlers, mod.CommandHandlers())
		if am, ok := mod.(AutocompleteModule); ok {
			maps.Copy(b.autocomplete, am.AutocompleteHandlers())
		}
	}
}

// registerEventHandlers registers all module event handlers with the session.
func (b *Bot) registerEventHandlers() {
	for _, mod := range b.modules {
		for _, handler := range mod.EventHandlers() {
			b.session.AddHandler(handler)
		}
	}
}

// collectCommands gathers all commands from loaded modules.
func (b *Bot) collectCommands() []*discordgo.ApplicationCommand {
	var commands []*discordgo.ApplicationCommand
	for _, mod := range b.modules {
		commands = append(commands, mod.Commands()...)
	}
	return commands
}

// registerCommands registers all module commands with Discord, scoped to
// GuildID when it is set.
func (b *Bot) registerCommands() error {
	commands := b.collectCommands()

	for _, cmd := range commands {
		_, err := b.session.ApplicationCommandCreate(
			b.session.State.User.ID,
			b.config.GuildID, // Empty string registers commands globally
			cmd,
		)
		if err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
		slog.Debug("registered command", "command", cmd.Name, "guild", b.config.GuildID)
	}

	return nil
}

// handleInteraction routes incoming interactions to the appropriate handler.
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.dispatch(s, i, NewDiscordResponder(s, i.Interaction))
}

func (b *Bot) dispatch(s *discordgo.Session, i *discordgo.InteractionCreate, r trackingResponder) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.dispatchCommand(s, i, r)
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.dispatchAutocomplete(s, i, r)
	}
}

func (b *Bot) dispatchCommand(s *discordgo.Session, i *discordgo.InteractionCreate, r trackingResponder) {
	cmdName := i.ApplicationCommandData().Name
	handler, ok := b.handlers[cmdName]
	if !ok {
		slog.Warn("found no handler for command", "command", cmdName)
		replyWithEmbed(r, "Unknown Command", "This command is not recognized.", colorYellow)
		return
	}

	if err := handler(s, i, r); err != nil {
		slog.Error("failed to handle command", "command", cmdName, "error", err)
		replyWithEmbed(r, "Error", "An error occurred while processing your command.", colorRed)
	}
}

func (b *Bot) dispatchAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate, r trackingResponder) {
	cmdName := i.ApplicationCommandData().Name
	handler, ok := b.autocomplete[cmdName]
	if !ok {
		return
	}

	if err := handler(s, i, r); err != nil {
		slog.Debug("failed to answer autocomplete", "command", cmdName, "error", err)
	}
}

// replyWithEmbed answers the interaction with an embed, editing the original
// response when the interaction was already acknowledged.
func replyWithEmbed(r trackingResponder, title, description string, color int) {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
	}

	var err error
	if r.Acknowledged() {
		err = r.Edit(&discordgo.WebhookEdit{
			Embeds: &[]*discordgo.MessageEmbed{embed},
		})
	} else {
		err = r.Respond(&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{embed},
			},
		})
	}
	if err != nil {
		slog.Error("failed to send embed response", "error", err)
	}
}
