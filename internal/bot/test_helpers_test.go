package bot

import "github.com/bwmarrin/discordgo"

// stubModule is a test double for Module.
type stubModule struct {
	name          string
	commands      []*discordgo.ApplicationCommand
	handlers      map[string]InteractionHandler
	eventHandlers []EventHandler
	initErr       error
	shutErr       error

	// log, when set, receives "init:<name>" and "shutdown:<name>" entries.
	log *[]string
}

func (m *stubModule) Name() string                                   { return m.name }
func (m *stubModule) Commands() []*discordgo.ApplicationCommand      { return m.commands }
func (m *stubModule) CommandHandlers() map[string]InteractionHandler { return m.handlers }
func (m *stubModule) EventHandlers() []EventHandler                  { return m.eventHandlers }

func (m *stubModule) Init(ModuleDependencies) error {
	m.record("init")
	return m.initErr
}

func (m *stubModule) Shutdown() error {
	m.record("shutdown")
	return m.shutErr
}

func (m *stubModule) record(event string) {
	if m.log != nil {
		*m.log = append(*m.log, event+":"+m.name)
	}
}

// configurableStubModule records LoadConfig calls ahead of Init.
type configurableStubModule struct {
	stubModule
	loadErr error
}

func (m *configurableStubModule) LoadConfig() error {
	m.record("load")
	return m.loadErr
}

// autocompleteStubModule serves autocomplete handlers.
type autocompleteStubModule struct {
	stubModule
	autocomplete map[string]InteractionHandler
}

func (m *autocompleteStubModule) AutocompleteHandlers() map[string]InteractionHandler {
	return m.autocomplete
}

func interaction(typ discordgo.InteractionType, name string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: typ,
			Data: discordgo.ApplicationCommandInteractionData{Name: name},
		},
	}
}

func noopHandler(*discordgo.Session, *discordgo.InteractionCreate, Responder) error {
	return nil
}
