package music_player

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/sglre6355/redacbot/internal/bot"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/events"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
	"github.com/sglre6355/redacbot/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/redacbot/internal/modules/music_player/presentation/discord"
	"golang.org/x/time/rate"
)

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var (
	_ bot.ConfigurableModule = (*MusicPlayerModule)(nil)
	_ bot.AutocompleteModule = (*MusicPlayerModule)(nil)
)

// ErrSessionRequired is returned by Init when no Discord session is provided.
var ErrSessionRequired = errors.New("music_player module requires a Discord session")

// drainTimeout bounds how long Shutdown waits for pending history writes.
const drainTimeout = 10 * time.Second

// historySink is a ports.HistorySink that owns resources.
type historySink interface {
	ports.HistorySink
	Close() error
}

// MusicPlayerModule provides music playback commands.
type MusicPlayerModule struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	eventHandlers   *discord.EventHandlers
	autocomplete    *discord.AutocompleteHandler
	player          *usecases.PlayerService

	// Event-driven components
	eventBus          *events.Bus
	historyHandler    *events.HistoryEventHandler
	nowPlayingHandler *events.NowPlayingEventHandler
	historySink       historySink

	// Context for event handlers
	ctx    context.Context
	cancel context.CancelFunc
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"play":   m.commandHandlers.HandlePlay,
		"skip":   m.commandHandlers.HandleSkip,
		"stop":   m.commandHandlers.HandleStop,
		"queue":  m.commandHandlers.HandleQueue,
		"pause":  m.commandHandlers.HandlePause,
		"resume": m.commandHandlers.HandleResume,
		"np":     m.commandHandlers.HandleNowPlaying,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.eventHandlers.HandleVoiceServerUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.eventHandlers.HandleVoiceStateUpdate(s, event)
		},
	}
}

// AutocompleteHandlers returns the autocomplete handlers for this module.
func (m *MusicPlayerModule) AutocompleteHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"play": m.autocomplete.HandlePlay,
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		return ErrSessionRequired
	}
	if m.config == nil {
		if err := m.LoadConfig(); err != nil {
			return err
		}
	}
	cfg := m.config

	// Create cancellable context for event handlers
	m.ctx, m.cancel = context.WithCancel(context.Background())

	sink, err := openHistorySink(m.ctx, cfg.HistoryDBPath)
	if err != nil {
		m.cancel()
		return err
	}
	m.historySink = sink

	m.eventBus = events.NewBus(cfg.EventBufferSize)

	// Create infrastructure
	resolver := infrastructure.NewTrackResolver(infrastructure.TrackResolverConfig{
		YtdlpPath: cfg.YtdlpPath,
		Source:    domain.ParseSearchSource(cfg.SearchSource),
		Timeout:   cfg.ResolveTimeout,
		Rate:      rate.Limit(cfg.ResolveRate),
		Burst:     cfg.ResolveBurst,
	})
	pipelines := infrastructure.NewExecPipelineFactory(
		infrastructure.YtdlpExtractor(cfg.YtdlpPath),
		infrastructure.FFmpegTranscoder(cfg.FfmpegPath),
	)
	transport := infrastructure.NewDiscordVoiceTransport(deps.Session)
	notifier := infrastructure.NewNotifier(deps.Session, discord.NowPlayingEmbed)

	m.player = usecases.NewPlayerService(
		usecases.NewSessionRegistry(),
		resolver,
		pipelines,
		transport,
		m.eventBus,
		usecases.PlayerConfig{
			IdleTimeout:      cfg.IdleTimeout,
			ReconnectTimeout: cfg.ReconnectTimeout,
			ConnectTimeout:   cfg.ConnectTimeout,
		},
	)

	// Create application event handlers
	m.historyHandler = events.NewHistoryEventHandler(m.historySink, m.eventBus)
	m.nowPlayingHandler = events.NewNowPlayingEventHandler(notifier, m.eventBus)
	m.historyHandler.Start(m.ctx)
	m.nowPlayingHandler.Start(m.ctx)

	// Create presentation handlers
	m.commandHandlers = discord.NewCommandHandlers(
		m.player,
		infrastructure.NewVoiceStateProvider(deps.Session),
		infrastructure.NewDiscordRequesterProvider(deps.Session),
	)
	m.eventHandlers = discord.NewEventHandlers(transport)
	m.autocomplete = discord.NewAutocompleteHandler(resolver)

	slog.Info("music_player module initialized",
		"search_source", cfg.SearchSource,
		"history_db", cfg.HistoryDBPath != "",
	)

	return nil
}

func openHistorySink(ctx context.Context, path string) (historySink, error) {
	if path == "" {
		slog.Info("history database not configured, recording history to log only")
		return infrastructure.LogHistorySink{}, nil
	}
	return infrastructure.OpenSQLiteHistorySink(ctx, path)
}

// Shutdown cleans up module resources.
func (m *MusicPlayerModule) Shutdown() error {
	// Destroy sessions first so their final track-end events reach the bus
	if m.player != nil {
		m.player.Shutdown()
	}

	// Closing the bus lets the handlers drain what is buffered
	if m.eventBus != nil {
		m.eventBus.Close()
		m.waitForHandlers()
	}

	if m.cancel != nil {
		m.cancel()
	}

	if m.historySink != nil {
		return m.historySink.Close()
	}

	return nil
}

func (m *MusicPlayerModule) waitForHandlers() {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		if m.historyHandler != nil {
			m.historyHandler.Wait()
		}
		if m.nowPlayingHandler != nil {
			m.nowPlayingHandler.Wait()
		}
	}()

	select {
	case <-drained:
	case <-time.After(drainTimeout):
		slog.Warn("timed out draining music player events")
	}
}
