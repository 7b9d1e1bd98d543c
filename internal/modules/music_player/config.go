package music_player

import (
	"fmt"
	"time"

	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

// Config holds the music player module configuration.
type Config struct {
	YtdlpPath  string `env:"YTDLP_PATH"  envDefault:"yt-dlp"`
	FfmpegPath string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	// HistoryDBPath is the SQLite file for listening history.
	// When empty, history is written to the log only.
	HistoryDBPath string `env:"HISTORY_DB_PATH"`

	SearchSource string `env:"SEARCH_SOURCE" envDefault:"youtube"`

	ResolveTimeout   time.Duration `env:"RESOLVE_TIMEOUT"   envDefault:"15s"`
	IdleTimeout      time.Duration `env:"IDLE_TIMEOUT"      envDefault:"120s"`
	ReconnectTimeout time.Duration `env:"RECONNECT_TIMEOUT" envDefault:"5s"`
	ConnectTimeout   time.Duration `env:"CONNECT_TIMEOUT"   envDefault:"10s"`

	ResolveRate  float64 `env:"RESOLVE_RATE"  envDefault:"2"`
	ResolveBurst int     `env:"RESOLVE_BURST" envDefault:"5"`

	EventBufferSize int `env:"EVENT_BUFFER_SIZE" envDefault:"100"`
}

// Validate checks value ranges that env tags cannot express.
func (c *Config) Validate() error {
	switch domain.SearchSource(c.SearchSource) {
	case domain.SourceYouTube, domain.SourceYouTubeMusic:
	default:
		return fmt.Errorf("invalid SEARCH_SOURCE %q: must be %q or %q",
			c.SearchSource, domain.SourceYouTube, domain.SourceYouTubeMusic)
	}
	if c.ResolveTimeout <= 0 || c.IdleTimeout <= 0 || c.ReconnectTimeout <= 0 ||
		c.ConnectTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.ResolveRate <= 0 || c.ResolveBurst <= 0 {
		return fmt.Errorf("RESOLVE_RATE and RESOLVE_BURST must be positive")
	}
	if c.EventBufferSize <= 0 {
		return fmt.Errorf("EVENT_BUFFER_SIZE must be positive")
	}
	return nil
}
