package ports

import (
	"context"
	"io"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

// ConnectionState is the state of a voice connection.
type ConnectionState int

const (
	ConnectionSignalling ConnectionState = iota
	ConnectionConnecting
	ConnectionReady
	ConnectionDisconnected
	ConnectionDestroyed
)

// String returns the string representation of the state.
func (s ConnectionState) String() string {
	switch s {
	case ConnectionSignalling:
		return "signalling"
	case ConnectionConnecting:
		return "connecting"
	case ConnectionReady:
		return "ready"
	case ConnectionDisconnected:
		return "disconnected"
	case ConnectionDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// VoiceHandlers receives signals from a voice connection.
// Callbacks are invoked on their own goroutine and may call back into the connection.
type VoiceHandlers struct {
	// OnIdle is called when the stream started with resourceID reached its end.
	OnIdle func(resourceID uint64)
	// OnError is called when the stream started with resourceID failed.
	OnError func(resourceID uint64, err error)
	// OnDisconnect is called when the connection enters ConnectionDisconnected.
	OnDisconnect func()
}

// VoiceConnection is a joined voice channel with a bound audio player.
type VoiceConnection interface {
	// Play replaces the current stream with src. resourceID is echoed back in handler signals.
	Play(resourceID uint64, src io.Reader) error

	// Pause halts the stream. Returns false if nothing was playing.
	Pause() bool

	// Resume continues a paused stream. Returns false if it was not paused.
	Resume() bool

	// Stop ends the current stream without emitting a signal.
	Stop()

	// Status returns the player status.
	Status() domain.PlaybackStatus

	// State returns the connection state.
	State() ConnectionState

	// WaitForState blocks until the connection enters one of states or ctx ends.
	WaitForState(ctx context.Context, states ...ConnectionState) error

	// Destroy stops the stream and leaves the channel.
	Destroy()
}

// VoiceTransport opens voice connections.
type VoiceTransport interface {
	// Connect joins channelID in guildID.
	Connect(
		ctx context.Context,
		guildID, channelID snowflake.ID,
		handlers VoiceHandlers,
	) (VoiceConnection, error)
}
