package infrastructure

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
	"layeh.com/gopus"
)

const (
	frameSize    = 960 // 20ms at 48 kHz
	maxOpusBytes = 4000
	opusBitrate  = 128000

	opusSendTimeout  = 10 * time.Second
	readyPollPeriod  = 250 * time.Millisecond
	readyWaitTimeout = 30 * time.Second
)

var (
	ErrConnectionDestroyed = errors.New("voice connection destroyed")
	ErrOpusSendTimeout     = errors.New("timed out sending audio to voice connection")

	errStreamStopped = errors.New("stream stopped")
)

// voiceLink is the transport below a voice connection.
type voiceLink interface {
	// Send delivers one opus packet, giving up when stop is closed.
	Send(stop <-chan struct{}, packet []byte) error
	Speaking(speaking bool) error
	Ready() bool
	Disconnect() error
}

// frameEncoder encodes one PCM frame into an opus packet.
type frameEncoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

type linkJoiner func(ctx context.Context, guildID, channelID snowflake.ID) (voiceLink, error)

func newOpusEncoder() (frameEncoder, error) {
	enc, err := gopus.NewEncoder(SampleRate, Channels, gopus.Audio)
	if err != nil {
		return nil, err
	}
	enc.SetBitrate(opusBitrate)
	return enc, nil
}

// DiscordVoiceTransport joins Discord voice channels through discordgo.
type DiscordVoiceTransport struct {
	join       linkJoiner
	newEncoder func() (frameEncoder, error)

	readyPoll    time.Duration
	readyTimeout time.Duration

	mu    sync.Mutex
	conns map[snowflake.ID]*DiscordVoiceConnection
}

// NewDiscordVoiceTransport creates a new DiscordVoiceTransport.
func NewDiscordVoiceTransport(session *discordgo.Session) *DiscordVoiceTransport {
	return newDiscordVoiceTransport(discordJoiner(session), newOpusEncoder)
}

func newDiscordVoiceTransport(
	join linkJoiner,
	newEncoder func() (frameEncoder, error),
) *DiscordVoiceTransport {
	return &DiscordVoiceTransport{
		join:         join,
		newEncoder:   newEncoder,
		readyPoll:    readyPollPeriod,
		readyTimeout: readyWaitTimeout,
		conns:        make(map[snowflake.ID]*DiscordVoiceConnection),
	}
}

// Connect joins channelID self-deafened and returns a ready connection.
func (t *DiscordVoiceTransport) Connect(
	ctx context.Context,
	guildID, channelID snowflake.ID,
	handlers ports.VoiceHandlers,
) (ports.VoiceConnection, error) {
	t.mu.Lock()
	previous := t.conns[guildID]
	t.mu.Unlock()
	if previous != nil {
		previous.Destroy()
	}

	link, err := t.join(ctx, guildID, channelID)
	if err != nil {
		return nil, err
	}

	conn := &DiscordVoiceConnection{
		guildID:      guildID,
		link:         link,
		newEncoder:   t.newEncoder,
		handlers:     handlers,
		readyPoll:    t.readyPoll,
		readyTimeout: t.readyTimeout,
		state:        ports.ConnectionReady,
		changed:      make(chan struct{}),
		onDestroy:    t.remove,
	}

	t.mu.Lock()
	t.conns[guildID] = conn
	t.mu.Unlock()

	return conn, nil
}

// HandleVoiceStateUpdate applies a voice state change of the bot user.
// An empty channelID means the bot was removed from voice.
func (t *DiscordVoiceTransport) HandleVoiceStateUpdate(guildID snowflake.ID, channelID string) {
	conn := t.get(guildID)
	if conn == nil {
		return
	}

	if channelID == "" {
		conn.setState(ports.ConnectionDisconnected)
		return
	}
	if conn.State() == ports.ConnectionDisconnected {
		conn.setState(ports.ConnectionSignalling)
	}
}

// HandleVoiceServerUpdate marks the guild's connection as reconnecting to a
// new voice server and watches for it to become ready again.
func (t *DiscordVoiceTransport) HandleVoiceServerUpdate(guildID snowflake.ID) {
	conn := t.get(guildID)
	if conn == nil {
		return
	}

	conn.setState(ports.ConnectionConnecting)
	go conn.awaitReady(conn.readyPoll, conn.readyTimeout)
}

func (t *DiscordVoiceTransport) get(guildID snowflake.ID) *DiscordVoiceConnection {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[guildID]
}

func (t *DiscordVoiceTransport) remove(conn *DiscordVoiceConnection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conns[conn.guildID] == conn {
		delete(t.conns, conn.guildID)
	}
}

// DiscordVoiceConnection streams PCM from a pipeline as opus into a voice channel.
type DiscordVoiceConnection struct {
	guildID    snowflake.ID
	link       voiceLink
	newEncoder func() (frameEncoder, error)
	handlers   ports.VoiceHandlers
	onDestroy  func(*DiscordVoiceConnection)

	readyPoll    time.Duration
	readyTimeout time.Duration

	mu      sync.Mutex
	state   ports.ConnectionState
	changed chan struct{}
	stream  *audioStream
}

type audioStream struct {
	id       uint64
	src      io.Reader
	paused   bool
	resume   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func (s *audioStream) halt() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Play replaces the current stream with src.
func (c *DiscordVoiceConnection) Play(resourceID uint64, src io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == ports.ConnectionDestroyed {
		return ErrConnectionDestroyed
	}
	if c.stream != nil {
		c.stream.halt()
	}

	st := &audioStream{
		id:   resourceID,
		src:  src,
		stop: make(chan struct{}),
	}
	c.stream = st
	go c.run(st)

	return nil
}

// Pause halts the current stream.
func (c *DiscordVoiceConnection) Pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil || c.stream.paused {
		return false
	}
	c.stream.paused = true
	c.stream.resume = make(chan struct{})
	return true
}

// Resume continues a paused stream.
func (c *DiscordVoiceConnection) Resume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil || !c.stream.paused {
		return false
	}
	c.stream.paused = false
	close(c.stream.resume)
	return true
}

// Stop ends the current stream without emitting a signal.
func (c *DiscordVoiceConnection) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		c.stream.halt()
		c.stream = nil
	}
}

// Status returns the player status.
func (c *DiscordVoiceConnection) Status() domain.PlaybackStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.stream == nil:
		return domain.StatusIdle
	case c.stream.paused:
		return domain.StatusPaused
	default:
		return domain.StatusPlaying
	}
}

// State returns the connection state.
func (c *DiscordVoiceConnection) State() ports.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// WaitForState blocks until the connection enters one of states or ctx ends.
func (c *DiscordVoiceConnection) WaitForState(ctx context.Context, states ...ports.ConnectionState) error {
	for {
		c.mu.Lock()
		current, changed := c.state, c.changed
		c.mu.Unlock()

		if slices.Contains(states, current) {
			return nil
		}
		if current == ports.ConnectionDestroyed {
			return ErrConnectionDestroyed
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Destroy stops the stream and leaves the channel.
func (c *DiscordVoiceConnection) Destroy() {
	c.mu.Lock()
	if c.state == ports.ConnectionDestroyed {
		c.mu.Unlock()
		return
	}
	if c.stream != nil {
		c.stream.halt()
		c.stream = nil
	}
	c.state = ports.ConnectionDestroyed
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()

	if c.onDestroy != nil {
		c.onDestroy(c)
	}
	if err := c.link.Disconnect(); err != nil {
		slog.Warn("failed to leave voice channel", "guild", c.guildID, "error", err)
	}
}

func (c *DiscordVoiceConnection) setState(state ports.ConnectionState) {
	c.mu.Lock()
	if c.state == ports.ConnectionDestroyed || c.state == state {
		c.mu.Unlock()
		return
	}
	previous := c.state
	c.state = state
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()

	slog.Debug("voice connection state changed",
		"guild", c.guildID,
		"from", previous,
		"to", state,
	)

	if state == ports.ConnectionDisconnected && c.handlers.OnDisconnect != nil {
		go c.handlers.OnDisconnect()
	}
}

// awaitReady polls the link while the connection is reconnecting.
func (c *DiscordVoiceConnection) awaitReady(period, timeout time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	deadline := time.After(timeout)

	for {
		if c.State() != ports.ConnectionConnecting {
			return
		}
		if c.link.Ready() {
			c.setState(ports.ConnectionReady)
			return
		}

		select {
		case <-ticker.C:
		case <-deadline:
			c.setState(ports.ConnectionDisconnected)
			return
		}
	}
}

// run encodes src frame by frame until it ends, fails, or the stream is halted.
func (c *DiscordVoiceConnection) run(st *audioStream) {
	enc, err := c.newEncoder()
	if err != nil {
		c.finish(st, fmt.Errorf("failed to create opus encoder: %w", err))
		return
	}

	_ = c.link.Speaking(true)
	defer func() { _ = c.link.Speaking(false) }()

	buf := make([]byte, frameSize*Channels*2)
	pcm := make([]int16, frameSize*Channels)

	for {
		if !c.waitIfPaused(st) {
			return
		}

		if _, err := io.ReadFull(st.src, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				c.finish(st, nil)
			} else {
				c.finish(st, fmt.Errorf("failed to read pcm: %w", err))
			}
			return
		}
		for i := range pcm {
			pcm[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
		}

		packet, err := enc.Encode(pcm, frameSize, maxOpusBytes)
		if err != nil {
			c.finish(st, fmt.Errorf("failed to encode opus: %w", err))
			return
		}

		if !c.send(st, packet) {
			return
		}
	}
}

// send delivers packet, holding the stream while the link reconnects.
// Returns false once the stream is over.
func (c *DiscordVoiceConnection) send(st *audioStream, packet []byte) bool {
	for {
		err := c.link.Send(st.stop, packet)
		switch {
		case err == nil:
			return true
		case errors.Is(err, errStreamStopped):
			return false
		case errors.Is(err, ErrOpusSendTimeout) && !c.link.Ready():
			if !c.awaitLink(st) {
				return false
			}
		default:
			c.finish(st, err)
			return false
		}
	}
}

// awaitLink moves a ready connection to connecting after the link dropped
// underneath it, then blocks until the link is ready again. Returns false
// once st is halted, which Destroy does when the link never comes back.
func (c *DiscordVoiceConnection) awaitLink(st *audioStream) bool {
	if c.State() == ports.ConnectionReady {
		slog.Warn("voice link dropped, holding stream", "guild", c.guildID)
		c.setState(ports.ConnectionConnecting)
		go c.awaitReady(c.readyPoll, c.readyTimeout)
	}

	ticker := time.NewTicker(c.readyPoll)
	defer ticker.Stop()

	for {
		if c.link.Ready() {
			c.setState(ports.ConnectionReady)
			return true
		}

		select {
		case <-st.stop:
			return false
		case <-ticker.C:
		}
	}
}

// waitIfPaused blocks while st is paused. Returns false once st is halted.
func (c *DiscordVoiceConnection) waitIfPaused(st *audioStream) bool {
	select {
	case <-st.stop:
		return false
	default:
	}

	c.mu.Lock()
	paused, resume := st.paused, st.resume
	c.mu.Unlock()
	if !paused {
		return true
	}

	select {
	case <-resume:
		return true
	case <-st.stop:
		return false
	}
}

// finish emits the end signal for st unless it was already replaced or stopped.
func (c *DiscordVoiceConnection) finish(st *audioStream, err error) {
	c.mu.Lock()
	if c.stream != st {
		c.mu.Unlock()
		return
	}
	c.stream = nil
	c.mu.Unlock()

	switch {
	case err != nil && c.handlers.OnError != nil:
		go c.handlers.OnError(st.id, err)
	case err == nil && c.handlers.OnIdle != nil:
		go c.handlers.OnIdle(st.id)
	}
}

// discordLink adapts *discordgo.VoiceConnection to voiceLink.
type discordLink struct {
	vc *discordgo.VoiceConnection
}

func discordJoiner(session *discordgo.Session) linkJoiner {
	type joinResult struct {
		vc  *discordgo.VoiceConnection
		err error
	}

	return func(ctx context.Context, guildID, channelID snowflake.ID) (voiceLink, error) {
		done := make(chan joinResult, 1)
		go func() {
			vc, err := session.ChannelVoiceJoin(guildID.String(), channelID.String(), false, true)
			done <- joinResult{vc: vc, err: err}
		}()

		select {
		case r := <-done:
			if r.err != nil {
				if r.vc != nil {
					_ = r.vc.Disconnect()
				}
				return nil, fmt.Errorf("failed to join voice channel: %w", r.err)
			}
			return &discordLink{vc: r.vc}, nil
		case <-ctx.Done():
			go func() {
				if r := <-done; r.vc != nil {
					_ = r.vc.Disconnect()
				}
			}()
			return nil, ctx.Err()
		}
	}
}

func (l *discordLink) Send(stop <-chan struct{}, packet []byte) error {
	timer := time.NewTimer(opusSendTimeout)
	defer timer.Stop()

	select {
	case l.vc.OpusSend <- packet:
		return nil
	case <-stop:
		return errStreamStopped
	case <-timer.C:
		return ErrOpusSendTimeout
	}
}

func (l *discordLink) Speaking(speaking bool) error {
	return l.vc.Speaking(speaking)
}

func (l *discordLink) Ready() bool {
	l.vc.RLock()
	defer l.vc.RUnlock()
	return l.vc.Ready
}

func (l *discordLink) Disconnect() error {
	return l.vc.Disconnect()
}

// Ensure DiscordVoiceTransport implements ports.VoiceTransport.
var _ ports.VoiceTransport = (*DiscordVoiceTransport)(nil)

// Ensure DiscordVoiceConnection implements ports.VoiceConnection.
var _ ports.VoiceConnection = (*DiscordVoiceConnection)(nil)
