package usecases

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

const (
	testGuildID        = snowflake.ID(1)
	testVoiceChannelID = snowflake.ID(100)
	testTextChannelID  = snowflake.ID(200)
)

var testRequester = domain.UserContext{
	UserID:    snowflake.ID(300),
	Username:  "alice",
	GuildName: "Test Guild",
}

func mockTrack(title string) *domain.Track {
	return &domain.Track{
		Title:       title,
		URL:         "https://example.com/" + title,
		Duration:    "3:45",
		Channel:     "Channel",
		SourceQuery: title,
	}
}

// mockResolver resolves any query whose text is a known title.
type mockResolver struct {
	mu     sync.Mutex
	tracks map[string]*domain.Track
	calls  int
}

func newMockResolver(titles ...string) *mockResolver {
	r := &mockResolver{tracks: make(map[string]*domain.Track)}
	for _, title := range titles {
		r.tracks[title] = mockTrack(title)
	}
	return r
}

func (m *mockResolver) Resolve(_ context.Context, query string) (*domain.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	track, ok := m.tracks[query]
	if !ok {
		return nil, domain.ErrTrackNotFound
	}
	c := *track
	return &c, nil
}

type mockPipeline struct {
	mu      sync.Mutex
	track   string
	stopped int
}

func (m *mockPipeline) Output() io.Reader {
	return bytes.NewReader(nil)
}

func (m *mockPipeline) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped++
}

func (m *mockPipeline) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped > 0
}

type mockPipelineFactory struct {
	mu       sync.Mutex
	failFor  map[string]bool
	started  []*mockPipeline
	attempts []string
}

func newMockPipelineFactory() *mockPipelineFactory {
	return &mockPipelineFactory{failFor: make(map[string]bool)}
}

func (m *mockPipelineFactory) Start(_ context.Context, track *domain.Track) (ports.Pipeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts = append(m.attempts, track.Title)
	if m.failFor[track.Title] {
		return nil, errors.New("exec: \"yt-dlp\": executable file not found")
	}
	p := &mockPipeline{track: track.Title}
	m.started = append(m.started, p)
	return p, nil
}

func (m *mockPipelineFactory) pipelines() []*mockPipeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*mockPipeline, len(m.started))
	copy(result, m.started)
	return result
}

// mockConnection is a voice connection whose signals are driven by the test.
type mockConnection struct {
	mu        sync.Mutex
	handlers  ports.VoiceHandlers
	plays     []uint64
	status    domain.PlaybackStatus
	stops     int
	destroyed bool
	waitErr   error
	playErr   error
	waitedFor []ports.ConnectionState
}

func (m *mockConnection) Play(resourceID uint64, _ io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playErr != nil {
		return m.playErr
	}
	m.plays = append(m.plays, resourceID)
	m.status = domain.StatusPlaying
	return nil
}

func (m *mockConnection) Pause() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != domain.StatusPlaying {
		return false
	}
	m.status = domain.StatusPaused
	return true
}

func (m *mockConnection) Resume() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != domain.StatusPaused {
		return false
	}
	m.status = domain.StatusPlaying
	return true
}

func (m *mockConnection) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.status = domain.StatusIdle
}

func (m *mockConnection) Status() domain.PlaybackStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *mockConnection) State() ports.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return ports.ConnectionDestroyed
	}
	return ports.ConnectionReady
}

func (m *mockConnection) WaitForState(ctx context.Context, states ...ports.ConnectionState) error {
	m.mu.Lock()
	err := m.waitErr
	m.waitedFor = states
	m.mu.Unlock()

	if err == nil {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockConnection) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed = true
}

// finishCurrent simulates the stream of the latest Play call reaching its end.
func (m *mockConnection) finishCurrent() {
	m.handlers.OnIdle(m.lastResourceID())
}

func (m *mockConnection) lastResourceID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.plays) == 0 {
		return 0
	}
	return m.plays[len(m.plays)-1]
}

func (m *mockConnection) isDestroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}

type mockTransport struct {
	mu         sync.Mutex
	connectErr error
	waitErr    error
	conns      []*mockConnection

	// connectBudget is the time left on the Connect context, or 0 without a deadline.
	connectBudget time.Duration
}

func (m *mockTransport) Connect(
	ctx context.Context,
	_, _ snowflake.ID,
	handlers ports.VoiceHandlers,
) (ports.VoiceConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		m.connectBudget = time.Until(deadline)
	}
	if m.connectErr != nil {
		return nil, m.connectErr
	}
	conn := &mockConnection{handlers: handlers, waitErr: m.waitErr}
	m.conns = append(m.conns, conn)
	return conn, nil
}

func (m *mockTransport) connections() []*mockConnection {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*mockConnection, len(m.conns))
	copy(result, m.conns)
	return result
}

func (m *mockTransport) lastConnection() *mockConnection {
	conns := m.connections()
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

type mockPublisher struct {
	mu       sync.Mutex
	enqueued []domain.TrackEnqueuedEvent
	started  []domain.PlaybackStartedEvent
	ended    []domain.TrackEndedEvent
}

func (m *mockPublisher) PublishTrackEnqueued(event domain.TrackEnqueuedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued = append(m.enqueued, event)
}

func (m *mockPublisher) PublishPlaybackStarted(event domain.PlaybackStartedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, event)
}

func (m *mockPublisher) PublishTrackEnded(event domain.TrackEndedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, event)
}

func (m *mockPublisher) endedEvents() []domain.TrackEndedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.TrackEndedEvent, len(m.ended))
	copy(result, m.ended)
	return result
}

func (m *mockPublisher) enqueuedEvents() []domain.TrackEnqueuedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.TrackEnqueuedEvent, len(m.enqueued))
	copy(result, m.enqueued)
	return result
}

func (m *mockPublisher) startedEvents() []domain.PlaybackStartedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.PlaybackStartedEvent, len(m.started))
	copy(result, m.started)
	return result
}

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	service   *PlayerService
	sessions  *SessionRegistry
	resolver  *mockResolver
	pipelines *mockPipelineFactory
	transport *mockTransport
	publisher *mockPublisher
	clock     *testClock
}

func newTestEnv(config PlayerConfig, titles ...string) *testEnv {
	env := &testEnv{
		sessions:  NewSessionRegistry(),
		resolver:  newMockResolver(titles...),
		pipelines: newMockPipelineFactory(),
		transport: &mockTransport{},
		publisher: &mockPublisher{},
		clock:     newTestClock(),
	}
	env.service = NewPlayerService(
		env.sessions,
		env.resolver,
		env.pipelines,
		env.transport,
		env.publisher,
		config,
	)
	env.service.now = env.clock.Now
	return env
}

func (e *testEnv) play(query string) (*domain.Track, error) {
	return e.service.Play(context.Background(), PlayInput{
		GuildID:        testGuildID,
		VoiceChannelID: testVoiceChannelID,
		TextChannelID:  testTextChannelID,
		Query:          query,
		Requester:      testRequester,
	})
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
