package infrastructure

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/lrstanley/go-ytdlp"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

// Ensure ExecPipelineFactory implements ports.PipelineFactory.
var _ ports.PipelineFactory = (*ExecPipelineFactory)(nil)

// Raw PCM format produced by the transcoder.
const (
	SampleRate = 48000
	Channels   = 2
)

// CommandBuilder prepares one stage of a pipeline for a track.
type CommandBuilder func(ctx context.Context, track *domain.Track) *exec.Cmd

// YtdlpExtractor streams the best audio format of a track to stdout.
func YtdlpExtractor(executable string) CommandBuilder {
	return func(ctx context.Context, track *domain.Track) *exec.Cmd {
		cmd := ytdlp.New().
			Format("bestaudio").
			NoPlaylist().
			Output("-").
			Quiet()
		if executable != "" {
			cmd.SetExecutable(executable)
		}
		return cmd.BuildCommand(ctx, track.URL)
	}
}

// FFmpegTranscoder converts stdin to s16le 48 kHz stereo on stdout.
func FFmpegTranscoder(executable string) CommandBuilder {
	if executable == "" {
		executable = "ffmpeg"
	}
	return func(ctx context.Context, _ *domain.Track) *exec.Cmd {
		return exec.CommandContext(ctx, executable,
			"-i", "pipe:0",
			"-analyzeduration", "0",
			"-loglevel", "0",
			"-f", "s16le",
			"-ar", "48000",
			"-ac", "2",
			"pipe:1",
		)
	}
}

// ExecPipelineFactory starts extractor and transcoder subprocesses chained by OS pipes.
type ExecPipelineFactory struct {
	extractor  CommandBuilder
	transcoder CommandBuilder
}

// NewExecPipelineFactory creates a new ExecPipelineFactory.
func NewExecPipelineFactory(extractor, transcoder CommandBuilder) *ExecPipelineFactory {
	return &ExecPipelineFactory{
		extractor:  extractor,
		transcoder: transcoder,
	}
}

// Start spawns both processes for track. Extractor stdout is connected to
// transcoder stdin through a kernel pipe, so a slow consumer stalls the
// extractor instead of growing a buffer. Stderr of both is discarded.
func (f *ExecPipelineFactory) Start(ctx context.Context, track *domain.Track) (ports.Pipeline, error) {
	extractor := f.extractor(ctx, track)
	transcoder := f.transcoder(ctx, track)

	linkR, linkW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor pipe: %w", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		closeFiles(linkR, linkW)
		return nil, fmt.Errorf("failed to create output pipe: %w", err)
	}

	extractor.Stdin = nil
	extractor.Stdout = linkW
	extractor.Stderr = nil
	transcoder.Stdin = linkR
	transcoder.Stdout = outW
	transcoder.Stderr = nil

	if err := extractor.Start(); err != nil {
		closeFiles(linkR, linkW, outR, outW)
		return nil, fmt.Errorf("failed to start extractor: %w", err)
	}
	if err := transcoder.Start(); err != nil {
		_ = extractor.Process.Kill()
		_ = extractor.Wait()
		closeFiles(linkR, linkW, outR, outW)
		return nil, fmt.Errorf("failed to start transcoder: %w", err)
	}

	// The children hold their own descriptors now.
	closeFiles(linkR, linkW, outW)

	p := &execPipeline{
		extractor:  extractor,
		transcoder: transcoder,
		output:     outR,
		done:       make(chan struct{}),
	}
	go p.reap()

	return p, nil
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

// execPipeline owns a running extractor/transcoder pair.
type execPipeline struct {
	extractor  *exec.Cmd
	transcoder *exec.Cmd
	output     *os.File

	stopOnce sync.Once
	done     chan struct{}
}

// Output returns the transcoder's PCM stream.
func (p *execPipeline) Output() io.Reader {
	return p.output
}

// Stop kills both processes and closes the output. Safe to call more than once.
func (p *execPipeline) Stop() {
	p.stopOnce.Do(func() {
		_ = p.extractor.Process.Kill()
		_ = p.transcoder.Process.Kill()
		_ = p.output.Close()
	})
}

// Done is closed once both processes have been reaped.
func (p *execPipeline) Done() <-chan struct{} {
	return p.done
}

func (p *execPipeline) reap() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = p.extractor.Wait()
	}()
	go func() {
		defer wg.Done()
		_ = p.transcoder.Wait()
	}()
	wg.Wait()
	close(p.done)
}
