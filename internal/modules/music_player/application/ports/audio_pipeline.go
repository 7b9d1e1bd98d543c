package ports

import (
	"context"
	"io"

	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

// Pipeline is a running extractor → transcoder chain for one track.
type Pipeline interface {
	// Output returns the raw PCM stream: s16le, 48 kHz, stereo.
	Output() io.Reader

	// Stop kills both processes immediately. Safe to call more than once.
	Stop()
}

// PipelineFactory starts pipelines.
type PipelineFactory interface {
	// Start spawns the processes for track. A returned error means nothing is left running.
	Start(ctx context.Context, track *domain.Track) (Pipeline, error)
}
