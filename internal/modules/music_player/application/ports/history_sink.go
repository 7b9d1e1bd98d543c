package ports

import (
	"context"

	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

// HistorySink stores listening history records.
type HistorySink interface {
	Record(ctx context.Context, record domain.HistoryRecord) error
}
