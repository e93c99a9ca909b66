package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sagaforge/saga-engine/internal/services"
	"github.com/sagaforge/saga-engine/internal/services/events"
	"github.com/sagaforge/saga-engine/internal/services/queue"
	"github.com/sagaforge/saga-engine/internal/storage"
	"github.com/sagaforge/saga-engine/pkg/state"
)

// Processor executes background jobs against a game state: summary
// refreshes and segment illustrations. Job failures never touch the
// game's resolved state.
type Processor struct {
	store       storage.Storage
	oracle      services.Oracle
	illustrator services.Illustrator
	broadcaster *events.Broadcaster
	logger      *slog.Logger
}

func NewProcessor(store storage.Storage, oracle services.Oracle, illustrator services.Illustrator, broadcaster *events.Broadcaster, logger *slog.Logger) *Processor {
	return &Processor{
		store:       store,
		oracle:      oracle,
		illustrator: illustrator,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Process dispatches one job by type.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobSummaryRefresh:
		return p.refreshSummary(ctx, job)
	case queue.JobIllustration:
		return p.illustrate(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// refreshSummary folds the most recent story segments into the rolling
// summary stored on the character. Recent events are weighted over the
// prior summary.
func (p *Processor) refreshSummary(ctx context.Context, job *queue.Job) error {
	gs, err := p.store.LoadGameState(ctx, job.GameStateID)
	if err != nil {
		return fmt.Errorf("failed to load game state: %w", err)
	}
	if gs == nil || gs.Character == nil {
		p.logger.Warn("Summary job for missing game, skipping", "game_id", job.GameStateID.String())
		return nil
	}

	recent := gs.RecentStory(state.SummaryInterval)
	texts := make([]string, 0, len(recent))
	for _, seg := range recent {
		if seg.Kind == state.SegmentStory {
			texts = append(texts, seg.Text)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	summary, err := p.oracle.Summarize(ctx, services.SummaryRequest{
		PriorSummary:   gs.Character.StorySummary,
		RecentSegments: texts,
	})
	if err != nil {
		return fmt.Errorf("failed to summarize: %w", err)
	}

	gs.Character.StorySummary = summary
	if err := p.store.SaveGameState(ctx, gs.ID, gs); err != nil {
		return fmt.Errorf("failed to save game state: %w", err)
	}

	if p.broadcaster != nil {
		if err := p.broadcaster.PublishSummaryUpdated(ctx, gs.ID); err != nil {
			p.logger.Error("Failed to publish summary event", "error", err, "game_id", gs.ID.String())
		}
	}
	p.logger.Info("Story summary refreshed", "game_id", gs.ID.String(), "total_segments", gs.TotalSegments)
	return nil
}

// illustrate renders an image for one story segment and attaches its
// URL. The segment is addressed by its global index; if the log has
// already evicted it, the job is dropped.
func (p *Processor) illustrate(ctx context.Context, job *queue.Job) error {
	url, err := p.illustrator.Illustrate(ctx, job.Prompt)
	if err != nil {
		return fmt.Errorf("failed to illustrate: %w", err)
	}
	if url == "" {
		return nil
	}

	gs, err := p.store.LoadGameState(ctx, job.GameStateID)
	if err != nil {
		return fmt.Errorf("failed to load game state: %w", err)
	}
	if gs == nil {
		p.logger.Warn("Illustration job for missing game, skipping", "game_id", job.GameStateID.String())
		return nil
	}

	// Translate the global segment index into a log position. Segments
	// older than the log window are gone.
	idx := len(gs.StoryLog) - (gs.TotalSegments - job.Segment)
	if idx < 0 || idx >= len(gs.StoryLog) {
		p.logger.Warn("Illustrated segment already evicted",
			"game_id", gs.ID.String(),
			"segment", job.Segment)
		return nil
	}
	gs.StoryLog[idx].Illustration = url

	if err := p.store.SaveGameState(ctx, gs.ID, gs); err != nil {
		return fmt.Errorf("failed to save game state: %w", err)
	}

	if p.broadcaster != nil {
		if err := p.broadcaster.PublishIllustrationReady(ctx, gs.ID, job.Segment, url); err != nil {
			p.logger.Error("Failed to publish illustration event", "error", err, "game_id", gs.ID.String())
		}
	}
	p.logger.Info("Illustration attached", "game_id", gs.ID.String(), "segment", job.Segment)
	return nil
}
