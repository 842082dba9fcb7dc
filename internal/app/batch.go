package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"placecurator/internal/adapters/observability"
	"placecurator/internal/domain"
)

// BatchCurationService curates stored places and writes the results back.
type BatchCurationService struct {
	curator Curator
	repo    domain.PlaceRepository
	cache   domain.Cache
	now     func() time.Time
}

func NewBatchCurationService(c Curator, r domain.PlaceRepository, cache domain.Cache) *BatchCurationService {
	return &BatchCurationService{curator: c, repo: r, cache: cache, now: time.Now}
}

// RunAll curates every uncurated place, or the first limit of them when limit > 0.
// A failing place is counted and left untouched; the batch goes on. Only a failure
// to load the work list fails the run.
func (s *BatchCurationService) RunAll(ctx context.Context, limit int) (domain.CurationBatchOutcome, error) {
	start := time.Now()
	out := domain.CurationBatchOutcome{RunID: uuid.NewString()}
	l := log.With().Str("run_id", out.RunID).Str("batch", "curate").Logger()

	places, err := s.repo.ListUncurated(ctx)
	if err != nil {
		out.Elapsed = time.Since(start)
		l.Error().Err(err).Msg("list uncurated places failed")
		return out, fmt.Errorf("list uncurated places: %w", err)
	}
	if limit > 0 && limit < len(places) {
		places = places[:limit]
	}
	out.Total = len(places)
	l.Info().Int("total", out.Total).Int("limit", limit).Msg("batch curation starting")

	for i := range places {
		p := places[i]
		if _, err := s.curateAndSave(ctx, &p); err != nil {
			out.Failed++
			observability.ObserveCuration(false)
			l.Error().Err(err).Int64("id", p.ID).Str("name", p.Name).Msg("curation failed")
			continue
		}
		out.Succeeded++
		observability.ObserveCuration(true)
		l.Info().Int64("id", p.ID).Str("name", p.Name).Int("score", *p.DateScore).Msg("place curated")
	}

	out.Elapsed = time.Since(start)
	out.Message = fmt.Sprintf("Successfully curated %d places (%d failed, %d total) in %d seconds",
		out.Succeeded, out.Failed, out.Total, int64(out.Elapsed.Seconds()))
	observability.ObserveBatch("curate", out.Elapsed)
	l.Info().Int("succeeded", out.Succeeded).Int("failed", out.Failed).Dur("elapsed", out.Elapsed).Msg(out.Message)
	return out, nil
}

// RunOne curates a single stored place. A missing id yields domain.ErrNotFound and writes nothing.
func (s *BatchCurationService) RunOne(ctx context.Context, id int64) (domain.CurationOutcome, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.CurationOutcome{}, fmt.Errorf("place %d: %w", id, err)
	}
	o, err := s.curateAndSave(ctx, &p)
	observability.ObserveCuration(err == nil)
	if err != nil {
		return domain.CurationOutcome{}, err
	}
	log.Info().Int64("id", p.ID).Str("name", p.Name).Int("score", o.DateScore).Msg("place curated")
	return o, nil
}

// curateAndSave mutates p only after a successful curation and persists it.
func (s *BatchCurationService) curateAndSave(ctx context.Context, p *domain.Place) (domain.CurationOutcome, error) {
	o, err := s.curator.Curate(ctx, p.BasicInfo())
	if err != nil {
		return domain.CurationOutcome{}, err
	}
	p.ApplyCuration(o, s.now())
	if err := s.repo.Save(ctx, p); err != nil {
		return domain.CurationOutcome{}, fmt.Errorf("save place %d: %w", p.ID, err)
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, placeKey(p.ID))
		_ = s.cache.Del(ctx, statsKey)
	}
	return o, nil
}
