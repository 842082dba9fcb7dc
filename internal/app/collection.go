package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"placecurator/internal/adapters/observability"
	"placecurator/internal/domain"
	"placecurator/internal/shared"
)

// CollectionService runs every configured query term through the collector and stores new places.
type CollectionService struct {
	collector *Collector
	repo      domain.PlaceRepository
	cache     domain.Cache
	queries   []string
	pause     time.Duration
	sleep     func(context.Context, time.Duration) bool
	now       func() time.Time
}

func NewCollectionService(col *Collector, r domain.PlaceRepository, cache domain.Cache, cfg shared.CollectionConfig) *CollectionService {
	return &CollectionService{
		collector: col,
		repo:      r,
		cache:     cache,
		queries:   cfg.Queries(),
		pause:     cfg.QueryPause,
		sleep:     sleepCtx,
		now:       time.Now,
	}
}

// termResult is the outcome of one query term; err marks the term as failed.
type termResult struct {
	query     string
	attempted int
	collected int
	skipped   int
	invalid   int
	err       error
	aborted   bool // storage failed mid-term; the term counts as zero
}

// Run never fails as a whole: failed terms are logged, counted and skipped.
func (s *CollectionService) Run(ctx context.Context) domain.CollectionOutcome {
	start := time.Now()
	out := domain.CollectionOutcome{RunID: uuid.NewString()}
	l := log.With().Str("run_id", out.RunID).Str("batch", "collect").Logger()
	l.Info().Int("queries", len(s.queries)).Msg("place collection starting")

	for i, q := range s.queries {
		r := s.collectQuery(ctx, l, q)
		if r.aborted {
			r.attempted, r.collected, r.skipped, r.invalid = 0, 0, 0, 0
		}

		out.Attempted += r.attempted
		out.Collected += r.collected
		out.Skipped += r.skipped
		out.Invalid += r.invalid
		if r.err != nil {
			out.FailedQueries++
			l.Error().Err(r.err).Str("query", q).Msg("query failed")
		}

		if i < len(s.queries)-1 && !s.sleep(ctx, s.pause) {
			l.Warn().Err(ctx.Err()).Msg("collection interrupted")
			break
		}
	}

	if out.Collected > 0 && s.cache != nil {
		_ = s.cache.Del(ctx, statsKey)
	}

	out.Elapsed = time.Since(start)
	out.Message = fmt.Sprintf("Successfully collected %d places (%d skipped, %d total attempted) in %d seconds",
		out.Collected, out.Skipped, out.Attempted, int64(out.Elapsed.Seconds()))

	observability.ObserveCollected("collected", out.Collected)
	observability.ObserveCollected("skipped", out.Skipped-out.Invalid)
	observability.ObserveCollected("invalid", out.Invalid)
	observability.ObserveBatch("collect", out.Elapsed)
	l.Info().
		Int("collected", out.Collected).
		Int("skipped", out.Skipped).
		Int("invalid", out.Invalid).
		Int("attempted", out.Attempted).
		Int("failed_queries", out.FailedQueries).
		Dur("elapsed", out.Elapsed).
		Msg(out.Message)
	return out
}

func (s *CollectionService) collectQuery(ctx context.Context, l zerolog.Logger, query string) termResult {
	r := termResult{query: query}

	cands, err := s.collector.Collect(ctx, query)
	r.attempted = len(cands)
	if err != nil {
		// keep going with the pages that did arrive
		r.err = err
	}

	for _, c := range cands {
		exists, err := s.repo.ExistsByExternalID(ctx, c.ID)
		if err != nil {
			r.err = fmt.Errorf("exists %s: %w", c.ID, err)
			r.aborted = true
			return r
		}
		if exists {
			l.Debug().Str("external_id", c.ID).Str("name", c.Name).Msg("place already exists")
			r.skipped++
			continue
		}

		p, err := candidateToPlace(c, s.now())
		if err != nil {
			l.Warn().Err(err).Str("external_id", c.ID).Str("name", c.Name).Msg("invalid candidate skipped")
			r.invalid++
			r.skipped++
			continue
		}

		if err := s.repo.Save(ctx, &p); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				// inserted by a concurrent run between the check and the save
				r.skipped++
				continue
			}
			r.err = fmt.Errorf("save %s: %w", c.ID, err)
			r.aborted = true
			return r
		}
		r.collected++
		l.Debug().Str("external_id", p.ExternalID).Int64("id", p.ID).Str("name", p.Name).Msg("place saved")
	}

	l.Info().Str("query", query).Int("attempted", r.attempted).Int("collected", r.collected).
		Int("skipped", r.skipped).Msg("query done")
	return r
}
