package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"placecurator/internal/domain"
	"placecurator/internal/shared"
)

// Collector pages through the search API for one query, bounded by a per-query cap.
type Collector struct {
	search     domain.SearchClient
	pageSize   int
	maxResults int
	pause      time.Duration
	sleep      func(context.Context, time.Duration) bool
}

func NewCollector(s domain.SearchClient, cfg shared.CollectionConfig) *Collector {
	c := &Collector{search: s, pageSize: cfg.PageSize, maxResults: cfg.MaxResultsPerQuery, pause: cfg.PagePause, sleep: sleepCtx}
	if c.pageSize <= 0 {
		c.pageSize = 15
	}
	if c.maxResults <= 0 {
		c.maxResults = 25
	}
	return c
}

// Collect starts at page 1 and stops at the cap, the last page, or an empty page.
// A failing page ends pagination; what was gathered so far is returned with the error.
func (c *Collector) Collect(ctx context.Context, query string) ([]domain.SearchCandidate, error) {
	var out []domain.SearchCandidate
	for page := 1; len(out) < c.maxResults; page++ {
		res, err := c.search.Search(ctx, query, page, c.pageSize)
		if err != nil {
			return out, fmt.Errorf("collect %q page %d: %w", query, page, err)
		}
		if len(res.Documents) == 0 {
			break
		}

		docs := res.Documents
		if remaining := c.maxResults - len(out); len(docs) > remaining {
			docs = docs[:remaining]
		}
		out = append(out, docs...)

		if res.Meta.IsEnd || len(out) >= c.maxResults {
			break
		}
		// rate limit: only pause when another page follows
		if !c.sleep(ctx, c.pause) {
			return out, ctx.Err()
		}
	}

	log.Debug().Str("query", query).Int("count", len(out)).Msg("query collected")
	return out, nil
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
