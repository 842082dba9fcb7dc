package app

import (
	"context"
	"time"

	"placecurator/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type QueryService struct {
	repo     domain.PlaceRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.PlaceRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetPlace(ctx context.Context, id int64) (domain.Place, error) {
	key := placeKey(id)
	var p domain.Place
	if ok, _ := s.cache.Get(ctx, key, &p); ok {
		return p, nil
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Place{}, err
	}
	_ = s.cache.Set(ctx, key, p, int(s.cacheTTL.Seconds()))
	return p, nil
}

// ListPlaces is not cached; the page bounds are normalized here.
func (s *QueryService) ListPlaces(ctx context.Context, q domain.PlacesQuery) (domain.PlacesPage, error) {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.Size <= 0 {
		q.Size = defaultPageSize
	}
	if q.Size > maxPageSize {
		q.Size = maxPageSize
	}
	if q.Category != nil && *q.Category == "" {
		q.Category = nil
	}
	return s.repo.List(ctx, q)
}

func (s *QueryService) Stats(ctx context.Context) (domain.PlaceStats, error) {
	var st domain.PlaceStats
	if ok, _ := s.cache.Get(ctx, statsKey, &st); ok {
		return st, nil
	}
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return domain.PlaceStats{}, err
	}
	_ = s.cache.Set(ctx, statsKey, st, int(s.cacheTTL.Seconds()))
	return st, nil
}
