package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"placecurator/internal/app"
	"placecurator/internal/domain"
)

func TestGetPlace_CacheMissThenHit(t *testing.T) {
	repo := newMemRepo(domain.Place{ExternalID: "42", Name: "Tower", Category: "attraction"})
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	// Miss (first time, populates cache)
	p, err := q.GetPlace(context.Background(), 1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p.ID != 1 || p.Name != "Tower" {
		t.Fatalf("unexpected place: %+v", p)
	}

	// Mutate repo to ensure second read indeed comes from cache
	changed := p
	changed.Name = "SHOULD NOT SEE THIS"
	_ = repo.Save(context.Background(), &changed)

	// Hit (served from cache)
	p2, err := q.GetPlace(context.Background(), 1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p2.Name != "Tower" {
		t.Fatalf("expected cached name, got %s", p2.Name)
	}
}

func TestGetPlace_NotFound(t *testing.T) {
	q := app.NewQueryService(newMemRepo(), &fakeCache{}, time.Minute)
	if _, err := q.GetPlace(context.Background(), 7); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStats_CachedAndRate(t *testing.T) {
	now := time.Now()
	repo := newMemRepo(
		domain.Place{ExternalID: "a", DateScore: ptr(5), CuratedAt: &now},
		domain.Place{ExternalID: "b"},
		domain.Place{ExternalID: "c"},
		domain.Place{ExternalID: "d"},
	)
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, time.Minute)

	st, err := q.Stats(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if st.Total != 4 || st.Curated != 1 || st.Uncurated != 3 || st.CurationRate() != 25 {
		t.Fatalf("unexpected stats: %+v rate=%v", st, st.CurationRate())
	}
	if _, ok := cache.store["places:stats"]; !ok {
		t.Fatalf("stats should be cached")
	}
}

func TestListPlaces_NormalizesPaging(t *testing.T) {
	var seed []domain.Place
	for _, id := range []string{"a", "b", "c"} {
		seed = append(seed, domain.Place{ExternalID: id, Category: "음식점 > 카페"})
	}
	q := app.NewQueryService(newMemRepo(seed...), &fakeCache{}, time.Minute)

	page, err := q.ListPlaces(context.Background(), domain.PlacesQuery{Page: -1, Size: 0, Category: ptr("")})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if page.Page != 0 || page.Size != 20 || len(page.Items) != 3 || page.TotalElements != 3 {
		t.Fatalf("unexpected page: %+v", page)
	}

	big, _ := q.ListPlaces(context.Background(), domain.PlacesQuery{Size: 1000, Category: ptr("카페")})
	if big.Size != 100 || len(big.Items) != 3 {
		t.Fatalf("unexpected page: %+v", big)
	}
}
