package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"placecurator/internal/domain"
)

// ---- in-memory repository ----

type memRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]domain.Place
	saves  int

	existsErr error
	listErr   error
	saveErr   func(p *domain.Place) error
}

func newMemRepo(seed ...domain.Place) *memRepo {
	r := &memRepo{byID: map[int64]domain.Place{}}
	for _, p := range seed {
		p := p
		if err := r.Save(context.Background(), &p); err != nil {
			panic(err)
		}
	}
	r.saves = 0
	return r
}

func (r *memRepo) Save(ctx context.Context, p *domain.Place) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		if err := r.saveErr(p); err != nil {
			return err
		}
	}
	if p.ID == 0 {
		for _, e := range r.byID {
			if e.ExternalID == p.ExternalID {
				return domain.ErrDuplicate
			}
		}
		r.nextID++
		p.ID = r.nextID
	}
	cp := *p
	cp.MoodTags = append([]string(nil), p.MoodTags...)
	r.byID[p.ID] = cp
	r.saves++
	return nil
}

func (r *memRepo) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	_, err := r.GetByExternalID(ctx, externalID)
	return err == nil, nil
}

func (r *memRepo) GetByExternalID(ctx context.Context, externalID string) (domain.Place, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.ExternalID == externalID {
			return p, nil
		}
	}
	return domain.Place{}, domain.ErrNotFound
}

func (r *memRepo) Get(ctx context.Context, id int64) (domain.Place, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.Place{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *memRepo) all() []domain.Place {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Place, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memRepo) ListUncurated(ctx context.Context) ([]domain.Place, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Place
	for _, p := range r.all() {
		if !p.Curated() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memRepo) List(ctx context.Context, q domain.PlacesQuery) (domain.PlacesPage, error) {
	var items []domain.Place
	for _, p := range r.all() {
		switch {
		case q.Category != nil:
			if !strings.Contains(p.Category, *q.Category) {
				continue
			}
		case q.Curated != nil:
			if p.Curated() != *q.Curated {
				continue
			}
		}
		items = append(items, p)
	}
	total := len(items)
	from := q.Page * q.Size
	if from > total {
		from = total
	}
	to := from + q.Size
	if to > total {
		to = total
	}
	pages := 0
	if q.Size > 0 {
		pages = (total + q.Size - 1) / q.Size
	}
	return domain.PlacesPage{Items: items[from:to], Page: q.Page, Size: q.Size, TotalElements: int64(total), TotalPages: pages}, nil
}

func (r *memRepo) Stats(ctx context.Context) (domain.PlaceStats, error) {
	var st domain.PlaceStats
	for _, p := range r.all() {
		st.Total++
		if p.Curated() {
			st.Curated++
		} else {
			st.Uncurated++
		}
	}
	return st, nil
}

// ---- cache ----

type fakeCache struct {
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

// ---- search API ----

type searchCall struct {
	query      string
	page, size int
}

type fakeSearch struct {
	mu    sync.Mutex
	calls []searchCall
	fn    func(query string, page, size int) (domain.SearchPage, error)
}

func (f *fakeSearch) Search(ctx context.Context, query string, page, size int) (domain.SearchPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, searchCall{query, page, size})
	f.mu.Unlock()
	return f.fn(query, page, size)
}

func makeDocs(prefix string, n int) []domain.SearchCandidate {
	out := make([]domain.SearchCandidate, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.SearchCandidate{
			ID:              fmt.Sprintf("%s-%d", prefix, i),
			Name:            fmt.Sprintf("%s place %d", prefix, i),
			CategoryName:    "음식점 > 카페",
			AddressName:     "서울 강남구 역삼동 1",
			RoadAddressName: "서울 강남구 테헤란로 1",
			X:               "127.0276",
			Y:               "37.4979",
			Phone:           "02-000-0000",
			PlaceURL:        "http://place.map.kakao.com/1",
		})
	}
	return out
}

// ---- pauses ----

// pauseLog records requested pauses instead of sleeping.
type pauseLog struct {
	mu   sync.Mutex
	durs []time.Duration
}

func (p *pauseLog) sleep(ctx context.Context, d time.Duration) bool {
	p.mu.Lock()
	p.durs = append(p.durs, d)
	p.mu.Unlock()
	return ctx.Err() == nil
}

func (p *pauseLog) count(d time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, x := range p.durs {
		if x == d {
			n++
		}
	}
	return n
}

// ---- text generator ----

type fakeGen struct {
	prompts []string
	fn      func(prompt string) (string, error)
}

func (g *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.fn(prompt)
}

// ---- curator ----

type fakeCurator struct {
	fn func(info domain.PlaceBasicInfo) (domain.CurationOutcome, error)
}

func (c *fakeCurator) Curate(ctx context.Context, info domain.PlaceBasicInfo) (domain.CurationOutcome, error) {
	return c.fn(info)
}

func okOutcome(info domain.PlaceBasicInfo) (domain.CurationOutcome, error) {
	return domain.CurationOutcome{
		DateScore:      8,
		MoodTags:       []string{"#cozy"},
		PriceRange:     "free",
		BestTime:       "evening",
		Recommendation: "good",
		PlaceInfo:      info,
	}, nil
}

func ptr[T any](v T) *T { return &v }
