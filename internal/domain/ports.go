package domain

import "context"

type PlaceRepository interface {
	// Write paths
	Save(ctx context.Context, p *Place) error

	// Read paths
	ExistsByExternalID(ctx context.Context, externalID string) (bool, error)
	GetByExternalID(ctx context.Context, externalID string) (Place, error)
	Get(ctx context.Context, id int64) (Place, error)
	ListUncurated(ctx context.Context) ([]Place, error)
	List(ctx context.Context, q PlacesQuery) (PlacesPage, error)
	Stats(ctx context.Context) (PlaceStats, error)
}

type SearchClient interface {
	Search(ctx context.Context, query string, page, size int) (SearchPage, error)
}

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models & queries

// PlacesQuery filters a listing. Category wins over Curated when both are set.
type PlacesQuery struct {
	Page     int // zero-based
	Size     int
	Category *string
	Curated  *bool
}

type PlacesPage struct {
	Items         []Place
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
}

type PlaceStats struct {
	Total     int64
	Curated   int64
	Uncurated int64
}

// CurationRate is the curated share in percent.
func (s PlaceStats) CurationRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Curated) / float64(s.Total) * 100
}
