package domain

import "time"

// Place is the persisted point-of-interest. ExternalID is the search API's key and never changes.
type Place struct {
	ID         int64
	ExternalID string
	Name       string
	Category   string
	Address    string
	Latitude   float64
	Longitude  float64
	Phone      *string
	PlaceURL   *string

	// curation, filled by the batch curator
	DateScore      *int
	MoodTags       []string
	PriceRange     *string
	BestTime       *string
	Recommendation *string

	CreatedAt time.Time
	UpdatedAt time.Time
	CuratedAt *time.Time
}

// Curated reports whether score and curated-at are both set.
func (p Place) Curated() bool { return p.DateScore != nil && p.CuratedAt != nil }

// BasicInfo is the subset of a place handed to the curation engine.
func (p Place) BasicInfo() PlaceBasicInfo {
	return PlaceBasicInfo{
		Name:       p.Name,
		Category:   p.Category,
		Address:    p.Address,
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
		ExternalID: p.ExternalID,
	}
}

// ApplyCuration copies an outcome onto the place. CuratedAt is only set the first time.
func (p *Place) ApplyCuration(o CurationOutcome, now time.Time) {
	score := o.DateScore
	p.DateScore = &score
	p.MoodTags = append([]string(nil), o.MoodTags...)
	p.PriceRange = &o.PriceRange
	p.BestTime = &o.BestTime
	p.Recommendation = &o.Recommendation
	if p.CuratedAt == nil {
		t := now
		p.CuratedAt = &t
	}
	p.UpdatedAt = now
}

type PlaceBasicInfo struct {
	Name       string
	Category   string
	Address    string
	Latitude   float64
	Longitude  float64
	ExternalID string
}

// SearchCandidate is one row from the map search API. Coordinates stay as text until mapped.
type SearchCandidate struct {
	ID                string
	Name              string
	CategoryName      string
	CategoryGroupCode string
	CategoryGroupName string
	Phone             string
	AddressName       string // lot-based
	RoadAddressName   string // road-based, preferred
	X, Y              string // longitude, latitude
	PlaceURL          string
	Distance          string
}

type SearchMeta struct {
	TotalCount    int
	PageableCount int
	IsEnd         bool
}

type SearchPage struct {
	Meta      SearchMeta
	Documents []SearchCandidate
}

// Analysis is the normalized model reply.
type Analysis struct {
	DateScore      int
	MoodTags       []string
	PriceRange     string
	BestTime       string
	Recommendation string
}

type CurationOutcome struct {
	DateScore      int
	MoodTags       []string
	PriceRange     string
	BestTime       string
	Recommendation string
	PlaceInfo      PlaceBasicInfo
}
