package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"placecurator/internal/domain"
)

const statsKey = "places:stats"

func placeKey(id int64) string { return fmt.Sprintf("place:%d", id) }

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// candidateToPlace maps a search row to a new, uncurated place.
// The road address wins when present; x/y must parse as floats.
func candidateToPlace(c domain.SearchCandidate, now time.Time) (domain.Place, error) {
	lon, err := parseCoord("x", c.X)
	if err != nil {
		return domain.Place{}, err
	}
	lat, err := parseCoord("y", c.Y)
	if err != nil {
		return domain.Place{}, err
	}

	addr := c.AddressName
	if strings.TrimSpace(c.RoadAddressName) != "" {
		addr = c.RoadAddressName
	}

	return domain.Place{
		ExternalID: c.ID,
		Name:       c.Name,
		Category:   c.CategoryName,
		Address:    addr,
		Latitude:   lat,
		Longitude:  lon,
		Phone:      ptrStr(strings.TrimSpace(c.Phone)),
		PlaceURL:   ptrStr(strings.TrimSpace(c.PlaceURL)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func parseCoord(field, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, &domain.NumericParseError{Field: field, Value: v, Err: err}
	}
	return f, nil
}
