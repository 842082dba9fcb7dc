// Package kakao talks to the Kakao Local keyword search API.
package kakao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"placecurator/internal/adapters/observability"
	"placecurator/internal/domain"
)

// MaxPageSize is the largest page the upstream accepts.
const MaxPageSize = 15

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int, timeout time.Duration) (*Client, error) {
	if key == "" {
		return nil, errors.New("kakao: REST key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base: base,
		hc:   &http.Client{Timeout: timeout},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

type searchResponse struct {
	Meta struct {
		TotalCount    int  `json:"total_count"`
		PageableCount int  `json:"pageable_count"`
		IsEnd         bool `json:"is_end"`
	} `json:"meta"`
	Documents []document `json:"documents"`
}

type document struct {
	ID                string `json:"id"`
	PlaceName         string `json:"place_name"`
	CategoryName      string `json:"category_name"`
	CategoryGroupCode string `json:"category_group_code"`
	CategoryGroupName string `json:"category_group_name"`
	Phone             string `json:"phone"`
	AddressName       string `json:"address_name"`
	RoadAddressName   string `json:"road_address_name"`
	X                 string `json:"x"`
	Y                 string `json:"y"`
	PlaceURL          string `json:"place_url"`
	Distance          string `json:"distance"`
}

// Search fetches one page for query. page is 1-based; size is clamped to [1, MaxPageSize].
// Any non-2xx answer is returned as *domain.UpstreamError without retrying.
func (c *Client) Search(ctx context.Context, query string, page, size int) (domain.SearchPage, error) {
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if size < 1 {
		size = 1
	}
	if page < 1 {
		page = 1
	}
	if err := c.rl.Wait(ctx); err != nil {
		return domain.SearchPage{}, err
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"?"+q.Encode(), nil)
	if err != nil {
		return domain.SearchPage{}, err
	}
	req.Header.Set("Authorization", "KakaoAK "+c.key)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("kakao", "search", 0, time.Since(start))
		return domain.SearchPage{}, fmt.Errorf("kakao search %q page %d: %w", query, page, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("kakao", "search", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.SearchPage{}, &domain.UpstreamError{
			Service: "kakao",
			Status:  resp.StatusCode,
			Body:    strings.TrimSpace(string(b)),
		}
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return domain.SearchPage{}, fmt.Errorf("kakao search decode: %w", err)
	}
	return mapPage(sr), nil
}

func mapPage(sr searchResponse) domain.SearchPage {
	out := domain.SearchPage{
		Meta: domain.SearchMeta{
			TotalCount:    sr.Meta.TotalCount,
			PageableCount: sr.Meta.PageableCount,
			IsEnd:         sr.Meta.IsEnd,
		},
	}
	if len(sr.Documents) > 0 {
		out.Documents = make([]domain.SearchCandidate, 0, len(sr.Documents))
	}
	for _, d := range sr.Documents {
		out.Documents = append(out.Documents, domain.SearchCandidate{
			ID:                d.ID,
			Name:              d.PlaceName,
			CategoryName:      d.CategoryName,
			CategoryGroupCode: d.CategoryGroupCode,
			CategoryGroupName: d.CategoryGroupName,
			Phone:             d.Phone,
			AddressName:       d.AddressName,
			RoadAddressName:   d.RoadAddressName,
			X:                 d.X,
			Y:                 d.Y,
			PlaceURL:          d.PlaceURL,
			Distance:          d.Distance,
		})
	}
	return out
}
