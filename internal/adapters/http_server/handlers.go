package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"placecurator/internal/domain"
)

type PlaceReader interface {
	GetPlace(ctx context.Context, id int64) (domain.Place, error)
	ListPlaces(ctx context.Context, q domain.PlacesQuery) (domain.PlacesPage, error)
	Stats(ctx context.Context) (domain.PlaceStats, error)
}

type CollectionRunner interface {
	Run(ctx context.Context) domain.CollectionOutcome
}

type BatchCurator interface {
	RunAll(ctx context.Context, limit int) (domain.CurationBatchOutcome, error)
	RunOne(ctx context.Context, id int64) (domain.CurationOutcome, error)
}

type PlaceCurator interface {
	Curate(ctx context.Context, info domain.PlaceBasicInfo) (domain.CurationOutcome, error)
}

// Handlers serves /api/places. Concurrent triggers of the same batch share one run.
type Handlers struct {
	Q       PlaceReader
	Collect CollectionRunner
	Batch   BatchCurator
	Engine  PlaceCurator

	flight singleflight.Group
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/api/places", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.readTimeout > 0 {
				r.Use(Timeout(s.readTimeout))
			}
			r.Get("/", h.listPlaces)
			r.Get("/stats", h.stats)
			r.Get("/{id}", h.getPlace)
		})

		// long running; detached from the request context
		r.Post("/collect", h.collect)
		r.Post("/curate-all", h.curateAll)
		r.Post("/{id}/curate", h.curateOne)
		r.Post("/curate", h.curateDirect)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

// writeCached writes v with a weak ETag and answers 304 when the client already has it.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write body")
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handlers) getPlace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	p, err := h.Q.GetPlace(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "place not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("get place failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not load place")
		return
	}
	writeCached(w, r, toPlaceDTO(p))
}

func (h *Handlers) listPlaces(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	var q domain.PlacesQuery

	if v := qs.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid page", "page must be a non-negative integer")
			return
		}
		q.Page = n
	}
	if v := qs.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid size", "size must be a positive integer")
			return
		}
		q.Size = n
	}
	if v := strings.TrimSpace(qs.Get("category")); v != "" {
		q.Category = &v
	}
	if v := qs.Get("curated"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid curated", "curated must be true or false")
			return
		}
		q.Curated = &b
	}

	page, err := h.Q.ListPlaces(r.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("list places failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not list places")
		return
	}
	writeCached(w, r, toPageDTO(page))
}

func (h *Handlers) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Q.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("stats failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not compute stats")
		return
	}
	writeJSON(w, http.StatusOK, statsDTO{
		TotalPlaces:     st.Total,
		CuratedPlaces:   st.Curated,
		UncuratedPlaces: st.Uncurated,
		CurationRate:    st.CurationRate(),
	})
}

func (h *Handlers) collect(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	v, _, shared := h.flight.Do("collect", func() (any, error) {
		return h.Collect.Run(ctx), nil
	})
	if shared {
		log.Info().Msg("collect request joined a running collection")
	}
	o := v.(domain.CollectionOutcome)
	log.Info().Str("run_id", o.RunID).Int("collected", o.Collected).Int("failed_queries", o.FailedQueries).Msg("collect answered")
	writeJSON(w, http.StatusOK, collectionDTO{
		RunID:          o.RunID,
		CollectedCount: o.Collected,
		SkippedCount:   o.Skipped,
		InvalidCount:   o.Invalid,
		TotalAttempted: o.Attempted,
		FailedQueries:  o.FailedQueries,
		ElapsedSeconds: int64(o.Elapsed.Seconds()),
		Message:        o.Message,
	})
}

func (h *Handlers) curateAll(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	// one batch at a time whatever the limit; a joining caller gets the running batch's result
	ctx := context.WithoutCancel(r.Context())
	v, err, shared := h.flight.Do("curate-all", func() (any, error) {
		return h.Batch.RunAll(ctx, limit)
	})
	if shared {
		log.Info().Int("limit", limit).Msg("curate-all request joined a running batch")
	}
	if err != nil {
		log.Error().Err(err).Msg("batch curation failed")
		writeProblem(w, http.StatusInternalServerError, "Batch Failed", err.Error())
		return
	}
	o := v.(domain.CurationBatchOutcome)
	log.Info().Str("run_id", o.RunID).Int("succeeded", o.Succeeded).Int("failed", o.Failed).Msg("curate-all answered")
	writeJSON(w, http.StatusOK, batchDTO{
		RunID:          o.RunID,
		SuccessCount:   o.Succeeded,
		FailCount:      o.Failed,
		TotalCount:     o.Total,
		ElapsedSeconds: int64(o.Elapsed.Seconds()),
		Message:        o.Message,
	})
}

func (h *Handlers) curateOne(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	v, err, _ := h.flight.Do("curate:"+strconv.FormatInt(id, 10), func() (any, error) {
		return h.Batch.RunOne(ctx, id)
	})
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "place not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("curate place failed")
		writeProblem(w, http.StatusInternalServerError, "Curation Failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toCurationDTO(v.(domain.CurationOutcome)))
}

// curateDirect analyses a caller-supplied place without storing anything.
func (h *Handlers) curateDirect(w http.ResponseWriter, r *http.Request) {
	var in placeInfoDTO
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "body must be a JSON place")
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "name is required")
		return
	}

	o, err := h.Engine.Curate(context.WithoutCancel(r.Context()), in.toDomain())
	if err != nil {
		log.Error().Err(err).Str("name", in.Name).Msg("direct curation failed")
		writeProblem(w, http.StatusInternalServerError, "Curation Failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toCurationDTO(o))
}

// ---- response bodies ----

type placeDTO struct {
	ID             int64      `json:"id"`
	ExternalID     string     `json:"external_id"`
	PlaceName      string     `json:"place_name"`
	Category       string     `json:"category"`
	Address        string     `json:"address"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	Phone          *string    `json:"phone"`
	PlaceURL       *string    `json:"place_url"`
	DateScore      *int       `json:"date_score"`
	MoodTags       []string   `json:"mood_tags"`
	PriceRange     *string    `json:"price_range"`
	BestTime       *string    `json:"best_time"`
	Recommendation *string    `json:"recommendation"`
	Curated        bool       `json:"curated"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CuratedAt      *time.Time `json:"curated_at"`
}

func toPlaceDTO(p domain.Place) placeDTO {
	tags := p.MoodTags
	if tags == nil {
		tags = []string{}
	}
	return placeDTO{
		ID:             p.ID,
		ExternalID:     p.ExternalID,
		PlaceName:      p.Name,
		Category:       p.Category,
		Address:        p.Address,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		Phone:          p.Phone,
		PlaceURL:       p.PlaceURL,
		DateScore:      p.DateScore,
		MoodTags:       tags,
		PriceRange:     p.PriceRange,
		BestTime:       p.BestTime,
		Recommendation: p.Recommendation,
		Curated:        p.Curated(),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		CuratedAt:      p.CuratedAt,
	}
}

type pageDTO struct {
	Content       []placeDTO `json:"content"`
	Page          int        `json:"page"`
	Size          int        `json:"size"`
	TotalElements int64      `json:"total_elements"`
	TotalPages    int        `json:"total_pages"`
}

func toPageDTO(p domain.PlacesPage) pageDTO {
	items := make([]placeDTO, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, toPlaceDTO(it))
	}
	return pageDTO{Content: items, Page: p.Page, Size: p.Size, TotalElements: p.TotalElements, TotalPages: p.TotalPages}
}

type statsDTO struct {
	TotalPlaces     int64   `json:"total_places"`
	CuratedPlaces   int64   `json:"curated_places"`
	UncuratedPlaces int64   `json:"uncurated_places"`
	CurationRate    float64 `json:"curation_rate"`
}

type collectionDTO struct {
	RunID          string `json:"run_id"`
	CollectedCount int    `json:"collected_count"`
	SkippedCount   int    `json:"skipped_count"`
	InvalidCount   int    `json:"invalid_count"`
	TotalAttempted int    `json:"total_attempted"`
	FailedQueries  int    `json:"failed_queries"`
	ElapsedSeconds int64  `json:"elapsed_time_seconds"`
	Message        string `json:"message"`
}

type batchDTO struct {
	RunID          string `json:"run_id"`
	SuccessCount   int    `json:"success_count"`
	FailCount      int    `json:"fail_count"`
	TotalCount     int    `json:"total_count"`
	ElapsedSeconds int64  `json:"elapsed_time_seconds"`
	Message        string `json:"message"`
}

type placeInfoDTO struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Address    string  `json:"address"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	ExternalID string  `json:"external_id"`
}

func (d placeInfoDTO) toDomain() domain.PlaceBasicInfo {
	return domain.PlaceBasicInfo{
		Name:       d.Name,
		Category:   d.Category,
		Address:    d.Address,
		Latitude:   d.Latitude,
		Longitude:  d.Longitude,
		ExternalID: d.ExternalID,
	}
}

type curationDTO struct {
	DateScore      int          `json:"date_score"`
	MoodTags       []string     `json:"mood_tags"`
	PriceRange     string       `json:"price_range"`
	BestTime       string       `json:"best_time"`
	Recommendation string       `json:"recommendation"`
	PlaceInfo      placeInfoDTO `json:"place_info"`
}

func toCurationDTO(o domain.CurationOutcome) curationDTO {
	tags := o.MoodTags
	if tags == nil {
		tags = []string{}
	}
	i := o.PlaceInfo
	return curationDTO{
		DateScore:      o.DateScore,
		MoodTags:       tags,
		PriceRange:     o.PriceRange,
		BestTime:       o.BestTime,
		Recommendation: o.Recommendation,
		PlaceInfo: placeInfoDTO{
			Name:       i.Name,
			Category:   i.Category,
			Address:    i.Address,
			Latitude:   i.Latitude,
			Longitude:  i.Longitude,
			ExternalID: i.ExternalID,
		},
	}
}
