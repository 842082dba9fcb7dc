package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"placecurator/internal/domain"
)

// Curator turns basic place info into a curation outcome.
type Curator interface {
	Curate(ctx context.Context, info domain.PlaceBasicInfo) (domain.CurationOutcome, error)
}

// CurationEngine asks the text generator for a date-suitability analysis of one place.
type CurationEngine struct {
	gen domain.TextGenerator
}

func NewCurationEngine(g domain.TextGenerator) *CurationEngine {
	return &CurationEngine{gen: g}
}

const curationPrompt = `You are an expert in date spots in Seoul.
Judge how suitable the place below is for a date.

Place:
- Name: %s
- Category: %s
- Address: %s

Reply with ONLY a JSON object in exactly this shape, no other text:
{
  "date_score": integer from 1 to 10 (date suitability),
  "mood_tags": ["#tag1", "#tag2", "#tag3"] (at most 3 mood hashtags),
  "price_range": "expected price per person (e.g. 10,000-20,000 KRW or free)",
  "best_time": "recommended time window (e.g. evening 6-9pm)",
  "recommendation": "one-line reason to go (under 20 characters)"
}

Consider:
- the name, category and location together
- atmosphere, accessibility and surroundings
- no reviews are available, so reason from typical characteristics`

// BuildPrompt is deterministic for a given place.
func BuildPrompt(info domain.PlaceBasicInfo) string {
	return fmt.Sprintf(curationPrompt, info.Name, info.Category, info.Address)
}

func (e *CurationEngine) Curate(ctx context.Context, info domain.PlaceBasicInfo) (domain.CurationOutcome, error) {
	text, err := e.gen.Generate(ctx, BuildPrompt(info))
	if err != nil {
		return domain.CurationOutcome{}, &domain.CurationFailedError{Place: info.Name, Err: err}
	}
	a, err := NormalizeAnalysis(text)
	if err != nil {
		return domain.CurationOutcome{}, &domain.CurationFailedError{Place: info.Name, Err: err}
	}

	log.Debug().Str("place", info.Name).Int("score", a.DateScore).Msg("place analyzed")
	return domain.CurationOutcome{
		DateScore:      a.DateScore,
		MoodTags:       a.MoodTags,
		PriceRange:     a.PriceRange,
		BestTime:       a.BestTime,
		Recommendation: a.Recommendation,
		PlaceInfo:      info,
	}, nil
}
