package app

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"placecurator/internal/domain"
)

const (
	fence       = "```"
	maxMoodTags = 3

	// column widths in characters, see migrations/0001_places.sql
	maxTagLen            = 64
	maxPriceRangeLen     = 255
	maxBestTimeLen       = 255
	maxRecommendationLen = 512
)

// NormalizeAnalysis turns the model's free-text reply into an Analysis.
// Code fences are stripped first. Missing fields take zero values; only
// text that is not valid JSON fails, with *domain.UnparsableAnalysisError.
func NormalizeAnalysis(raw string) (domain.Analysis, error) {
	text := stripFence(raw)
	if !json.Valid([]byte(text)) {
		var v any
		err := json.Unmarshal([]byte(text), &v)
		return domain.Analysis{}, &domain.UnparsableAnalysisError{Text: text, Err: err}
	}

	out := domain.Analysis{MoodTags: []string{}}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		// valid JSON but not an object: nothing to read
		return out, nil
	}

	out.DateScore = intField(fields["date_score"])
	out.MoodTags = tagsField(fields["mood_tags"])
	out.PriceRange = clip(textField(fields["price_range"]), maxPriceRangeLen)
	out.BestTime = clip(textField(fields["best_time"]), maxBestTimeLen)
	out.Recommendation = clip(textField(fields["recommendation"]), maxRecommendationLen)
	return out, nil
}

// stripFence removes a surrounding ``` fence and an optional language tag.
// The tag ends at the first whitespace or at the JSON itself: "```json\n{", "```json {" and "```json{" all work.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) < 2*len(fence) || !strings.HasPrefix(s, fence) || !strings.HasSuffix(s, fence) {
		return s
	}
	inner := s[len(fence) : len(s)-len(fence)]

	i := 0
	for i < len(inner) && isTagByte(inner[i]) {
		i++
	}
	if i > 0 && i < len(inner) && (isSpace(inner[i]) || inner[i] == '{' || inner[i] == '[') {
		inner = inner[i:]
	}
	return strings.TrimSpace(inner)
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

func isTagByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '-' || b == '_' || b == '+'
}

func intField(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(math.Trunc(f))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(math.Trunc(f))
		}
	}
	return 0
}

// textField reads a string; other scalars keep their JSON text, null and containers give "".
func textField(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	switch raw[0] {
	case '{', '[', 'n':
		return ""
	}
	return string(raw)
}

func tagsField(raw json.RawMessage) []string {
	tags := []string{}
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return tags
	}
	for _, it := range items {
		if len(tags) == maxMoodTags {
			break
		}
		tags = append(tags, clip(textField(it), maxTagLen))
	}
	return tags
}

// clip cuts s to at most n characters, never inside a rune.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
