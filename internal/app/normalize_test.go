package app_test

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"placecurator/internal/app"
	"placecurator/internal/domain"
)

const towerReply = `{"date_score":9,"mood_tags":["#a","#b"],"price_range":"1000-2000","best_time":"evening","recommendation":"nice view"}`

func TestNormalizeAnalysis_Fences(t *testing.T) {
	want, err := app.NormalizeAnalysis(towerReply)
	if err != nil {
		t.Fatalf("plain: %v", err)
	}
	if want.DateScore != 9 || len(want.MoodTags) != 2 || want.Recommendation != "nice view" {
		t.Fatalf("unexpected plain parse: %+v", want)
	}

	cases := map[string]string{
		"json fence":         "```json\n" + towerReply + "\n```",
		"bare fence":         "```\n" + towerReply + "\n```",
		"padded":             "  \n```json\n" + towerReply + "\n```\n  ",
		"one line with tag":  "```json" + towerReply + "```",
		"one line bare":      "```" + towerReply + "```",
		"other language tag": "```javascript\n" + towerReply + "\n```",
		"surrounding spaces": "   " + towerReply + "   ",
		"tag then space":     "```json " + towerReply + "\n```",
		"tag then tab":       "```json\t" + towerReply + "```",
		"tag crlf":           "```json\r\n" + towerReply + "\r\n```",
	}
	for name, raw := range cases {
		got, err := app.NormalizeAnalysis(raw)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: got %+v, want %+v", name, got, want)
		}
	}
}

func TestNormalizeAnalysis_TagOnSameLineAsJSON(t *testing.T) {
	got, err := app.NormalizeAnalysis("```json {\"date_score\":7}\n```")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.DateScore != 7 {
		t.Fatalf("score: %d", got.DateScore)
	}
}

func TestNormalizeAnalysis_ClipsToColumnWidths(t *testing.T) {
	longTag := "#" + strings.Repeat("분위기", 40)
	longRec := strings.Repeat("노을이 아름다운 곳 ", 100)
	raw := fmt.Sprintf(`{"date_score":7,"mood_tags":[%q],"price_range":%q,"best_time":%q,"recommendation":%q}`,
		longTag, strings.Repeat("원", 300), strings.Repeat("밤", 300), longRec)

	got, err := app.NormalizeAnalysis(raw)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for name, tc := range map[string]struct {
		s   string
		max int
	}{
		"mood tag":       {got.MoodTags[0], 64},
		"price range":    {got.PriceRange, 255},
		"best time":      {got.BestTime, 255},
		"recommendation": {got.Recommendation, 512},
	} {
		if n := utf8.RuneCountInString(tc.s); n != tc.max || !utf8.ValidString(tc.s) {
			t.Fatalf("%s: %d runes (valid=%v), want %d", name, n, utf8.ValidString(tc.s), tc.max)
		}
	}
	if !strings.HasPrefix(longTag, got.MoodTags[0]) {
		t.Fatalf("tag should keep its prefix: %q", got.MoodTags[0])
	}
}

func TestNormalizeAnalysis_MissingFieldsDefault(t *testing.T) {
	got, err := app.NormalizeAnalysis(`{"date_score": 6}`)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.MoodTags == nil || len(got.MoodTags) != 0 {
		t.Fatalf("expected empty, non-nil tag list, got %#v", got.MoodTags)
	}
	if got.DateScore != 6 || got.PriceRange != "" || got.BestTime != "" || got.Recommendation != "" {
		t.Fatalf("unexpected defaults: %+v", got)
	}

	empty, err := app.NormalizeAnalysis(`{}`)
	if err != nil || empty.DateScore != 0 {
		t.Fatalf("empty object: %+v, %v", empty, err)
	}
}

func TestNormalizeAnalysis_LooseTypes(t *testing.T) {
	got, err := app.NormalizeAnalysis(`{"date_score":"8","mood_tags":["#x",2,"#y","#z"],"price_range":0,"best_time":null,"recommendation":["x"]}`)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.DateScore != 8 {
		t.Fatalf("string score: %d", got.DateScore)
	}
	if !reflect.DeepEqual(got.MoodTags, []string{"#x", "2", "#y"}) {
		t.Fatalf("tags: %v", got.MoodTags)
	}
	if got.PriceRange != "0" || got.BestTime != "" || got.Recommendation != "" {
		t.Fatalf("text fields: %+v", got)
	}

	frac, _ := app.NormalizeAnalysis(`{"date_score": 7.9}`)
	if frac.DateScore != 7 {
		t.Fatalf("fractional score: %d", frac.DateScore)
	}
}

func TestNormalizeAnalysis_ValidNonObject(t *testing.T) {
	got, err := app.NormalizeAnalysis(`[1,2,3]`)
	if err != nil {
		t.Fatalf("valid JSON must not fail: %v", err)
	}
	if got.DateScore != 0 || len(got.MoodTags) != 0 {
		t.Fatalf("unexpected: %+v", got)
	}
}

func TestNormalizeAnalysis_Unparsable(t *testing.T) {
	for _, raw := range []string{
		"Sure! Here is the analysis: {\"date_score\": 9}",
		"```json\n{\"date_score\": 9,}\n```",
		"",
		"```json\n```",
	} {
		_, err := app.NormalizeAnalysis(raw)
		var ue *domain.UnparsableAnalysisError
		if !errors.As(err, &ue) {
			t.Fatalf("%q: expected UnparsableAnalysisError, got %v", raw, err)
		}
	}
}
