package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	KakaoBase    string
	KakaoKey     string
	KakaoRPS     int
	KakaoTimeout time.Duration

	ClaudeBase    string
	ClaudeKey     string
	ClaudeModel   string
	ClaudeVersion string
	ClaudeRPS     int
	ClaudeTimeout time.Duration

	Collection CollectionConfig
	Curation   CurationConfig

	// batch CLI
	Mode        string // collect|curate|all
	CurateLimit int
	ReadTimeout time.Duration
}

// CollectionConfig drives the search-collect stage.
type CollectionConfig struct {
	Locations          []string
	Categories         []string
	PageSize           int
	MaxResultsPerQuery int
	PagePause          time.Duration
	QueryPause         time.Duration
}

// Queries returns "<location> <category>" for every pair, locations outermost.
func (c CollectionConfig) Queries() []string {
	out := make([]string, 0, len(c.Locations)*len(c.Categories))
	for _, l := range c.Locations {
		for _, cat := range c.Categories {
			out = append(out, l+" "+cat)
		}
	}
	return out
}

// CurationConfig drives the model call and its back-off.
type CurationConfig struct {
	MaxTokens  int
	MaxRetries int
	RetryBase  time.Duration
}

var (
	DefaultLocations  = []string{"강남역", "홍대입구", "이태원", "성수동", "여의도"}
	DefaultCategories = []string{"이탈리안", "카페", "일식", "한식당"}
)

func DefaultCollection() CollectionConfig {
	return CollectionConfig{
		Locations:          DefaultLocations,
		Categories:         DefaultCategories,
		PageSize:           15,
		MaxResultsPerQuery: 25,
		PagePause:          500 * time.Millisecond,
		QueryPause:         500 * time.Millisecond,
	}
}

func DefaultCuration() CurationConfig {
	return CurationConfig{MaxTokens: 1024, MaxRetries: 3, RetryBase: time.Second}
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	ms := func(k string, def int) time.Duration {
		return time.Duration(atoi(k, def)) * time.Millisecond
	}

	col := DefaultCollection()
	col.Locations = list("COLLECT_LOCATIONS", col.Locations)
	col.Categories = list("COLLECT_CATEGORIES", col.Categories)
	col.MaxResultsPerQuery = atoi("COLLECT_MAX_PER_QUERY", col.MaxResultsPerQuery)
	col.PagePause = ms("COLLECT_PAGE_PAUSE_MS", 500)
	col.QueryPause = ms("COLLECT_QUERY_PAUSE_MS", 500)

	cur := DefaultCuration()
	cur.MaxTokens = atoi("CLAUDE_MAX_TOKENS", cur.MaxTokens)
	cur.MaxRetries = atoi("CLAUDE_MAX_RETRIES", cur.MaxRetries)
	cur.RetryBase = ms("CLAUDE_RETRY_BASE_MS", 1000)

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    strings.ToLower(env("LOG_LEVEL", "")),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/curator?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisDB:     atoi("REDIS_DB", 0),
		RedisPass:   env("REDIS_PASSWORD", ""),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,

		KakaoBase:    env("KAKAO_BASE_URL", "https://dapi.kakao.com/v2/local/search/keyword.json"),
		KakaoKey:     env("KAKAO_REST_KEY", ""),
		KakaoRPS:     atoi("KAKAO_RPS", 5),
		KakaoTimeout: ms("KAKAO_TIMEOUT_MS", 5000),

		ClaudeBase:    env("CLAUDE_BASE_URL", "https://api.anthropic.com/v1/messages"),
		ClaudeKey:     env("CLAUDE_API_KEY", ""),
		ClaudeModel:   env("CLAUDE_MODEL", "claude-opus-4-20250514"),
		ClaudeVersion: env("CLAUDE_API_VERSION", "2023-06-01"),
		ClaudeRPS:     atoi("CLAUDE_RPS", 2),
		ClaudeTimeout: ms("CLAUDE_TIMEOUT_MS", 30000),

		Collection: col,
		Curation:   cur,

		Mode:        strings.ToLower(env("CURATOR_MODE", "all")),
		CurateLimit: atoi("CURATE_LIMIT", 0),
		ReadTimeout: time.Duration(atoi("HTTP_READ_TIMEOUT_SECONDS", 15)) * time.Second,
	}
	if c.KakaoKey == "" {
		log.Warn().Msg("KAKAO_REST_KEY is empty")
	}
	if c.ClaudeKey == "" {
		log.Warn().Msg("CLAUDE_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// list splits a comma separated env var, dropping blanks.
func list(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
