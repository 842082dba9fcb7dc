//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"placecurator/internal/domain"
	mysqlrepo "placecurator/internal/storage/mysql"
)

func pstr(s string) *string { return &s }

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=curator",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/curator?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC", hostPort)

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func newPlace(ext, name, category string, created time.Time) *domain.Place {
	return &domain.Place{
		ExternalID: ext,
		Name:       name,
		Category:   category,
		Address:    "서울 강남구 테헤란로 1",
		Latitude:   37.4979,
		Longitude:  127.0276,
		Phone:      pstr("02-000-0000"),
		CreatedAt:  created,
	}
}

func TestRepo_MySQL_SaveListStats(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	italian := newPlace("k-1", "파스타집", "음식점 > 양식 > 이탈리안", base)
	cafe := newPlace("k-2", "루프탑 카페", "음식점 > 카페", base.Add(time.Minute))
	sushi := newPlace("k-3", "스시 오마카세", "음식점 > 일식", base.Add(2*time.Minute))
	for _, p := range []*domain.Place{italian, cafe, sushi} {
		if err := repo.Save(ctx, p); err != nil {
			t.Fatalf("Save %s: %v", p.ExternalID, err)
		}
		if p.ID == 0 {
			t.Fatalf("Save did not assign an id to %s", p.ExternalID)
		}
	}

	// unique external id
	dup := newPlace("k-1", "copy", "음식점", base)
	if err := repo.Save(ctx, dup); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("duplicate save: want ErrDuplicate, got %v", err)
	}

	ok, err := repo.ExistsByExternalID(ctx, "k-2")
	if err != nil || !ok {
		t.Fatalf("ExistsByExternalID k-2 = %v, %v", ok, err)
	}
	ok, err = repo.ExistsByExternalID(ctx, "nope")
	if err != nil || ok {
		t.Fatalf("ExistsByExternalID nope = %v, %v", ok, err)
	}

	// curate the cafe
	first := base.Add(time.Hour)
	cafe.ApplyCuration(domain.CurationOutcome{
		DateScore:      8,
		MoodTags:       []string{"#view", "#romantic", "#quiet"},
		PriceRange:     "10,000-20,000 KRW",
		BestTime:       "evening",
		Recommendation: "sunset view",
	}, first)
	if err := repo.Save(ctx, cafe); err != nil {
		t.Fatalf("Save curated: %v", err)
	}

	got, err := repo.Get(ctx, cafe.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Curated() || *got.DateScore != 8 {
		t.Fatalf("expected curated cafe, got %+v", got)
	}
	if len(got.MoodTags) != 3 || got.MoodTags[0] != "#view" || got.MoodTags[2] != "#quiet" {
		t.Fatalf("mood tags out of order: %v", got.MoodTags)
	}
	if got.Phone == nil || *got.Phone != "02-000-0000" || got.PlaceURL != nil {
		t.Fatalf("nullable columns: phone=%v url=%v", got.Phone, got.PlaceURL)
	}

	// re-curation replaces tags and keeps the first curated_at
	got.ApplyCuration(domain.CurationOutcome{DateScore: 6, MoodTags: []string{"#cozy"}}, first.Add(time.Hour))
	got.CuratedAt = pointerTo(first.Add(time.Hour))
	if err := repo.Save(ctx, &got); err != nil {
		t.Fatalf("Save re-curated: %v", err)
	}
	again, err := repo.GetByExternalID(ctx, "k-2")
	if err != nil {
		t.Fatalf("GetByExternalID: %v", err)
	}
	if *again.DateScore != 6 || len(again.MoodTags) != 1 || again.MoodTags[0] != "#cozy" {
		t.Fatalf("re-curation not stored: %+v", again)
	}
	if !again.CuratedAt.Equal(first) {
		t.Fatalf("curated_at moved: got %v want %v", again.CuratedAt, first)
	}

	if _, err := repo.Get(ctx, 999999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get missing: want ErrNotFound, got %v", err)
	}

	// listing: newest first, zero-based pages
	all, err := repo.List(ctx, domain.PlacesQuery{Page: 0, Size: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if all.TotalElements != 3 || all.TotalPages != 2 || len(all.Items) != 2 {
		t.Fatalf("unexpected page: total=%d pages=%d items=%d", all.TotalElements, all.TotalPages, len(all.Items))
	}
	if all.Items[0].ExternalID != "k-3" || all.Items[1].ExternalID != "k-2" {
		t.Fatalf("wrong order: %s, %s", all.Items[0].ExternalID, all.Items[1].ExternalID)
	}

	curated := true
	cur, err := repo.List(ctx, domain.PlacesQuery{Size: 20, Curated: &curated})
	if err != nil {
		t.Fatalf("List curated: %v", err)
	}
	if cur.TotalElements != 1 || cur.Items[0].ExternalID != "k-2" {
		t.Fatalf("curated filter: %+v", cur)
	}

	// category wins over curated
	cat := "일식"
	byCat, err := repo.List(ctx, domain.PlacesQuery{Size: 20, Category: &cat, Curated: &curated})
	if err != nil {
		t.Fatalf("List category: %v", err)
	}
	if byCat.TotalElements != 1 || byCat.Items[0].ExternalID != "k-3" {
		t.Fatalf("category filter: %+v", byCat)
	}

	unc, err := repo.ListUncurated(ctx)
	if err != nil {
		t.Fatalf("ListUncurated: %v", err)
	}
	if len(unc) != 2 || unc[0].ExternalID != "k-1" || unc[1].ExternalID != "k-3" {
		t.Fatalf("uncurated order: %+v", unc)
	}

	st, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 3 || st.Curated != 1 || st.Uncurated != 2 {
		t.Fatalf("stats: %+v", st)
	}
}

func pointerTo(t time.Time) *time.Time { return &t }
