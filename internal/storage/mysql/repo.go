package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"placecurator/internal/domain"
)

// ER_DUP_ENTRY
const errDupEntry = 1062

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Save inserts a place when p.ID is zero (setting p.ID), otherwise updates it.
// Mood tags are replaced in the same transaction.
func (r *Repo) Save(ctx context.Context, p *domain.Place) error {
	now := time.Now().UTC()
	if p.ID != 0 || p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if p.ID == 0 {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		res, err := tx.ExecContext(ctx, insertPlaceSQL,
			p.ExternalID,
			p.Name,
			p.Category,
			p.Address,
			p.Latitude,
			p.Longitude,
			valStr(p.Phone),
			valStr(p.PlaceURL),
			valInt(p.DateScore),
			valStr(p.PriceRange),
			valStr(p.BestTime),
			valStr(p.Recommendation),
			p.CreatedAt.UTC(),
			p.UpdatedAt.UTC(),
			valTime(p.CuratedAt),
		)
		if err != nil {
			if isDuplicate(err) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicate, p.ExternalID)
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := insertTags(ctx, tx, id, p.MoodTags); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		p.ID = id
		return nil
	}

	if _, err := tx.ExecContext(ctx, updatePlaceSQL,
		p.Name,
		p.Category,
		p.Address,
		p.Latitude,
		p.Longitude,
		valStr(p.Phone),
		valStr(p.PlaceURL),
		valInt(p.DateScore),
		valStr(p.PriceRange),
		valStr(p.BestTime),
		valStr(p.Recommendation),
		p.UpdatedAt.UTC(),
		valTime(p.CuratedAt),
		p.ID,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, deleteTagsSQL, p.ID); err != nil {
		return err
	}
	if err := insertTags(ctx, tx, p.ID, p.MoodTags); err != nil {
		return err
	}
	return tx.Commit()
}

func insertTags(ctx context.Context, tx *sql.Tx, placeID int64, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	values := make([]string, 0, len(tags))
	args := make([]any, 0, len(tags)*3)
	for i, t := range tags {
		values = append(values, "(?,?,?)")
		args = append(args, placeID, i, t)
	}
	_, err := tx.ExecContext(ctx, insertTagsPrefix+strings.Join(values, ","), args...)
	return err
}

func isDuplicate(err error) bool {
	var me *gomysql.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}

func (r *Repo) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, existsByExternalIDSQL, externalID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (domain.Place, error) {
	return r.getOne(ctx, getPlaceSQL, id)
}

func (r *Repo) GetByExternalID(ctx context.Context, externalID string) (domain.Place, error) {
	return r.getOne(ctx, getPlaceByExternalIDSQL, externalID)
}

func (r *Repo) getOne(ctx context.Context, query string, arg any) (domain.Place, error) {
	p, err := scanPlace(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Place{}, domain.ErrNotFound
		}
		return domain.Place{}, err
	}
	ps := []domain.Place{p}
	if err := r.loadTags(ctx, ps); err != nil {
		return domain.Place{}, err
	}
	return ps[0], nil
}

func (r *Repo) ListUncurated(ctx context.Context) ([]domain.Place, error) {
	return r.query(ctx, listUncuratedSQL)
}

// List applies the category filter when set, else the curated filter, else none.
func (r *Repo) List(ctx context.Context, q domain.PlacesQuery) (domain.PlacesPage, error) {
	var where string
	var args []any
	switch {
	case q.Category != nil:
		where = "\nWHERE category LIKE ?"
		args = append(args, "%"+escapeLike(*q.Category)+"%")
	case q.Curated != nil && *q.Curated:
		where = "\nWHERE " + curatedCond
	case q.Curated != nil:
		where = "\nWHERE " + uncuratedCond
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM places"+where, args...).Scan(&total); err != nil {
		return domain.PlacesPage{}, err
	}

	items, err := r.query(ctx, listPlacesSelect+where+listPlacesOrder, append(args, q.Size, q.Page*q.Size)...)
	if err != nil {
		return domain.PlacesPage{}, err
	}

	pages := 0
	if q.Size > 0 {
		pages = int((total + int64(q.Size) - 1) / int64(q.Size))
	}
	return domain.PlacesPage{Items: items, Page: q.Page, Size: q.Size, TotalElements: total, TotalPages: pages}, nil
}

func (r *Repo) Stats(ctx context.Context) (domain.PlaceStats, error) {
	var st domain.PlaceStats
	if err := r.db.QueryRowContext(ctx, statsSQL).Scan(&st.Total, &st.Curated); err != nil {
		return domain.PlaceStats{}, err
	}
	st.Uncurated = st.Total - st.Curated
	return st, nil
}

func (r *Repo) query(ctx context.Context, query string, args ...any) ([]domain.Place, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadTags(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadTags fills MoodTags for ps with one query, keeping tag order.
func (r *Repo) loadTags(ctx context.Context, ps []domain.Place) error {
	if len(ps) == 0 {
		return nil
	}
	idx := make(map[int64]int, len(ps))
	marks := make([]string, 0, len(ps))
	args := make([]any, 0, len(ps))
	for i, p := range ps {
		idx[p.ID] = i
		marks = append(marks, "?")
		args = append(args, p.ID)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT place_id, mood_tag FROM place_mood_tags WHERE place_id IN (`+strings.Join(marks, ",")+`) ORDER BY place_id, position`,
		args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return err
		}
		if i, ok := idx[id]; ok {
			ps[i].MoodTags = append(ps[i].MoodTags, tag)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(s rowScanner) (domain.Place, error) {
	var p domain.Place
	var (
		phone, url, price, best, rec sql.NullString
		score                        sql.NullInt64
		curatedAt                    sql.NullTime
	)
	if err := s.Scan(
		&p.ID,
		&p.ExternalID,
		&p.Name,
		&p.Category,
		&p.Address,
		&p.Latitude,
		&p.Longitude,
		&phone,
		&url,
		&score,
		&price,
		&best,
		&rec,
		&p.CreatedAt,
		&p.UpdatedAt,
		&curatedAt,
	); err != nil {
		return domain.Place{}, err
	}

	p.Phone = nullStr(phone)
	p.PlaceURL = nullStr(url)
	p.PriceRange = nullStr(price)
	p.BestTime = nullStr(best)
	p.Recommendation = nullStr(rec)
	if score.Valid {
		s := int(score.Int64)
		p.DateScore = &s
	}
	if curatedAt.Valid {
		t := curatedAt.Time
		p.CuratedAt = &t
	}
	return p, nil
}

func nullStr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
