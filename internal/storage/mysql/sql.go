package mysql

const placeColumns = `
  id, external_id, place_name, category, address, latitude, longitude,
  phone, place_url, date_score, price_range, best_time, recommendation,
  created_at, updated_at, curated_at`

const insertPlaceSQL = `
INSERT INTO places
  (external_id, place_name, category, address, latitude, longitude,
   phone, place_url, date_score, price_range, best_time, recommendation,
   created_at, updated_at, curated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// external_id and created_at never change; curated_at keeps its first value.
const updatePlaceSQL = `
UPDATE places SET
  place_name     = ?,
  category       = ?,
  address        = ?,
  latitude       = ?,
  longitude      = ?,
  phone          = ?,
  place_url      = ?,
  date_score     = ?,
  price_range    = ?,
  best_time      = ?,
  recommendation = ?,
  updated_at     = ?,
  curated_at     = COALESCE(curated_at, ?)
WHERE id = ?
`

const deleteTagsSQL = `DELETE FROM place_mood_tags WHERE place_id = ?`

const insertTagsPrefix = "INSERT INTO place_mood_tags (place_id, position, mood_tag) VALUES "

const existsByExternalIDSQL = `SELECT EXISTS(SELECT 1 FROM places WHERE external_id = ?)`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getPlaceSQL = `SELECT` + placeColumns + `
FROM places
WHERE id = ?
`

const getPlaceByExternalIDSQL = `SELECT` + placeColumns + `
FROM places
WHERE external_id = ?
`

const (
	curatedCond   = `date_score IS NOT NULL AND curated_at IS NOT NULL`
	uncuratedCond = `(date_score IS NULL OR curated_at IS NULL)`
)

// Oldest first; this is the order batch curation walks.
const listUncuratedSQL = `SELECT` + placeColumns + `
FROM places
WHERE ` + uncuratedCond + `
ORDER BY id
`

const listPlacesSelect = `SELECT` + placeColumns + `
FROM places`

// Newest first; aligns with idx_places_created.
const listPlacesOrder = `
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`

const statsSQL = `
SELECT
  COUNT(*),
  COALESCE(SUM(` + curatedCond + `), 0)
FROM places
`
