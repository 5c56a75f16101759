package spritedice

import (
	"bytes"
	"crypto/sha1"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"strconv"

	"github.com/bodgit/spritedice/atlas"
	"github.com/bodgit/spritedice/contenthash"
	"github.com/bodgit/spritedice/manifest"
	"github.com/bodgit/spritedice/sprite"
	_ "github.com/mattn/go-sqlite3"
)

// UnitLocation is where a unit was stored.
type UnitLocation struct {
	// Atlas is the handle of the atlas
	Atlas string
	UV    atlas.UVRect
}

// DB stores atlases, unit locations and sprites in a SQLite database.
// Atlases are keyed by the SHA-1 of their PNG encoding so storing an
// identical atlas twice reuses the existing row.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates the database in file.
func OpenDB(file string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS atlas (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, width INTEGER NOT NULL, height INTEGER NOT NULL, png BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS unit (hash TEXT NOT NULL, atlas_id INTEGER NOT NULL, x REAL NOT NULL, y REAL NOT NULL, w REAL NOT NULL, h REAL NOT NULL, PRIMARY KEY(hash, atlas_id), FOREIGN KEY(atlas_id) REFERENCES atlas(id))"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS sprite (id INTEGER PRIMARY KEY NOT NULL, name TEXT NOT NULL UNIQUE, atlas_id INTEGER NOT NULL, mesh BLOB NOT NULL, FOREIGN KEY(atlas_id) REFERENCES atlas(id))"); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{
		db: db,
	}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.db.Close()
}

func parseHandle(handle string) (int64, error) {
	id, err := strconv.ParseInt(handle, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad atlas handle %q: %w", handle, err)
	}
	return id, nil
}

// PutAtlas stores m and returns its row id as the handle.
func (db *DB) PutAtlas(_ int, m *image.NRGBA) (string, error) {
	b := new(bytes.Buffer)
	if err := png.Encode(b, m); err != nil {
		return "", err
	}
	sha := fmt.Sprintf("%X", sha1.Sum(b.Bytes()))

	var id int64
	switch err := db.db.QueryRow("SELECT id FROM atlas WHERE sha1 = ?", sha).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := db.db.Exec("INSERT INTO atlas (sha1, width, height, png) VALUES (?, ?, ?, ?)", sha, m.Rect.Dx(), m.Rect.Dy(), b.Bytes())
		if err != nil {
			return "", err
		}
		if id, err = result.LastInsertId(); err != nil {
			return "", err
		}
	case nil:
	default:
		return "", err
	}

	return strconv.FormatInt(id, 10), nil
}

// PutUVs records where each unit lives in the atlas.
func (db *DB) PutUVs(handle string, uv map[contenthash.Hash]atlas.UVRect) error {
	id, err := parseHandle(handle)
	if err != nil {
		return err
	}

	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO unit (hash, atlas_id, x, y, w, h) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for h, r := range uv {
		if _, err := stmt.Exec(h.String(), id, r.X, r.Y, r.W, r.H); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ReplaceSprites replaces every stored sprite in a single transaction.
func (db *DB) ReplaceSprites(atlases []string, sprites []*sprite.Sprite) error {
	ids := make([]int64, len(atlases))
	for i, handle := range atlases {
		id, err := parseHandle(handle)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.Exec("DELETE FROM sprite"); err != nil {
		return err
	}

	stmt, err := tx.Prepare("INSERT INTO sprite (name, atlas_id, mesh) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range sprites {
		if s.Atlas < 0 || s.Atlas >= len(ids) {
			return fmt.Errorf("%s: atlas %d out of range", s.ID, s.Atlas)
		}

		mesh, err := json.Marshal(manifest.FromSprite(s))
		if err != nil {
			return err
		}

		if _, err := stmt.Exec(s.ID, ids[s.Atlas], mesh); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// FindSprite returns the named sprite and the handle of its atlas, or nil
// if there is no such sprite.
func (db *DB) FindSprite(name string) (*sprite.Sprite, string, error) {
	var (
		id   int64
		mesh []byte
	)
	switch err := db.db.QueryRow("SELECT atlas_id, mesh FROM sprite WHERE name = ?", name).Scan(&id, &mesh); err {
	case sql.ErrNoRows:
		return nil, "", nil
	case nil:
		var s manifest.Sprite
		if err := json.Unmarshal(mesh, &s); err != nil {
			return nil, "", err
		}
		return s.Sprite(), strconv.FormatInt(id, 10), nil
	default:
		return nil, "", err
	}
}

// FindAtlas returns the decoded atlas for handle, or nil if there is no such
// atlas.
func (db *DB) FindAtlas(handle string) (image.Image, error) {
	id, err := parseHandle(handle)
	if err != nil {
		return nil, err
	}

	var b []byte
	switch err := db.db.QueryRow("SELECT png FROM atlas WHERE id = ?", id).Scan(&b); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return png.Decode(bytes.NewReader(b))
	default:
		return nil, err
	}
}

// FindUnit returns where the unit with hash h is stored, or nil if it has
// not been stored. When a unit appears in several atlases the most recently
// stored one wins.
func (db *DB) FindUnit(h contenthash.Hash) (*UnitLocation, error) {
	var (
		id  int64
		loc UnitLocation
	)
	switch err := db.db.QueryRow("SELECT atlas_id, x, y, w, h FROM unit WHERE hash = ? ORDER BY atlas_id DESC LIMIT 1", h.String()).Scan(&id, &loc.UV.X, &loc.UV.Y, &loc.UV.W, &loc.UV.H); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		loc.Atlas = strconv.FormatInt(id, 10)
		return &loc, nil
	default:
		return nil, err
	}
}
