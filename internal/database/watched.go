package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// WatchState is the host's playback record for one product.
type WatchState struct {
	PlayCount  int
	LastPlayed string
	Resume     float64
	Total      float64
}

// WatchedDB reads playback state from the host's video database. The
// host records every played file by its addon URL, so product GUIDs
// are recovered from the ident query parameter.
type WatchedDB struct {
	db *sql.DB
}

// OpenWatchedDB opens the host video database read-only. A missing
// file is not an error here; queries will just return nothing.
func OpenWatchedDB(path string) (*WatchedDB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("watched db: opening %s: %w", path, err)
	}
	return &WatchedDB{db: db}, nil
}

// Close releases the database handle.
func (w *WatchedDB) Close() error {
	return w.db.Close()
}

// ByGUID returns the watch state of every addon-played file, keyed by
// product GUID. Errors degrade to an empty map so listing never fails
// on host database trouble.
func (w *WatchedDB) ByGUID() map[string]WatchState {
	out := make(map[string]WatchState)

	rows, err := w.db.Query(`
		SELECT f.idFile, f.strFilename, COALESCE(f.playCount, 0), COALESCE(f.lastPlayed, '')
		FROM files f
		WHERE f.strFilename LIKE '%/play%ident=%'`)
	if err != nil {
		return out
	}
	defer rows.Close()

	fileIDs := make(map[string]int64)
	for rows.Next() {
		var (
			id        int64
			filename  string
			playCount int
			played    string
		)
		if err := rows.Scan(&id, &filename, &playCount, &played); err != nil {
			continue
		}
		guid := identFromPlayURL(filename)
		if guid == "" {
			continue
		}
		out[guid] = WatchState{PlayCount: playCount, LastPlayed: played}
		fileIDs[guid] = id
	}

	for guid, id := range fileIDs {
		var resume, total float64
		err := w.db.QueryRow(`
			SELECT timeInSeconds, totalTimeInSeconds FROM bookmark
			WHERE idFile = ? ORDER BY idBookmark DESC LIMIT 1`, id).Scan(&resume, &total)
		if err != nil {
			continue
		}
		st := out[guid]
		st.Resume = resume
		st.Total = total
		out[guid] = st
	}
	return out
}

// identFromPlayURL extracts the ident query parameter from a recorded
// play URL.
func identFromPlayURL(raw string) string {
	idx := strings.Index(raw, "?")
	if idx < 0 {
		return ""
	}
	vals, err := url.ParseQuery(raw[idx+1:])
	if err != nil {
		return ""
	}
	return vals.Get("ident")
}
