package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/tunesync-server/internal/store"
)

// SQLiteStore implements store.RoomStore for SQLite. The version column
// gives compare-and-swap semantics per room document, which is what
// serializes concurrent writers to the same room.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	visibility      TEXT NOT NULL DEFAULT 'public',
	secret_hash     TEXT NOT NULL DEFAULT '',
	creator_id      TEXT NOT NULL,
	members         TEXT NOT NULL DEFAULT '[]',
	queue           TEXT NOT NULL DEFAULT '[]',
	shuffled_queue  TEXT NOT NULL DEFAULT '[]',
	shuffle_enabled INTEGER NOT NULL DEFAULT 0,
	current_track   TEXT,
	version         INTEGER NOT NULL DEFAULT 1,
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get retrieves a room by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*store.Room, error) {
	query := `
		SELECT id, name, visibility, secret_hash, creator_id, members, queue,
		       shuffled_queue, shuffle_enabled, current_track, version, created_at
		FROM rooms
		WHERE id = ?
	`
	row := s.db.QueryRowContext(ctx, query, id)
	room, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	return room, nil
}

// Create persists a new room document.
func (s *SQLiteStore) Create(ctx context.Context, room *store.Room) (*store.Room, error) {
	members, err := json.Marshal(emptyIfNil(room.Members))
	if err != nil {
		return nil, fmt.Errorf("marshal members: %w", err)
	}
	queue, err := json.Marshal(emptyTracksIfNil(room.Queue))
	if err != nil {
		return nil, fmt.Errorf("marshal queue: %w", err)
	}
	shuffled, err := json.Marshal(emptyTracksIfNil(room.ShuffledQueue))
	if err != nil {
		return nil, fmt.Errorf("marshal shuffled queue: %w", err)
	}
	current, err := marshalCurrentTrack(room.CurrentTrack)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO rooms (id, name, visibility, secret_hash, creator_id, members,
		                   queue, shuffled_queue, shuffle_enabled, current_track)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		room.ID, room.Name, room.Visibility, room.SecretHash, room.CreatorID,
		string(members), string(queue), string(shuffled), room.ShuffleEnabled, current,
	)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	return s.Get(ctx, room.ID)
}

// Update applies a partial field replacement against the given document
// version. A lost compare-and-swap surfaces as store.ErrConflict.
func (s *SQLiteStore) Update(ctx context.Context, id string, version int64, patch store.RoomPatch) (*store.Room, error) {
	sets := []string{"version = version + 1"}
	args := []any{}

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Members != nil {
		data, err := json.Marshal(emptyIfNil(*patch.Members))
		if err != nil {
			return nil, fmt.Errorf("marshal members: %w", err)
		}
		sets = append(sets, "members = ?")
		args = append(args, string(data))
	}
	if patch.Queue != nil {
		data, err := json.Marshal(emptyTracksIfNil(*patch.Queue))
		if err != nil {
			return nil, fmt.Errorf("marshal queue: %w", err)
		}
		sets = append(sets, "queue = ?")
		args = append(args, string(data))
	}
	if patch.ShuffledQueue != nil {
		data, err := json.Marshal(emptyTracksIfNil(*patch.ShuffledQueue))
		if err != nil {
			return nil, fmt.Errorf("marshal shuffled queue: %w", err)
		}
		sets = append(sets, "shuffled_queue = ?")
		args = append(args, string(data))
	}
	if patch.ShuffleEnabled != nil {
		sets = append(sets, "shuffle_enabled = ?")
		args = append(args, *patch.ShuffleEnabled)
	}
	if patch.CurrentTrack != nil {
		current, err := marshalCurrentTrack(*patch.CurrentTrack)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "current_track = ?")
		args = append(args, current)
	}

	query := fmt.Sprintf("UPDATE rooms SET %s WHERE id = ? AND version = ?", strings.Join(sets, ", "))
	args = append(args, id, version)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Disambiguate a lost CAS from a deleted room.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, store.ErrConflict
	}

	return s.Get(ctx, id)
}

// ListAll returns every room, ordered by creation time.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]*store.Room, error) {
	query := `
		SELECT id, name, visibility, secret_hash, creator_id, members, queue,
		       shuffled_queue, shuffle_enabled, current_track, version, created_at
		FROM rooms
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}

	return rooms, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*store.Room, error) {
	var (
		room     store.Room
		members  string
		queue    string
		shuffled string
		current  sql.NullString
	)
	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Visibility,
		&room.SecretHash,
		&room.CreatorID,
		&members,
		&queue,
		&shuffled,
		&room.ShuffleEnabled,
		&current,
		&room.Version,
		&room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(members), &room.Members); err != nil {
		return nil, fmt.Errorf("unmarshal members: %w", err)
	}
	if err := json.Unmarshal([]byte(queue), &room.Queue); err != nil {
		return nil, fmt.Errorf("unmarshal queue: %w", err)
	}
	if err := json.Unmarshal([]byte(shuffled), &room.ShuffledQueue); err != nil {
		return nil, fmt.Errorf("unmarshal shuffled queue: %w", err)
	}
	if current.Valid {
		var track store.CurrentTrack
		if err := json.Unmarshal([]byte(current.String), &track); err != nil {
			return nil, fmt.Errorf("unmarshal current track: %w", err)
		}
		room.CurrentTrack = &track
	}

	return &room, nil
}

func marshalCurrentTrack(track *store.CurrentTrack) (sql.NullString, error) {
	if track == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(track)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal current track: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyTracksIfNil(t []store.Track) []store.Track {
	if t == nil {
		return []store.Track{}
	}
	return t
}
