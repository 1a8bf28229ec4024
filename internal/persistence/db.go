// Package persistence provides SQLite-based colony state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/colony/internal/agents"
	"github.com/talgya/colony/internal/engine"
	"github.com/talgya/colony/internal/world"
)

// ErrNoWorldState is returned by LoadWorldState when nothing has been saved.
var ErrNoWorldState = errors.New("no saved world state")

// Meta keys.
const (
	MetaLastTick = "last_tick"
	MetaSeed     = "seed"
	MetaSession  = "session"
)

// Store is a snapshot store. DB and pgstore.Store implement it.
type Store interface {
	SaveWorldState(snap engine.Snapshot) error
	LoadWorldState() (*WorldState, error)
	RecentEvents(limit int) ([]engine.Event, error)
	Close() error
}

// WorldState is a restored snapshot. Agents come back with empty path state.
type WorldState struct {
	Tick      uint64
	Seed      int64
	SessionID string
	Agents    []*agents.Agent
	Events    []engine.Event
}

// DB wraps a SQLite connection for colony state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		needs_json TEXT NOT NULL,
		task TEXT NOT NULL,
		locked INTEGER NOT NULL,
		born_tick INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		meta_json TEXT
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type agentRow struct {
	ID        uint64  `db:"id"`
	Name      string  `db:"name"`
	X         float32 `db:"x"`
	Y         float32 `db:"y"`
	NeedsJSON string  `db:"needs_json"`
	Task      string  `db:"task"`
	Locked    bool    `db:"locked"`
	BornTick  uint64  `db:"born_tick"`
}

type eventRow struct {
	Tick        uint64         `db:"tick"`
	Description string         `db:"description"`
	Category    string         `db:"category"`
	MetaJSON    sql.NullString `db:"meta_json"`
}

// SaveAgents writes all agents to the database (full replace).
func (db *DB) SaveAgents(agentList []agents.Agent) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM agents"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO agents
		(id, name, x, y, needs_json, task, locked, born_tick)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range agentList {
		needsJSON, err := json.Marshal(a.Needs)
		if err != nil {
			return fmt.Errorf("encode needs of agent %d: %w", a.ID, err)
		}

		_, err = stmt.Exec(
			a.ID, a.Name, a.Position.X, a.Position.Y,
			string(needsJSON), a.Task.Current.String(), a.Task.Locked, a.BornTick,
		)
		if err != nil {
			return fmt.Errorf("insert agent %d: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// LoadAgents reads all agents back, ordered by ID.
func (db *DB) LoadAgents() ([]*agents.Agent, error) {
	var rows []agentRow
	if err := db.conn.Select(&rows, "SELECT * FROM agents ORDER BY id"); err != nil {
		return nil, err
	}

	out := make([]*agents.Agent, 0, len(rows))
	for _, r := range rows {
		a, err := DecodeAgent(r.ID, r.Name, r.X, r.Y, r.NeedsJSON, r.Task, r.Locked, r.BornTick)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// DecodeAgent rebuilds an agent from its stored columns.
func DecodeAgent(id uint64, name string, x, y float32, needsJSON, task string, locked bool, bornTick uint64) (*agents.Agent, error) {
	var needs agents.NeedsState
	if err := json.Unmarshal([]byte(needsJSON), &needs); err != nil {
		return nil, fmt.Errorf("decode needs of agent %d: %w", id, err)
	}
	kind, err := agents.ParseTaskKind(task)
	if err != nil {
		return nil, fmt.Errorf("agent %d: %w", id, err)
	}
	return &agents.Agent{
		ID:       agents.AgentID(id),
		Name:     name,
		Position: world.Vec2{X: x, Y: y},
		Needs:    needs,
		Task:     agents.TaskState{Current: kind, Locked: locked && kind != agents.TaskWander},
		BornTick: bornTick,
	}, nil
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		var meta sql.NullString
		if len(e.Meta) > 0 {
			b, err := json.Marshal(e.Meta)
			if err != nil {
				return fmt.Errorf("encode event meta: %w", err)
			}
			meta = sql.NullString{String: string(b), Valid: true}
		}
		_, err := tx.Exec(
			"INSERT INTO events (tick, description, category, meta_json) VALUES (?, ?, ?, ?)",
			e.Tick, e.Description, e.Category, meta,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// HasWorldState reports whether a snapshot has been saved.
func (db *DB) HasWorldState() bool {
	_, err := db.GetMeta(MetaLastTick)
	return err == nil
}

// SaveWorldState performs a full save of the snapshot. Only events newer
// than the previous save are appended.
func (db *DB) SaveWorldState(snap engine.Snapshot) error {
	slog.Info("saving world state", "tick", snap.Tick, "agents", len(snap.Agents))

	var since uint64
	if v, err := db.GetMeta(MetaLastTick); err == nil {
		since, _ = strconv.ParseUint(v, 10, 64)
	}

	if err := db.SaveAgents(snap.Agents); err != nil {
		return fmt.Errorf("save agents: %w", err)
	}
	if err := db.SaveEvents(EventsAfter(snap.Events, since)); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	for key, value := range SnapshotMeta(snap) {
		if err := db.SaveMeta(key, value); err != nil {
			return fmt.Errorf("save meta %s: %w", key, err)
		}
	}

	slog.Info("world state saved", "tick", snap.Tick)
	return nil
}

// LoadWorldState restores the last saved snapshot.
func (db *DB) LoadWorldState() (*WorldState, error) {
	tickStr, err := db.GetMeta(MetaLastTick)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoWorldState
	}
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}

	ws := &WorldState{}
	if ws.Tick, err = strconv.ParseUint(tickStr, 10, 64); err != nil {
		return nil, fmt.Errorf("parse %s: %w", MetaLastTick, err)
	}
	if v, err := db.GetMeta(MetaSeed); err == nil {
		ws.Seed, _ = strconv.ParseInt(v, 10, 64)
	}
	ws.SessionID, _ = db.GetMeta(MetaSession)

	if ws.Agents, err = db.LoadAgents(); err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	recent, err := db.RecentEvents(RestoredEvents)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	ws.Events = Chronological(recent)

	slog.Info("world state loaded", "tick", ws.Tick, "agents", len(ws.Agents), "events", len(ws.Events))
	return ws, nil
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		"SELECT tick, description, category, meta_json FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}

	events := make([]engine.Event, 0, len(rows))
	for _, r := range rows {
		e := engine.Event{Tick: r.Tick, Description: r.Description, Category: r.Category}
		if r.MetaJSON.Valid {
			if err := json.Unmarshal([]byte(r.MetaJSON.String), &e.Meta); err != nil {
				return nil, fmt.Errorf("decode event meta: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, nil
}
