// Package pgstore stores colony snapshots in PostgreSQL through gorm.
package pgstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/talgya/colony/internal/agents"
	"github.com/talgya/colony/internal/engine"
	"github.com/talgya/colony/internal/persistence"
)

const batchSize = 500

type agentModel struct {
	ID        uint64  `gorm:"primaryKey;autoIncrement:false"`
	Name      string  `gorm:"not null"`
	X         float32 `gorm:"not null"`
	Y         float32 `gorm:"not null"`
	NeedsJSON string  `gorm:"type:jsonb;not null"`
	Task      string  `gorm:"not null"`
	Locked    bool    `gorm:"not null"`
	BornTick  uint64  `gorm:"not null"`
}

func (agentModel) TableName() string { return "colony_agents" }

type eventModel struct {
	ID          uint64 `gorm:"primaryKey"`
	Tick        uint64 `gorm:"not null;index"`
	Description string `gorm:"not null"`
	Category    string `gorm:"not null;index"`
	MetaJSON    []byte `gorm:"type:jsonb"`
	CreatedAt   time.Time
}

func (eventModel) TableName() string { return "colony_events" }

type metaModel struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (metaModel) TableName() string { return "colony_meta" }

// Store is a PostgreSQL snapshot store.
type Store struct {
	db *gorm.DB
}

var _ persistence.Store = (*Store)(nil)

// Open connects to dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	return s.db.AutoMigrate(&agentModel{}, &eventModel{}, &metaModel{})
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Reset deletes all stored state.
func (s *Store) Reset() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&agentModel{}, &eventModel{}, &metaModel{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveWorldState replaces the stored agents, appends events newer than the
// previous save, and upserts the snapshot metadata, all in one transaction.
func (s *Store) SaveWorldState(snap engine.Snapshot) error {
	slog.Info("saving world state", "backend", "postgres", "tick", snap.Tick, "agents", len(snap.Agents))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var since uint64
		var last metaModel
		err := tx.Where(&metaModel{Key: persistence.MetaLastTick}).First(&last).Error
		switch {
		case err == nil:
			since, _ = strconv.ParseUint(last.Value, 10, 64)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("read last tick: %w", err)
		}

		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&agentModel{}).Error; err != nil {
			return fmt.Errorf("clear agents: %w", err)
		}
		rows, err := agentRows(snap.Agents)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
				return fmt.Errorf("save agents: %w", err)
			}
		}

		events, err := eventRows(persistence.EventsAfter(snap.Events, since))
		if err != nil {
			return err
		}
		if len(events) > 0 {
			if err := tx.CreateInBatches(events, batchSize).Error; err != nil {
				return fmt.Errorf("save events: %w", err)
			}
		}

		now := time.Now().UTC()
		meta := make([]metaModel, 0, 3)
		for k, v := range persistence.SnapshotMeta(snap) {
			meta = append(meta, metaModel{Key: k, Value: v, UpdatedAt: now})
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&meta).Error
	})
	if err != nil {
		return err
	}

	slog.Info("world state saved", "backend", "postgres", "tick", snap.Tick)
	return nil
}

// LoadWorldState restores the last saved snapshot.
func (s *Store) LoadWorldState() (*persistence.WorldState, error) {
	var meta []metaModel
	if err := s.db.Find(&meta).Error; err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	kv := make(map[string]string, len(meta))
	for _, m := range meta {
		kv[m.Key] = m.Value
	}

	tickStr, ok := kv[persistence.MetaLastTick]
	if !ok {
		return nil, persistence.ErrNoWorldState
	}
	ws := &persistence.WorldState{SessionID: kv[persistence.MetaSession]}
	var err error
	if ws.Tick, err = strconv.ParseUint(tickStr, 10, 64); err != nil {
		return nil, fmt.Errorf("parse %s: %w", persistence.MetaLastTick, err)
	}
	ws.Seed, _ = strconv.ParseInt(kv[persistence.MetaSeed], 10, 64)

	var rows []agentModel
	if err := s.db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	ws.Agents = make([]*agents.Agent, 0, len(rows))
	for _, r := range rows {
		a, err := persistence.DecodeAgent(r.ID, r.Name, r.X, r.Y, r.NeedsJSON, r.Task, r.Locked, r.BornTick)
		if err != nil {
			return nil, err
		}
		ws.Agents = append(ws.Agents, a)
	}

	recent, err := s.RecentEvents(persistence.RestoredEvents)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	ws.Events = persistence.Chronological(recent)

	slog.Info("world state loaded", "backend", "postgres", "tick", ws.Tick, "agents", len(ws.Agents))
	return ws, nil
}

// RecentEvents returns the most recent N events, newest first.
func (s *Store) RecentEvents(limit int) ([]engine.Event, error) {
	var rows []eventModel
	q := s.db.Clauses(clause.OrderBy{
		Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "id"}, Desc: true}},
	})
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	events := make([]engine.Event, 0, len(rows))
	for _, r := range rows {
		e := engine.Event{Tick: r.Tick, Description: r.Description, Category: r.Category}
		if len(r.MetaJSON) > 0 {
			if err := json.Unmarshal(r.MetaJSON, &e.Meta); err != nil {
				return nil, fmt.Errorf("decode event meta: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, nil
}

func agentRows(list []agents.Agent) ([]agentModel, error) {
	rows := make([]agentModel, 0, len(list))
	for _, a := range list {
		needs, err := json.Marshal(a.Needs)
		if err != nil {
			return nil, fmt.Errorf("encode needs of agent %d: %w", a.ID, err)
		}
		rows = append(rows, agentModel{
			ID:        uint64(a.ID),
			Name:      a.Name,
			X:         a.Position.X,
			Y:         a.Position.Y,
			NeedsJSON: string(needs),
			Task:      a.Task.Current.String(),
			Locked:    a.Task.Locked,
			BornTick:  a.BornTick,
		})
	}
	return rows, nil
}

func eventRows(list []engine.Event) ([]eventModel, error) {
	rows := make([]eventModel, 0, len(list))
	for _, e := range list {
		m := eventModel{Tick: e.Tick, Description: e.Description, Category: e.Category}
		if len(e.Meta) > 0 {
			b, err := json.Marshal(e.Meta)
			if err != nil {
				return nil, fmt.Errorf("encode event meta: %w", err)
			}
			m.MetaJSON = b
		}
		rows = append(rows, m)
	}
	return rows, nil
}
