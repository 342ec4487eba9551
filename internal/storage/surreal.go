package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/makerhub/makerhub/internal/config"
	"github.com/makerhub/makerhub/internal/domain"
)

// instanceTable is the SurrealDB table instances are stored in.
const instanceTable = "instance"

// instanceRow is the shape persisted to SurrealDB. The record id is derived
// from the instance id, so the row itself only carries content fields.
type instanceRow struct {
	CreatedTimestamp time.Time       `json:"createdTimestamp"`
	Instance         domain.Instance `json:"instance"`
	Version          int64           `json:"version"`
}

// SurrealStore implements InstanceStore over a SurrealDB connection. The
// version column is checked inside the UPDATE statement, so the conflict
// detection happens in the database, not in this process.
type SurrealStore struct {
	db *surrealdb.DB
}

// NewDB creates and configures a new SurrealDB connection.
func NewDB(ctx context.Context, cfg *config.Config) (*surrealdb.DB, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.DBUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to surrealdb: %w", err)
	}

	authData := &surrealdb.Auth{
		Username: cfg.DBUser,
		Password: cfg.DBPass,
	}

	if _, err = db.SignIn(ctx, authData); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	if err = db.Use(ctx, cfg.DBNs, cfg.DBDb); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/db: %w", err)
	}

	slog.Info("Successfully signed in to SurrealDB")
	return db, nil
}

// NewSurrealStore creates an instance store over an open connection.
func NewSurrealStore(db *surrealdb.DB) *SurrealStore {
	return &SurrealStore{db: db}
}

// query executes a SurrealQL statement and returns the first statement's
// rows, unmarshalled into instanceRow.
func (s *SurrealStore) query(ctx context.Context, query string, params map[string]any) ([]instanceRow, error) {
	results, err := surrealdb.Query[[]instanceRow](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

func (s *SurrealStore) Get(ctx context.Context, id string) (*InstanceRecord, error) {
	rows, err := s.query(ctx,
		"SELECT createdTimestamp, instance, version FROM type::thing($table, $id)",
		map[string]any{"table": instanceTable, "id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("instance %s: %w", id, domain.ErrInstanceNotFound)
	}
	row := rows[0]
	return &InstanceRecord{
		ID:               id,
		CreatedTimestamp: row.CreatedTimestamp,
		Instance:         row.Instance,
		Version:          row.Version,
	}, nil
}

func (s *SurrealStore) Create(ctx context.Context, rec *InstanceRecord) error {
	_, err := s.query(ctx,
		"CREATE type::thing($table, $id) CONTENT { createdTimestamp: $created, instance: $instance, version: 1 }",
		map[string]any{
			"table":    instanceTable,
			"id":       rec.ID,
			"created":  rec.CreatedTimestamp,
			"instance": rec.Instance,
		},
	)
	if err != nil {
		// CREATE refuses to touch an existing record id.
		if strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("instance %s: %w", rec.ID, domain.ErrInstanceExists)
		}
		return err
	}
	rec.Version = 1
	return nil
}

func (s *SurrealStore) Update(ctx context.Context, rec *InstanceRecord) error {
	rows, err := s.query(ctx,
		"UPDATE type::thing($table, $id) SET instance = $instance, version = version + 1 WHERE version = $version RETURN AFTER",
		map[string]any{
			"table":    instanceTable,
			"id":       rec.ID,
			"instance": rec.Instance,
			"version":  rec.Version,
		},
	)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("instance %s: %w", rec.ID, domain.ErrVersionConflict)
	}
	rec.Version = rows[0].Version
	return nil
}
