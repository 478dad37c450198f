package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"englishdrills/internal/database"
	"englishdrills/internal/models"
)

// ErrSnapshotNotFound is returned when a learner has no saved state for a lesson
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SQLSnapshotStore keeps snapshots in the lesson_snapshots table
type SQLSnapshotStore struct {
	db *database.DB
}

func NewSQLSnapshotStore(db *database.DB) *SQLSnapshotStore {
	return &SQLSnapshotStore{db: db}
}

// Get returns the raw snapshot for a learner and lesson
func (r *SQLSnapshotStore) Get(ctx context.Context, learnerID, lessonID string) ([]byte, error) {
	var data string
	query := `SELECT data FROM lesson_snapshots WHERE learner_id = ? AND lesson_id = ?`
	err := r.db.QueryRowContext(ctx, query, learnerID, lessonID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return []byte(data), nil
}

// Put inserts or replaces a snapshot
func (r *SQLSnapshotStore) Put(ctx context.Context, snap models.StoredSnapshot) error {
	return putSnapshot(ctx, r.db, snap)
}

func putSnapshot(ctx context.Context, db database.DBTX, snap models.StoredSnapshot) error {
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx, db.GetDialect().UpsertSnapshotQuery(),
		snap.LearnerID, snap.LessonID, string(snap.Data), snap.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Delete removes a learner's snapshot for a lesson
func (r *SQLSnapshotStore) Delete(ctx context.Context, learnerID, lessonID string) error {
	query := `DELETE FROM lesson_snapshots WHERE learner_id = ? AND lesson_id = ?`
	if _, err := r.db.ExecContext(ctx, query, learnerID, lessonID); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// List returns every stored snapshot ordered by learner and lesson
func (r *SQLSnapshotStore) List(ctx context.Context) ([]models.StoredSnapshot, error) {
	query := `SELECT learner_id, lesson_id, data, updated_at FROM lesson_snapshots ORDER BY learner_id, lesson_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.StoredSnapshot
	for rows.Next() {
		var s models.StoredSnapshot
		var data string
		if err := rows.Scan(&s.LearnerID, &s.LessonID, &data, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s.Data = []byte(data)
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// ReplaceAll writes snapshots in one transaction, optionally clearing the
// table first
func (r *SQLSnapshotStore) ReplaceAll(ctx context.Context, snapshots []models.StoredSnapshot, clearExisting bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if clearExisting {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lesson_snapshots`); err != nil {
			return fmt.Errorf("failed to clear snapshots: %w", err)
		}
	}
	for _, s := range snapshots {
		if err := putSnapshot(ctx, tx, s); err != nil {
			return err
		}
	}
	return tx.Commit()
}
