package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"englishdrills/internal/logger"
	"englishdrills/internal/models"
)

const backupVersion = "1.0"

// BackupData is the snapshot backup file format
type BackupData struct {
	Version      string           `json:"version"`
	ExportedAt   time.Time        `json:"exported_at"`
	DatabaseType string           `json:"database_type"`
	Snapshots    []SnapshotBackup `json:"snapshots"`
}

// SnapshotBackup is one stored lesson state. Data is kept as raw JSON so the
// file stays readable.
type SnapshotBackup struct {
	LearnerID string          `json:"learner_id"`
	LessonID  string          `json:"lesson_id"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BackupService exports and imports every stored snapshot
type BackupService struct {
	store        SnapshotStore
	databaseType string
	log          *logger.Logger
}

// NewBackupService creates a backup service over store. databaseType is
// recorded in exported files for reference only.
func NewBackupService(store SnapshotStore, databaseType string, log *logger.Logger) *BackupService {
	if log == nil {
		log = logger.NewNop()
	}
	return &BackupService{store: store, databaseType: databaseType, log: log}
}

// Export writes a backup of all snapshots to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	s.log.Info("Starting snapshot export", "output", outputPath)

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	n, err := s.export(ctx, file)
	if err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	s.log.Info("Snapshots exported", "output", outputPath, "snapshots", n)
	return nil
}

// ExportToWriter writes a backup of all snapshots to w
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	_, err := s.export(ctx, w)
	return err
}

func (s *BackupService) export(ctx context.Context, w io.Writer) (int, error) {
	stored, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to export snapshots: %w", err)
	}

	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.databaseType,
		Snapshots:    make([]SnapshotBackup, 0, len(stored)),
	}
	for _, snap := range stored {
		var data bytes.Buffer
		if err := json.Compact(&data, snap.Data); err != nil {
			s.log.Warn("Skipping corrupt snapshot", "learner", snap.LearnerID, "lesson", snap.LessonID)
			continue
		}
		backup.Snapshots = append(backup.Snapshots, SnapshotBackup{
			LearnerID: snap.LearnerID,
			LessonID:  snap.LessonID,
			Data:      json.RawMessage(data.Bytes()),
			UpdatedAt: snap.UpdatedAt.UTC(),
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return 0, fmt.Errorf("failed to encode backup: %w", err)
	}
	return len(backup.Snapshots), nil
}

// Import restores snapshots from a backup file. With clearExisting the
// store is emptied first; otherwise imported rows overwrite matching ones.
func (s *BackupService) Import(ctx context.Context, inputPath string, clearExisting bool) error {
	s.log.Info("Starting snapshot import", "input", inputPath, "clear", clearExisting)

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file, clearExisting)
}

// ImportFromReader restores snapshots from a backup reader
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader, clearExisting bool) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.log.Info("Backup loaded", "version", backup.Version, "exported_at", backup.ExportedAt, "source", backup.DatabaseType)

	snapshots := make([]models.StoredSnapshot, 0, len(backup.Snapshots))
	for i, b := range backup.Snapshots {
		if b.LearnerID == "" || b.LessonID == "" {
			return fmt.Errorf("snapshot %d: learner_id and lesson_id are required", i)
		}
		// The indented export re-indents each blob
		var data bytes.Buffer
		if err := json.Compact(&data, b.Data); err != nil {
			return fmt.Errorf("snapshot %d: invalid data: %w", i, err)
		}
		snapshots = append(snapshots, models.StoredSnapshot{
			LearnerID: b.LearnerID,
			LessonID:  b.LessonID,
			Data:      data.Bytes(),
			UpdatedAt: b.UpdatedAt,
		})
	}

	if err := s.store.ReplaceAll(ctx, snapshots, clearExisting); err != nil {
		return fmt.Errorf("failed to import snapshots: %w", err)
	}

	s.log.Info("Snapshot import completed", "snapshots", len(snapshots))
	return nil
}
