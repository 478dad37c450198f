package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"englishdrills/internal/logger"
	"englishdrills/internal/metrics"
	"englishdrills/internal/models"
	"englishdrills/internal/repository"
)

// SnapshotStore persists raw snapshot blobs keyed by learner and lesson.
// repository.SQLSnapshotStore and repository.RedisSnapshotStore implement it.
type SnapshotStore interface {
	Get(ctx context.Context, learnerID, lessonID string) ([]byte, error)
	Put(ctx context.Context, snap models.StoredSnapshot) error
	List(ctx context.Context) ([]models.StoredSnapshot, error)
	ReplaceAll(ctx context.Context, snapshots []models.StoredSnapshot, clearExisting bool) error
}

// SnapshotService saves and loads lesson state. Saving is best-effort and
// loading never fails: storage problems are logged and counted, and the
// learner carries on with whatever state is in memory.
type SnapshotService struct {
	store   SnapshotStore
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewSnapshotService creates a snapshot service. A nil store disables
// persistence; a nil logger discards messages.
func NewSnapshotService(store SnapshotStore, log *logger.Logger, m *metrics.Metrics) *SnapshotService {
	if log == nil {
		log = logger.NewNop()
	}
	return &SnapshotService{store: store, log: log, metrics: m}
}

// Save writes the snapshot. Errors are swallowed.
func (s *SnapshotService) Save(ctx context.Context, learnerID, lessonID string, snap models.SessionSnapshot) {
	if s.store == nil {
		return
	}
	err := s.save(ctx, learnerID, lessonID, snap)
	s.metrics.ObserveSnapshot("save", err)
	if err != nil {
		s.log.Warn("Failed to save lesson state", "learner", learnerID, "lesson", lessonID, "error", err)
	}
}

func (s *SnapshotService) save(ctx context.Context, learnerID, lessonID string, snap models.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return s.store.Put(ctx, models.StoredSnapshot{
		LearnerID: learnerID,
		LessonID:  lessonID,
		Data:      data,
		UpdatedAt: time.Now(),
	})
}

// Load returns the stored snapshot, or an empty one when nothing usable is
// stored. The result never has nil maps.
func (s *SnapshotService) Load(ctx context.Context, learnerID, lessonID string) models.SessionSnapshot {
	empty := models.SessionSnapshot{}.WithDefaults()
	if s.store == nil {
		return empty
	}

	data, err := s.store.Get(ctx, learnerID, lessonID)
	if errors.Is(err, repository.ErrSnapshotNotFound) {
		return empty
	}
	s.metrics.ObserveSnapshot("load", err)
	if err != nil {
		s.log.Warn("Failed to load lesson state", "learner", learnerID, "lesson", lessonID, "error", err)
		return empty
	}

	var snap models.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Warn("Discarding corrupt lesson state", "learner", learnerID, "lesson", lessonID, "error", err)
		return empty
	}
	return snap.WithDefaults()
}
