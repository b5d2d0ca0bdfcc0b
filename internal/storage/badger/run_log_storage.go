package badger

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// logSequence is a global counter to ensure unique log keys even within the same nanosecond
var logSequence uint64

// RunLogStorage implements the RunLogStorage interface for Badger
type RunLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunLogStorage creates a new RunLogStorage instance
func NewRunLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunLogStorage {
	return &RunLogStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RunLogStorage) AppendEntry(ctx context.Context, runID string, entry models.RunLogEntry) error {
	entry.RunID = runID

	// Composite key: timestamp plus atomic counter. Keys stay unique when
	// multiple lines land in the same nanosecond.
	seq := atomic.AddUint64(&logSequence, 1)
	entry.Sequence = fmt.Sprintf("%d_%010d", time.Now().UnixNano(), seq)
	key := fmt.Sprintf("%s_%s", runID, entry.Sequence)

	if err := s.db.Store().Insert(key, &entry); err != nil {
		return fmt.Errorf("failed to append run log: %w", err)
	}
	return nil
}

func (s *RunLogStorage) GetEntries(ctx context.Context, runID string, minLevel string) ([]models.RunLogEntry, error) {
	var entries []models.RunLogEntry
	query := badgerhold.Where("RunID").Eq(runID).SortBy("Sequence")
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to get run logs: %w", err)
	}

	if minLevel == "" {
		return entries, nil
	}

	// Level ranking cannot be expressed as a badgerhold query; filter here.
	filtered := entries[:0]
	for _, e := range entries {
		if models.LevelAtLeast(e.Level, minLevel) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func (s *RunLogStorage) ListRunIDs(ctx context.Context, limit int) ([]string, error) {
	var entries []models.RunLogEntry
	if err := s.db.Store().Find(&entries, badgerhold.Where("RunID").Ne("").SortBy("Sequence").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to scan run logs: %w", err)
	}

	seen := make(map[string]bool)
	ids := []string{}
	for _, e := range entries {
		if seen[e.RunID] {
			continue
		}
		seen[e.RunID] = true
		ids = append(ids, e.RunID)
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids, nil
}

func (s *RunLogStorage) DeleteRun(ctx context.Context, runID string) error {
	if err := s.db.Store().DeleteMatching(&models.RunLogEntry{}, badgerhold.Where("RunID").Eq(runID)); err != nil {
		return fmt.Errorf("failed to delete run logs: %w", err)
	}
	return nil
}
