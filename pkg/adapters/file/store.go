package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/sot/pkg/domain"
)

const (
	filePrefix = "tick-"
	fileExt    = ".json"
)

// Store implements ports.SnapshotStore using the local filesystem.
// It stores one JSON file per tick in a configured directory.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".sot/snapshots".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".sot", "snapshots")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(tick uint64) string {
	return filepath.Join(s.BasePath, fmt.Sprintf("%s%020d%s", filePrefix, tick, fileExt))
}

// Save persists the snapshot to a JSON file atomically.
// It writes to a temporary file, syncs it and renames it over the destination.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// Same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows can't rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	destPath := s.path(snap.Tick)
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing snapshot for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to snapshot: %w", err)
	}
	return nil
}

// Load retrieves the snapshot of a tick.
func (s *Store) Load(ctx context.Context, tick uint64) (*domain.Snapshot, error) {
	data, err := os.ReadFile(s.path(tick))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Latest retrieves the snapshot with the highest tick.
func (s *Store) Latest(ctx context.Context) (*domain.Snapshot, error) {
	ticks, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(ticks) == 0 {
		return nil, domain.ErrSnapshotNotFound
	}
	return s.Load(ctx, ticks[len(ticks)-1])
}

// List returns the stored ticks in ascending order.
func (s *Store) List(ctx context.Context) ([]uint64, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []uint64{}, nil
		}
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	ticks := []uint64{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || filepath.Ext(name) != fileExt {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt), 10, 64)
		if err != nil {
			continue
		}
		ticks = append(ticks, tick)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	return ticks, nil
}
