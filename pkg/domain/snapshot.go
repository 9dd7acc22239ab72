package domain

import (
	"sort"
	"time"
)

// Matrix is a row-major dense matrix as exported in a Snapshot.
type Matrix struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// At returns the element at row i, column j.
func (m Matrix) At(i, j int) float64 {
	return m.Data[i*m.Cols+j]
}

// Snapshot is the diagnostic export of one control tick.
type Snapshot struct {
	Tick      uint64               `json:"tick"`
	CreatedAt time.Time            `json:"created_at"`
	Matrices  map[string]Matrix    `json:"matrices"`
	Vectors   map[string][]float64 `json:"vectors"`
}

// NewSnapshot creates an empty snapshot for the given tick.
func NewSnapshot(tick uint64) *Snapshot {
	return &Snapshot{
		Tick:      tick,
		CreatedAt: time.Now(),
		Matrices:  make(map[string]Matrix),
		Vectors:   make(map[string][]float64),
	}
}

// Names lists every exported entry, sorted.
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.Matrices)+len(s.Vectors))
	for k := range s.Matrices {
		names = append(names, k)
	}
	for k := range s.Vectors {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// LevelReport summarises the last solve of one priority level.
type LevelReport struct {
	Level       int       `json:"level"`
	TaskID      string    `json:"task_id"`
	Variables   int       `json:"variables"`
	Constraints int       `json:"constraints"`
	Tier        string    `json:"tier,omitempty"`
	Iterations  int       `json:"iterations"`
	Residual    float64   `json:"residual"`
	Solution    []float64 `json:"solution,omitempty"`
}

// LevelSummary describes the current shape of one priority level.
type LevelSummary struct {
	Level       int    `json:"level"`
	TaskID      string `json:"task_id"`
	Rows        int    `json:"rows"`
	Constraints int    `json:"constraints"`
}
