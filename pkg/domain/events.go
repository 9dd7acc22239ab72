package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTickStart    EventType = "tick_start"
	EventTickEnd      EventType = "tick_end"
	EventLevelSolved  EventType = "level_solved"
	EventSolveAttempt EventType = "solve_attempt"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Tick      uint64    `json:"tick"`
}

// TickEvent marks the start or the end of a control tick.
type TickEvent struct {
	EventBase
	Levels   int           `json:"levels"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// LevelEvent reports the outcome of one priority level.
type LevelEvent struct {
	EventBase
	Level       int           `json:"level"`
	TaskID      string        `json:"task_id"`
	Constraints int           `json:"constraints"`
	Duration    time.Duration `json:"duration"`
	Err         error         `json:"-"`
}

// SolveAttemptEvent reports one retry tier tried by the QP backend.
type SolveAttemptEvent struct {
	EventBase
	Level      int    `json:"level"`
	Tier       string `json:"tier"`
	Iterations int    `json:"iterations"`
	Err        error  `json:"-"`
}

// LifecycleHooks defines callbacks for solver observability.
type LifecycleHooks struct {
	OnTickStart    func(context.Context, *TickEvent)
	OnTickEnd      func(context.Context, *TickEvent)
	OnLevelSolved  func(context.Context, *LevelEvent)
	OnSolveAttempt func(context.Context, *SolveAttemptEvent)
}
