package statecache

import (
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-call-cache/cache"
)

// Event is a cache mutation dispatched through a Host.
type Event interface {
	// EventID identifies the dispatched event.
	EventID() uuid.UUID
	event()
}

// EventMeta is embedded in every event.
type EventMeta struct {
	ID uuid.UUID
}

func (m EventMeta) EventID() uuid.UUID { return m.ID }

func (EventMeta) event() {}

func newMeta() EventMeta {
	return EventMeta{ID: uuid.New()}
}

// WriteEvent stores Value at Path.
type WriteEvent struct {
	EventMeta
	Path         cache.Path
	Value        any
	Timestamp    time.Time
	ExpiresAfter time.Duration
	MaxCacheSize int
}

// InvalidateEvent marks the subtree at Path invalid.
type InvalidateEvent struct {
	EventMeta
	Path cache.Path
}

// DeleteEvent removes the entry, or the subtree, at Path.
type DeleteEvent struct {
	EventMeta
	Path cache.Path
}

// RecordHitEvent increments the hit count at Path.
type RecordHitEvent struct {
	EventMeta
	Path cache.Path
}

// ClearEvent drops every entry.
type ClearEvent struct {
	EventMeta
}

// SweepEvent removes entries that are invalid or expired at Now.
type SweepEvent struct {
	EventMeta
	Now time.Time
}

// NewWrite builds a WriteEvent.
func NewWrite(path cache.Path, value any, at time.Time, opts cache.WriteOptions) WriteEvent {
	return WriteEvent{
		EventMeta:    newMeta(),
		Path:         path,
		Value:        value,
		Timestamp:    at,
		ExpiresAfter: opts.ExpiresAfter,
		MaxCacheSize: opts.MaxCacheSize,
	}
}

// NewInvalidate builds an InvalidateEvent.
func NewInvalidate(path cache.Path) InvalidateEvent {
	return InvalidateEvent{EventMeta: newMeta(), Path: path}
}

// NewDelete builds a DeleteEvent.
func NewDelete(path cache.Path) DeleteEvent {
	return DeleteEvent{EventMeta: newMeta(), Path: path}
}

// NewRecordHit builds a RecordHitEvent.
func NewRecordHit(path cache.Path) RecordHitEvent {
	return RecordHitEvent{EventMeta: newMeta(), Path: path}
}

// NewClear builds a ClearEvent.
func NewClear() ClearEvent {
	return ClearEvent{EventMeta: newMeta()}
}

// NewSweep builds a SweepEvent.
func NewSweep(now time.Time) SweepEvent {
	return SweepEvent{EventMeta: newMeta(), Now: now}
}
