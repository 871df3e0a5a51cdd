// Package mapsurface models the live interactive map instance a page renders into.
// A *Map is the map handle: it owns the listeners attached to it and the
// camera (center and zoom) the page draws.
package mapsurface

import (
	"sync"

	"github.com/UnknownOlympus/mapview/internal/models"
)

// Map event names.
const (
	EventClick = "click"
)

// MouseEvent is a pointer event on the map. LatLng is nil when the position
// could not be resolved.
type MouseEvent struct {
	LatLng *models.Coordinates
}

// Listener is a registered event callback.
type Listener interface {
	// Remove detaches the callback. Calling it more than once is a no-op.
	Remove()
}

// Handle is the live map instance seen by its owner.
type Handle interface {
	AddListener(event string, fn func(MouseEvent)) Listener
	SetCenter(center models.Coordinates)
}

// Map is an in-memory map instance. It is safe for concurrent use.
type Map struct {
	mu        sync.Mutex
	center    models.Coordinates
	zoom      int
	nextID    uint64
	listeners map[string]map[uint64]func(MouseEvent)
}

// New creates a map centered on center at the given zoom level.
func New(center models.Coordinates, zoom int) *Map {
	return &Map{
		center:    center,
		zoom:      zoom,
		listeners: make(map[string]map[uint64]func(MouseEvent)),
	}
}

// AddListener registers fn for event and returns a handle to detach it.
func (m *Map) AddListener(event string, fn func(MouseEvent)) Listener {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	if m.listeners[event] == nil {
		m.listeners[event] = make(map[uint64]func(MouseEvent))
	}
	m.listeners[event][id] = fn

	return &listener{m: m, event: event, id: id}
}

// Trigger dispatches ev to every listener registered for event and reports how
// many were called. Callbacks run on the caller's goroutine, outside the lock.
func (m *Map) Trigger(event string, ev MouseEvent) int {
	m.mu.Lock()
	fns := make([]func(MouseEvent), 0, len(m.listeners[event]))
	for _, fn := range m.listeners[event] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}

	return len(fns)
}

// ListenerCount reports how many callbacks are attached to event.
func (m *Map) ListenerCount(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.listeners[event])
}

// SetCenter moves the camera.
func (m *Map) SetCenter(center models.Coordinates) {
	m.mu.Lock()
	m.center = center
	m.mu.Unlock()
}

// Center returns the camera position.
func (m *Map) Center() models.Coordinates {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.center
}

// Zoom returns the camera zoom level.
func (m *Map) Zoom() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.zoom
}

type listener struct {
	m     *Map
	event string
	id    uint64
	once  sync.Once
}

func (l *listener) Remove() {
	l.once.Do(func() {
		l.m.mu.Lock()
		defer l.m.mu.Unlock()

		delete(l.m.listeners[l.event], l.id)
		if len(l.m.listeners[l.event]) == 0 {
			delete(l.m.listeners, l.event)
		}
	})
}
