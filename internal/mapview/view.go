// Package mapview holds the address map page: its view state and the handlers
// that mutate it. Each View runs a single event loop; every handler executes on
// that loop in arrival order, so the state needs no locking.
package mapview

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/mapview/internal/geocoding"
	"github.com/UnknownOlympus/mapview/internal/mapsurface"
	"github.com/UnknownOlympus/mapview/internal/metrics"
	"github.com/UnknownOlympus/mapview/internal/models"
)

// ErrUnmounted is returned by every call made after the view's loop has stopped.
var ErrUnmounted = errors.New("map view is unmounted")

// View kinds reported to metrics.
const (
	eventAddress = "address"
	eventGeocode = "geocode"
	eventClick   = "click"
	eventDragEnd = "dragend"
	eventClose   = "close"
)

// View is one mounted address map page.
type View struct {
	log          *slog.Logger
	provider     geocoding.Provider
	providerName string
	metrics      *metrics.Metrics

	events  chan func()
	stopped chan struct{}

	// Owned by the Run goroutine.
	state  ViewState
	handle mapsurface.Handle
	click  mapsurface.Listener
}

// New creates a view in its initial state: empty address, coordinate (0, 0),
// popup hidden. Call Run before using it.
func New(log *slog.Logger, provider geocoding.Provider, providerName string, m *metrics.Metrics) *View {
	return &View{
		log:          log,
		provider:     provider,
		providerName: providerName,
		metrics:      m,
		events:       make(chan func()),
		stopped:      make(chan struct{}),
	}
}

// Run processes handlers until ctx is canceled. On exit the click listener is
// detached and all later calls fail with ErrUnmounted.
func (v *View) Run(ctx context.Context) {
	v.metrics.ActiveViews.Inc()
	defer v.metrics.ActiveViews.Dec()
	defer close(v.stopped)
	defer v.detach()

	for {
		select {
		case <-ctx.Done():
			v.log.DebugContext(ctx, "Map view loop stopped")
			return
		case fn := <-v.events:
			fn()
		}
	}
}

// Done is closed once Run has returned.
func (v *View) Done() <-chan struct{} {
	return v.stopped
}

// Load takes ownership of a map handle: the click listener is attached once for
// the handle's lifetime. Loading the same handle again changes nothing; a new
// handle replaces the old one and the old listener is detached first.
func (v *View) Load(ctx context.Context, handle mapsurface.Handle) error {
	return v.do(ctx, func() {
		if v.handle == handle {
			return
		}
		v.detach()
		v.handle = handle
		v.click = handle.AddListener(mapsurface.EventClick, v.onMapClick)
		handle.SetCenter(v.state.Coordinate)
		v.log.DebugContext(ctx, "Map handle loaded, click listener attached")
	})
}

// Unmount releases the map handle and its listener.
func (v *View) Unmount(ctx context.Context) error {
	return v.do(ctx, v.detach)
}

// SetAddress replaces the address text.
func (v *View) SetAddress(ctx context.Context, address string) error {
	return v.do(ctx, func() {
		v.state.Address = address
		v.metrics.ViewEvents.WithLabelValues(eventAddress).Inc()
	})
}

// Geocode resolves the address text as it is at call time. The provider is
// called off the loop; on success the coordinate moves and the popup opens.
// On failure the state is left as it was and the error is logged.
// The returned channel receives exactly one value: nil or the failure.
func (v *View) Geocode(ctx context.Context) <-chan error {
	out := make(chan error, 1)

	var address string
	if err := v.do(ctx, func() { address = v.state.Address }); err != nil {
		out <- err
		return out
	}

	go func() {
		start := time.Now()
		coords, err := v.provider.Geocode(ctx, address)
		v.metrics.RequestSeconds.WithLabelValues(v.providerName).Observe(time.Since(start).Seconds())

		status := geocoding.Status(err)
		v.metrics.GeocodeRequests.WithLabelValues(status).Inc()

		if err != nil {
			if status != geocoding.StatusZeroResults {
				v.metrics.APIErrors.Inc()
			}
			v.log.ErrorContext(ctx, "Geocode was not successful",
				"address", address, "status", status, "error", err)
			out <- err
			return
		}

		// The completion is applied even if the caller went away.
		out <- v.do(context.WithoutCancel(ctx), func() {
			v.showAt(*coords)
			v.metrics.ViewEvents.WithLabelValues(eventGeocode).Inc()
			v.log.DebugContext(ctx, "Geocode applied", "address", address, "coords", coords.String())
		})
	}()

	return out
}

// MarkerDragEnd moves the coordinate to where the marker was dropped. Popup
// visibility is left as it was.
func (v *View) MarkerDragEnd(ctx context.Context, ev mapsurface.MouseEvent) error {
	return v.do(ctx, func() {
		if ev.LatLng == nil {
			v.log.DebugContext(ctx, "Ignoring marker drag without a position")
			return
		}
		v.moveTo(*ev.LatLng)
		v.metrics.ViewEvents.WithLabelValues(eventDragEnd).Inc()
	})
}

// ClosePopup hides the popup. Coordinates are untouched.
func (v *View) ClosePopup(ctx context.Context) error {
	return v.do(ctx, func() {
		v.state.PopupVisible = false
		v.metrics.ViewEvents.WithLabelValues(eventClose).Inc()
	})
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot(ctx context.Context) (ViewState, error) {
	var s ViewState
	err := v.do(ctx, func() { s = v.state })

	return s, err
}

// onMapClick runs on whichever goroutine triggered the map event.
func (v *View) onMapClick(ev mapsurface.MouseEvent) {
	v.post(func() {
		if ev.LatLng == nil {
			v.log.Debug("Ignoring map click without a position")
			return
		}
		v.showAt(*ev.LatLng)
		v.metrics.ViewEvents.WithLabelValues(eventClick).Inc()
	})
}

func (v *View) showAt(c models.Coordinates) {
	v.moveTo(c)
	v.state.PopupVisible = true
}

func (v *View) moveTo(c models.Coordinates) {
	v.state.Coordinate = c
	v.state.PopupCoordinate = c
	if v.handle != nil {
		v.handle.SetCenter(c)
	}
}

func (v *View) detach() {
	if v.click != nil {
		v.click.Remove()
		v.click = nil
		v.log.Debug("Click listener detached")
	}
	v.handle = nil
}

// do runs fn on the loop and waits for it to finish.
func (v *View) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case v.events <- func() { fn(); close(done) }:
	case <-v.stopped:
		return ErrUnmounted
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done

	return nil
}

// post queues fn on the loop without waiting for it to run.
func (v *View) post(fn func()) {
	select {
	case v.events <- fn:
	case <-v.stopped:
	}
}
