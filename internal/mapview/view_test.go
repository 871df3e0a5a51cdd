package mapview_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/mapview/internal/geocoding"
	"github.com/UnknownOlympus/mapview/internal/mapsurface"
	"github.com/UnknownOlympus/mapview/internal/mapview"
	"github.com/UnknownOlympus/mapview/internal/metrics"
	"github.com/UnknownOlympus/mapview/internal/models"
	"github.com/UnknownOlympus/mapview/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestView(t *testing.T, provider geocoding.Provider) (*mapview.View, *mapsurface.Map) {
	t.Helper()

	view := mapview.New(slog.Default(), provider, "mock", metrics.NewMetrics(prometheus.NewRegistry()))
	ctx, cancel := context.WithCancel(context.Background())
	go view.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-view.Done()
	})

	surface := mapsurface.New(models.Coordinates{}, mapview.DefaultZoom)
	require.NoError(t, view.Load(t.Context(), surface))

	return view, surface
}

func click(surface *mapsurface.Map, lat, lng float64) {
	surface.Trigger(mapsurface.EventClick, mapsurface.MouseEvent{LatLng: &models.Coordinates{Latitude: lat, Longitude: lng}})
}

func TestView_InitialState(t *testing.T) {
	view, surface := newTestView(t, mocks.NewProvider(t))

	state, err := view.Snapshot(t.Context())

	require.NoError(t, err)
	assert.Equal(t, mapview.ViewState{}, state)
	assert.Equal(t, 1, surface.ListenerCount(mapsurface.EventClick))
}

func TestView_Geocode(t *testing.T) {
	ctx := t.Context()

	t.Run("success moves the point and opens the popup", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		view, surface := newTestView(t, provider)
		want := &models.Coordinates{Latitude: 37.4221, Longitude: -122.0841}
		provider.On("Geocode", mock.Anything, "1600 Amphitheatre Parkway").Return(want, nil).Once()

		require.NoError(t, view.SetAddress(ctx, "1600 Amphitheatre Parkway"))
		require.NoError(t, <-view.Geocode(ctx))

		state, err := view.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, *want, state.Coordinate)
		assert.Equal(t, state.Coordinate, state.PopupCoordinate)
		assert.True(t, state.PopupVisible)
		assert.Equal(t, *want, surface.Center())

		frame := state.Render()
		require.NotNil(t, frame.Popup)
		assert.Equal(t, "Latitude: 37.4221\nLongitude: -122.0841", frame.Popup.Text)
	})

	t.Run("zero results leave the state unchanged", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		view, surface := newTestView(t, provider)
		provider.On("Geocode", mock.Anything, "nowhere").Return(nil, geocoding.ErrEmptyResponse).Once()

		click(surface, 10, 20)
		require.NoError(t, view.ClosePopup(ctx))
		require.NoError(t, view.SetAddress(ctx, "nowhere"))
		before, err := view.Snapshot(ctx)
		require.NoError(t, err)

		err = <-view.Geocode(ctx)

		require.ErrorIs(t, err, geocoding.ErrNoResults)
		assert.Equal(t, geocoding.StatusZeroResults, geocoding.Status(err))
		after, err := view.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("provider error leaves the state unchanged", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		view, _ := newTestView(t, provider)
		provider.On("Geocode", mock.Anything, "").Return(nil, assert.AnError).Once()

		err := <-view.Geocode(ctx)

		require.ErrorIs(t, err, assert.AnError)
		state, err := view.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, mapview.ViewState{}, state)
	})

	t.Run("address is captured when the geocode starts", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		view, _ := newTestView(t, provider)
		release := make(chan struct{})
		want := &models.Coordinates{Latitude: 50.45, Longitude: 30.52}
		provider.On("Geocode", mock.Anything, "Kyiv").
			Run(func(mock.Arguments) { <-release }).
			Return(want, nil).Once()

		require.NoError(t, view.SetAddress(ctx, "Kyiv"))
		result := view.Geocode(ctx)
		require.NoError(t, view.SetAddress(ctx, "Lviv"))
		close(release)
		require.NoError(t, <-result)

		state, err := view.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Lviv", state.Address)
		assert.Equal(t, *want, state.Coordinate)
	})
}

func TestView_MapClick(t *testing.T) {
	ctx := t.Context()

	t.Run("click with a position opens the popup there", func(t *testing.T) {
		view, surface := newTestView(t, mocks.NewProvider(t))

		click(surface, 48.8584, 2.2945)

		state, err := view.Snapshot(ctx)
		require.NoError(t, err)
		want := models.Coordinates{Latitude: 48.8584, Longitude: 2.2945}
		assert.Equal(t, want, state.Coordinate)
		assert.Equal(t, want, state.PopupCoordinate)
		assert.True(t, state.PopupVisible)
		assert.Equal(t, want, surface.Center())
	})

	t.Run("click on the equator is still a position", func(t *testing.T) {
		view, surface := newTestView(t, mocks.NewProvider(t))

		click(surface, 0, 12.5)

		state, err := view.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.Coordinates{Latitude: 0, Longitude: 12.5}, state.Coordinate)
		assert.True(t, state.PopupVisible)
	})

	t.Run("click without a position is ignored", func(t *testing.T) {
		view, surface := newTestView(t, mocks.NewProvider(t))

		surface.Trigger(mapsurface.EventClick, mapsurface.MouseEvent{})

		state, err := view.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, mapview.ViewState{}, state)
	})
}

func TestView_MarkerDragEnd(t *testing.T) {
	ctx := t.Context()
	dropped := models.Coordinates{Latitude: 51.5007, Longitude: -0.1246}

	t.Run("hidden popup stays hidden", func(t *testing.T) {
		view, _ := newTestView(t, mocks.NewProvider(t))

		require.NoError(t, view.MarkerDragEnd(ctx, mapsurface.MouseEvent{LatLng: &dropped}))

		state, err := view.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, dropped, state.Coordinate)
		assert.Equal(t, dropped, state.PopupCoordinate)
		assert.False(t, state.PopupVisible)
	})

	t.Run("visible popup stays visible", func(t *testing.T) {
		view, surface := newTestView(t, mocks.NewProvider(t))
		click(surface, 1, 1)

		require.NoError(t, view.MarkerDragEnd(ctx, mapsurface.MouseEvent{LatLng: &dropped}))

		state, err := view.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, dropped, state.Coordinate)
		assert.True(t, state.PopupVisible)
		assert.Equal(t, dropped, surface.Center())
	})

	t.Run("drag without a position is ignored", func(t *testing.T) {
		view, surface := newTestView(t, mocks.NewProvider(t))
		click(surface, 1, 1)
		before, err := view.Snapshot(ctx)
		require.NoError(t, err)

		require.NoError(t, view.MarkerDragEnd(ctx, mapsurface.MouseEvent{}))

		after, err := view.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestView_ClosePopup(t *testing.T) {
	ctx := t.Context()
	view, surface := newTestView(t, mocks.NewProvider(t))
	click(surface, 35.6586, 139.7454)

	require.NoError(t, view.ClosePopup(ctx))

	state, err := view.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, state.PopupVisible)
	assert.Equal(t, models.Coordinates{Latitude: 35.6586, Longitude: 139.7454}, state.Coordinate)
	assert.Nil(t, state.Render().Popup)
}

func TestView_ListenerLifecycle(t *testing.T) {
	ctx := t.Context()

	t.Run("address changes do not re-register the listener", func(t *testing.T) {
		view, surface := newTestView(t, mocks.NewProvider(t))

		for _, address := range []string{"a", "ab", "abc"} {
			require.NoError(t, view.SetAddress(ctx, address))
		}
		require.NoError(t, view.Load(ctx, surface))

		assert.Equal(t, 1, surface.ListenerCount(mapsurface.EventClick))
	})

	t.Run("replacing the handle moves the listener", func(t *testing.T) {
		view, first := newTestView(t, mocks.NewProvider(t))
		second := mapsurface.New(models.Coordinates{}, mapview.DefaultZoom)

		require.NoError(t, view.Load(ctx, second))

		assert.Zero(t, first.ListenerCount(mapsurface.EventClick))
		assert.Equal(t, 1, second.ListenerCount(mapsurface.EventClick))
	})

	t.Run("unmount detaches and clicks stop reaching the view", func(t *testing.T) {
		view, surface := newTestView(t, mocks.NewProvider(t))

		require.NoError(t, view.Unmount(ctx))
		require.NoError(t, view.Unmount(ctx))

		assert.Zero(t, surface.ListenerCount(mapsurface.EventClick))
		assert.Zero(t, surface.Trigger(mapsurface.EventClick, mapsurface.MouseEvent{}))
		state, err := view.Snapshot(ctx)
		require.NoError(t, err)
		assert.False(t, state.PopupVisible)
	})

	t.Run("stopped loop detaches and rejects calls", func(t *testing.T) {
		view := mapview.New(slog.Default(), mocks.NewProvider(t), "mock", metrics.NewMetrics(prometheus.NewRegistry()))
		loopCtx, cancel := context.WithCancel(ctx)
		go view.Run(loopCtx)
		surface := mapsurface.New(models.Coordinates{}, mapview.DefaultZoom)
		require.NoError(t, view.Load(ctx, surface))

		cancel()
		<-view.Done()

		assert.Zero(t, surface.ListenerCount(mapsurface.EventClick))
		require.ErrorIs(t, view.SetAddress(ctx, "x"), mapview.ErrUnmounted)
		require.ErrorIs(t, <-view.Geocode(ctx), mapview.ErrUnmounted)
		_, err := view.Snapshot(ctx)
		require.ErrorIs(t, err, mapview.ErrUnmounted)
	})
}
