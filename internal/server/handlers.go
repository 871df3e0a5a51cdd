package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/UnknownOlympus/mapview/internal/geocoding"
	"github.com/UnknownOlympus/mapview/internal/mapsurface"
	"github.com/UnknownOlympus/mapview/internal/mapview"
	"github.com/UnknownOlympus/mapview/internal/models"
	"github.com/UnknownOlympus/mapview/internal/session"
	"github.com/gin-gonic/gin"
)

type addressRequest struct {
	Address string `json:"address"`
}

// pointRequest carries an optional position; either field missing means the
// event has no resolvable position.
type pointRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (p pointRequest) event() mapsurface.MouseEvent {
	if p.Lat == nil || p.Lng == nil {
		return mapsurface.MouseEvent{}
	}

	return mapsurface.MouseEvent{LatLng: &models.Coordinates{Latitude: *p.Lat, Longitude: *p.Lng}}
}

type frameResponse struct {
	SessionID string            `json:"sessionId"`
	State     mapview.ViewState `json:"state"`
	Frame     mapview.Frame     `json:"frame"`
	Status    string            `json:"status,omitempty"` // geocode outcome, only on /geocode
	Error     string            `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) mount(c *gin.Context) {
	sess, err := s.sessions.Mount(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	s.respond(c, http.StatusCreated, sess, "", nil)
}

func (s *Server) unmount(c *gin.Context) {
	if err := s.sessions.Unmount(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) frame(c *gin.Context) {
	s.withSession(c, func(context.Context, *session.Session) error { return nil })
}

func (s *Server) setAddress(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "body must be {\"address\": string}"})
		return
	}

	s.withSession(c, func(ctx context.Context, sess *session.Session) error {
		return sess.View.SetAddress(ctx, req.Address)
	})
}

// geocode waits for the outcome. A failed geocode is not an HTTP error: the
// view state is unchanged and the status tells the page why.
func (s *Server) geocode(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	geoErr := <-sess.View.Geocode(c.Request.Context())
	if errors.Is(geoErr, mapview.ErrUnmounted) || errors.Is(geoErr, context.Canceled) {
		s.fail(c, geoErr)
		return
	}

	s.respond(c, http.StatusOK, sess, geocoding.Status(geoErr), geoErr)
}

func (s *Server) mapClick(c *gin.Context) {
	var req pointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "body must be {\"lat\": number, \"lng\": number}"})
		return
	}

	s.withSession(c, func(_ context.Context, sess *session.Session) error {
		sess.Surface.Trigger(mapsurface.EventClick, req.event())
		return nil
	})
}

func (s *Server) markerDragEnd(c *gin.Context) {
	var req pointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "body must be {\"lat\": number, \"lng\": number}"})
		return
	}

	s.withSession(c, func(ctx context.Context, sess *session.Session) error {
		return sess.View.MarkerDragEnd(ctx, req.event())
	})
}

func (s *Server) closePopup(c *gin.Context) {
	s.withSession(c, func(ctx context.Context, sess *session.Session) error {
		return sess.View.ClosePopup(ctx)
	})
}

func (s *Server) geojson(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	state, err := sess.View.Snapshot(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, frameFeatures(state.Render()))
}

// withSession runs fn against the session in the path and answers with its frame.
func (s *Server) withSession(c *gin.Context, fn func(ctx context.Context, sess *session.Session) error) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	if err = fn(c.Request.Context(), sess); err != nil {
		s.fail(c, err)
		return
	}

	s.respond(c, http.StatusOK, sess, "", nil)
}

func (s *Server) respond(c *gin.Context, code int, sess *session.Session, status string, geoErr error) {
	state, err := sess.View.Snapshot(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := frameResponse{SessionID: sess.ID, State: state, Frame: state.Render(), Status: status}
	if geoErr != nil {
		resp.Error = geoErr.Error()
	}
	c.JSON(code, resp)
}

func (s *Server) fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, mapview.ErrUnmounted):
		code = http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	default:
		s.log.ErrorContext(c.Request.Context(), "Request failed", "path", c.FullPath(), "error", err)
	}

	c.JSON(code, errorResponse{Error: err.Error()})
}
