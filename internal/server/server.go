// Package server exposes a Navigator over HTTP: state queries, navigation
// commands, a websocket event stream and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ccviewer/navigator/internal/availability"
	"github.com/ccviewer/navigator/internal/dispatcher"
	"github.com/ccviewer/navigator/internal/navigation"
	"github.com/ccviewer/navigator/pkg/core"
	"github.com/ccviewer/navigator/pkg/streaming"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	ws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
)

const (
	maxBodyBytes    = 1 << 16
	shutdownTimeout = 5 * time.Second
)

// History is the writable side of the location channel.
type History interface {
	Navigate(fragment string)
	Back() bool
	Forward() bool
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry serves reg on /metrics, so collectors registered elsewhere,
// such as the OpenTelemetry exporter, are exposed alongside the HTTP metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// Server serves one Navigator.
type Server struct {
	nav     *navigation.Navigator
	history History
	logger  *slog.Logger
	router  *chi.Mux
	metrics *metrics

	registry *prometheus.Registry

	upgrader    ws.Upgrader
	unsubscribe []func()

	mu      sync.Mutex
	clients map[*client]struct{}
}

// New builds the router and starts forwarding nav's events to stream clients.
// Call Close to stop forwarding.
func New(nav *navigation.Navigator, history History, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		nav:     nav,
		history: history,
		logger:  logger,
		clients: make(map[*client]struct{}),
		upgrader: ws.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(s.registry)

	// forward never blocks, so it runs inline and clients see events in emit order.
	for _, name := range []string{navigation.EventChange, navigation.EventLayerChange, navigation.EventFetchError} {
		s.unsubscribe = append(s.unsubscribe, nav.Events().Subscribe(name, s.forward))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/state", s.handleState)
	r.Put("/location", s.handleNavigate)
	r.Post("/location/back", s.handleBack)
	r.Post("/location/forward", s.handleForward)
	r.Put("/zoom", s.handleZoom)
	r.Put("/layer", s.handleLayer)
	r.Get("/available", s.handleAvailable)
	r.Get("/events", s.handleEvents)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	s.closeClients()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// Close stops event forwarding and disconnects stream clients.
func (s *Server) Close() {
	for _, unsub := range s.unsubscribe {
		unsub()
	}
	s.closeClients()
}

// State returns a snapshot of the navigator.
func (s *Server) State() streaming.State {
	layers := lo.Keys(s.nav.GetLayers())
	sort.Strings(layers)

	st := streaming.State{
		Zoom:         s.nav.GetZoom(),
		MaxZoom:      s.nav.GetMaxZoom(),
		Layer:        s.nav.GetLayerName(),
		Layers:       layers,
		Availability: s.nav.GetAvailability(),
	}
	if st.Availability == nil {
		st.Availability = []core.Range{}
	}
	if t, ok := s.nav.GetCurrent(); ok {
		st.Fragment = core.FormatFragment(t)
	}
	_, st.Colormap = s.nav.GetColormap()
	return st
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.State())
}

type locationRequest struct {
	Fragment string `json:"fragment"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := core.ParseFragment(req.Fragment); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.history.Navigate(req.Fragment)
	writeJSON(w, http.StatusOK, s.State())
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	if !s.history.Back() {
		writeError(w, http.StatusConflict, "no earlier location")
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	if !s.history.Forward() {
		writeError(w, http.StatusConflict, "no later location")
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

type zoomRequest struct {
	Zoom int `json:"zoom"`
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if !decode(w, r, &req) {
		return
	}
	maxZoom := s.nav.GetMaxZoom()
	if maxZoom < 0 {
		writeError(w, http.StatusConflict, "profile defines no zoom levels")
		return
	}
	s.nav.SetZoom(lo.Clamp(req.Zoom, 0, maxZoom))
	writeJSON(w, http.StatusOK, s.State())
}

type layerRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleLayer(w http.ResponseWriter, r *http.Request) {
	var req layerRequest
	if !decode(w, r, &req) {
		return
	}
	s.nav.SetLayer(req.Name)
	writeJSON(w, http.StatusOK, s.State())
}

type availableResponse struct {
	Available bool            `json:"available"`
	Intervals []core.Interval `json:"intervals"`
	Merged    []core.Interval `json:"merged"`
}

func (s *Server) handleAvailable(w http.ResponseWriter, r *http.Request) {
	start, err := core.ParseFragment(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start: "+err.Error())
		return
	}
	end, err := core.ParseFragment(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end: "+err.Error())
		return
	}

	resp := availableResponse{
		Available: s.nav.IsAvailable(start, end),
		Intervals: s.nav.AvailableBetween(start, end),
	}
	resp.Merged = availability.Merge(resp.Intervals)
	if resp.Intervals == nil {
		resp.Intervals = []core.Interval{}
	}
	if resp.Merged == nil {
		resp.Merged = []core.Interval{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.logger.Debug("WebSocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn, s.logger.With("remote", r.RemoteAddr))
	s.addClient(c)

	go c.writeLoop()
	c.readLoop()

	s.removeClient(c)
	_ = c.close()
}

// forward relays a navigation event to every stream client.
func (s *Server) forward(e dispatcher.Event) error {
	var payload any
	if e.Name == navigation.EventFetchError {
		p := streaming.FetchErrorPayload{Layer: e.Layer, Field: e.Field}
		var fe *navigation.FetchError
		if errors.As(e.Err, &fe) {
			p.URL = fe.URL
		}
		if e.Err != nil {
			p.Error = e.Err.Error()
		}
		payload = p
	}

	data, err := streaming.Encode(e.Name, payload)
	if err != nil {
		return err
	}
	s.metrics.events.WithLabelValues(e.Name).Inc()

	// Sending under mu orders every event after the hello of a client
	// attached concurrently.
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.send(data)
	}
	return nil
}

// addClient queues hello with the current state, then joins c to the
// broadcast set.
func (s *Server) addClient(c *client) {
	s.mu.Lock()
	hello, err := streaming.Encode(streaming.TypeHello, s.State())
	if err != nil {
		s.logger.Error("Failed to encode hello", "error", err)
	} else {
		c.send(hello)
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.metrics.clients.Inc()
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		s.metrics.clients.Dec()
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	clients := lo.Keys(s.clients)
	s.mu.Unlock()

	for _, c := range clients {
		s.removeClient(c)
		_ = c.close()
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
