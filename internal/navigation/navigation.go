// Package navigation holds the viewer's navigation state: the selected instant,
// zoom level and active layer. State changes are announced as "change" and
// "layerchange" events, and the selected instant is kept in sync with an
// external location channel.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ccviewer/navigator/internal/dispatcher"
	"github.com/ccviewer/navigator/pkg/core"

	"go.opentelemetry.io/otel/metric"
)

// Event names.
const (
	EventChange      = "change"
	EventLayerChange = "layerchange"
	EventFetchError  = "fetcherror"
)

// Layer fields that are fetched lazily.
const (
	FieldColormap     = "colormap"
	FieldAvailability = "availability"
)

// Location is the channel the selected instant is persisted to, such as a URL fragment.
type Location interface {
	// Read returns the current encoded value, or "" when there is none.
	Read() string
	// Write replaces the current value without creating a history entry.
	Write(fragment string)
	// Subscribe registers fn to be called whenever the value changes.
	Subscribe(fn func()) (cancel func())
}

// Fetcher retrieves a JSON document.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string) ([]byte, error)
}

// FetchError describes a layer table that could not be resolved.
type FetchError struct {
	Layer string
	Field string
	URL   string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s of layer %q from %s: %v", e.Field, e.Layer, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Option configures a Navigator.
type Option func(*Navigator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(n *Navigator) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithDispatcher publishes events on d instead of a private dispatcher.
// The caller keeps ownership of d.
func WithDispatcher(d *dispatcher.Dispatcher) Option {
	return func(n *Navigator) {
		if d != nil {
			n.events = d
		}
	}
}

type pendingKey struct {
	layer *core.Layer
	field string
}

// Navigator is the single source of truth for where the user is looking.
// It is safe for concurrent use. Event handlers run without any navigator
// lock held and may call back into the getters.
type Navigator struct {
	profile *core.Profile
	loc     Location
	fetcher Fetcher
	events  *dispatcher.Dispatcher
	logger  *slog.Logger

	ownsEvents     bool
	ctx            context.Context
	cancel         context.CancelFunc
	fetches        sync.WaitGroup
	unsubscribeLoc func()

	resolvedCount metric.Int64Counter
	failedCount   metric.Int64Counter
	fetchDuration metric.Float64Histogram

	mu         sync.RWMutex
	current    time.Time
	hasCurrent bool
	zoom       int
	layer      *core.Layer
	layerName  string
	echo       string
	pending    map[pendingKey]struct{}
}

// New creates a Navigator for profile, subscribes it to loc and seeds the
// selected instant from loc's current value.
func New(profile *core.Profile, loc Location, fetcher Fetcher, opts ...Option) (*Navigator, error) {
	if profile == nil {
		return nil, errors.New("navigation: profile is required")
	}
	if loc == nil {
		return nil, errors.New("navigation: location channel is required")
	}
	if fetcher == nil {
		return nil, errors.New("navigation: fetcher is required")
	}

	n := &Navigator{
		profile: profile,
		loc:     loc,
		fetcher: fetcher,
		logger:  slog.Default(),
		pending: make(map[pendingKey]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.events == nil {
		d, err := dispatcher.New(n.logger)
		if err != nil {
			return nil, fmt.Errorf("creating dispatcher: %w", err)
		}
		n.events = d
		n.ownsEvents = true
	}

	if err := n.initMetrics(); err != nil {
		return nil, err
	}

	n.ctx, n.cancel = context.WithCancel(context.Background())
	n.unsubscribeLoc = loc.Subscribe(n.Update)
	n.Update()

	return n, nil
}

// Close stops listening to the location channel, cancels in-flight fetches
// and waits for them to return.
func (n *Navigator) Close() {
	n.unsubscribeLoc()
	n.cancel()
	n.fetches.Wait()
	if n.ownsEvents {
		n.events.Close()
	}
}

// Wait blocks until all in-flight layer fetches have settled.
func (n *Navigator) Wait() {
	n.fetches.Wait()
}

// Profile returns the profile in effect.
func (n *Navigator) Profile() *core.Profile {
	return n.profile
}

// Events returns the dispatcher events are published on, for subscribers
// that need dispatcher options such as Buffered.
func (n *Navigator) Events() *dispatcher.Dispatcher {
	return n.events
}

// Update re-reads the location channel. Empty or unparseable values are ignored.
func (n *Navigator) Update() {
	value := n.loc.Read()
	if value == "" {
		return
	}

	n.mu.RLock()
	echo := n.echo
	n.mu.RUnlock()
	if echo != "" && value == echo {
		return
	}

	t, err := core.ParseFragment(value)
	if err != nil {
		n.logger.Debug("Ignoring location value", "fragment", value, "error", err)
		return
	}

	n.mu.Lock()
	n.current = t
	n.hasCurrent = true
	n.mu.Unlock()

	n.emit(dispatcher.Event{Name: EventChange})
}

// GetLayers returns the profile's layer catalog. Treat it as read-only.
func (n *Navigator) GetLayers() map[string]*core.Layer {
	return n.profile.Layers
}

// GetLayer returns the active layer, or nil when none is selected or the last
// SetLayer named an unknown layer. The pointer is shared with the profile;
// read its tables through GetColormap and GetAvailability.
func (n *Navigator) GetLayer() *core.Layer {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.layer
}

// GetLayerName returns the name of the active layer, or "" when unset.
func (n *Navigator) GetLayerName() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.layerName
}

// SetLayer makes name the active layer and emits change and layerchange.
// Unresolved colormap and availability refs are fetched in the background;
// each one that resolves emits change and layerchange again.
func (n *Navigator) SetLayer(name string) {
	n.mu.Lock()
	layer := n.profile.Layers[name]
	n.layer = layer
	n.layerName = ""

	var jobs []fetchJob
	if layer != nil {
		n.layerName = name
		if url, ok := layer.Colormap.URL(); ok && n.claim(layer, FieldColormap) {
			jobs = append(jobs, fetchJob{layerName: name, layer: layer, field: FieldColormap, url: url})
		}
		if url, ok := layer.Availability.URL(); ok && n.claim(layer, FieldAvailability) {
			jobs = append(jobs, fetchJob{layerName: name, layer: layer, field: FieldAvailability, url: url})
		}
	}
	n.mu.Unlock()

	if layer == nil {
		n.logger.Warn("Unknown layer selected", "layer", name)
	}

	n.emit(dispatcher.Event{Name: EventChange})
	n.emit(dispatcher.Event{Name: EventLayerChange})

	for _, job := range jobs {
		n.startFetch(job)
	}
}

// GetColormap returns the active layer's colormap once it has been resolved.
func (n *Navigator) GetColormap() (core.Colormap, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.layer == nil {
		return nil, false
	}
	return n.layer.Colormap.Value()
}

// GetCurrent returns the selected instant. ok is false until one has been set.
func (n *Navigator) GetCurrent() (t time.Time, ok bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current, n.hasCurrent
}

// SetCurrent selects t, replaces the location value with its encoding and
// emits change.
func (n *Navigator) SetCurrent(t time.Time) {
	t = t.UTC()
	fragment := core.FormatFragment(t)

	n.mu.Lock()
	n.current = t
	n.hasCurrent = true
	n.echo = fragment
	n.mu.Unlock()

	// A location that notifies synchronously calls Update from inside Write;
	// the echo marker keeps that from emitting a second change.
	n.loc.Write(fragment)

	n.mu.Lock()
	if n.echo == fragment {
		n.echo = ""
	}
	n.mu.Unlock()

	n.emit(dispatcher.Event{Name: EventChange})
}

// GetZoom returns the current zoom level.
func (n *Navigator) GetZoom() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.zoom
}

// SetZoom sets the zoom level and emits change. The value is not clamped;
// callers keep it within [0, GetMaxZoom()].
func (n *Navigator) SetZoom(zoom int) {
	n.mu.Lock()
	n.zoom = zoom
	n.mu.Unlock()

	n.emit(dispatcher.Event{Name: EventChange})
}

// GetMaxZoom returns the highest zoom level reachable from 0 without gaps,
// or -1 when the profile defines no zoom 0.
func (n *Navigator) GetMaxZoom() int {
	i := 0
	for {
		if _, ok := n.profile.Zoom[i]; !ok {
			return i - 1
		}
		i++
	}
}

// OnChange registers fn for change events.
func (n *Navigator) OnChange(fn func()) (unsubscribe func()) {
	return n.events.Subscribe(EventChange, func(dispatcher.Event) error {
		fn()
		return nil
	})
}

// OnLayerChange registers fn for layerchange events.
func (n *Navigator) OnLayerChange(fn func()) (unsubscribe func()) {
	return n.events.Subscribe(EventLayerChange, func(dispatcher.Event) error {
		fn()
		return nil
	})
}

// OnFetchError registers fn for layer tables that failed to load.
func (n *Navigator) OnFetchError(fn func(*FetchError)) (unsubscribe func()) {
	return n.events.Subscribe(EventFetchError, func(e dispatcher.Event) error {
		var fe *FetchError
		if errors.As(e.Err, &fe) {
			fn(fe)
		}
		return nil
	})
}

// LogAttrs describes the navigation state for log records.
func (n *Navigator) LogAttrs() []slog.Attr {
	n.mu.RLock()
	defer n.mu.RUnlock()
	attrs := []slog.Attr{
		slog.String("layer", n.layerName),
		slog.Int("zoom", n.zoom),
	}
	if n.hasCurrent {
		attrs = append(attrs, slog.String("current", core.FormatFragment(n.current)))
	}
	return attrs
}

func (n *Navigator) emit(e dispatcher.Event) {
	if err := n.events.Emit(e); err != nil {
		n.logger.Warn("Event not delivered", "event", e.Name, "error", err)
	}
}
