package influx

import (
	"time"

	"github.com/ccviewer/navigator/internal/navigation"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement is the measurement name of navigation points.
const Measurement = "navigation"

// Snapshot is the navigation state captured for one point.
type Snapshot struct {
	Event      string
	Layer      string
	Zoom       int
	Current    time.Time
	HasCurrent bool
	Field      string // fetcherror only
}

// NewPoint builds a navigation point tagged with event and layer.
func NewPoint(s Snapshot, ts time.Time) *influxdb2_write.Point {
	tags := map[string]string{
		"event": s.Event,
		"layer": s.Layer,
	}
	if s.Field != "" {
		tags["field"] = s.Field
	}

	fields := map[string]any{
		"zoom": s.Zoom,
	}
	if s.HasCurrent {
		fields["current_unix"] = s.Current.Unix()
	}

	return influxdb2_write.NewPoint(Measurement, tags, fields, ts)
}

// Track writes a point for every change, layerchange and fetcherror event of
// nav until the returned func is called.
func (m *Manager) Track(nav *navigation.Navigator) (stop func()) {
	snapshot := func(event string) Snapshot {
		cur, ok := nav.GetCurrent()
		return Snapshot{
			Event:      event,
			Layer:      nav.GetLayerName(),
			Zoom:       nav.GetZoom(),
			Current:    cur,
			HasCurrent: ok,
		}
	}

	write := func(s Snapshot) {
		if err := m.WritePoint(NewPoint(s, time.Now())); err != nil {
			m.Logger.Warn().Err(err).Str("event", s.Event).Msg("Failed to write navigation point")
		}
	}

	unsubs := []func(){
		nav.OnChange(func() { write(snapshot(navigation.EventChange)) }),
		nav.OnLayerChange(func() { write(snapshot(navigation.EventLayerChange)) }),
		nav.OnFetchError(func(fe *navigation.FetchError) {
			s := snapshot(navigation.EventFetchError)
			s.Layer = fe.Layer
			s.Field = fe.Field
			write(s)
		}),
	}

	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
