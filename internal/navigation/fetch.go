package navigation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ccviewer/navigator/internal/dispatcher"
	"github.com/ccviewer/navigator/pkg/core"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/ccviewer/navigator/internal/navigation"

type fetchJob struct {
	layerName string
	layer     *core.Layer
	field     string
	url       string
}

func (n *Navigator) initMetrics() error {
	m := otel.Meter(instrumentationName)

	var err error
	n.resolvedCount, err = m.Int64Counter(
		"navigation.fetch.resolved",
		metric.WithDescription("Layer tables fetched and resolved"),
	)
	if err != nil {
		return fmt.Errorf("creating resolved counter: %w", err)
	}

	n.failedCount, err = m.Int64Counter(
		"navigation.fetch.failed",
		metric.WithDescription("Layer table fetches that failed"),
	)
	if err != nil {
		return fmt.Errorf("creating failed counter: %w", err)
	}

	n.fetchDuration, err = m.Float64Histogram(
		"navigation.fetch.duration",
		metric.WithDescription("Layer table fetch duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return fmt.Errorf("creating fetch duration histogram: %w", err)
	}

	return nil
}

// claim marks a layer field as being fetched. It reports false when a fetch
// for it is already in flight. Callers hold n.mu.
func (n *Navigator) claim(layer *core.Layer, field string) bool {
	key := pendingKey{layer: layer, field: field}
	if _, busy := n.pending[key]; busy {
		return false
	}
	n.pending[key] = struct{}{}
	return true
}

func (n *Navigator) startFetch(job fetchJob) {
	n.fetches.Add(1)
	go func() {
		defer n.fetches.Done()
		n.runFetch(job)
	}()
}

// runFetch loads one table and resolves it in place on the shared layer.
// The layer may no longer be active by then; the result still lands and the
// events still fire, so consumers compare GetLayer() if they care.
func (n *Navigator) runFetch(job fetchJob) {
	url := n.profile.Prefix + "/" + job.url
	attrs := metric.WithAttributes(
		attribute.String("layer", job.layerName),
		attribute.String("field", job.field),
	)

	start := time.Now()
	data, err := n.fetcher.FetchJSON(n.ctx, url)
	n.fetchDuration.Record(context.Background(), float64(time.Since(start).Milliseconds()), attrs)

	if err == nil {
		err = n.resolve(job, data)
	}

	n.mu.Lock()
	delete(n.pending, pendingKey{layer: job.layer, field: job.field})
	n.mu.Unlock()

	if err != nil {
		if n.ctx.Err() != nil {
			n.logger.Debug("Layer fetch cancelled", "layer", job.layerName, "field", job.field)
			return
		}
		n.failedCount.Add(context.Background(), 1, attrs)
		fe := &FetchError{Layer: job.layerName, Field: job.field, URL: url, Err: err}
		n.logger.Error("Layer fetch failed", "layer", job.layerName, "field", job.field, "url", url, "error", err)
		n.emit(dispatcher.Event{Name: EventFetchError, Layer: job.layerName, Field: job.field, Err: fe})
		return
	}

	n.resolvedCount.Add(context.Background(), 1, attrs)
	n.logger.Debug("Layer table resolved", "layer", job.layerName, "field", job.field,
		"duration", time.Since(start))

	n.emit(dispatcher.Event{Name: EventChange})
	n.emit(dispatcher.Event{Name: EventLayerChange})
}

func (n *Navigator) resolve(job fetchJob, data []byte) error {
	switch job.field {
	case FieldColormap:
		if !json.Valid(data) {
			return fmt.Errorf("colormap is not valid JSON")
		}
		cm := make(core.Colormap, len(data))
		copy(cm, data)

		n.mu.Lock()
		if !job.layer.Colormap.IsResolved() {
			job.layer.Colormap.Resolve(cm)
		}
		n.mu.Unlock()

	case FieldAvailability:
		var table core.AvailabilityTable
		if err := json.Unmarshal(data, &table); err != nil {
			return fmt.Errorf("decoding availability: %w", err)
		}

		n.mu.Lock()
		if !job.layer.Availability.IsResolved() {
			job.layer.Availability.Resolve(table)
		}
		n.mu.Unlock()

	default:
		return fmt.Errorf("unknown layer field %q", job.field)
	}
	return nil
}
