package otel

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ccviewer/navigator/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NotNil(t, p.Meter("test"))
}

func TestNew_EnabledWithoutOutputs(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "navigator"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log writer or endpoint")
}

func TestNew_FileExporter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{
		Enabled:      true,
		ServiceName:  "navigator",
		SessionID:    "s-1",
		BatchTimeout: time.Second,
		LogWriter:    &buf,
	})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	var rec log.Record
	rec.SetBody(log.StringValue("layer selected"))
	p.LoggerProvider().Logger("test").Emit(context.Background(), rec)

	require.NoError(t, p.Flush(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "layer selected")
	assert.Contains(t, buf.String(), "navigator")
}

func TestFromConfig(t *testing.T) {
	var buf bytes.Buffer
	c := FromConfig(config.OTelConfig{
		Enabled:      true,
		ServiceName:  "svc",
		BatchTimeout: 2 * time.Second,
		Endpoint:     "otel:4318",
		Insecure:     true,
	}, "abc", &buf, nil)

	assert.True(t, c.Enabled)
	assert.Equal(t, "svc", c.ServiceName)
	assert.Equal(t, "abc", c.SessionID)
	assert.Equal(t, 2*time.Second, c.BatchTimeout)
	assert.Equal(t, "otel:4318", c.Endpoint)
	assert.True(t, c.Insecure)
	assert.Same(t, &buf, c.LogWriter)
	assert.Nil(t, c.Registerer)
}

func TestNew_MetricsOnly(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := New(Config{ServiceName: "navigator", Registerer: reg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())

	counter, err := p.Meter("test").Int64Counter("navigation.fetch.resolved")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "navigation_fetch_resolved") {
			found = true
			require.NotEmpty(t, mf.GetMetric())
			assert.Equal(t, 2.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "counter exported to the registry")
}
