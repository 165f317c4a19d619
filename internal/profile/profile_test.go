package profile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ccviewer/navigator/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonProfile = `{
	"origin": [1136073600000, 0],
	"prefix": "https://data.example.com/v1",
	"zoom": {"0": {"width": 86400000}, "1": {"width": 172800000}},
	"layers": {
		"sst": {"colormap": "colormaps/sst.json", "availability": "sst/availability.json"},
		"chl": {"colormap": {"steps": [0, 1]}, "availability": {"0": [[0, 10]]}}
	}
}`

const yamlProfile = `
origin: [1136073600000, 0]
prefix: https://data.example.com/v1
zoom:
  0: {width: 86400000}
layers:
  sst:
    colormap: colormaps/sst.json
    availability:
      0: [[0, 10], [20, 30]]
`

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatOf("profile.json"))
	assert.Equal(t, FormatYAML, FormatOf("profile.yaml"))
	assert.Equal(t, FormatYAML, FormatOf("/etc/nav/PROFILE.YML"))
	assert.Equal(t, FormatJSON, FormatOf("profile"))
}

func TestParse_JSON(t *testing.T) {
	p, err := Parse([]byte(jsonProfile), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, 1136073600000.0, p.OriginMs())
	assert.Equal(t, "https://data.example.com/v1", p.Prefix)
	w, ok := p.ZoomWidth(1)
	require.True(t, ok)
	assert.Equal(t, 172800000.0, w)

	sst := p.Layers["sst"]
	require.NotNil(t, sst)
	url, ok := sst.Availability.URL()
	require.True(t, ok)
	assert.Equal(t, "sst/availability.json", url)

	chl := p.Layers["chl"]
	require.NotNil(t, chl)
	assert.True(t, chl.Colormap.IsResolved())
	assert.True(t, chl.Availability.IsResolved())
}

func TestParse_YAML(t *testing.T) {
	p, err := Parse([]byte(yamlProfile), FormatYAML)
	require.NoError(t, err)

	sst := p.Layers["sst"]
	require.NotNil(t, sst)
	assert.False(t, sst.Colormap.IsResolved())
	table, ok := sst.Availability.Value()
	require.True(t, ok)
	assert.Len(t, table[0], 2)
}

func TestParse_EmptyMapsAreAllocated(t *testing.T) {
	p, err := Parse([]byte(`{"origin": [0, 0]}`), FormatJSON)
	require.NoError(t, err)
	assert.NotNil(t, p.Layers)
	assert.NotNil(t, p.Zoom)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`{not json`), FormatJSON)
	assert.Error(t, err)

	_, err = Parse([]byte("origin: [1, 2\n"), FormatYAML)
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "profile.json")
	yamlPath := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonProfile), 0644))
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlProfile), 0644))

	p, err := Load(context.Background(), jsonPath, nil)
	require.NoError(t, err)
	assert.Len(t, p.Layers, 2)

	p, err = Load(context.Background(), yamlPath, nil)
	require.NoError(t, err)
	assert.Len(t, p.Layers, 1)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), "/nonexistent/profile.json", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading profile")
}

func TestLoad_HTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(jsonProfile))
	}))
	defer server.Close()

	p, err := Load(context.Background(), server.URL+"/profile.json", fetch.NewClient(time.Second))
	require.NoError(t, err)
	assert.Len(t, p.Layers, 2)
}

func TestLoad_HTTPErrors(t *testing.T) {
	_, err := Load(context.Background(), "https://example.com/p.json", nil)
	assert.Error(t, err)

	failing := fetch.Func(func(ctx context.Context, url string) ([]byte, error) {
		return nil, errors.New("boom")
	})
	_, err = Load(context.Background(), "https://example.com/p.json", failing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
