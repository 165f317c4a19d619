// Package profile loads the imagery profile: origin, zoom widths, layer
// catalog and URL prefix. Profiles are JSON or YAML files, or JSON served
// over HTTP.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ccviewer/navigator/internal/fetch"
	"github.com/ccviewer/navigator/pkg/core"

	"gopkg.in/yaml.v3"
)

// Format is a profile encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatOf picks the encoding from a file name or URL path.
func FormatOf(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes a profile. The content is not validated; a layer or zoom
// that is missing simply reads as absent later.
func Parse(data []byte, format Format) (*core.Profile, error) {
	var p core.Profile
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decoding yaml profile: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decoding json profile: %w", err)
		}
	}

	if p.Layers == nil {
		p.Layers = map[string]*core.Layer{}
	}
	if p.Zoom == nil {
		p.Zoom = map[int]core.ZoomLevel{}
	}
	return &p, nil
}

// Load reads a profile from a local path or, for http(s) sources, through f.
// Remote profiles are always JSON.
func Load(ctx context.Context, source string, f fetch.Fetcher) (*core.Profile, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if f == nil {
			return nil, fmt.Errorf("no fetcher to load profile from %s", source)
		}
		data, err := f.FetchJSON(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("fetching profile: %w", err)
		}
		return Parse(data, FormatJSON)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	return Parse(data, FormatOf(source))
}
