// Package streaming defines the messages pushed to live event subscribers.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/ccviewer/navigator/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeHello       = "hello"
	TypeChange      = "change"
	TypeLayerChange = "layerchange"
	TypeFetchError  = "fetcherror"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// State is a snapshot of navigation state. It is sent as the hello payload
// and served by GET /state.
type State struct {
	Fragment     string       `json:"fragment,omitempty"`
	Zoom         int          `json:"zoom"`
	MaxZoom      int          `json:"maxZoom"`
	Layer        string       `json:"layer"`
	Layers       []string     `json:"layers"`
	Availability []core.Range `json:"availability"`
	Colormap     bool         `json:"colormapLoaded"`
}

// FetchErrorPayload describes a layer table that failed to load.
type FetchErrorPayload struct {
	Layer string `json:"layer"`
	Field string `json:"field"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Encode builds the wire form of an envelope. A nil payload is omitted.
func Encode(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}
