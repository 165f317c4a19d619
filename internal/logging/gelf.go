package logging

import (
	"fmt"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogWriter opens a UDP GELF writer to address. Each Write becomes one
// GELF message whose short message is the first line of the payload.
func NewGraylogWriter(address, facility string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("failed to create graylog writer for %s: %w", address, err)
	}
	w.Facility = facility
	return w, nil
}
