package publisher

import (
	"context"

	"github.com/0xAF/owrx-markers/internal/marker"
)

// Publisher receives incremental map operations. A cancelled ctx abandons the
// operation.
type Publisher interface {
	// Update adds or replaces the marker shown under id. category is the marker mode.
	Update(ctx context.Context, id string, m *marker.Marker, category string, exp marker.Expiry)
	// Remove deletes the marker shown under id
	Remove(ctx context.Context, id string)
}

// Op is the kind of a map operation
type Op string

const (
	OpUpdate Op = "update"
	OpRemove Op = "remove"
)
