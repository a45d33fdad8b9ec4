package publisher

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/0xAF/owrx-markers/internal/logger"
	"github.com/0xAF/owrx-markers/internal/marker"
)

// DryRun prints what would be sent to the map without sending it
type DryRun struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

type dryRunLine struct {
	Op       Op             `json:"op"`
	ID       string         `json:"id"`
	Category string         `json:"category,omitempty"`
	Expires  *time.Time     `json:"expires,omitempty"`
	Marker   *marker.Marker `json:"marker,omitempty"`
}

// NewDryRun creates a dry-run publisher writing JSON lines to w.
// If w is nil, os.Stdout is used.
func NewDryRun(w io.Writer) *DryRun {
	if w == nil {
		w = os.Stdout
	}
	return &DryRun{
		enc: json.NewEncoder(w),
		now: time.Now,
	}
}

// Update prints the marker that would be shown
func (d *DryRun) Update(_ context.Context, id string, m *marker.Marker, category string, exp marker.Expiry) {
	expires := exp.Deadline(d.now()).UTC()
	d.write(dryRunLine{
		Op:       OpUpdate,
		ID:       id,
		Category: category,
		Expires:  &expires,
		Marker:   m,
	})
}

// Remove prints the id that would be removed
func (d *DryRun) Remove(_ context.Context, id string) {
	d.write(dryRunLine{Op: OpRemove, ID: id})
}

func (d *DryRun) write(line dryRunLine) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.enc.Encode(line); err != nil {
		logger.Error("Writing dry-run operation failed", logger.Fields{
			"op": string(line.Op),
			"id": line.ID,
		}, err)
	}
}
