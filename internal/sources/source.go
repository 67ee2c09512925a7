// Package sources implements the per-provider extractors that turn raw
// upstream payloads into normalized DisplayData records. Every source
// owns one station and one privately cached payload; Update replaces
// the cache only on a successful, non-empty fetch so stale data always
// beats no data.
package sources

import (
	"context"
	"errors"
	"time"

	"github.com/tkrause/wetterdeck/internal/models"
)

// ErrNoData signals that a fetch succeeded but the payload did not
// contain the expected structure. The previously cached data stays in
// place, exactly as on a transport failure.
var ErrNoData = errors.New("no usable data in response")

// Source is one upstream weather provider bound to a station. Update
// fetches and normalizes new data; DisplayData reduces the cached
// payload to the record the renderers consume. DisplayData never
// fails: fields without data keep their sentinel values.
type Source interface {
	Name() string
	Station() models.Station
	Update(ctx context.Context) error
	DisplayData() models.DisplayData
}

// midnight returns the start of the day t lies in, keeping t's zone.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
